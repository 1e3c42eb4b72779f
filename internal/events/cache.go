package events

import "time"

// Event is one cached emission under an event name within a Room.
type Event struct {
	Name      string
	Payload   any
	Timestamp time.Time
}

// CacheFn governs which of a room's past events under one event name are
// retained and replayed to a newly-subscribed socket (spec.md §4.7).
// It receives the currently cached sequence and the new event, and returns
// the sequence to keep.
type CacheFn func(existing []Event, next Event) []Event

// CacheFirstAndLast keeps only the very first event ever seen and the
// most recent one — used for "state" events so a late joiner sees both
// the default state and the current state in one replay.
func CacheFirstAndLast(existing []Event, next Event) []Event {
	if len(existing) == 0 {
		return []Event{next}
	}
	return []Event{existing[0], next}
}

// CacheNEvents keeps a ring of the last n events (n >= 1).
func CacheNEvents(n int) CacheFn {
	if n < 1 {
		n = 1
	}
	return func(existing []Event, next Event) []Event {
		out := append(append([]Event(nil), existing...), next)
		if len(out) > n {
			out = out[len(out)-n:]
		}
		return out
	}
}

// CacheDuration keeps events whose timestamp is within d of the most
// recent one, additionally dropping next if it arrives less than
// minInterval after the previously cached event (rate limiting within
// the cache itself, independent of any upstream throttle).
func CacheDuration(d, minInterval time.Duration) CacheFn {
	return func(existing []Event, next Event) []Event {
		if len(existing) > 0 {
			last := existing[len(existing)-1]
			if next.Timestamp.Sub(last.Timestamp) < minInterval {
				return existing
			}
		}
		out := append(append([]Event(nil), existing...), next)
		cutoff := next.Timestamp.Add(-d)
		i := 0
		for i < len(out) && out[i].Timestamp.Before(cutoff) {
			i++
		}
		return out[i:]
	}
}
