package control

import (
	"time"

	"github.com/lineflow/linectl/internal/mathx"
)

type deadTimeSample struct {
	t   time.Time
	err float64
}

// DeadTimeP is a proportional controller whose action at time t responds
// to the error sample recorded at t-dead rather than the current error,
// modeling a transport delay between actuator and sensor (spec.md
// §4.3.3). dead is supplied fresh on every Update call since it depends
// on a time-varying line speed. Like ClampingPID, gains are time-agnostic:
// Update returns an increment scaled by the elapsed time since the
// previous call, not a flat proportional value, so the rate of change it
// drives stays consistent regardless of cycle jitter (spec.md §8 scenario
// 6: commanded speed increases by kp·error·dt per cycle).
type DeadTimeP struct {
	Kp                   float64
	MinSignal, MaxSignal *float64

	history []deadTimeSample
	last    time.Time
	hasLast bool
}

// Update records the current error sample and returns Kp times the error
// that was current dead ago, scaled by the time elapsed since the
// previous Update call (zero on the first call, with no elapsed time to
// scale by). Samples older than this call's now-dead cutoff are evicted
// to bound memory, except the newest one at or before the cutoff.
func (c *DeadTimeP) Update(errNow float64, dead time.Duration, now time.Time) float64 {
	c.history = append(c.history, deadTimeSample{t: now, err: errNow})

	delayed := c.sampleAt(now.Add(-dead))

	cutoff := now.Add(-dead)
	evictBefore := 0
	for i, s := range c.history {
		if s.t.Before(cutoff) {
			evictBefore = i
			continue
		}
		break
	}
	if evictBefore > 0 {
		c.history = append([]deadTimeSample(nil), c.history[evictBefore:]...)
	}

	var dt float64
	if c.hasLast {
		dt = now.Sub(c.last).Seconds()
	}
	c.last = now
	c.hasLast = true

	return mathx.OptionalClamp(c.Kp*delayed*dt, c.MinSignal, c.MaxSignal)
}

// sampleAt returns the most recent recorded error at or before target,
// or the oldest available sample if target predates all history.
func (c *DeadTimeP) sampleAt(target time.Time) float64 {
	if len(c.history) == 0 {
		return 0
	}
	best := c.history[0].err
	for _, s := range c.history {
		if s.t.After(target) {
			break
		}
		best = s.err
	}
	return best
}

// Reset discards all recorded error history and forgets the last update
// time, so the next Update call has no dt to scale by.
func (c *DeadTimeP) Reset() {
	c.history = nil
	c.hasLast = false
}
