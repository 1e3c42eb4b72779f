// Package events generalizes the teacher's bus package (topic trie,
// channel-backed Subscription, best-effort non-blocking delivery) into a
// named-room cache model: instead of one retained message per MQTT-style
// topic, a Room keeps a per-event-name cache sequence governed by a
// CacheFn, replayed in full to every new subscriber (spec.md §4.7).
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SocketID opaquely identifies a subscriber, assigned at Subscribe time.
type SocketID string

// Subscription is a live feed of events for one socket within one room.
type Subscription struct {
	ID   SocketID
	room *Room
	ch   chan Event
}

// Channel returns the subscription's delivery channel.
func (s *Subscription) Channel() <-chan Event { return s.ch }

// Unsubscribe removes this subscription from its room and closes its
// channel.
func (s *Subscription) Unsubscribe() { s.room.unsubscribe(s) }

type eventKindState struct {
	cache CacheFn
	seq   []Event
}

// Room is a named broadcast domain (spec.md's RoomID, e.g. "/main" or
// "/machine/{vendor}/{machine}/{serial}") holding one cache sequence per
// event name and a set of live subscribers.
type Room struct {
	id string

	mu    sync.Mutex
	kinds map[string]*eventKindState
	subs  map[SocketID]*Subscription
	qLen  int
}

func newRoom(id string, qLen int) *Room {
	if qLen <= 0 {
		qLen = 16
	}
	return &Room{id: id, kinds: make(map[string]*eventKindState), subs: make(map[SocketID]*Subscription), qLen: qLen}
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.id }

// Configure installs the cache policy for an event name. Must be called
// before the first Emit under that name to take effect on it; later
// calls only change the policy applied going forward.
func (r *Room) Configure(eventName string, cache CacheFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kindLocked(eventName).cache = cache
}

func (r *Room) kindLocked(eventName string) *eventKindState {
	k := r.kinds[eventName]
	if k == nil {
		k = &eventKindState{cache: CacheNEvents(1)}
		r.kinds[eventName] = k
	}
	return k
}

// Emit appends an event under eventName per the configured cache policy
// and broadcasts it to every current subscriber, best-effort (a full
// subscriber channel is evicted-and-retried once, matching the
// teacher's bus.tryDeliver, never blocking the caller).
func (r *Room) Emit(eventName string, payload any, now time.Time) {
	evt := Event{Name: eventName, Payload: payload, Timestamp: now}

	r.mu.Lock()
	k := r.kindLocked(eventName)
	k.seq = k.cache(k.seq, evt)
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		deliver(s.ch, evt)
	}
}

func deliver(ch chan Event, evt Event) {
	select {
	case ch <- evt:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}

// Subscribe joins the room, assigning a fresh opaque id, and replays the
// full cached sequence for every configured event name in cache order
// before returning (spec.md §4.7 "on subscribe, the full cached
// sequence is re-emitted").
func (r *Room) Subscribe() *Subscription {
	sub := &Subscription{ID: SocketID(uuid.NewString()), room: r, ch: make(chan Event, r.qLen)}

	r.mu.Lock()
	r.subs[sub.ID] = sub
	var replay []Event
	for _, k := range r.kinds {
		replay = append(replay, k.seq...)
	}
	r.mu.Unlock()

	for _, evt := range replay {
		deliver(sub.ch, evt)
	}
	return sub
}

func (r *Room) unsubscribe(sub *Subscription) {
	r.mu.Lock()
	delete(r.subs, sub.ID)
	r.mu.Unlock()
	close(sub.ch)
}

// SubscriberCount reports how many live subscriptions the room currently
// holds.
func (r *Room) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
