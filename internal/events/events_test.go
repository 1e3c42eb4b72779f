package events

import (
	"testing"
	"time"
)

func TestRoomReplaysCacheFirstAndLastOnSubscribe(t *testing.T) {
	r := newRoom(MainRoomID, 4)
	r.Configure("state", CacheFirstAndLast)

	now := time.Unix(0, 0)
	r.Emit("state", "boot-default", now)
	r.Emit("state", "after-first-change", now.Add(time.Second))
	r.Emit("state", "after-second-change", now.Add(2*time.Second))

	sub := r.Subscribe()
	defer sub.Unsubscribe()

	var got []any
	for i := 0; i < 2; i++ {
		select {
		case evt := <-sub.Channel():
			got = append(got, evt.Payload)
		default:
			t.Fatalf("expected 2 replayed events, got %d", len(got))
		}
	}
	if got[0] != "boot-default" || got[1] != "after-second-change" {
		t.Fatalf("expected [boot-default after-second-change], got %v", got)
	}
}

func TestRoomCacheNEventsKeepsRing(t *testing.T) {
	r := newRoom(MainRoomID, 8)
	r.Configure("tick", CacheNEvents(2))

	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		r.Emit("tick", i, now.Add(time.Duration(i)*time.Second))
	}

	sub := r.Subscribe()
	var got []any
	for i := 0; i < 2; i++ {
		got = append(got, (<-sub.Channel()).Payload)
	}
	if got[0] != 3 || got[1] != 4 {
		t.Fatalf("expected ring [3 4], got %v", got)
	}
}

func TestRoomCacheDurationDropsStaleAndTooFrequent(t *testing.T) {
	r := newRoom(MainRoomID, 16)
	r.Configure("burst", CacheDuration(2*time.Second, 500*time.Millisecond))

	now := time.Unix(0, 0)
	r.Emit("burst", "a", now)
	r.Emit("burst", "b", now.Add(100*time.Millisecond)) // too soon, dropped
	r.Emit("burst", "c", now.Add(600*time.Millisecond))
	r.Emit("burst", "d", now.Add(2500*time.Millisecond)) // evicts "a"

	sub := r.Subscribe()
	var got []any
	for i := 0; i < 2; i++ {
		got = append(got, (<-sub.Channel()).Payload)
	}
	if got[0] != "c" || got[1] != "d" {
		t.Fatalf("expected [c d], got %v", got)
	}
}

func TestRegistryMachineRoomIDFormat(t *testing.T) {
	id := MachineRoomID(7, 3, 42)
	if id != "/machine/7/3/42" {
		t.Fatalf("got %q", id)
	}
}

func TestMachineEmitterThrottlesLiveValues(t *testing.T) {
	reg := NewRegistry(4)
	room := reg.Room(MachineRoomID(1, 2, 3))
	m := NewMachineEmitter(room)

	now := time.Unix(0, 0)
	if !m.EmitLiveValues(1.0, now) {
		t.Fatal("expected first emission to succeed")
	}
	if m.EmitLiveValues(2.0, now.Add(time.Millisecond)) {
		t.Fatal("expected a sub-interval emission to be throttled")
	}
	if !m.EmitLiveValues(3.0, now.Add(50*time.Millisecond)) {
		t.Fatal("expected an emission after 1/30s to succeed")
	}
}

type fakeState struct {
	Setpoint float64
	Enabled  bool
}

func TestMachineEmitterDedupsStateByContentHash(t *testing.T) {
	reg := NewRegistry(4)
	room := reg.Room(MachineRoomID(1, 2, 3))
	m := NewMachineEmitter(room)

	now := time.Unix(0, 0)
	emitted, isDefault := m.EmitState(fakeState{Setpoint: 10, Enabled: true}, now)
	if !emitted || !isDefault {
		t.Fatalf("expected first state emission to be a default emission, got emitted=%v isDefault=%v", emitted, isDefault)
	}

	emitted, isDefault = m.EmitState(fakeState{Setpoint: 10, Enabled: true}, now.Add(time.Second))
	if emitted {
		t.Fatal("expected identical state to be deduplicated")
	}

	emitted, isDefault = m.EmitState(fakeState{Setpoint: 11, Enabled: true}, now.Add(2*time.Second))
	if !emitted || isDefault {
		t.Fatalf("expected a changed state to emit as non-default, got emitted=%v isDefault=%v", emitted, isDefault)
	}
}

func TestSubscribeUnsubscribeClosesChannel(t *testing.T) {
	r := newRoom(MainRoomID, 2)
	sub := r.Subscribe()
	if r.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", r.SubscriberCount())
	}
	sub.Unsubscribe()
	if r.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe, got %d", r.SubscriberCount())
	}
	if _, ok := <-sub.Channel(); ok {
		t.Fatal("expected channel to be closed")
	}
}
