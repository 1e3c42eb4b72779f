package events

import "time"

const liveValuesInterval = time.Second / 30 // spec.md §4.7 "rate-limited to ~30 Hz"

// MachineEmitter emits a machine's two event kinds into its room:
// LiveValues (throttled to ~30Hz) and State (on every mutation and
// detected structural change, content-hash deduplicated, spec.md §4.7
// and §9). The very first State emission after construction carries
// DefaultState=true.
type MachineEmitter struct {
	Room *Room

	lastLiveValues time.Time
	haveLive       bool

	lastStateHash uint64
	haveState     bool
}

// NewMachineEmitter constructs an emitter bound to room, configuring its
// two event kinds' cache policies per spec.md §4.7 ("state" events use
// CacheFirstAndLast so late joiners see both the boot default and the
// current value; live values keep only the latest).
func NewMachineEmitter(room *Room) *MachineEmitter {
	room.Configure("live_values", CacheNEvents(1))
	room.Configure("state", CacheFirstAndLast)
	return &MachineEmitter{Room: room}
}

// EmitLiveValues emits payload under the live_values event name if at
// least 1/30s has elapsed since the last emission; returns whether it
// emitted.
func (m *MachineEmitter) EmitLiveValues(payload any, now time.Time) bool {
	if m.haveLive && now.Sub(m.lastLiveValues) < liveValuesInterval {
		return false
	}
	m.lastLiveValues = now
	m.haveLive = true
	m.Room.Emit("live_values", payload, now)
	return true
}

// EmitState emits payload under the state event name if its content
// hash differs from the last emission (or this is the first state
// emission ever), returning whether it emitted and whether this
// emission is the post-boot default state.
func (m *MachineEmitter) EmitState(payload any, now time.Time) (emitted, isDefault bool) {
	hash := contentHash(payload)
	if m.haveState && hash == m.lastStateHash {
		return false, false
	}
	isDefault = !m.haveState
	m.lastStateHash = hash
	m.haveState = true
	m.Room.Emit("state", stateEnvelope{Payload: payload, DefaultState: isDefault}, now)
	return true, isDefault
}

// ForceState bypasses the content-hash dedup, used when a structural
// change (e.g. a mutation handler rebuilding the state shape) must be
// reported even if, by coincidence, its hash matches the prior one.
func (m *MachineEmitter) ForceState(payload any, now time.Time) (isDefault bool) {
	isDefault = !m.haveState
	m.lastStateHash = contentHash(payload)
	m.haveState = true
	m.Room.Emit("state", stateEnvelope{Payload: payload, DefaultState: isDefault}, now)
	return isDefault
}

// stateEnvelope wraps a state payload with the default-state flag
// clients use to distinguish a just-connected replay of defaults from
// an operator-driven change (spec.md §4.7).
type stateEnvelope struct {
	Payload      any  `json:"payload"`
	DefaultState bool `json:"defaultState"`
}
