package machine

import (
	"encoding/json"
	"time"

	"github.com/lineflow/linectl/internal/events"
)

// Machine is the universal contract every machine binding implements
// (spec.md §4.5): driven once per cycle with the cycle's output
// timestamp, mutated out-of-band by operator/supervisor commands, and
// self-identifying for registry and event-room addressing. Act's
// signature matches internal/cycle.Machine exactly so every binding can
// be registered with the cycle engine without an adapter.
type Machine interface {
	Act(outputTS time.Time)
	Mutate(payload json.RawMessage) error
	ID() MachineIdentificationUnique
}

// EventEmitting is implemented by machine bindings that report live
// values and state into an events.MachineEmitter (spec.md §4.5/§4.7:
// every successful mutation forces a state emission, and Act reports
// live values each cycle). Bind's caller wires an emitter into every
// bound machine that supports it, once its room has been created.
type EventEmitting interface {
	SetEmitter(emitter *events.MachineEmitter)
}
