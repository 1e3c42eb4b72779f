package machine

import (
	"sync"
	"sync/atomic"

	"github.com/lineflow/linectl/internal/ctlerr"
)

// Manager is the central machine registry (spec.md §3/§9): it holds the
// strong reference every registered machine is driven through, and hands
// out WeakMachineRefs that other machines use to look up a counterpart
// machine's current output without taking ownership of its lifetime.
type Manager struct {
	mu   sync.RWMutex
	refs map[MachineIdentificationUnique]*atomic.Pointer[Machine]
}

// NewManager constructs an empty registry.
func NewManager() *Manager {
	return &Manager{refs: make(map[MachineIdentificationUnique]*atomic.Pointer[Machine])}
}

// Register adds m to the registry under its own ID, replacing a prior
// registration under the same ID only once that machine has been torn
// down. Returns an error if a machine is already registered under that
// exact ID and has not been torn down.
func (m *Manager) Register(mach Machine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := mach.ID()
	ptr, exists := m.refs[id]
	if exists && ptr.Load() != nil {
		return ctlerr.New(ctlerr.FatalConfig, "machine.Register", "duplicate machine registration for the same identity")
	}
	if !exists {
		ptr = &atomic.Pointer[Machine]{}
		m.refs[id] = ptr
	}
	var iface Machine = mach
	ptr.Store(&iface)
	return nil
}

// Unregister tears down the machine registered under id, clearing every
// WeakMachineRef previously handed out for it.
func (m *Manager) Unregister(id MachineIdentificationUnique) {
	m.mu.RLock()
	ptr, ok := m.refs[id]
	m.mu.RUnlock()
	if ok {
		ptr.Store(nil)
	}
}

// Get returns the currently-registered strong reference to id, if any.
func (m *Manager) Get(id MachineIdentificationUnique) (Machine, bool) {
	m.mu.RLock()
	ptr, ok := m.refs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	p := ptr.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// WeakRef returns a WeakMachineRef to id, valid whether or not a machine
// is currently registered under it — the reference tracks future
// registrations/teardowns of that same identity.
func (m *Manager) WeakRef(id MachineIdentificationUnique) WeakMachineRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	ptr, ok := m.refs[id]
	if !ok {
		ptr = &atomic.Pointer[Machine]{}
		m.refs[id] = ptr
	}
	return WeakMachineRef{ptr: ptr}
}

// All returns every currently-registered machine, in no particular
// order. The cycle engine drives machines in its own registration-order
// slice built at bind time, not from this method — All exists for
// diagnostics and the event namespace's machine-room enumeration.
func (m *Manager) All() []Machine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Machine, 0, len(m.refs))
	for _, ptr := range m.refs {
		if p := ptr.Load(); p != nil {
			out = append(out, *p)
		}
	}
	return out
}
