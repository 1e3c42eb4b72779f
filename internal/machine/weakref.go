package machine

import "sync/atomic"

// WeakMachineRef emulates the original's Weak<dyn Machine> using an
// atomically-swappable pointer: Go has no native weak-pointer type that
// a Manager could clear out from under a holder, so the Manager instead
// owns one atomic.Pointer per registered machine and clears it on
// teardown. Upgrade mirrors Rust's Weak::upgrade exactly: it returns
// (Machine, false) once the referent is gone rather than a stale or nil
// Machine silently accepted by a caller that forgot to check ok
// (spec.md §4.5 "cross-machine wiring").
type WeakMachineRef struct {
	ptr *atomic.Pointer[Machine]
}

// Upgrade returns the live machine and true, or (nil, false) if the
// referent has been torn down.
func (w WeakMachineRef) Upgrade() (Machine, bool) {
	if w.ptr == nil {
		return nil, false
	}
	p := w.ptr.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}
