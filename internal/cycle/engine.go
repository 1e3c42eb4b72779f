// Package cycle implements the hard real-time EtherCAT cycle loop of
// spec.md §4.4: one OS thread runs tx_rx, demultiplexes PDO mirrors into
// bound devices, drives registered machines, and remultiplexes outputs,
// then yields to a resonant scheduler before repeating. Grounded on the
// teacher's single-goroutine HAL loop (services/hal/internal/core/loop.go)
// — a hand-rolled, no-allocation, reused-timer event loop is exactly the
// Go idiom for what the original implementation built on a single-
// threaded async executor pinned to one OS thread.
package cycle

import (
	"context"
	"runtime"
	"time"

	"github.com/lineflow/linectl/internal/ctlerr"
	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/pdo"
)

// Bus performs the single blocking I/O operation of a cycle: sending the
// EtherCAT datagram covering every configured PDO and awaiting the
// working-counter reply.
type Bus interface {
	TxRx(ctx context.Context) error
}

// Machine is a registered actor driven once per cycle in registration
// order (spec.md §4.4 step 5).
type Machine interface {
	Act(outputTS time.Time)
}

// Slot pairs one slave's process-image byte ranges with its bound
// device driver. Device is nil for an unbound (unidentified) slave,
// which the engine skips entirely.
type Slot struct {
	Device device.Device
	Input  []byte
	Output []byte
}

// Observer receives cycle telemetry; the real-time setup package
// implements this against a Prometheus histogram/gauge pair. A nil
// Observer is valid and simply discards telemetry.
type Observer interface {
	ObserveCycle(dur time.Duration)
	ObserveCycleError(err error)
}

type noopObserver struct{}

func (noopObserver) ObserveCycle(time.Duration) {}
func (noopObserver) ObserveCycleError(error)     {}

// Engine runs the cycle loop described in spec.md §4.4.
type Engine struct {
	Bus      Bus
	Slots    []*Slot
	Machines []Machine
	Observer Observer
}

// NewEngine constructs an Engine. A nil observer is replaced with a
// no-op so the hot path never needs a nil check.
func NewEngine(bus Bus, slots []*Slot, machines []Machine, obs Observer) *Engine {
	if obs == nil {
		obs = noopObserver{}
	}
	return &Engine{Bus: bus, Slots: slots, Machines: machines, Observer: obs}
}

// Run locks the calling goroutine to its OS thread — the idiomatic Go
// equivalent of the original single-threaded real-time executor — and
// runs the cycle loop under sched until ctx is cancelled. The loop itself
// never exits on a cycle-fatal error; only ctx cancellation (or sched
// reporting Exit, which production wiring never does) stops it.
func (e *Engine) Run(ctx context.Context, sched *Scheduler, clock func() time.Time) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	sched.Run(ctx, clock, func(ctx context.Context, inputTS time.Time) Feedback {
		e.runOneCycle(ctx, inputTS, sched.AverageTaskTime())
		return Continue
	})
}

// runOneCycle executes steps 1-6 of spec.md §4.4. Any length mismatch or
// transport error aborts the remainder of the cycle with no partial
// write; the next cycle starts fresh.
func (e *Engine) runOneCycle(ctx context.Context, inputTS time.Time, avgCycle time.Duration) {
	defer func(start time.Time) {
		e.Observer.ObserveCycle(time.Since(start))
	}(inputTS)

	if err := e.Bus.TxRx(ctx); err != nil {
		e.Observer.ObserveCycleError(ctlerr.Wrap(ctlerr.TransientBusError, "cycle.TxRx", err))
		return
	}

	outputTS := inputTS.Add(avgCycle)

	for _, s := range e.Slots {
		if s.Device == nil {
			continue
		}
		s.Device.Ts(inputTS, outputTS)
		if err := device.InputChecked(s.Device, s.Input); err != nil {
			e.Observer.ObserveCycleError(err)
			return
		}
	}

	for _, m := range e.Machines {
		m.Act(outputTS)
	}

	for _, s := range e.Slots {
		if s.Device != nil && len(s.Output) != pdo.ByteLen(s.Device.OutputLen()) {
			e.Observer.ObserveCycleError(ctlerr.New(ctlerr.FatalDeviceShape, "cycle.Output", "output length mismatch"))
			return
		}
	}

	for _, s := range e.Slots {
		if s.Device == nil {
			continue
		}
		if err := device.OutputChecked(s.Device, s.Output); err != nil {
			e.Observer.ObserveCycleError(err)
			return
		}
	}
}
