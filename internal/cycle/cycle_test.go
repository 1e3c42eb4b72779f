package cycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/pdo"
)

type fakeBus struct {
	err   error
	calls int
}

func (b *fakeBus) TxRx(ctx context.Context) error {
	b.calls++
	return b.err
}

type fakeDevice struct {
	in []byte
}

func (*fakeDevice) InputLen() int                                        { return 8 }
func (*fakeDevice) OutputLen() int                                       { return 0 }
func (d *fakeDevice) Input(bits []byte)                                  { d.in = append([]byte(nil), bits...) }
func (*fakeDevice) Output(bits []byte)                                   {}
func (*fakeDevice) WriteConfig(ctx context.Context, w pdo.SdoWriter) error { return nil }
func (d *fakeDevice) Ts(inputTS, outputTS time.Time)                     {}

var _ device.Device = (*fakeDevice)(nil)

type fakeMachine struct{ acted int }

func (m *fakeMachine) Act(ts time.Time) { m.acted++ }

type recordingObserver struct {
	cycles int
	errs   int
}

func (o *recordingObserver) ObserveCycle(time.Duration) { o.cycles++ }
func (o *recordingObserver) ObserveCycleError(error)    { o.errs++ }

func TestRunOneCycleSkipsUnboundSlots(t *testing.T) {
	bus := &fakeBus{}
	slots := []*Slot{{Device: nil, Input: nil, Output: nil}}
	obs := &recordingObserver{}
	e := NewEngine(bus, slots, nil, obs)
	e.runOneCycle(context.Background(), time.Unix(0, 0), time.Millisecond)
	if bus.calls != 1 {
		t.Fatalf("expected TxRx called once, got %d", bus.calls)
	}
	if obs.cycles != 1 || obs.errs != 0 {
		t.Fatalf("expected one clean cycle observation, got %+v", obs)
	}
}

func TestRunOneCycleAbortsOnBusError(t *testing.T) {
	bus := &fakeBus{err: errors.New("boom")}
	m := &fakeMachine{}
	obs := &recordingObserver{}
	e := NewEngine(bus, nil, []Machine{m}, obs)
	e.runOneCycle(context.Background(), time.Unix(0, 0), time.Millisecond)
	if m.acted != 0 {
		t.Fatal("machine should not act when TxRx fails")
	}
	if obs.errs != 1 {
		t.Fatalf("expected one error observation, got %d", obs.errs)
	}
}

func TestRunOneCycleDrivesMachinesAndDevices(t *testing.T) {
	bus := &fakeBus{}
	d := &fakeDevice{}
	slots := []*Slot{{Device: d, Input: make([]byte, 1), Output: nil}}
	m := &fakeMachine{}
	e := NewEngine(bus, slots, []Machine{m}, nil)
	e.runOneCycle(context.Background(), time.Unix(0, 0), time.Millisecond)
	if m.acted != 1 {
		t.Fatalf("expected machine to act once, got %d", m.acted)
	}
	if len(d.in) != 1 {
		t.Fatalf("expected device to receive its input slice, got %v", d.in)
	}
}
