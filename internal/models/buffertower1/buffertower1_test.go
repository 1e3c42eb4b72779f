package buffertower1

import (
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/machine"
)

func newTestBufferTower(t *testing.T) *BufferTower1 {
	t.Helper()
	roles := map[uint16]device.Device{RoleLiftStepper: &device.Stepper{}}
	id := machine.MachineIdentificationUnique{
		MachineIdentification: machine.MachineIdentification{VendorID: 1, MachineType: 4},
		SerialNumber:           2,
	}
	b, err := New(id, roles, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return b
}

func TestNewRejectsMissingRole(t *testing.T) {
	if _, err := New(machine.MachineIdentificationUnique{}, map[uint16]device.Device{}, DefaultConfig()); err == nil {
		t.Fatal("expected an error for a missing role")
	}
}

func TestMutateSetTargetHeightThenRegulate(t *testing.T) {
	b := newTestBufferTower(t)
	if err := b.Mutate([]byte(`{"type":"set_target_height","metres":2.0}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Mutate([]byte(`{"type":"set_mode","mode":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.mode != ModeRegulate {
		t.Fatalf("got mode %v, want ModeRegulate", b.mode)
	}

	now := time.Now()
	for i := 0; i < 20; i++ {
		now = now.Add(10 * time.Millisecond)
		b.Act(now)
	}
	if b.liftStepper.Control.FrequencyValue == 0 {
		t.Fatal("expected a nonzero lift speed while regulating toward a distant target height")
	}
}

func TestActHoldModeDoesNotChaseTarget(t *testing.T) {
	b := newTestBufferTower(t)
	b.targetHeight = 5.0 // set directly, mode stays ModeHold
	now := time.Now()
	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Millisecond)
		b.Act(now)
	}
	if b.liftStepper.Control.FrequencyValue != 0 {
		t.Fatalf("expected zero speed in ModeHold regardless of targetHeight, got %d", b.liftStepper.Control.FrequencyValue)
	}
}
