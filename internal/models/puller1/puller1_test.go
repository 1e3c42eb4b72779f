package puller1

import (
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/machine"
	"github.com/lineflow/linectl/internal/regulate"
)

func newTestPuller(t *testing.T) *Puller1 {
	t.Helper()
	roles := map[uint16]device.Device{
		RolePullerStepper:  &device.Stepper{},
		RoleDiameterSensor: device.NewAnalogIn(1, device.PDOPresetStandard),
	}
	id := machine.MachineIdentificationUnique{
		MachineIdentification: machine.MachineIdentification{VendorID: 1, MachineType: 2},
		SerialNumber:           9,
	}
	p, err := New(id, roles, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestNewRejectsMissingStepperRole(t *testing.T) {
	if _, err := New(machine.MachineIdentificationUnique{}, map[uint16]device.Device{}, DefaultConfig()); err == nil {
		t.Fatal("expected an error for a missing puller stepper role")
	}
}

func TestNewAllowsOmittedDiameterSensor(t *testing.T) {
	roles := map[uint16]device.Device{RolePullerStepper: &device.Stepper{}}
	p, err := New(machine.MachineIdentificationUnique{}, roles, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.diameterSensor != nil {
		t.Fatal("expected a nil diameter sensor when its role is absent")
	}
}

func TestActStoppedCommandsZeroSpeed(t *testing.T) {
	p := newTestPuller(t)
	if err := p.Mutate([]byte(`{"type":"set_target_speed","metres_per_minute":10}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Act(time.Now())
	if p.pullerStepper.Control.FrequencyValue != 0 {
		t.Fatalf("expected zero speed while stopped, got %d", p.pullerStepper.Control.FrequencyValue)
	}
}

func TestActRunningFixedRampsTowardTarget(t *testing.T) {
	p := newTestPuller(t)
	if err := p.Mutate([]byte(`{"type":"set_target_speed","metres_per_minute":10}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Mutate([]byte(`{"type":"set_mode","mode":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Now()
	for i := 0; i < 50; i++ {
		now = now.Add(10 * time.Millisecond)
		p.Act(now)
	}
	if p.pullerStepper.Control.FrequencyValue == 0 {
		t.Fatal("expected a nonzero speed once running toward a positive target")
	}
}

func TestMutateSetStrategySwitchesBehavior(t *testing.T) {
	p := newTestPuller(t)
	if err := p.Mutate([]byte(`{"type":"set_strategy","strategy":2}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.puller.Strategy != regulate.PullerDiameterFlow {
		t.Fatalf("got strategy %v, want PullerDiameterFlow", p.puller.Strategy)
	}
}

func TestMutateUnknownTypeErrors(t *testing.T) {
	p := newTestPuller(t)
	if err := p.Mutate([]byte(`{"type":"nonsense"}`)); err == nil {
		t.Fatal("expected an error for an unrecognized mutation type")
	}
}
