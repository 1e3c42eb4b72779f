package aquapath1

import (
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/machine"
)

func newTestAquaPath(t *testing.T) *AquaPath1 {
	t.Helper()
	roles := map[uint16]device.Device{
		RoleTempSensorIn: &device.TempIn{},
		RoleCoolingValve: device.NewAnalogOut(1),
		RoleRelays:       device.NewDigitalOut(3),
		RoleFlowSensor:   &device.Stepper{},
	}
	id := machine.MachineIdentificationUnique{
		MachineIdentification: machine.MachineIdentification{VendorID: 1, MachineType: 5},
		SerialNumber:           3,
	}
	a, err := New(id, roles, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func TestNewRejectsMissingRole(t *testing.T) {
	if _, err := New(machine.MachineIdentificationUnique{}, map[uint16]device.Device{}, DefaultConfig()); err == nil {
		t.Fatal("expected an error for a missing role")
	}
}

func TestActStandbyForcesActuatorsOff(t *testing.T) {
	a := newTestAquaPath(t)
	a.relays.SetChannel(2, true)
	a.Act(time.Now())
	if a.coolingOut.Channels[0].Value != 0 {
		t.Fatalf("expected cooling valve closed in standby, got %d", a.coolingOut.Channels[0].Value)
	}
	for i := 0; i < 3; i++ {
		if a.relays.Channels[i].Value {
			t.Fatalf("expected relay %d off in standby", i)
		}
	}
}

func TestMutateSetModeAndTargetTemperature(t *testing.T) {
	a := newTestAquaPath(t)
	if err := a.Mutate([]byte(`{"type":"set_target_temperature","celsius":18}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Mutate([]byte(`{"type":"set_mode","mode":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.mode != ModeAuto {
		t.Fatalf("got mode %v, want ModeAuto", a.mode)
	}
	if got := a.targetTemp.Celsius(); got != 18 {
		t.Fatalf("got target %v, want 18", got)
	}
}

func TestActAutoOpensCoolingWhenAboveTarget(t *testing.T) {
	a := newTestAquaPath(t)
	a.tempIn.Channels[0].Value = 30000 // far above any plausible target, in raw device units
	if err := a.Mutate([]byte(`{"type":"set_target_temperature","celsius":10}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Mutate([]byte(`{"type":"set_mode","mode":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Act(time.Now())
	if a.coolingOut.Channels[0].Value <= 0 {
		t.Fatalf("expected the cooling valve to open when measured temperature exceeds target, got %d", a.coolingOut.Channels[0].Value)
	}
	if !a.relays.Channels[0].Value {
		t.Fatal("expected the cooling relay asserted when the valve is open")
	}
}

func TestMutateSetPumpEnabledDrivesPumpRelay(t *testing.T) {
	a := newTestAquaPath(t)
	if err := a.Mutate([]byte(`{"type":"set_pump_enabled","enabled":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Mutate([]byte(`{"type":"set_mode","mode":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Act(time.Now())
	if !a.relays.Channels[2].Value {
		t.Fatal("expected the pump relay on once enabled and running")
	}
}

func TestMutateUnknownTypeErrors(t *testing.T) {
	a := newTestAquaPath(t)
	if err := a.Mutate([]byte(`{"type":"nonsense"}`)); err == nil {
		t.Fatal("expected an error for an unrecognized mutation type")
	}
}

func TestFlowLitresPerMinute(t *testing.T) {
	a := newTestAquaPath(t)
	got := a.FlowLitresPerMinute(0, 2000, time.Minute)
	if got != 1 {
		t.Fatalf("got %v litres/minute, want 1", got)
	}
}
