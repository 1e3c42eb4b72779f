package extruder1

import (
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/machine"
)

func newTestExtruder(t *testing.T) *Extruder1 {
	t.Helper()
	roles := map[uint16]device.Device{
		RoleZoneTempInput:    &device.TempIn{},
		RoleZoneHeaterRelays: device.NewDigitalOut(zoneCount),
		RoleScrewStepper:     &device.Stepper{},
	}
	id := machine.MachineIdentificationUnique{
		MachineIdentification: machine.MachineIdentification{VendorID: 1, MachineType: 3},
		SerialNumber:           7,
	}
	e, err := New(id, roles, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestNewRejectsMissingRole(t *testing.T) {
	roles := map[uint16]device.Device{RoleScrewStepper: &device.Stepper{}}
	if _, err := New(machine.MachineIdentificationUnique{}, roles, DefaultConfig()); err == nil {
		t.Fatal("expected an error for a missing role")
	}
}

func TestActStandbyForcesRelaysOff(t *testing.T) {
	e := newTestExtruder(t)
	e.heaters[ZoneNozzle].TargetTemp = 500 // absurdly high so the PID would otherwise latch on
	e.Act(time.Now())
	if e.heaterRelays.Channels[ZoneNozzle].Value {
		t.Fatal("expected standby mode to force all heater relays off regardless of PID output")
	}
}

func TestMutateSetZoneTargetTemperature(t *testing.T) {
	e := newTestExtruder(t)
	if err := e.Mutate([]byte(`{"type":"set_zone_target_temperature","zone":1,"celsius":210}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.heaters[ZoneFront].TargetTemp.Celsius(); got != 210 {
		t.Fatalf("got %v, want 210", got)
	}
}

func TestMutateRejectsOutOfRangeZone(t *testing.T) {
	e := newTestExtruder(t)
	if err := e.Mutate([]byte(`{"type":"set_zone_target_temperature","zone":99,"celsius":210}`)); err == nil {
		t.Fatal("expected an error for an out-of-range zone index")
	}
}

func TestMutateSetScrewTargetSpeedOnlyAppliesInExtrudeMode(t *testing.T) {
	e := newTestExtruder(t)
	if err := e.Mutate([]byte(`{"type":"set_screw_target_speed","metres_per_minute":5}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	e.Act(now)
	e.Act(now.Add(10 * time.Millisecond))
	if e.screwStepper.Control.FrequencyValue != 0 {
		t.Fatalf("expected zero screw speed outside ModeExtrude, got %d", e.screwStepper.Control.FrequencyValue)
	}

	if err := e.Mutate([]byte(`{"type":"set_mode","mode":2}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		now = now.Add(10 * time.Millisecond)
		e.Act(now)
	}
	if e.screwStepper.Control.FrequencyValue == 0 {
		t.Fatal("expected a nonzero screw speed once ModeExtrude is set and the profiler has ramped")
	}
}
