// Package extruder1 binds a four-zone barrel heater (nozzle, front,
// middle, back) plus a screw-speed stepper to machine.Machine. Ported
// from original_source/machines/src/extruder1/mod.rs: the same four
// HeatingType zones, an ExtruderV2Mode-style Standby/Heat/Extrude mode,
// and one screw speed controller.
package extruder1

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/lineflow/linectl/internal/control"
	"github.com/lineflow/linectl/internal/ctlerr"
	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/events"
	"github.com/lineflow/linectl/internal/machine"
	"github.com/lineflow/linectl/internal/models"
	"github.com/lineflow/linectl/internal/quantity"
	"github.com/lineflow/linectl/internal/regulate"
)

// Zone names index the four heating zones, matching
// original_source/machines/src/extruder1/mod.rs's HeatingType.
const (
	ZoneNozzle = iota
	ZoneFront
	ZoneMiddle
	ZoneBack
	zoneCount
)

// Device roles this machine type expects.
const (
	RoleZoneTempInput    uint16 = iota // one TempIn, zoneCount channels
	RoleZoneHeaterRelays               // one DigitalOut, zoneCount channels
	RoleScrewStepper
)

// Mode is the extruder's top-level operating mode.
type Mode int

const (
	ModeStandby Mode = iota
	ModeHeat
	ModeExtrude
)

// Extruder1 drives zoneCount independent PWM heater loops and a screw
// speed controller.
type Extruder1 struct {
	id machine.MachineIdentificationUnique

	mu sync.Mutex

	tempInput    *device.TempIn
	heaterRelays *device.DigitalOut
	screwStepper *device.Stepper

	heaters     [zoneCount]*regulate.Heater
	screw       *control.LinearSpeedController
	screwTarget quantity.Velocity

	countsPerScrewRev float64

	mode Mode

	emitter *events.MachineEmitter
}

// Config carries the per-installation PID gains and envelopes.
type Config struct {
	HeaterKp, HeaterKi, HeaterKd float64
	HeaterMaxDuty                float64
	HeaterPeriod                 time.Duration

	ScrewMaxSpeed quantity.Velocity
	ScrewMaxAccel quantity.Acceleration
	ScrewMaxJerk  quantity.Jerk

	CountsPerScrewRev float64
}

// New constructs an Extruder1 bound to the given role devices.
func New(id machine.MachineIdentificationUnique, roles map[uint16]device.Device, cfg Config) (*Extruder1, error) {
	tempInput, ok := roles[RoleZoneTempInput].(*device.TempIn)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "extruder1.New", "missing or mistyped role: zone temperature input")
	}
	heaterRelays, ok := roles[RoleZoneHeaterRelays].(*device.DigitalOut)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "extruder1.New", "missing or mistyped role: zone heater relays")
	}
	screwStepper, ok := roles[RoleScrewStepper].(*device.Stepper)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "extruder1.New", "missing or mistyped role: screw stepper")
	}

	e := &Extruder1{
		id:                id,
		tempInput:         tempInput,
		heaterRelays:      heaterRelays,
		screwStepper:      screwStepper,
		countsPerScrewRev: cfg.CountsPerScrewRev,
		mode:              ModeStandby,
	}
	for i := range e.heaters {
		e.heaters[i] = regulate.NewHeater(cfg.HeaterKp, cfg.HeaterKi, cfg.HeaterKd, cfg.HeaterMaxDuty, cfg.HeaterPeriod)
	}
	lo, hi := quantity.Velocity(0), cfg.ScrewMaxSpeed
	e.screw = control.NewLinearSpeedController(&lo, &hi, -cfg.ScrewMaxAccel, cfg.ScrewMaxAccel, -cfg.ScrewMaxJerk, cfg.ScrewMaxJerk)
	return e, nil
}

// ID implements machine.Machine.
func (e *Extruder1) ID() machine.MachineIdentificationUnique { return e.id }

// SetEmitter implements machine.EventEmitting.
func (e *Extruder1) SetEmitter(emitter *events.MachineEmitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitter = emitter
}

// liveValues is the payload reported under the "live_values" event
// every cycle (spec.md §4.7).
type liveValues struct {
	ZoneTemperaturesCelsius [zoneCount]float64 `json:"zone_temperatures_celsius"`
	ZoneDuties              [zoneCount]float64 `json:"zone_duties"`
	ScrewSpeedMPM           float64            `json:"screw_speed_mpm"`
}

// state is the payload reported under the "state" event on every
// mutation (spec.md §4.5).
type state struct {
	Mode                    Mode               `json:"mode"`
	ZoneTargetTemperaturesC [zoneCount]float64 `json:"zone_target_temperatures_celsius"`
	ScrewTargetSpeedMPM     float64            `json:"screw_target_speed_mpm"`
}

func (e *Extruder1) snapshotState() state {
	var s state
	s.Mode = e.mode
	for i, h := range e.heaters {
		s.ZoneTargetTemperaturesC[i] = h.TargetTemp.Celsius()
	}
	s.ScrewTargetSpeedMPM = e.screwTarget.MetresPerMinute()
	return s
}

// Act implements machine.Machine: updates all four heater PID loops
// every cycle in every mode; the heater relays follow them in Heat and
// Extrude and are forced off in Standby. The screw is driven only in
// ModeExtrude.
func (e *Extruder1) Act(outputTS time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lv liveValues
	for i, h := range e.heaters {
		measured := quantity.TemperatureCelsius(e.tempInput.DegC(i))
		on := h.Update(measured, outputTS)
		if e.mode == ModeStandby {
			on = false
		}
		e.heaterRelays.SetChannel(i, on)
		lv.ZoneTemperaturesCelsius[i] = measured.Celsius()
		lv.ZoneDuties[i] = h.Duty()
	}

	target := quantity.Velocity(0)
	if e.mode == ModeExtrude {
		target = e.screwTarget
	}
	speed := e.screw.Update(target, outputTS)
	e.screwStepper.SetSpeed(speedToStepperCounts(speed.MetresPerSecond(), e.countsPerScrewRev))

	if e.emitter != nil {
		lv.ScrewSpeedMPM = speed.MetresPerMinute()
		e.emitter.EmitLiveValues(lv, outputTS)
	}
}

func speedToStepperCounts(metresPerSecond, countsPerMetre float64) int16 {
	v := metresPerSecond * countsPerMetre
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Mutate implements machine.Machine.
func (e *Extruder1) Mutate(payload json.RawMessage) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch head.Type {
	case "set_mode":
		var body struct {
			Mode Mode `json:"mode"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		e.mode = body.Mode

	case "set_zone_target_temperature":
		var body struct {
			Zone        int     `json:"zone"`
			Celsius     float64 `json:"celsius"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		if body.Zone < 0 || body.Zone >= zoneCount {
			return ctlerr.New(ctlerr.FatalConfig, "extruder1.Mutate", "zone index out of range")
		}
		e.heaters[body.Zone].TargetTemp = quantity.TemperatureCelsius(body.Celsius)

	case "set_screw_target_speed":
		var body struct {
			MetresPerMinute float64 `json:"metres_per_minute"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		e.screwTarget = quantity.VelocityMetresPerMinute(body.MetresPerMinute)

	default:
		return ctlerr.New(ctlerr.FatalConfig, "extruder1.Mutate", "unknown mutation type: "+head.Type)
	}

	if e.emitter != nil {
		e.emitter.EmitState(e.snapshotState(), time.Now())
	}
	return nil
}

// Catalogue is this model's machine.Catalogue entry.
var Catalogue = machine.Catalogue{
	models.Identification(models.MachineTypeExtruder1): func(id machine.MachineIdentificationUnique, roles map[uint16]device.Device) (machine.Machine, error) {
		return New(id, roles, DefaultConfig())
	},
}

// DefaultConfig returns placeholder PID gains and envelopes.
func DefaultConfig() Config {
	return Config{
		HeaterKp: 8, HeaterKi: 0.05, HeaterKd: 2,
		HeaterMaxDuty: 1, HeaterPeriod: time.Second,
		ScrewMaxSpeed:     quantity.VelocityMetresPerMinute(20),
		ScrewMaxAccel:     quantity.AccelerationMetresPerMinutePerSecond(10),
		ScrewMaxJerk:      quantity.JerkMetresPerMinutePerSecondSquared(20),
		CountsPerScrewRev: 4000,
	}
}
