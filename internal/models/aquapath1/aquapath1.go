// Package aquapath1 binds a water-cooling loop's temperature and pump
// regulation to machine.Machine: a PID closing on the inlet temperature's
// error against a target drives a proportional cooling valve (analog output) and a
// heating relay, with a separate pump relay and flow feedback. Ported
// from original_source/machines/src/aquapath1/{mod,controller}.rs's
// Controller (PID + cooling_controller/cooling_relais/heating_relais_1 +
// pump_relais/flow_sensor fields) and its Standby/Auto AquaPathV1Mode.
package aquapath1

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
)

// Device roles this machine type expects.
const (
	RoleTempSensorIn  uint16 = iota // TempIn channel 0: reservoir/loop inlet
	RoleTempSensorOut                // TempIn channel 1 (same terminal may serve both): loop outlet
	RoleCoolingValve                 // AnalogOut channel 0: proportional cooling valve
	RoleRelays                       // DigitalOut: 0=cooling, 1=heating, 2=pump
	RoleFlowSensor                   // Stepper used only for its encoder: pulse-per-volume flow meter
)

// Mode selects whether the loop actively regulates or sits idle.
type Mode int

const (
	ModeStandby Mode = iota
	ModeAuto
)

// AquaPath1 regulates one water-cooling loop.
type AquaPath1 struct {
	id machine.MachineIdentificationUnique

	mu sync.Mutex

	tempIn     *device.TempIn
	coolingOut *device.AnalogOut
	relays     *device.DigitalOut
	flowSensor *device.Stepper

	pid control.ClampingPID

	targetTemp     quantity.Temperature
	countsPerLitre float64
	pumpEnabled    bool
	mode           Mode

	emitter *events.MachineEmitter
}

// Config carries the per-installation PID gains and flow-meter scale.
type Config struct {
	Kp, Ki, Kd     float64
	CountsPerLitre float64
}

// New constructs an AquaPath1 bound to the given role devices.
func New(id machine.MachineIdentificationUnique, roles map[uint16]device.Device, cfg Config) (*AquaPath1, error) {
	tempIn, ok := roles[RoleTempSensorIn].(*device.TempIn)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "aquapath1.New", "missing or mistyped role: temperature input")
	}
	coolingOut, ok := roles[RoleCoolingValve].(*device.AnalogOut)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "aquapath1.New", "missing or mistyped role: cooling valve output")
	}
	relays, ok := roles[RoleRelays].(*device.DigitalOut)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "aquapath1.New", "missing or mistyped role: relay output")
	}
	flowSensor, ok := roles[RoleFlowSensor].(*device.Stepper)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "aquapath1.New", "missing or mistyped role: flow sensor")
	}

	minSignal, maxSignal := -1.0, 1.0
	a := &AquaPath1{
		id:             id,
		tempIn:         tempIn,
		coolingOut:     coolingOut,
		relays:         relays,
		flowSensor:     flowSensor,
		countsPerLitre: cfg.CountsPerLitre,
		mode:           ModeStandby,
	}
	a.pid = control.ClampingPID{Kp: cfg.Kp, Ki: cfg.Ki, Kd: cfg.Kd, MinSignal: &minSignal, MaxSignal: &maxSignal}
	return a, nil
}

// ID implements machine.Machine.
func (a *AquaPath1) ID() machine.MachineIdentificationUnique { return a.id }

// SetEmitter implements machine.EventEmitting.
func (a *AquaPath1) SetEmitter(emitter *events.MachineEmitter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emitter = emitter
}

// liveValues is the payload reported under the "live_values" event
// every cycle (spec.md §4.7).
type liveValues struct {
	InletTemperatureCelsius float64 `json:"inlet_temperature_celsius"`
	CoolingValveSignal      float64 `json:"cooling_valve_signal"`
	Cooling                 bool    `json:"cooling"`
	Heating                 bool    `json:"heating"`
	PumpOn                  bool    `json:"pump_on"`
}

// state is the payload reported under the "state" event on every
// mutation (spec.md §4.5).
type state struct {
	Mode               Mode    `json:"mode"`
	TargetTemperatureC float64 `json:"target_temperature_celsius"`
	PumpEnabled        bool    `json:"pump_enabled"`
}

func (a *AquaPath1) snapshotState() state {
	return state{Mode: a.mode, TargetTemperatureC: a.targetTemp.Celsius(), PumpEnabled: a.pumpEnabled}
}

// Act implements machine.Machine: a positive PID output (measured
// temperature above target) opens the cooling valve and asserts the
// cooling relay; a negative output asserts the heating relay instead,
// matching the original controller's single PID driving two one-way
// actuators rather than a heat/cool split-range controller.
func (a *AquaPath1) Act(outputTS time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	measured := quantity.TemperatureCelsius(a.tempIn.DegC(0))

	if a.mode == ModeStandby {
		a.coolingOut.SetNormalized(0, 0)
		a.relays.SetChannel(0, false)
		a.relays.SetChannel(1, false)
		a.relays.SetChannel(2, false)
		if a.emitter != nil {
			a.emitter.EmitLiveValues(liveValues{InletTemperatureCelsius: measured.Celsius()}, outputTS)
		}
		return
	}

	errVal := measured.Kelvin() - a.targetTemp.Kelvin()
	signed := a.pid.Update(errVal, outputTS)

	cooling := signed > 0
	heating := signed < 0
	if cooling {
		a.coolingOut.SetNormalized(0, signed)
	} else {
		a.coolingOut.SetNormalized(0, 0)
	}
	a.relays.SetChannel(0, cooling)
	a.relays.SetChannel(1, heating)
	a.relays.SetChannel(2, a.pumpEnabled)

	if a.emitter != nil {
		a.emitter.EmitLiveValues(liveValues{
			InletTemperatureCelsius: measured.Celsius(),
			CoolingValveSignal:      signed,
			Cooling:                 cooling,
			Heating:                 heating,
			PumpOn:                  a.pumpEnabled,
		}, outputTS)
	}
}

// Mutate implements machine.Machine.
func (a *AquaPath1) Mutate(payload json.RawMessage) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch head.Type {
	case "set_mode":
		var body struct {
			Mode Mode `json:"mode"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		a.mode = body.Mode

	case "set_target_temperature":
		var body struct {
			Celsius float64 `json:"celsius"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		a.targetTemp = quantity.TemperatureCelsius(body.Celsius)

	case "set_pump_enabled":
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		a.pumpEnabled = body.Enabled

	default:
		return ctlerr.New(ctlerr.FatalConfig, "aquapath1.Mutate", "unknown mutation type: "+head.Type)
	}

	if a.emitter != nil {
		a.emitter.EmitState(a.snapshotState(), time.Now())
	}
	return nil
}

// FlowLitresPerMinute estimates instantaneous flow from the flow
// sensor's encoder delta over dt.
func (a *AquaPath1) FlowLitresPerMinute(lastCounts, nowCounts uint32, dt time.Duration) float64 {
	if a.countsPerLitre <= 0 || dt <= 0 {
		return 0
	}
	delta := float64(int64(nowCounts) - int64(lastCounts))
	litres := delta / a.countsPerLitre
	return litres / dt.Minutes()
}

// Catalogue is this model's machine.Catalogue entry.
var Catalogue = machine.Catalogue{
	models.Identification(models.MachineTypeAquapath1): func(id machine.MachineIdentificationUnique, roles map[uint16]device.Device) (machine.Machine, error) {
		return New(id, roles, DefaultConfig())
	},
}

// DefaultConfig returns placeholder PID gains and flow-meter scale.
func DefaultConfig() Config {
	return Config{Kp: 0.1, Ki: 0.01, Kd: 0.02, CountsPerLitre: 2000}
}
