// Package puller1 binds a single puller stepper to
// internal/regulate.PullerSpeedController, for lines that pull filament
// without a winder attached (spec.md §14 "puller1: puller speed alone,
// for lines without a winder"). Grounded on the same
// machines/src/gluetex/controllers/slave_puller_speed_controller.rs
// algorithm winder2 shares, bound here as its own standalone machine.
package puller1

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/lineflow/linectl/internal/ctlerr"
	"github.com/lineflow/linectl/internal/device"
	"github.com/lineflow/linectl/internal/events"
	"github.com/lineflow/linectl/internal/machine"
	"github.com/lineflow/linectl/internal/models"
	"github.com/lineflow/linectl/internal/quantity"
	"github.com/lineflow/linectl/internal/regulate"
)

// Device roles this machine type expects.
const (
	RolePullerStepper uint16 = iota
	RoleDiameterSensor        // optional: AnalogIn reading a laser micrometer's analog output
)

// Extruder1 and winder2 both accept a mode; puller1 is simpler since it
// has nothing to hold a thermal setpoint for — it is either running or
// stopped.
type Mode int

const (
	ModeStopped Mode = iota
	ModeRunning
)

// Puller1 drives one puller stepper under a PullerSpeedController.
type Puller1 struct {
	id machine.MachineIdentificationUnique

	mu sync.Mutex

	pullerStepper  *device.Stepper
	diameterSensor *device.AnalogIn // nil if this installation has no micrometer wired

	puller *regulate.PullerSpeedController

	countsPerRev float64
	fixedTarget  quantity.Velocity
	mode         Mode

	emitter *events.MachineEmitter
}

// Config carries the per-installation gear ratio, direction, and
// strategy the line was commissioned with.
type Config struct {
	Strategy            regulate.PullerStrategy
	GearRatio           float64
	Reverse             bool
	TargetDiameter      quantity.Length
	DistanceSensorToNip quantity.Length
	CountsPerRev        float64
}

// New constructs a Puller1 bound to the given role devices. The
// diameter sensor role is optional; a nil entry leaves
// diameterSensor nil, and Act then runs the fixed strategy whatever
// strategy Mutate has selected.
func New(id machine.MachineIdentificationUnique, roles map[uint16]device.Device, cfg Config) (*Puller1, error) {
	pullerStepper, ok := roles[RolePullerStepper].(*device.Stepper)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "puller1.New", "missing or mistyped role: puller stepper")
	}
	var diameterSensor *device.AnalogIn
	if d, present := roles[RoleDiameterSensor]; present {
		diameterSensor, ok = d.(*device.AnalogIn)
		if !ok {
			return nil, ctlerr.New(ctlerr.FatalConfig, "puller1.New", "mistyped role: diameter sensor")
		}
	}

	p := regulate.NewPullerSpeedController()
	p.Strategy = cfg.Strategy
	p.GearRatio = cfg.GearRatio
	p.Reverse = cfg.Reverse
	p.TargetDiameter = cfg.TargetDiameter
	p.DistanceSensorToNip = cfg.DistanceSensorToNip

	return &Puller1{
		id:             id,
		pullerStepper:  pullerStepper,
		diameterSensor: diameterSensor,
		puller:         p,
		countsPerRev:   cfg.CountsPerRev,
		mode:           ModeStopped,
	}, nil
}

// ID implements machine.Machine.
func (p *Puller1) ID() machine.MachineIdentificationUnique { return p.id }

// SetEmitter implements machine.EventEmitting.
func (p *Puller1) SetEmitter(emitter *events.MachineEmitter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitter = emitter
}

// liveValues is the payload reported under the "live_values" event
// every cycle (spec.md §4.7).
type liveValues struct {
	SpeedMPM    float64 `json:"speed_mpm"`
	DiameterMM  float64 `json:"diameter_mm,omitempty"`
	HasDiameter bool    `json:"has_diameter"`
}

// state is the payload reported under the "state" event on every
// mutation (spec.md §4.5).
type state struct {
	Mode             Mode                    `json:"mode"`
	Strategy         regulate.PullerStrategy `json:"strategy"`
	TargetSpeedMPM   float64                 `json:"target_speed_mpm"`
	TargetDiameterMM float64                 `json:"target_diameter_mm"`
	GearRatio        float64                 `json:"gear_ratio"`
	Forward          bool                    `json:"forward"`
}

func (p *Puller1) snapshotState() state {
	return state{
		Mode:             p.mode,
		Strategy:         p.puller.Strategy,
		TargetSpeedMPM:   p.fixedTarget.MetresPerMinute(),
		TargetDiameterMM: p.puller.TargetDiameter.Millimetres(),
		GearRatio:        p.puller.GearRatio,
		Forward:          !p.puller.Reverse,
	}
}

// Act implements machine.Machine.
func (p *Puller1) Act(outputTS time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var speed quantity.Velocity
	switch {
	case p.mode == ModeStopped:
		speed = p.puller.UpdateFixed(0, outputTS)
	case p.puller.Strategy == regulate.PullerFixed || p.diameterSensor == nil:
		speed = p.puller.UpdateFixed(p.fixedTarget, outputTS)
	case p.puller.Strategy == regulate.PullerDiameterPID:
		speed = p.puller.UpdateDiameterPID(p.measuredDiameter(), outputTS)
	default:
		speed = p.puller.UpdateDiameterFlow(p.measuredDiameter(), outputTS)
	}

	p.pullerStepper.SetSpeed(speedToStepperCounts(speed.MetresPerSecond(), p.countsPerRev))

	if p.emitter != nil {
		lv := liveValues{SpeedMPM: speed.MetresPerMinute()}
		if p.diameterSensor != nil {
			lv.HasDiameter = true
			lv.DiameterMM = p.measuredDiameter().Millimetres()
		}
		p.emitter.EmitLiveValues(lv, outputTS)
	}
}

// measuredDiameter converts the diameter sensor's analog reading (0-10V
// mapped linearly across 0-3mm, a typical laser micrometer output range)
// into a filament diameter.
func (p *Puller1) measuredDiameter() quantity.Length {
	volts := float64(p.diameterSensor.Raw(0)) / 32767.0 * 10.0
	mm := volts / 10.0 * 3.0
	return quantity.LengthMillimetres(mm)
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
func (p *Puller1) Mutate(payload json.RawMessage) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch head.Type {
	case "set_mode":
		var body struct {
			Mode Mode `json:"mode"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		p.mode = body.Mode

	case "set_strategy":
		var body struct {
			Strategy regulate.PullerStrategy `json:"strategy"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		p.puller.Strategy = body.Strategy

	case "set_target_speed":
		var body struct {
			MetresPerMinute float64 `json:"metres_per_minute"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		p.fixedTarget = quantity.VelocityMetresPerMinute(body.MetresPerMinute)

	case "set_target_diameter":
		var body struct {
			Millimetres float64 `json:"millimetres"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		p.puller.TargetDiameter = quantity.LengthMillimetres(body.Millimetres)

	case "set_gear_ratio":
		var body struct {
			Ratio float64 `json:"ratio"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		p.puller.GearRatio = body.Ratio

	case "set_forward":
		var body struct {
			Forward bool `json:"forward"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		p.puller.Reverse = !body.Forward

	default:
		return ctlerr.New(ctlerr.FatalConfig, "puller1.Mutate", "unknown mutation type: "+head.Type)
	}

	if p.emitter != nil {
		p.emitter.EmitState(p.snapshotState(), time.Now())
	}
	return nil
}

// Catalogue is this model's machine.Catalogue entry.
var Catalogue = machine.Catalogue{
	models.Identification(models.MachineTypePuller1): func(id machine.MachineIdentificationUnique, roles map[uint16]device.Device) (machine.Machine, error) {
		return New(id, roles, DefaultConfig())
	},
}

// DefaultConfig returns placeholder gear ratio and geometry values.
func DefaultConfig() Config {
	return Config{
		Strategy:            regulate.PullerFixed,
		GearRatio:           1,
		CountsPerRev:        4000,
		DistanceSensorToNip: quantity.LengthMillimetres(300),
	}
}
