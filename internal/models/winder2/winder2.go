// Package winder2 binds the tension-arm + spool + puller + traverse
// regulation cores of internal/regulate to the EtherCAT slave roles a
// physical winder exposes, and implements machine.Machine for the
// combination. Ported from original_source/machines/src/winder2/mod.rs;
// Act runs the puller, then the spool, then the traverse, then
// live-values/state emission.
package winder2

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

// Device roles this machine type expects, assigned by the physical
// line's SII EEPROM configuration (spec.md §4.5 step 3).
const (
	RoleTensionArmInput uint16 = iota
	RoleSpoolStepper
	RolePullerStepper
	RoleTraverseStepper
	RoleTraverseLimitSwitch
)

// Mode is the winder's top-level operating mode
// (original_source/machines/src/winder2/types.rs's Mode enum).
type Mode int

const (
	ModeStandby Mode = iota
	ModeHold
	ModeWind
)

// analogVolts converts an EL30xx channel's signed 16-bit raw counts to
// volts across that terminal's standard ±10V full-scale range.
func analogVolts(raw int16) float64 {
	return float64(raw) / 32767.0 * 10.0
}

// Winder2 drives a tension arm, spool stepper, puller stepper, and
// traverse stepper as one machine.
type Winder2 struct {
	id machine.MachineIdentificationUnique

	mu sync.Mutex

	tensionArmInput     *device.AnalogIn
	spoolStepper        *device.Stepper
	pullerStepper       *device.Stepper
	traverseStepper     *device.Stepper
	traverseLimitSwitch *device.DigitalIn

	tensionArm  regulate.TensionArm
	tensionCalc regulate.FilamentTensionCalculator
	spool       *regulate.SpoolSpeedController
	puller      *regulate.PullerSpeedController
	traverse    *regulate.Traverse

	countsPerSpoolRev  float64
	countsPerPullerRev float64
	countsPerMM        float64

	mode Mode

	emitter *events.MachineEmitter
}

// Config carries the per-installation geometry and speed envelopes a
// Winder2 is constructed with (original_source/machines/src/winder2/new.rs).
type Config struct {
	TensionCalc regulate.FilamentTensionCalculator

	SpoolMinSpeed, SpoolMaxSpeed quantity.AngularVelocity
	SpoolMinJerk, SpoolMaxJerk   quantity.AngularJerk

	TraverseMaxSpeed quantity.Velocity
	TraverseMaxAccel quantity.Acceleration
	TraverseMaxJerk  quantity.Jerk

	CountsPerSpoolRev  float64
	CountsPerPullerRev float64
	CountsPerMM        float64
}

// New constructs a Winder2 bound to the given role devices. Returns an
// error if a required role is missing or mistyped, matching
// machine.Builder's contract.
func New(id machine.MachineIdentificationUnique, roles map[uint16]device.Device, cfg Config) (*Winder2, error) {
	tensionArmInput, ok := roles[RoleTensionArmInput].(*device.AnalogIn)
	if !ok {
		return nil, roleErr("tension arm analog input")
	}
	spoolStepper, ok := roles[RoleSpoolStepper].(*device.Stepper)
	if !ok {
		return nil, roleErr("spool stepper")
	}
	pullerStepper, ok := roles[RolePullerStepper].(*device.Stepper)
	if !ok {
		return nil, roleErr("puller stepper")
	}
	traverseStepper, ok := roles[RoleTraverseStepper].(*device.Stepper)
	if !ok {
		return nil, roleErr("traverse stepper")
	}
	traverseLimitSwitch, ok := roles[RoleTraverseLimitSwitch].(*device.DigitalIn)
	if !ok {
		return nil, roleErr("traverse limit switch")
	}

	w := &Winder2{
		id:                  id,
		tensionArmInput:     tensionArmInput,
		spoolStepper:        spoolStepper,
		pullerStepper:       pullerStepper,
		traverseStepper:     traverseStepper,
		traverseLimitSwitch: traverseLimitSwitch,
		tensionCalc:         cfg.TensionCalc,
		spool:               regulate.NewSpoolSpeedController(cfg.SpoolMinSpeed, cfg.SpoolMaxSpeed, cfg.SpoolMinJerk, cfg.SpoolMaxJerk),
		puller:              regulate.NewPullerSpeedController(),
		traverse:            regulate.NewTraverse(cfg.TraverseMaxSpeed, cfg.TraverseMaxAccel, cfg.TraverseMaxJerk),
		countsPerSpoolRev:   cfg.CountsPerSpoolRev,
		countsPerPullerRev:  cfg.CountsPerPullerRev,
		countsPerMM:         cfg.CountsPerMM,
		mode:                ModeStandby,
	}
	return w, nil
}

func roleErr(name string) error {
	return ctlerr.New(ctlerr.FatalConfig, "winder2.New", "missing or mistyped role: "+name)
}

// ID implements machine.Machine.
func (w *Winder2) ID() machine.MachineIdentificationUnique { return w.id }

// SetEmitter implements machine.EventEmitting.
func (w *Winder2) SetEmitter(emitter *events.MachineEmitter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emitter = emitter
}

// liveValues is the payload reported under the "live_values" event
// every cycle (spec.md §4.7).
type liveValues struct {
	TensionAngleDeg      float64 `json:"tension_angle_deg"`
	TensionRatio         float64 `json:"tension_ratio"`
	PullerSpeedMPM       float64 `json:"puller_speed_mpm"`
	SpoolSpeedRPM        float64 `json:"spool_speed_rpm"`
	TraversePositionMM   float64 `json:"traverse_position_mm"`
	TraverseLimitTripped bool    `json:"traverse_limit_tripped"`
}

// state is the payload reported under the "state" event on every
// mutation (spec.md §4.5: "every successful mutation forces a state
// emission").
type state struct {
	Mode                   Mode               `json:"mode"`
	SpoolRegulationMode    regulate.SpoolMode `json:"spool_regulation_mode"`
	PullerTargetSpeedMPM   float64            `json:"puller_target_speed_mpm"`
	PullerTargetDiameterMM float64            `json:"puller_target_diameter_mm"`
	PullerGearRatio        float64            `json:"puller_gear_ratio"`
	PullerForward          bool               `json:"puller_forward"`
	SpoolMinSpeedRPM       float64            `json:"spool_min_speed_rpm"`
	SpoolMaxSpeedRPM       float64            `json:"spool_max_speed_rpm"`
	TraverseLimitInnerMM   float64            `json:"traverse_limit_inner_mm"`
	TraverseLimitOuterMM   float64            `json:"traverse_limit_outer_mm"`
}

// snapshotState builds the current state payload. Callers must hold w.mu.
func (w *Winder2) snapshotState() state {
	return state{
		Mode:                   w.mode,
		SpoolRegulationMode:    w.spool.Mode,
		PullerTargetSpeedMPM:   w.puller.CommandSpeed().MetresPerMinute(),
		PullerTargetDiameterMM: w.puller.TargetDiameter.Millimetres(),
		PullerGearRatio:        w.puller.GearRatio,
		PullerForward:          !w.puller.Reverse,
		SpoolMinSpeedRPM:       w.spool.MinSpeed.RPM(),
		SpoolMaxSpeedRPM:       w.spool.MaxSpeed.RPM(),
		TraverseLimitInnerMM:   w.traverse.LimitInner.Millimetres(),
		TraverseLimitOuterMM:   w.traverse.LimitOuter.Millimetres(),
	}
}

// Act implements machine.Machine: drives the spool, puller, and
// traverse cores off this cycle's sensor readings, in the original's
// update() order.
func (w *Winder2) Act(outputTS time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rawAngle := regulate.AngleFromVoltage(analogVolts(w.tensionArmInput.Raw(0)))
	if !w.tensionArm.Calibrated() {
		w.tensionArm.Calibrate(rawAngle)
	}
	angle := w.tensionArm.Angle(rawAngle)
	tension := w.tensionCalc.Tension(angle)

	pullerSpeed := quantity.Velocity(0)
	if w.mode == ModeWind {
		pullerSpeed = w.puller.UpdateFixed(w.puller.CommandSpeed(), outputTS)
	}

	var spoolSpeed quantity.AngularVelocity
	switch w.spool.Mode {
	case regulate.SpoolModeAdaptive:
		measured := encoderAngularVelocity(w.spoolStepper, w.countsPerSpoolRev, outputTS)
		spoolSpeed = w.spool.UpdateAdaptive(tension, quantity.Ratio(0.5), pullerSpeed, measured, outputTS)
	default:
		spoolSpeed = w.spool.UpdateMinMax(tension, outputTS)
	}

	limitTripped := w.traverseLimitSwitch.Channel(0)
	traversePos := quantity.LengthMillimetres(float64(w.traverseStepper.EncoderCounts()) / w.countsPerMM)
	traverseSpeed := w.traverse.Update(limitTripped, traversePos, outputTS)

	if w.mode == ModeStandby {
		pullerSpeed, spoolSpeed, traverseSpeed = 0, 0, 0
	}

	w.pullerStepper.SetSpeed(speedToStepperCounts(pullerSpeed.MetresPerSecond(), w.countsPerPullerRev))
	w.spoolStepper.SetSpeed(angularSpeedToStepperCounts(spoolSpeed.RadiansPerSecond(), w.countsPerSpoolRev))
	w.traverseStepper.SetSpeed(speedToStepperCounts(traverseSpeed.MetresPerSecond(), w.countsPerMM*1000))

	if w.emitter != nil {
		w.emitter.EmitLiveValues(liveValues{
			TensionAngleDeg:      angle.Degrees(),
			TensionRatio:         tension.Float64(),
			PullerSpeedMPM:       pullerSpeed.MetresPerMinute(),
			SpoolSpeedRPM:        spoolSpeed.RPM(),
			TraversePositionMM:   traversePos.Millimetres(),
			TraverseLimitTripped: limitTripped,
		}, outputTS)
	}
}

// encoderAngularVelocity estimates the spool's current angular velocity
// from its encoder delta over one cycle; a single-sample finite
// difference is adequate since the jerk profiler smooths the commanded
// side of the loop.
func encoderAngularVelocity(stepper *device.Stepper, countsPerRev float64, now time.Time) quantity.AngularVelocity {
	_ = now
	if countsPerRev <= 0 {
		return 0
	}
	counts := int32(stepper.EncoderCounts())
	revs := float64(counts) / countsPerRev
	return quantity.AngularVelocity(revs * 2 * 3.141592653589793)
}

func speedToStepperCounts(metresPerSecond, countsPerMetre float64) int16 {
	v := metresPerSecond * countsPerMetre
	return clampToInt16(v)
}

func angularSpeedToStepperCounts(radiansPerSecond, countsPerRev float64) int16 {
	revsPerSecond := radiansPerSecond / (2 * 3.141592653589793)
	return clampToInt16(revsPerSecond * countsPerRev)
}

func clampToInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Mutate implements machine.Machine against the tagged-union mutation
// set (original_source/machines/src/winder2/mutation.rs's Mutation
// enum), decoded as {"type": "...", ...fields}.
func (w *Winder2) Mutate(payload json.RawMessage) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch head.Type {
	case "set_mode":
		var body struct {
			Mode Mode `json:"mode"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.mode = body.Mode

	case "zero_tension_arm_angle":
		// Recalibrated on the next Act call against the then-current
		// raw reading.
		w.tensionArm = regulate.TensionArm{}

	case "set_puller_target_speed":
		var body struct {
			MetresPerMinute float64 `json:"metres_per_minute"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.puller.Reset(quantity.VelocityMetresPerMinute(body.MetresPerMinute))

	case "set_puller_target_diameter":
		var body struct {
			Millimetres float64 `json:"millimetres"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.puller.TargetDiameter = quantity.LengthMillimetres(body.Millimetres)

	case "set_puller_gear_ratio":
		var body struct {
			Ratio float64 `json:"ratio"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.puller.GearRatio = body.Ratio

	case "set_puller_forward":
		var body struct {
			Forward bool `json:"forward"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.puller.Reverse = !body.Forward

	case "set_spool_regulation_mode":
		var body struct {
			Mode regulate.SpoolMode `json:"mode"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.spool.Mode = body.Mode

	case "set_spool_min_max_speed":
		var body struct {
			MinRPM float64 `json:"min_rpm"`
			MaxRPM float64 `json:"max_rpm"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.spool.MinSpeed = quantity.AngularVelocityRPM(body.MinRPM)
		w.spool.MaxSpeed = quantity.AngularVelocityRPM(body.MaxRPM)

	case "set_traverse_limits":
		var body struct {
			InnerMM float64 `json:"inner_mm"`
			OuterMM float64 `json:"outer_mm"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.traverse.LimitInner = quantity.LengthMillimetres(body.InnerMM)
		w.traverse.LimitOuter = quantity.LengthMillimetres(body.OuterMM)

	case "set_traverse_step_padding":
		var body struct {
			StepMM    float64 `json:"step_mm"`
			PaddingMM float64 `json:"padding_mm"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		w.traverse.Step = quantity.LengthMillimetres(body.StepMM)
		w.traverse.Padding = quantity.LengthMillimetres(body.PaddingMM)

	case "goto_traverse_home":
		w.traverse.StartHoming()
	case "goto_traverse_limit_inner":
		w.traverse.GoIn()
	case "goto_traverse_limit_outer":
		w.traverse.GoOut()
	case "start_traversing":
		w.traverse.StartOscillating()
	case "stop_traverse":
		w.traverse.Stop()

	default:
		return ctlerr.New(ctlerr.FatalConfig, "winder2.Mutate", "unknown mutation type: "+head.Type)
	}

	if w.emitter != nil {
		w.emitter.EmitState(w.snapshotState(), time.Now())
	}
	return nil
}

// Catalogue is this model's machine.Catalogue entry.
var Catalogue = machine.Catalogue{
	models.Identification(models.MachineTypeWinder2): func(id machine.MachineIdentificationUnique, roles map[uint16]device.Device) (machine.Machine, error) {
		return New(id, roles, DefaultConfig())
	},
}

// DefaultConfig returns the geometry/envelope defaults a freshly
// discovered winder starts with, before any installation-specific
// config overrides it. Values are placeholders representative of a
// small desktop filament winder, not a calibrated installation.
func DefaultConfig() Config {
	return Config{
		TensionCalc: regulate.FilamentTensionCalculator{
			ArmLength: quantity.LengthMillimetres(60),
			MinLength: quantity.LengthMillimetres(80),
			MaxLength: quantity.LengthMillimetres(160),
		},
		SpoolMinSpeed:      quantity.AngularVelocityRPM(5),
		SpoolMaxSpeed:      quantity.AngularVelocityRPM(200),
		SpoolMinJerk:       quantity.AngularJerk(2),
		SpoolMaxJerk:       quantity.AngularJerk(2),
		TraverseMaxSpeed:   quantity.VelocityMetresPerMinute(30),
		TraverseMaxAccel:   quantity.AccelerationMetresPerMinutePerSecond(20),
		TraverseMaxJerk:    quantity.JerkMetresPerMinutePerSecondSquared(40),
		CountsPerSpoolRev:  4000,
		CountsPerPullerRev: 4000,
		CountsPerMM:        80,
	}
}
