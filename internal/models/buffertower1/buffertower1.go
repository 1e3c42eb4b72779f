// Package buffertower1 binds a single lift stepper (with its own
// incremental encoder feedback) to internal/regulate.BufferTowerLift.
// Ported from original_source/machines/src/buffer1/new.rs, which wires
// role 0 to the bus coupler and role 1 to the lift stepper (EL7041-0052)
// — role 0 carries no process-image data in this repo's model, so only
// the lift stepper role is bound here.
package buffertower1

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
	RoleLiftStepper uint16 = iota
)

// Mode selects whether the lift actively regulates to a target height.
type Mode int

const (
	ModeHold Mode = iota
	ModeRegulate
)

// BufferTower1 drives one lift axis to track a target height.
type BufferTower1 struct {
	id machine.MachineIdentificationUnique

	mu sync.Mutex

	liftStepper *device.Stepper
	lift        *regulate.BufferTowerLift

	targetHeight quantity.Length
	closeRate    float64
	mode         Mode

	emitter *events.MachineEmitter
}

// Config carries the per-installation geometry and speed envelope.
type Config struct {
	CountsPerMetre float64
	MaxSpeed       quantity.Velocity
	MaxAccel       quantity.Acceleration
	MaxJerk        quantity.Jerk
	CloseRate      float64 // proportional gain, metres/second per metre of height error
}

// New constructs a BufferTower1 bound to the given role devices.
func New(id machine.MachineIdentificationUnique, roles map[uint16]device.Device, cfg Config) (*BufferTower1, error) {
	liftStepper, ok := roles[RoleLiftStepper].(*device.Stepper)
	if !ok {
		return nil, ctlerr.New(ctlerr.FatalConfig, "buffertower1.New", "missing or mistyped role: lift stepper")
	}
	return &BufferTower1{
		id:          id,
		liftStepper: liftStepper,
		lift:        regulate.NewBufferTowerLift(cfg.CountsPerMetre, cfg.MaxSpeed, cfg.MaxAccel, cfg.MaxJerk),
		closeRate:   cfg.CloseRate,
		mode:        ModeHold,
	}, nil
}

// ID implements machine.Machine.
func (b *BufferTower1) ID() machine.MachineIdentificationUnique { return b.id }

// SetEmitter implements machine.EventEmitting.
func (b *BufferTower1) SetEmitter(emitter *events.MachineEmitter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitter = emitter
}

// liveValues is the payload reported under the "live_values" event
// every cycle (spec.md §4.7).
type liveValues struct {
	HeightMetres float64 `json:"height_metres"`
	SpeedMPS     float64 `json:"speed_mps"`
}

// state is the payload reported under the "state" event on every
// mutation (spec.md §4.5).
type state struct {
	Mode               Mode    `json:"mode"`
	TargetHeightMetres float64 `json:"target_height_metres"`
	CloseRate          float64 `json:"close_rate"`
}

func (b *BufferTower1) snapshotState() state {
	return state{Mode: b.mode, TargetHeightMetres: float64(b.targetHeight), CloseRate: b.closeRate}
}

// Act implements machine.Machine.
func (b *BufferTower1) Act(outputTS time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lift.ObserveEncoder(b.liftStepper.EncoderCounts(), false, false)

	var speed quantity.Velocity
	if b.mode == ModeRegulate {
		speed = b.lift.Update(b.targetHeight, b.closeRate, outputTS)
	} else {
		speed = b.lift.Update(b.lift.Height(), b.closeRate, outputTS)
	}

	b.liftStepper.SetSpeed(speedToStepperCounts(speed.MetresPerSecond(), b.lift.CountsPerMetre))

	if b.emitter != nil {
		b.emitter.EmitLiveValues(liveValues{
			HeightMetres: float64(b.lift.Height()),
			SpeedMPS:     speed.MetresPerSecond(),
		}, outputTS)
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
func (b *BufferTower1) Mutate(payload json.RawMessage) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch head.Type {
	case "set_mode":
		var body struct {
			Mode Mode `json:"mode"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		b.mode = body.Mode

	case "set_target_height":
		var body struct {
			Metres float64 `json:"metres"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		b.targetHeight = quantity.Length(body.Metres)

	default:
		return ctlerr.New(ctlerr.FatalConfig, "buffertower1.Mutate", "unknown mutation type: "+head.Type)
	}

	if b.emitter != nil {
		b.emitter.EmitState(b.snapshotState(), time.Now())
	}
	return nil
}

// Catalogue is this model's machine.Catalogue entry.
var Catalogue = machine.Catalogue{
	models.Identification(models.MachineTypeBufferTower1): func(id machine.MachineIdentificationUnique, roles map[uint16]device.Device) (machine.Machine, error) {
		return New(id, roles, DefaultConfig())
	},
}

// DefaultConfig returns placeholder geometry and envelope values.
func DefaultConfig() Config {
	return Config{
		CountsPerMetre: 8000,
		MaxSpeed:       quantity.VelocityMetresPerMinute(15),
		MaxAccel:       quantity.AccelerationMetresPerMinutePerSecond(10),
		MaxJerk:        quantity.JerkMetresPerMinutePerSecondSquared(20),
		CloseRate:      0.5,
	}
}
