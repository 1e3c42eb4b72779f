package regulate

import (
	"time"

	"github.com/lineflow/linectl/internal/control"
	"github.com/lineflow/linectl/internal/mathx"
	"github.com/lineflow/linectl/internal/quantity"
)

// PullerStrategy selects how a PullerSpeedController derives its target
// line speed (spec.md §4.6 "puller speed strategies").
type PullerStrategy int

const (
	PullerFixed PullerStrategy = iota
	PullerDiameterPID
	PullerDiameterFlow
)

const (
	pullerMinSpeed = quantity.Velocity(0)
	pullerMaxDeadTime = 180 * time.Second
)

var pullerMaxSpeed = quantity.VelocityMetresPerMinute(50)

// PullerSpeedController drives the line's pull speed under one of three
// strategies, clamped to [0, 50] m/min and profiled through a fixed
// linear jerk profile (50 m/min, 5 m/(min·s), 10 m/(min·s²)), then
// converted to a stepper/servo command via a configurable gear ratio and
// direction sign (spec.md §4.6 "puller speed controller").
type PullerSpeedController struct {
	Strategy PullerStrategy

	GearRatio float64 // e.g. 1, 5, or 10
	Reverse   bool

	// TargetDiameter and DeadTimeP back the DiameterPID strategy: a
	// dead-time proportional loop closing on measured filament diameter.
	TargetDiameter quantity.Length
	DeadTimeP      control.DeadTimeP

	// DistanceSensorToNip is the transport distance used to compute the
	// dead time for the DiameterFlow and DiameterPID strategies:
	// dead = distance / current_speed, capped at 180s when speed is ~0.
	DistanceSensorToNip quantity.Length

	profiler *control.LinearSpeedController
}

// NewPullerSpeedController constructs a controller whose profiler is
// preconfigured to the fixed jerk profile.
func NewPullerSpeedController() *PullerSpeedController {
	lo, hi := pullerMinSpeed, pullerMaxSpeed
	accel := quantity.AccelerationMetresPerMinutePerSecond(5)
	jerk := quantity.JerkMetresPerMinutePerSecondSquared(10)
	return &PullerSpeedController{
		GearRatio: 1,
		profiler:  control.NewLinearSpeedController(&lo, &hi, -accel, accel, -jerk, jerk),
	}
}

// deadTime computes the transport delay for a given current speed,
// capping at 180s when the line is stopped (spec.md §4.6 "dead time ...
// capped at 180s when speed is zero").
func (p *PullerSpeedController) deadTime(currentSpeed quantity.Velocity) time.Duration {
	mps := currentSpeed.MetresPerSecond()
	if mps <= 1e-6 {
		return pullerMaxDeadTime
	}
	dead := time.Duration(p.DistanceSensorToNip.Metres() / mps * float64(time.Second))
	if dead > pullerMaxDeadTime {
		return pullerMaxDeadTime
	}
	return dead
}

// UpdateFixed drives the profiler directly at a fixed target speed.
func (p *PullerSpeedController) UpdateFixed(target quantity.Velocity, now time.Time) quantity.Velocity {
	return p.profiler.Update(mathx.Clamp(target, pullerMinSpeed, pullerMaxSpeed), now)
}

// UpdateDiameterPID drives the target speed from a dead-time PID loop
// closing on measured filament diameter, sampled `distance/speed`
// seconds in the past.
func (p *PullerSpeedController) UpdateDiameterPID(measuredDiameter quantity.Length, now time.Time) quantity.Velocity {
	current := p.profiler.Speed()
	errVal := measuredDiameter.Metres() - p.TargetDiameter.Metres()
	correction := p.DeadTimeP.Update(errVal, p.deadTime(current), now)
	target := quantity.Velocity(current.MetresPerSecond() + correction)
	return p.profiler.Update(mathx.Clamp(target, pullerMinSpeed, pullerMaxSpeed), now)
}

// UpdateDiameterFlow rescales the previous speed by the square of the
// ratio between the target and measured diameter, holding volumetric
// flow constant: v_new = v_old * (d_measured/d_target)^2 (spec.md §4.6
// "diameter-flow strategy").
func (p *PullerSpeedController) UpdateDiameterFlow(measuredDiameter quantity.Length, now time.Time) quantity.Velocity {
	current := p.profiler.Speed()
	if p.TargetDiameter.Metres() <= 0 {
		return p.profiler.Update(current, now)
	}
	ratio := measuredDiameter.Metres() / p.TargetDiameter.Metres()
	target := quantity.Velocity(current.MetresPerSecond() * ratio * ratio)
	return p.profiler.Update(mathx.Clamp(target, pullerMinSpeed, pullerMaxSpeed), now)
}

// CommandSpeed converts the profiler's current line speed into an
// actuator-facing speed via the configured gear ratio and direction
// sign.
func (p *PullerSpeedController) CommandSpeed() quantity.Velocity {
	v := p.profiler.Speed().MetresPerSecond() * p.GearRatio
	if p.Reverse {
		v = -v
	}
	return quantity.Velocity(v)
}

// Reset snaps the profiler to a known speed.
func (p *PullerSpeedController) Reset(speed quantity.Velocity) {
	p.profiler.Reset(speed, nil)
	p.DeadTimeP.Reset()
}
