package regulate

import (
	"math"
	"time"

	"github.com/lineflow/linectl/internal/control"
	"github.com/lineflow/linectl/internal/mathx"
	"github.com/lineflow/linectl/internal/quantity"
)

// SpoolMode selects a SpoolSpeedController's strategy.
type SpoolMode int

const (
	SpoolModeMinMax SpoolMode = iota
	SpoolModeAdaptive
)

// AdaptiveSpoolParams configures the adaptive spool-speed mode's
// tension-tracking behavior (spec.md §4.6 "adaptive mode").
type AdaptiveSpoolParams struct {
	LearningRate         float64
	MaxSpeedMultiplier    float64
	AccelerationFactor    float64
	DecelerationUrgency   float64 // multiplier applied when slowing, asymmetric vs speeding up
}

// SpoolSpeedController drives a spool's angular velocity from the
// tension-arm's measured tension, in either min-max or adaptive mode.
// Both modes share the profiler's current-speed state so switching
// modes at runtime is bumpless (spec.md §4.6 "sharing a current-speed
// state for bumpless transfer on mode switch").
type SpoolSpeedController struct {
	Mode SpoolMode

	MinSpeed, MaxSpeed quantity.AngularVelocity
	MinJerk, MaxJerk quantity.AngularJerk

	Adaptive AdaptiveSpoolParams

	profiler    *control.AngularSpeedController
	speedWindow *mathx.MovingWindow

	targetTension quantity.Ratio
}

// NewSpoolSpeedController constructs a controller with its jerk-limited
// profiler and 5-second speed window initialized.
func NewSpoolSpeedController(minRPM, maxRPM quantity.AngularVelocity, minJerk, maxJerk quantity.AngularJerk) *SpoolSpeedController {
	return &SpoolSpeedController{
		MinSpeed: minRPM, MaxSpeed: maxRPM,
		MinJerk: minJerk, MaxJerk: maxJerk,
		profiler:    control.NewAngularSpeedController(nil, nil, 0, 0, minJerk, maxJerk),
		speedWindow: mathx.NewMovingWindow(5 * time.Second),
	}
}

// UpdateMinMax advances the controller in min-max mode: tension in
// [0,1] maps via an exponential curve (a=2.0) to an angular velocity in
// [minRPM, maxRPM], applied through the jerk-limited profiler whose
// acceleration limit is dynamically rescaled to half the larger of the
// 5-second speed window's max magnitude or the new target (spec.md
// §4.6 "min-max mode").
func (s *SpoolSpeedController) UpdateMinMax(tension quantity.Ratio, now time.Time) quantity.AngularVelocity {
	curved := mathx.InterpolateExponential(float64(mathx.Clip(float64(tension))), 2.0)
	target := quantity.AngularVelocity(mathx.Scale(curved, float64(s.MinSpeed), float64(s.MaxSpeed)))

	speed5s := s.speedWindow.MaxAbs()
	accelLimit := quantity.AngularAcceleration(0.5 * mathx.Max(speed5s, math.Abs(float64(target))))
	s.profiler.SetMaxAcceleration(accelLimit)
	s.profiler.SetMinAcceleration(-accelLimit)

	speed := s.profiler.Update(target, now)
	s.speedWindow.Add(float64(speed), now)
	return speed
}

// UpdateAdaptive advances the controller in adaptive mode: it drives a
// learning-rate-limited tension-error correction with asymmetric
// accel/decel aggressiveness (spec.md §4.6 "adaptive mode").
// pullerSpeed and measuredAngular are accepted but not used, and no
// spool-radius estimate is made.
func (s *SpoolSpeedController) UpdateAdaptive(tension, targetTension quantity.Ratio, pullerSpeed quantity.Velocity, measuredAngular quantity.AngularVelocity, now time.Time) quantity.AngularVelocity {
	errVal := float64(targetTension - tension)

	current := s.profiler.Speed()
	step := s.Adaptive.LearningRate * errVal * float64(s.MaxSpeed) * s.Adaptive.MaxSpeedMultiplier
	target := quantity.AngularVelocity(float64(current) + step)
	if target < 0 {
		target = 0
	}

	accelLimit := quantity.AngularAcceleration(s.Adaptive.AccelerationFactor * float64(s.MaxSpeed))
	if step < 0 {
		accelLimit = quantity.AngularAcceleration(float64(accelLimit) * s.Adaptive.DecelerationUrgency)
	}
	s.profiler.SetMaxAcceleration(accelLimit)
	s.profiler.SetMinAcceleration(-accelLimit)

	speed := s.profiler.Update(target, now)
	s.speedWindow.Add(float64(speed), now)
	return speed
}

// Reset snaps the shared profiler state to a known speed, used on
// binding/rebind.
func (s *SpoolSpeedController) Reset(speed quantity.AngularVelocity) {
	s.profiler.Reset(speed, nil)
}
