package control

import (
	"time"

	"github.com/lineflow/linectl/internal/quantity"
)

// LinearSpeedController is the jerk-limited profiler operating in linear
// velocity/acceleration/jerk units (spec.md §4.3.2).
type LinearSpeedController struct{ c *jerkSpeedController }

func NewLinearSpeedController(minSpeed, maxSpeed *quantity.Velocity, minAccel, maxAccel quantity.Acceleration, minJerk, maxJerk quantity.Jerk) *LinearSpeedController {
	var lo, hi *float64
	if minSpeed != nil {
		v := minSpeed.MetresPerSecond()
		lo = &v
	}
	if maxSpeed != nil {
		v := maxSpeed.MetresPerSecond()
		hi = &v
	}
	return &LinearSpeedController{c: newJerkSpeedController(lo, hi, float64(minAccel), float64(maxAccel), float64(minJerk), float64(maxJerk))}
}

func (l *LinearSpeedController) Update(target quantity.Velocity, t time.Time) quantity.Velocity {
	return quantity.Velocity(l.c.update(float64(target), t))
}

func (l *LinearSpeedController) Speed() quantity.Velocity { return quantity.Velocity(l.c.speed) }

func (l *LinearSpeedController) Reset(speed quantity.Velocity, acceleration *quantity.Acceleration) {
	var a *float64
	if acceleration != nil {
		v := float64(*acceleration)
		a = &v
	}
	l.c.reset(float64(speed), a)
}

func (l *LinearSpeedController) SetMaxAcceleration(a quantity.Acceleration) { l.c.setMaxAcceleration(float64(a)) }
func (l *LinearSpeedController) SetMinAcceleration(a quantity.Acceleration) { l.c.setMinAcceleration(float64(a)) }

// AngularSpeedController is the jerk-limited profiler operating in
// angular velocity/acceleration/jerk units, used for spool min-max mode's
// dynamically rescaled acceleration limit (spec.md §4.6.1).
type AngularSpeedController struct{ c *jerkSpeedController }

func NewAngularSpeedController(minSpeed, maxSpeed *quantity.AngularVelocity, minAccel, maxAccel quantity.AngularAcceleration, minJerk, maxJerk quantity.AngularJerk) *AngularSpeedController {
	var lo, hi *float64
	if minSpeed != nil {
		v := float64(*minSpeed)
		lo = &v
	}
	if maxSpeed != nil {
		v := float64(*maxSpeed)
		hi = &v
	}
	return &AngularSpeedController{c: newJerkSpeedController(lo, hi, float64(minAccel), float64(maxAccel), float64(minJerk), float64(maxJerk))}
}

func (a *AngularSpeedController) Update(target quantity.AngularVelocity, t time.Time) quantity.AngularVelocity {
	return quantity.AngularVelocity(a.c.update(float64(target), t))
}

func (a *AngularSpeedController) Speed() quantity.AngularVelocity {
	return quantity.AngularVelocity(a.c.speed)
}

func (a *AngularSpeedController) Reset(speed quantity.AngularVelocity, acceleration *quantity.AngularAcceleration) {
	var acc *float64
	if acceleration != nil {
		v := float64(*acceleration)
		acc = &v
	}
	a.c.reset(float64(speed), acc)
}

func (a *AngularSpeedController) SetMaxAcceleration(v quantity.AngularAcceleration) { a.c.setMaxAcceleration(float64(v)) }
func (a *AngularSpeedController) SetMinAcceleration(v quantity.AngularAcceleration) { a.c.setMinAcceleration(float64(v)) }
