package control

import (
	"time"

	"github.com/lineflow/linectl/internal/mathx"
)

// jerkSpeedController advances a scalar speed toward a target so that
// acceleration and jerk both stay within configured bounds (spec.md
// §4.3.2). It operates on raw float64 magnitudes; LinearSpeedController
// and AngularSpeedController wrap it with strongly-typed quantities.
type jerkSpeedController struct {
	minSpeed, maxSpeed               *float64
	minAcceleration, maxAcceleration float64
	minJerk, maxJerk                 float64

	speed        float64
	acceleration float64
	jerk         float64
	target       float64

	lastUpdate time.Time
	hasLast    bool
}

func newJerkSpeedController(minSpeed, maxSpeed *float64, minAcceleration, maxAcceleration, minJerk, maxJerk float64) *jerkSpeedController {
	return &jerkSpeedController{
		minSpeed: minSpeed, maxSpeed: maxSpeed,
		minAcceleration: minAcceleration, maxAcceleration: maxAcceleration,
		minJerk: minJerk, maxJerk: maxJerk,
	}
}

// update advances the controller's internal speed one step toward
// targetSpeed at time t. The first call after construction or Reset sees
// dt=0 and leaves speed unchanged, matching the teacher's "no time has
// passed yet" first-tick convention used across this codebase's
// controllers.
func (c *jerkSpeedController) update(targetSpeed float64, t time.Time) float64 {
	c.target = targetSpeed

	var dt float64
	if c.hasLast {
		dt = t.Sub(c.lastUpdate).Seconds()
	}
	c.lastUpdate = t
	c.hasLast = true

	if dt <= 0 {
		return c.speed
	}

	desiredAccel := (targetSpeed - c.speed) / dt
	desiredAccel = mathx.Clamp(desiredAccel, c.minAcceleration, c.maxAcceleration)

	deltaAccel := desiredAccel - c.acceleration
	minDelta := c.minJerk * dt
	maxDelta := c.maxJerk * dt
	deltaAccel = mathx.Clamp(deltaAccel, minDelta, maxDelta)

	c.jerk = deltaAccel / dt
	c.acceleration = mathx.Clamp(c.acceleration+deltaAccel, c.minAcceleration, c.maxAcceleration)
	c.speed = mathx.OptionalClamp(c.speed+c.acceleration*dt, c.minSpeed, c.maxSpeed)

	return c.speed
}

func (c *jerkSpeedController) reset(speed float64, acceleration *float64) {
	c.speed = speed
	if acceleration != nil {
		c.acceleration = *acceleration
	} else {
		c.acceleration = 0
	}
	c.jerk = 0
	c.hasLast = false
}

func (c *jerkSpeedController) setMaxAcceleration(v float64) { c.maxAcceleration = v }
func (c *jerkSpeedController) setMinAcceleration(v float64) { c.minAcceleration = v }
