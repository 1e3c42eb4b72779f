// Package control implements the closed-loop controllers of spec.md §4.3:
// a clamping, time-agnostic PID, a jerk-limited second-order speed
// controller, a dead-time proportional controller, and an
// Åström–Hägglund relay-feedback autotuner. All four are grounded on the
// teacher's plain-struct, no-interface controller style (x/ramp/linear.go
// and the reused-timer pattern of services/hal/internal/core/loop.go);
// the algorithms themselves follow control-core/src/controllers/*.rs.
package control

import (
	"time"

	"github.com/lineflow/linectl/internal/mathx"
)

// ClampingPID is a PID controller whose gains are time-agnostic (scaled
// by the measured dt each update, rather than assuming a fixed cycle
// period) and whose three error terms and output are each independently
// clampable. The first Update call after construction or Reset has no
// dt to scale by, so it applies only proportional action.
type ClampingPID struct {
	Kp, Ki, Kd float64

	MinEp, MaxEp         *float64
	MinEi, MaxEi         *float64
	MinEd, MaxEd         *float64
	MinSignal, MaxSignal *float64

	ep, ei, ed float64
	last       time.Time
	hasLast    bool
}

// NewClampingPID constructs a controller with no clamp bounds on any term.
func NewClampingPID(kp, ki, kd float64) *ClampingPID {
	return &ClampingPID{Kp: kp, Ki: ki, Kd: kd}
}

// Configure resets all internal state and installs new gains.
func (c *ClampingPID) Configure(kp, ki, kd float64) {
	c.Reset()
	c.Kp, c.Ki, c.Kd = kp, ki, kd
}

// Update computes the next control signal for the given error at time t.
func (c *ClampingPID) Update(errVal float64, t time.Time) float64 {
	if !c.hasLast {
		ep := mathx.OptionalClamp(errVal, c.MinEp, c.MaxEp)
		signal := c.Kp * ep
		c.ep = ep
		c.ei = 0
		c.ed = 0
		c.last = t
		c.hasLast = true
		return mathx.OptionalClamp(signal, c.MinSignal, c.MaxSignal)
	}

	dt := t.Sub(c.last).Seconds()

	ep := mathx.OptionalClamp(errVal, c.MinEp, c.MaxEp)
	ei := mathx.OptionalClamp(c.ei+ep*dt, c.MinEi, c.MaxEi)
	ed := mathx.OptionalClamp((ep-c.ep)/dt, c.MinEd, c.MaxEd)

	kp := c.Kp * dt
	ki := c.Ki * dt
	kd := c.Kd * dt

	signal := kp*ep + ki*ei + kd*ed

	c.ep, c.ei, c.ed = ep, ei, ed
	c.last = t

	return mathx.OptionalClamp(signal, c.MinSignal, c.MaxSignal)
}

// Reset clears accumulated error terms and forgets the last update time,
// so the next Update behaves like the controller's first call.
func (c *ClampingPID) Reset() {
	c.ep, c.ei, c.ed = 0, 0, 0
	c.hasLast = false
}
