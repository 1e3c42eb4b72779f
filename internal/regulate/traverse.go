package regulate

import (
	"time"

	"github.com/lineflow/linectl/internal/control"
	"github.com/lineflow/linectl/internal/quantity"
)

// TraverseState is a state of the Traverse axis's state machine (spec.md
// §4.6 "traverse state machine").
type TraverseState int

const (
	TraverseNotHomed TraverseState = iota
	TraverseHoming
	TraverseIdle
	TraverseGoingIn
	TraverseGoingOut
	TraverseTraversing
)

// Traverse drives the linear axis that guides filament back and forth
// across a spool. It starts NotHomed, must be homed against a limit
// switch before any other motion, and then accepts GoIn/GoOut/Oscillate
// commands (spec.md §4.6).
type Traverse struct {
	LimitInner, LimitOuter quantity.Length
	Step, Padding          quantity.Length

	HomingSpeed quantity.Velocity

	state    TraverseState
	position quantity.Length
	forward  bool // true while oscillating toward LimitOuter
	waypoint quantity.Length

	profiler *control.LinearSpeedController
}

// NewTraverse constructs a traverse axis with the fixed linear jerk
// profile, starting NotHomed.
func NewTraverse(maxSpeed quantity.Velocity, maxAccel quantity.Acceleration, maxJerk quantity.Jerk) *Traverse {
	lo, hi := -maxSpeed, maxSpeed
	return &Traverse{
		state:    TraverseNotHomed,
		profiler: control.NewLinearSpeedController(&lo, &hi, -maxAccel, maxAccel, -maxJerk, maxJerk),
	}
}

// State reports the current state.
func (t *Traverse) State() TraverseState { return t.state }

// Position reports the current axis position.
func (t *Traverse) Position() quantity.Length { return t.position }

// StartHoming begins driving negative to find the limit switch. Valid
// from NotHomed or Idle.
func (t *Traverse) StartHoming() {
	if t.state == TraverseNotHomed || t.state == TraverseIdle {
		t.state = TraverseHoming
	}
}

// GoIn requests a one-shot move to LimitInner. Valid only from Idle.
func (t *Traverse) GoIn() {
	if t.state == TraverseIdle {
		t.state = TraverseGoingIn
	}
}

// GoOut requests a one-shot move to LimitOuter. Valid only from Idle.
func (t *Traverse) GoOut() {
	if t.state == TraverseIdle {
		t.state = TraverseGoingOut
		t.forward = true
	}
}

// StartOscillating begins stepped back-and-forth travel between the
// padded limits, advancing by Step on each waypoint arrival and
// reversing direction at each limit crossing. Valid only from Idle.
func (t *Traverse) StartOscillating() {
	if t.state == TraverseIdle {
		t.state = TraverseTraversing
		t.forward = true
		t.waypoint = t.position + t.Step
	}
}

// Stop returns to Idle, holding the current position.
func (t *Traverse) Stop() {
	if t.state != TraverseNotHomed && t.state != TraverseHoming {
		t.state = TraverseIdle
	}
}

// Update advances the state machine and encoder-derived position by one
// cycle, returning the commanded velocity. limitSwitchTripped reports
// the homing limit switch's current state; measuredPosition is the
// axis's encoder-derived position, used to detect arrival at targets.
func (t *Traverse) Update(limitSwitchTripped bool, measuredPosition quantity.Length, now time.Time) quantity.Velocity {
	t.position = measuredPosition

	switch t.state {
	case TraverseNotHomed:
		return t.profiler.Update(0, now)

	case TraverseHoming:
		if limitSwitchTripped {
			t.position = 0
			t.state = TraverseIdle
			return t.profiler.Update(0, now)
		}
		return t.profiler.Update(-t.HomingSpeed, now)

	case TraverseIdle:
		return t.profiler.Update(0, now)

	case TraverseGoingIn:
		if measuredPosition <= t.LimitInner {
			t.state = TraverseIdle
			return t.profiler.Update(0, now)
		}
		return t.profiler.Update(-t.HomingSpeed, now)

	case TraverseGoingOut:
		if measuredPosition >= t.LimitOuter {
			t.state = TraverseIdle
			return t.profiler.Update(0, now)
		}
		return t.profiler.Update(t.HomingSpeed, now)

	case TraverseTraversing:
		innerBound := t.LimitInner + t.Padding
		outerBound := t.LimitOuter - t.Padding

		if (t.forward && measuredPosition >= t.waypoint) || (!t.forward && measuredPosition <= t.waypoint) {
			if t.forward && t.waypoint >= outerBound {
				t.forward = false
			} else if !t.forward && t.waypoint <= innerBound {
				t.forward = true
			}
			if t.forward {
				t.waypoint += t.Step
				if t.waypoint > outerBound {
					t.waypoint = outerBound
				}
			} else {
				t.waypoint -= t.Step
				if t.waypoint < innerBound {
					t.waypoint = innerBound
				}
			}
		}

		target := t.HomingSpeed
		if t.waypoint < measuredPosition {
			target = -t.HomingSpeed
		}
		return t.profiler.Update(target, now)

	default:
		return t.profiler.Update(0, now)
	}
}
