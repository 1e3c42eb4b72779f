package regulate

import (
	"time"

	"github.com/lineflow/linectl/internal/control"
	"github.com/lineflow/linectl/internal/quantity"
)

// BufferTowerLift translates a counterpart machine's target tower height
// into a jerk-limited stepper velocity, tracking actual height from an
// unwrapped encoder position (spec.md §4.6 "buffer-tower lift").
type BufferTowerLift struct {
	// CountsPerMetre converts unwrapped encoder counts to height.
	CountsPerMetre float64

	counter  *CounterWrapper32
	profiler *control.LinearSpeedController
}

// NewBufferTowerLift constructs a lift with the fixed linear jerk
// profile shared with the puller, starting the encoder at 0.
func NewBufferTowerLift(countsPerMetre float64, maxSpeed quantity.Velocity, maxAccel quantity.Acceleration, maxJerk quantity.Jerk) *BufferTowerLift {
	lo, hi := -maxSpeed, maxSpeed
	return &BufferTowerLift{
		CountsPerMetre: countsPerMetre,
		counter:        NewCounterWrapper32(0),
		profiler:       control.NewLinearSpeedController(&lo, &hi, -maxAccel, maxAccel, -maxJerk, maxJerk),
	}
}

// ObserveEncoder folds in this cycle's raw encoder reading.
func (b *BufferTowerLift) ObserveEncoder(counter uint32, underflow, overflow bool) {
	b.counter.Update(counter, underflow, overflow)
}

// Height returns the current unwrapped tower height.
func (b *BufferTowerLift) Height() quantity.Length {
	return quantity.Length(float64(b.counter.Current()) / b.CountsPerMetre)
}

// Update drives the profiler toward a target velocity proportional to
// the remaining gap to targetHeight: the gap in metres times closeRate,
// in metres per second.
func (b *BufferTowerLift) Update(targetHeight quantity.Length, closeRate float64, now time.Time) quantity.Velocity {
	gap := targetHeight.Metres() - b.Height().Metres()
	target := quantity.Velocity(gap * closeRate)
	return b.profiler.Update(target, now)
}

// Speed returns the profiler's current commanded velocity.
func (b *BufferTowerLift) Speed() quantity.Velocity { return b.profiler.Speed() }

// Reset re-homes the lift to a known height and zero velocity.
func (b *BufferTowerLift) Reset(height quantity.Length) {
	b.counter = NewCounterWrapper32(int64(height.Metres() * b.CountsPerMetre))
	b.profiler.Reset(0, nil)
}
