package regulate

import (
	"math"
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/quantity"
)

func TestAngleFromVoltageWraps(t *testing.T) {
	cases := []struct {
		volts float64
		want  float64
	}{
		{0, 0},
		{2.5, math.Pi},
		{5, 0}, // wraps back to 0, not 2π
	}
	for _, c := range cases {
		got := AngleFromVoltage(c.volts).Radians()
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("AngleFromVoltage(%v) = %v, want %v", c.volts, got, c.want)
		}
	}
}

func TestTensionArmCalibrationShiftsZero(t *testing.T) {
	var arm TensionArm
	if arm.Calibrated() {
		t.Fatal("expected uncalibrated arm before Calibrate")
	}
	arm.Calibrate(quantity.Angle(math.Pi / 2))
	if !arm.Calibrated() {
		t.Fatal("expected calibrated arm after Calibrate")
	}
	got := arm.Angle(quantity.Angle(math.Pi / 2)).Radians()
	if math.Abs(got) > 1e-9 {
		t.Fatalf("got %v, want 0 at the calibrated zero", got)
	}
}

func TestFilamentTensionCalculatorMonotonic(t *testing.T) {
	calc := &FilamentTensionCalculator{
		PullerAnchor:   point2D{X: -0.2, Y: 0},
		TraverseAnchor: point2D{X: 0.2, Y: 0},
		ArmPivot:       point2D{X: 0, Y: 0.1},
		ArmLength:      quantity.Length(0.1),
	}
	calc.MinLength = calc.PathLength(quantity.Angle(-math.Pi / 2))
	calc.MaxLength = calc.PathLength(quantity.Angle(math.Pi / 2))

	highTension := calc.Tension(quantity.Angle(-math.Pi / 2))
	lowTension := calc.Tension(quantity.Angle(math.Pi / 2))

	if highTension < lowTension {
		t.Fatalf("expected minimum-length angle to report higher tension: high=%v low=%v", highTension, lowTension)
	}
	if math.Abs(float64(highTension)-1) > 1e-9 {
		t.Fatalf("expected tension 1 at MinLength, got %v", highTension)
	}
	if math.Abs(float64(lowTension)) > 1e-9 {
		t.Fatalf("expected tension 0 at MaxLength, got %v", lowTension)
	}
}

func TestSpoolSpeedControllerMinMaxTracksTension(t *testing.T) {
	minSpeed := quantity.AngularVelocityRPM(0)
	maxSpeed := quantity.AngularVelocityRPM(600)
	ctrl := NewSpoolSpeedController(minSpeed, maxSpeed, -100, 100)

	t0 := time.Unix(0, 0)
	ctrl.UpdateMinMax(0, t0) // prime the profiler, no dt yet

	now := t0
	var speed quantity.AngularVelocity
	for i := 0; i < 50; i++ {
		now = now.Add(100 * time.Millisecond)
		speed = ctrl.UpdateMinMax(1, now)
	}
	if speed <= 0 {
		t.Fatalf("expected speed to climb toward max under full tension, got %v", speed)
	}
	if speed > maxSpeed {
		t.Fatalf("speed %v exceeded maxSpeed %v", speed, maxSpeed)
	}
}

func TestSpoolSpeedControllerAdaptiveReducesError(t *testing.T) {
	ctrl := NewSpoolSpeedController(0, quantity.AngularVelocityRPM(600), -100, 100)
	ctrl.Adaptive = AdaptiveSpoolParams{
		LearningRate:        0.1,
		MaxSpeedMultiplier:  1,
		AccelerationFactor:  2,
		DecelerationUrgency: 1.5,
	}

	now := time.Unix(0, 0)
	ctrl.UpdateAdaptive(0, 0.5, 0, 0, now)

	for i := 0; i < 20; i++ {
		now = now.Add(100 * time.Millisecond)
		ctrl.UpdateAdaptive(0.2, 0.5, quantity.VelocityMetresPerMinute(10), ctrl.profiler.Speed(), now)
	}
	if ctrl.profiler.Speed() <= 0 {
		t.Fatalf("expected adaptive mode to raise speed in response to a tension deficit, got %v", ctrl.profiler.Speed())
	}
}

func TestSpoolSpeedControllerBumplessModeSwitch(t *testing.T) {
	ctrl := NewSpoolSpeedController(0, quantity.AngularVelocityRPM(600), -100, 100)
	now := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		now = now.Add(100 * time.Millisecond)
		ctrl.UpdateMinMax(1, now)
	}
	before := ctrl.profiler.Speed()

	now = now.Add(100 * time.Millisecond)
	ctrl.UpdateAdaptive(0.9, 0.9, 0, before, now)
	after := ctrl.profiler.Speed()

	if math.Abs(float64(after-before)) > float64(before)+1 {
		t.Fatalf("expected a bumpless transition between modes, before=%v after=%v", before, after)
	}
}
