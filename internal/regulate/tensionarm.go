// Package regulate implements the motion and regulation cores of
// spec.md §4.6: tension-arm geometry, spool/puller speed controllers,
// the buffer-tower lift, the traverse state machine, and the heater
// PWM driver. Grounded on machines/src/winder2/devices/* and
// machines/src/gluetex/controllers/* for the concrete algorithms, and on
// the teacher's plain-struct controller style throughout.
package regulate

import (
	"math"

	"github.com/lineflow/linectl/internal/mathx"
	"github.com/lineflow/linectl/internal/quantity"
)

// point2D is a planar coordinate in metres.
type point2D struct{ X, Y float64 }

func dist(a, b point2D) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// TensionArm converts a raw analog-input angle reading (0-5V mapped to
// 0-360°, wrapping) into a calibrated arm angle. Calibrate captures a
// zero-offset once, typically when the arm is known to be at its rest
// position (spec.md §4.6 "a zero-offset is captured once").
type TensionArm struct {
	zeroOffset  quantity.Angle
	calibrated  bool
}

// AngleFromVoltage maps a 0-5V analog reading to a wrapped angle in
// [0, 2π).
func AngleFromVoltage(volts float64) quantity.Angle {
	normalized := mathx.Normalize(volts, 0, 5)
	degrees := mathx.Scale(normalized, 0, 360)
	return quantity.AngleDegrees(degrees).Wrapped()
}

// Calibrate records rawAngle as the zero-offset for all future Angle
// calls.
func (t *TensionArm) Calibrate(rawAngle quantity.Angle) {
	t.zeroOffset = rawAngle
	t.calibrated = true
}

// Calibrated reports whether Calibrate has been called.
func (t *TensionArm) Calibrated() bool { return t.calibrated }

// Angle returns rawAngle corrected by the calibrated zero-offset,
// wrapped back into [0, 2π).
func (t *TensionArm) Angle(rawAngle quantity.Angle) quantity.Angle {
	return quantity.Angle(float64(rawAngle) - float64(t.zeroOffset)).Wrapped()
}

// FilamentTensionCalculator converts a tension-arm angle into a
// normalized [0,1] tension value via two-segment path-length geometry:
// puller-anchor -> arm-tip -> traverse-anchor (spec.md §4.6). 1 means
// the path is at its calibrated minimum length (high tension).
type FilamentTensionCalculator struct {
	PullerAnchor, TraverseAnchor, ArmPivot point2D
	ArmLength                              quantity.Length

	// MinLength/MaxLength bound the path length the arm can produce
	// across its mechanical range of travel, calibrated once at setup.
	MinLength, MaxLength quantity.Length
}

// PathLength returns the puller-anchor -> arm-tip -> traverse-anchor
// path length for the given arm angle.
func (f *FilamentTensionCalculator) PathLength(armAngle quantity.Angle) quantity.Length {
	tip := point2D{
		X: f.ArmPivot.X + f.ArmLength.Metres()*math.Cos(float64(armAngle)),
		Y: f.ArmPivot.Y + f.ArmLength.Metres()*math.Sin(float64(armAngle)),
	}
	return quantity.Length(dist(f.PullerAnchor, tip) + dist(tip, f.TraverseAnchor))
}

// Tension returns the normalized [0,1] tension for the given arm angle:
// a linear rescaling of PathLength that gives 1 at MinLength and 0 at
// MaxLength. It is monotonic in angle exactly where PathLength is; no
// separate check enforces that.
func (f *FilamentTensionCalculator) Tension(armAngle quantity.Angle) quantity.Ratio {
	length := f.PathLength(armAngle)
	normalized := mathx.Normalize(float64(length), float64(f.MinLength), float64(f.MaxLength))
	return quantity.Ratio(mathx.Invert(normalized))
}
