package regulate

import (
	"testing"
	"time"

	"github.com/lineflow/linectl/internal/quantity"
)

func TestPullerSpeedControllerFixedClampsToEnvelope(t *testing.T) {
	p := NewPullerSpeedController()
	now := time.Unix(0, 0)
	var speed quantity.Velocity
	for i := 0; i < 200; i++ {
		now = now.Add(100 * time.Millisecond)
		speed = p.UpdateFixed(quantity.VelocityMetresPerMinute(1000), now)
	}
	if speed.MetresPerMinute() > 50+1e-6 {
		t.Fatalf("expected speed clamped to 50 m/min, got %v", speed.MetresPerMinute())
	}
}

func TestPullerSpeedControllerDiameterFlowConservesVolume(t *testing.T) {
	p := NewPullerSpeedController()
	p.TargetDiameter = quantity.LengthMillimetres(1.75)
	now := time.Unix(0, 0)
	p.Reset(quantity.VelocityMetresPerMinute(10))
	p.UpdateDiameterFlow(quantity.LengthMillimetres(1.75), now) // first tick after Reset: no dt yet

	now = now.Add(100 * time.Millisecond)
	thinner := p.UpdateDiameterFlow(quantity.LengthMillimetres(1.0), now)
	if thinner >= quantity.VelocityMetresPerMinute(10) {
		t.Fatalf("expected speed to drop to conserve flow when measured diameter is below target, got %v", thinner.MetresPerMinute())
	}
}

func TestPullerSpeedControllerDeadTimeCapsAtZeroSpeed(t *testing.T) {
	p := NewPullerSpeedController()
	p.DistanceSensorToNip = quantity.LengthMillimetres(500)
	dead := p.deadTime(0)
	if dead != pullerMaxDeadTime {
		t.Fatalf("expected dead time capped at %v when stopped, got %v", pullerMaxDeadTime, dead)
	}
}

func TestBufferTowerLiftTracksHeight(t *testing.T) {
	lift := NewBufferTowerLift(1000, quantity.VelocityMetresPerMinute(20), 5, 10)
	lift.ObserveEncoder(2000, false, false)
	if got := lift.Height().Millimetres(); got < 1999 || got > 2001 {
		t.Fatalf("got height %v mm, want ~2000mm", got)
	}

	now := time.Unix(0, 0)
	var speed quantity.Velocity
	for i := 0; i < 50; i++ {
		now = now.Add(100 * time.Millisecond)
		speed = lift.Update(quantity.Length(5), 1.0, now)
	}
	if speed <= 0 {
		t.Fatalf("expected lift to command positive speed while below target height, got %v", speed)
	}
}

func TestTraverseHomesThenIdles(t *testing.T) {
	tr := NewTraverse(quantity.VelocityMetresPerMinute(60), 1, 1)
	tr.HomingSpeed = quantity.VelocityMetresPerMinute(30)
	tr.StartHoming()
	if tr.State() != TraverseHoming {
		t.Fatalf("expected Homing, got %v", tr.State())
	}

	now := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		now = now.Add(100 * time.Millisecond)
		tr.Update(false, quantity.Length(float64(-i)*0.01), now)
	}
	now = now.Add(100 * time.Millisecond)
	tr.Update(true, quantity.Length(-0.05), now)

	if tr.State() != TraverseIdle {
		t.Fatalf("expected Idle after limit switch trips, got %v", tr.State())
	}
	if tr.Position() != 0 {
		t.Fatalf("expected position zeroed at homing, got %v", tr.Position())
	}
}

func TestTraverseOscillatesBetweenPaddedLimits(t *testing.T) {
	tr := NewTraverse(quantity.VelocityMetresPerMinute(60), 1, 1)
	tr.HomingSpeed = quantity.VelocityMetresPerMinute(30)
	tr.LimitInner = 0
	tr.LimitOuter = quantity.Length(1)
	tr.Padding = quantity.Length(0.05)
	tr.Step = quantity.Length(0.1)
	tr.state = TraverseIdle
	tr.StartOscillating()

	pos := quantity.Length(0)
	now := time.Unix(0, 0)
	sawReverse := false
	for i := 0; i < 400; i++ {
		now = now.Add(50 * time.Millisecond)
		speed := tr.Update(false, pos, now)
		pos += quantity.Length(speed.MetresPerSecond() * 0.05)
		if !tr.forward {
			sawReverse = true
		}
	}
	if !sawReverse {
		t.Fatal("expected the traverse to reverse direction after reaching the outer padded limit")
	}
}

func TestHeaterDutyTracksTemperatureError(t *testing.T) {
	h := NewHeater(5, 0, 0, 1.0, time.Second)
	h.TargetTemp = quantity.TemperatureCelsius(200)

	now := time.Unix(0, 0)
	h.Update(quantity.TemperatureCelsius(20), now)
	now = now.Add(10 * time.Millisecond)
	h.Update(quantity.TemperatureCelsius(20), now)

	if h.Duty() <= 0 {
		t.Fatalf("expected positive duty while well below target, got %v", h.Duty())
	}
	if h.Duty() > h.MaxDuty {
		t.Fatalf("duty %v exceeded MaxDuty %v", h.Duty(), h.MaxDuty)
	}
}
