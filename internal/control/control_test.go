package control

import (
	"testing"
	"time"
)

func TestClampingPIDFirstTickIsProportionalOnly(t *testing.T) {
	pid := NewClampingPID(2, 1, 1)
	now := time.Unix(0, 0)
	signal := pid.Update(10, now)
	if signal != 20 {
		t.Fatalf("first tick should be kp*error only: got %v, want 20", signal)
	}
}

func TestClampingPIDFirstTickClampsErrorBeforeProportionalGain(t *testing.T) {
	minEp, maxEp := -1.0, 1.0
	minSignal, maxSignal := -10.0, 10.0
	pid := NewClampingPID(2, 0, 0)
	pid.MinEp, pid.MaxEp = &minEp, &maxEp
	pid.MinSignal, pid.MaxSignal = &minSignal, &maxSignal

	signal := pid.Update(5, time.Unix(0, 0))
	if signal != 2 {
		t.Fatalf("expected clamp(2*clamp(5,-1,1))=2, got %v", signal)
	}
}

func TestClampingPIDSubsequentTickIntegrates(t *testing.T) {
	pid := NewClampingPID(0, 1, 0)
	t0 := time.Unix(0, 0)
	pid.Update(1, t0)
	signal := pid.Update(1, t0.Add(time.Second))
	if signal <= 0 {
		t.Fatalf("expected positive integral contribution, got %v", signal)
	}
}

func TestClampingPIDResetClearsState(t *testing.T) {
	pid := NewClampingPID(1, 1, 1)
	t0 := time.Unix(0, 0)
	pid.Update(5, t0)
	pid.Update(5, t0.Add(time.Second))
	pid.Reset()
	signal := pid.Update(5, t0.Add(5*time.Second))
	if signal != 5 {
		t.Fatalf("after reset, first tick should again be kp*error: got %v", signal)
	}
}

func TestJerkSpeedControllerRespectsAccelLimit(t *testing.T) {
	maxA := 5.0
	c := newJerkSpeedController(nil, nil, -maxA, maxA, -10, 10)
	t0 := time.Unix(0, 0)
	c.update(50, t0) // first tick: dt=0, no movement
	speed := c.update(50, t0.Add(time.Second))
	if speed > maxA+1e-9 {
		t.Fatalf("speed after 1s should not exceed max accel * dt = %v, got %v", maxA, speed)
	}
}

func TestDeadTimePUsesDelayedSample(t *testing.T) {
	c := &DeadTimeP{Kp: 2}
	t0 := time.Unix(0, 0)
	c.Update(1, time.Second, t0) // first call: no dt yet, increment is 0
	signal := c.Update(3, time.Second, t0.Add(500*time.Millisecond))
	if signal != 1 { // dead=1s before t0+500ms is t0, whose error was 1; dt=0.5s
		t.Fatalf("expected kp*delayed_error*dt = 1, got %v", signal)
	}
	signal = c.Update(5, time.Second, t0.Add(time.Second))
	if signal != 1 { // dead=1s before t0+1s is t0, whose error was 1; dt=0.5s
		t.Fatalf("expected kp*delayed_error*dt = 1, got %v", signal)
	}
}

func TestRelayAutotunerConverges(t *testing.T) {
	a := &RelayAutotuner{Setpoint: 0, Delta: 1, RequiredCycles: 2, Timeout: time.Hour}
	t0 := time.Unix(0, 0)
	pv := 0.0
	period := 200 * time.Millisecond
	for i := 0; i < 2000; i++ {
		now := t0.Add(time.Duration(i) * time.Millisecond)
		phase := time.Duration(i) * time.Millisecond % period
		if phase < period/2 {
			pv = 1
		} else {
			pv = -1
		}
		if _, err := a.Update(pv, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Result() != nil {
			break
		}
	}
	res := a.Result()
	if res == nil {
		t.Fatal("expected autotuner to converge within 2000 samples")
	}
	if res.Ku <= 0 || res.Tu <= 0 {
		t.Fatalf("expected positive Ku/Tu, got %+v", res)
	}
}
