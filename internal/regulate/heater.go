package regulate

import (
	"time"

	"github.com/lineflow/linectl/internal/control"
	"github.com/lineflow/linectl/internal/mathx"
	"github.com/lineflow/linectl/internal/quantity"
)

// Heater drives a resistive heating element through software PWM: a
// PID closing on measured temperature produces a duty cycle in
// [0, MaxDuty], toggled on a fixed period (spec.md §4.6 "heater
// controller", typically 1s). An optional RelayAutotuner can drive the
// output directly while tuning, per spec.md §4.3.4.
type Heater struct {
	TargetTemp quantity.Temperature
	MaxDuty    float64
	Period     time.Duration

	PID       control.ClampingPID
	Autotuner *control.RelayAutotuner

	periodStart time.Time
	duty        float64
}

// NewHeater constructs a heater controller with the given PID gains and
// software-PWM period.
func NewHeater(kp, ki, kd, maxDuty float64, period time.Duration) *Heater {
	zero, max := 0.0, maxDuty
	h := &Heater{MaxDuty: maxDuty, Period: period}
	h.PID = control.ClampingPID{Kp: kp, Ki: ki, Kd: kd, MinSignal: &zero, MaxSignal: &max}
	return h
}

// Update computes this cycle's duty cycle from measured temperature (or
// from the autotuner, if one is active) and returns whether the
// software PWM output should currently be on.
func (h *Heater) Update(measured quantity.Temperature, now time.Time) bool {
	if h.Autotuner != nil && !h.Autotuner.Failed() && h.Autotuner.Result() == nil {
		output, err := h.Autotuner.Update(measured.Kelvin(), now)
		if err == nil {
			h.duty = mathx.Clamp(output, 0, h.MaxDuty)
		}
	} else {
		errVal := h.TargetTemp.Kelvin() - measured.Kelvin()
		h.duty = h.PID.Update(errVal, now)
	}

	if h.periodStart.IsZero() || now.Sub(h.periodStart) >= h.Period {
		h.periodStart = now
	}
	elapsed := now.Sub(h.periodStart)
	onTime := time.Duration(h.duty / h.MaxDuty * float64(h.Period))
	return elapsed < onTime
}

// Duty returns the most recently computed duty cycle.
func (h *Heater) Duty() float64 { return h.duty }

// Reset clears PID state and the PWM period boundary.
func (h *Heater) Reset() {
	h.PID.Reset()
	h.periodStart = time.Time{}
	h.duty = 0
}
