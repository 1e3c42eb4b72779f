package control

import (
	"math"
	"time"

	"github.com/lineflow/linectl/internal/ctlerr"
)

// TuningResult is the Ziegler-Nichols classical-rule PID gain set derived
// from a completed relay-feedback experiment.
type TuningResult struct {
	Kp, Ki, Kd float64
	Ku         float64       // ultimate gain
	Tu         time.Duration // ultimate period
}

// RelayAutotuner drives a bang-bang relay around Setpoint and measures
// the resulting limit-cycle oscillation to estimate the process's
// ultimate gain and period (spec.md §4.3.4, Åström–Hägglund). Call
// Update once per cycle with the current process variable; it returns
// the relay output to apply this cycle. Once enough clean half-cycles
// have been observed, Result returns a non-nil TuningResult.
type RelayAutotuner struct {
	Setpoint      float64
	Delta         float64 // relay output amplitude ("d")
	RequiredCycles int    // full oscillation periods to average over; 0 defaults to 4
	Timeout       time.Duration

	started      time.Time
	hasStarted   bool
	relayHigh    bool
	halfStart    time.Time
	halfMin      float64
	halfMax      float64
	halfHasData  bool
	switchTimes  []time.Time
	amplitudes   []float64

	result *TuningResult
	failed bool
}

func (a *RelayAutotuner) requiredCycles() int {
	if a.RequiredCycles > 0 {
		return a.RequiredCycles
	}
	return 4
}

// Update advances the experiment with one process-variable sample and
// returns the relay output to command this cycle.
func (a *RelayAutotuner) Update(pv float64, now time.Time) (output float64, err error) {
	if a.result != nil {
		return 0, nil
	}
	if a.failed {
		return 0, ctlerr.New(ctlerr.AutotuneFailed, "autotune.Update", "autotuner already failed")
	}
	if !a.hasStarted {
		a.started = now
		a.hasStarted = true
		a.relayHigh = pv < a.Setpoint
		a.beginHalfCycle(now, pv)
	}

	if a.Timeout > 0 && now.Sub(a.started) > a.Timeout {
		a.failed = true
		return 0, ctlerr.New(ctlerr.AutotuneFailed, "autotune.Update", "timed out before enough clean oscillation cycles were observed")
	}

	a.trackHalfCycle(pv)

	wantHigh := pv < a.Setpoint
	if wantHigh != a.relayHigh {
		a.endHalfCycle(now)
		a.relayHigh = wantHigh
		a.beginHalfCycle(now, pv)

		if len(a.switchTimes) >= 2*a.requiredCycles()+1 {
			a.result = a.compute()
		}
	}

	if a.relayHigh {
		return a.Delta, nil
	}
	return -a.Delta, nil
}

func (a *RelayAutotuner) beginHalfCycle(now time.Time, pv float64) {
	a.halfStart = now
	a.halfMin = pv
	a.halfMax = pv
	a.halfHasData = true
}

func (a *RelayAutotuner) trackHalfCycle(pv float64) {
	if !a.halfHasData {
		return
	}
	if pv < a.halfMin {
		a.halfMin = pv
	}
	if pv > a.halfMax {
		a.halfMax = pv
	}
}

func (a *RelayAutotuner) endHalfCycle(now time.Time) {
	a.switchTimes = append(a.switchTimes, now)
	a.amplitudes = append(a.amplitudes, (a.halfMax-a.halfMin)/2)
	a.halfHasData = false
}

// compute averages the last requiredCycles full periods (two relay
// half-switches each) and converts to PID gains via the classical
// Ziegler-Nichols relay-tuning rules.
func (a *RelayAutotuner) compute() *TuningResult {
	n := a.requiredCycles()
	switches := a.switchTimes[len(a.switchTimes)-2*n-1:]
	amps := a.amplitudes[len(a.amplitudes)-2*n:]

	var periodSum time.Duration
	for i := 0; i < n; i++ {
		periodSum += switches[2*i+2].Sub(switches[2*i])
	}
	Tu := periodSum / time.Duration(n)

	var ampSum float64
	for _, amp := range amps {
		ampSum += amp
	}
	A := ampSum / float64(len(amps))
	if A <= 0 {
		a.failed = true
		return nil
	}

	Ku := 4 * a.Delta / (math.Pi * A)
	TuSec := Tu.Seconds()

	Kp := 0.6 * Ku
	Ki := 1.2 * Ku / TuSec
	Kd := 0.075 * Ku * TuSec

	return &TuningResult{Kp: Kp, Ki: Ki, Kd: Kd, Ku: Ku, Tu: Tu}
}

// Result returns the tuning result once the experiment has converged, or
// nil while it is still running.
func (a *RelayAutotuner) Result() *TuningResult { return a.result }

// Failed reports whether the experiment aborted due to timeout or a
// degenerate (zero-amplitude) oscillation.
func (a *RelayAutotuner) Failed() bool { return a.failed }
