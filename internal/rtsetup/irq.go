// Package rtsetup implements the real-time boot setup and cycle
// observability of spec.md §5/§C10: SCHED_FIFO priority, memory
// locking, best-effort IRQ affinity pinning, and the Prometheus metrics
// an internal/cycle.Engine reports through. Ported in behavior from
// control-core/src/realtime.rs's raw-libc calls into their Go idioms
// (os.ReadFile/os.OpenFile instead of libc::open/read/write,
// golang.org/x/sys/unix instead of libc's sched_setscheduler/mlockall).
package rtsetup

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// findIRQForInterface scans /proc/interrupts content for a line naming
// ifaceName and returns its leading IRQ number, ported from
// find_irq_for_interface.
func findIRQForInterface(procContent, ifaceName string) (int, bool) {
	for _, line := range strings.Split(procContent, "\n") {
		if !strings.Contains(line, ifaceName) {
			continue
		}
		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		irq, err := strconv.Atoi(strings.TrimSpace(line[:colon]))
		if err != nil {
			continue
		}
		return irq, true
	}
	return 0, false
}

// PinIRQ pins ifaceName's interrupt handler to cpuList (e.g. "2"),
// overwriting /proc/irq/{irq}/smp_affinity_list entirely so the IRQ runs
// only on the listed cores — the fix that took this system's cycle-time
// 99.99th percentile from single-digit milliseconds to ~200us by
// keeping the NIC interrupt off the cycle thread's core.
func PinIRQ(ifaceName, cpuList string) error {
	procContent, err := os.ReadFile("/proc/interrupts")
	if err != nil {
		return fmt.Errorf("rtsetup: reading /proc/interrupts: %w", err)
	}

	irq, ok := findIRQForInterface(string(procContent), ifaceName)
	if !ok {
		return errors.New("rtsetup: no IRQ found for interface " + ifaceName)
	}

	path := fmt.Sprintf("/proc/irq/%d/smp_affinity_list", irq)
	if err := os.WriteFile(path, []byte(cpuList), 0o644); err != nil {
		return fmt.Errorf("rtsetup: writing %s: %w", path, err)
	}
	return nil
}
