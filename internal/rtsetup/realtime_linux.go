//go:build linux

package rtsetup

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fifoPriority matches realtime.rs's choice: higher than most IRQ
// handlers (typically priority 50), lower than critical kernel tasks
// (priority 99).
const fifoPriority = 95

// schedParam mirrors struct sched_param from <sched.h>; the kernel only
// reads the leading int32 for SCHED_FIFO/SCHED_RR.
type schedParam struct {
	Priority int32
}

// SetRealtimePriority switches the calling OS thread (runtime.LockOSThread
// must already have been called by the caller) to SCHED_FIFO at a fixed
// priority, via the sched_setscheduler(2) syscall directly since
// golang.org/x/sys/unix does not wrap it — ported from
// realtime.rs::set_realtime_priority, which calls pthread_setschedparam
// via libc the same way.
func SetRealtimePriority() error {
	param := schedParam{Priority: fifoPriority}
	// pid 0 means "the calling thread" for sched_setscheduler.
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, unix.SCHED_FIFO, uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return fmt.Errorf("rtsetup: SCHED_FIFO priority %d: %w", fifoPriority, errno)
	}
	return nil
}

// LockMemory locks all current and future pages of the process into RAM,
// preventing page faults from perturbing cycle timing. Call once from
// the main thread, before spawning the cycle thread, ported from
// realtime.rs::lock_memory.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("rtsetup: mlockall: %w", err)
	}
	return nil
}
