//go:build !linux

package rtsetup

import "errors"

// SetRealtimePriority is unsupported outside Linux, matching
// realtime.rs's #[cfg(not(unix))] fallback.
func SetRealtimePriority() error {
	return errors.New("rtsetup: SCHED_FIFO real-time priority is only supported on linux")
}

// LockMemory is unsupported outside Linux.
func LockMemory() error {
	return errors.New("rtsetup: mlockall is only supported on linux")
}
