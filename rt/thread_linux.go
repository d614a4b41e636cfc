//go:build linux

package rt

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockMemory pins the process address space into RAM so the render thread
// never takes a major page fault. EPERM means the process lacks the
// memlock rlimit; rendering still works, just without the guarantee, so the
// caller should downgrade that to a warning.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}
	return nil
}

// Promote lifts the calling thread to SCHED_FIFO at the given priority
// (1..99). When realtime scheduling is not permitted it falls back to the
// highest nice level available and reports the original error wrapped, so
// the caller can log it and continue.
func Promote(priority int) error {
	if priority < 1 {
		priority = 1
	}
	if priority > 99 {
		priority = 99
	}
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		// fall back to the best normal priority we can get
		if nerr := unix.Setpriority(unix.PRIO_PROCESS, 0, -20); nerr != nil {
			return fmt.Errorf("SCHED_FIFO unavailable (%v) and setpriority failed: %w", err, nerr)
		}
		return fmt.Errorf("SCHED_FIFO unavailable, running at nice -20: %w", err)
	}
	return nil
}
