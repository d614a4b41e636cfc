//go:build !linux

package rt

// LockMemory is a no-op on platforms without mlockall.
func LockMemory() error { return nil }

// Promote is a no-op on platforms without SCHED_FIFO; the render thread runs
// at whatever priority the runtime gives it.
func Promote(priority int) error { return nil }
