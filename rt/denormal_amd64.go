//go:build amd64

package rt

import "runtime"

const (
	mxcsrFTZ = 1 << 15 // flush-to-zero
	mxcsrDAZ = 1 << 6  // denormals-are-zero
)

func getMXCSR() uint32
func setMXCSR(csr uint32)

// EnableFlushToZero sets the FTZ and DAZ bits of the calling thread's MXCSR
// register so that denormal float results are replaced with signed zero
// instead of stalling the pipeline. The caller must be locked to its OS
// thread; the returned function restores the previous state. Calling it again
// on an already configured thread is harmless.
func EnableFlushToZero() func() {
	runtime.LockOSThread()
	prev := getMXCSR()
	setMXCSR(prev | mxcsrFTZ | mxcsrDAZ)
	return func() {
		setMXCSR(prev)
		runtime.UnlockOSThread()
	}
}
