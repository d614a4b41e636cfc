//go:build !amd64

package rt

// EnableFlushToZero is a no-op on architectures without MXCSR control; the
// engine relies on the arithmetic denormal clamps in the smoothers instead.
func EnableFlushToZero() func() {
	return func() {}
}
