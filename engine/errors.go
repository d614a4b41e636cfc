// Package engine implements the realtime audio rendering core: the transport
// clock, the automation pipeline, the audio graph executor with plugin-delay
// compensation, and the built-in node set.
package engine

import (
	"errors"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
)

var (
	// ErrConfigMismatch means the caller supplied buffers or parameters
	// inconsistent with Prepare. Recoverable by re-preparing.
	ErrConfigMismatch = errors.New("configuration mismatch")

	// ErrGraphCycle is returned at build time when the edges do not form a
	// DAG.
	ErrGraphCycle = errors.New("graph contains a cycle")

	// ErrGraphInvalid covers the remaining build-time rejections: duplicate
	// node IDs, dangling edges, missing output node.
	ErrGraphInvalid = errors.New("graph invalid")

	// ErrOverflow means a bounded queue was full at enqueue time. Non-fatal;
	// the caller decides whether to retry.
	ErrOverflow = errors.New("queue full")

	// ErrDeviceLost means the stream backend reported a hard error; the
	// control thread may attempt to reopen the device.
	ErrDeviceLost = errors.New("audio device lost")
)

// NodeFault describes a node that signalled an unrecoverable internal error
// during processing. The node stays installed and renders silence; the fault
// is delivered to the control thread exactly once.
type NodeFault struct {
	Node   harmoniq.NodeID
	Reason string
}
