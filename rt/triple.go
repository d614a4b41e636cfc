package rt

import "sync/atomic"

const tripleFresh = 1 << 2

// Triple is a single-writer/single-reader triple buffer. The writer publishes
// whole snapshots with Write; the reader always observes the most recently
// completed snapshot with Read, never a torn one. Neither side blocks, so the
// render thread can publish meters and transport positions every block while
// the control thread polls at its own pace.
type Triple[T any] struct {
	slots [3]T
	// state packs the middle slot index in bits 0..1 and a freshness flag in
	// bit 2. back is only touched by the writer, front only by the reader.
	state atomic.Uint32
	back  uint32
	front uint32
}

func NewTriple[T any]() *Triple[T] {
	t := &Triple[T]{back: 0, front: 2}
	t.state.Store(1)
	return t
}

// Write publishes a new snapshot.
func (t *Triple[T]) Write(v T) {
	t.slots[t.back] = v
	old := t.state.Swap(t.back | tripleFresh)
	t.back = old & 3
}

// Read returns the latest published snapshot. When nothing new has been
// published since the last call, the previous snapshot is returned again.
func (t *Triple[T]) Read() T {
	if t.state.Load()&tripleFresh != 0 {
		old := t.state.Swap(t.front)
		if old&tripleFresh != 0 {
			t.front = old & 3
		}
	}
	return t.slots[t.front]
}
