// Package studio is the control layer around the engine: it owns the broker
// the threads talk through, the player that runs the render loop, and the
// project description that gets compiled into an audio graph.
package studio

import (
	"sync"
	"time"
)

type (
	// Broker is the centralized message hub between the player (render
	// thread), the model (control thread) and the MIDI dispatcher. It is
	// many-to-one communication, one channel per recipient, plus a
	// sync.Pool of float32 block buffers so audio can be passed around
	// without allocating each time.
	//
	// For closing goroutines there are CloseXXX/FinishedXXX channel pairs.
	// CloseXXX has capacity 1 so requesting closure never blocks; if the
	// channel is already full, someone else has already requested it and
	// dropping the message is fine. FinishedXXX is never sent to, only
	// closed, so "<-FinishedXXX" waits for cleanup, usually combined with a
	// timeout via TimeoutReceive.
	Broker struct {
		ToPlayer chan any
		ToModel  chan MsgToModel

		ClosePlayer    chan struct{}
		FinishedPlayer chan struct{}

		bufferPool sync.Pool
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:       make(chan any, 1024),
		ToModel:        make(chan MsgToModel, 1024),
		ClosePlayer:    make(chan struct{}, 1),
		FinishedPlayer: make(chan struct{}),
		bufferPool:     sync.Pool{New: func() any { b := make([]float32, 0); return &b }},
	}
}

// GetAudioBuffer returns an empty float32 buffer from the pool. Return it
// with PutAudioBuffer after use.
func (b *Broker) GetAudioBuffer() *[]float32 {
	return b.bufferPool.Get().(*[]float32)
}

// PutAudioBuffer resets the buffer's length (keeping capacity) and returns
// it to the pool.
func (b *Broker) PutAudioBuffer(buf *[]float32) {
	if len(*buf) > 0 {
		*buf = (*buf)[:0]
	}
	b.bufferPool.Put(buf)
}

// TrySend sends a value to a channel if it is not full. Guaranteed
// non-blocking; reports whether the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received or the timeout elapses.
// ok is false on timeout or when the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
