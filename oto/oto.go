// Package oto outputs audio through the oto/v3 library. Oto pulls samples
// from an io.Reader on its own mixing goroutine, while the render loop
// pushes blocks; an SPSC ring bridges the two. A shortfall on the pull side
// plays silence and counts an xrun instead of stalling the device.
package oto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

type Context struct {
	ctx        *oto.Context
	sampleRate int
	channels   int
	metrics    *rt.Metrics
}

type Output struct {
	player  *oto.Player
	ring    *rt.Ring[float32]
	metrics *rt.Metrics
	closed  bool
}

// ringFrames is how many frames of audio the bridge ring holds. Large
// enough to ride out scheduling jitter on the pull side, small enough to
// keep added latency in the tens of milliseconds.
const ringFrames = 4096

var errClosed = errors.New("output closed")

// NewContext initializes the audio device. metrics may be nil when xrun
// accounting is not wanted.
func NewContext(sampleRate, channels int, metrics *rt.Metrics) (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: sampleRate, channels: channels, metrics: metrics}, nil
}

func (c *Context) Output() (harmoniq.AudioSink, error) {
	o := newOutput(c.channels, c.metrics)
	o.player = c.ctx.NewPlayer(o)
	o.player.Play()
	return o, nil
}

func newOutput(channels int, metrics *rt.Metrics) *Output {
	return &Output{
		ring:    rt.NewRing[float32](ringFrames * channels),
		metrics: metrics,
	}
}

// Close suspends the device. The oto context itself cannot be torn down
// once created; Suspend releases the hardware as far as the platform
// allows.
func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// WriteAudio pushes one interleaved block into the bridge ring, waiting for
// room when the device is behind. This backpressure is what paces the
// render loop when it runs ahead of realtime.
func (o *Output) WriteAudio(buffer []float32) error {
	for _, s := range buffer {
		for !o.ring.Push(s) {
			if o.closed {
				return fmt.Errorf("cannot write to oto output: %w", errClosed)
			}
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

// Read is called by oto's mixing goroutine. Never blocks; when the ring
// runs dry the rest of the request is filled with silence and an xrun is
// counted.
func (o *Output) Read(p []byte) (int, error) {
	n := len(p) / 4 * 4
	shortfall := false
	for i := 0; i < n; i += 4 {
		s, ok := o.ring.Pop()
		if !ok {
			s = 0
			shortfall = true
		}
		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(s))
	}
	if shortfall && o.metrics != nil {
		o.metrics.AddXrun(1)
	}
	return n, nil
}

func (o *Output) Close() error {
	o.closed = true
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
