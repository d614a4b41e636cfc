package midi

import (
	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

// batchMax bounds how many events are delivered to the render thread per
// block.
const batchMax = 64

// RawMessage is what a driver callback pushes: up to three message bytes and
// a monotonic timestamp with microsecond resolution.
type RawMessage struct {
	Data        [3]byte
	Len         uint8
	TimestampUs int64
}

// Dispatcher drains raw device messages from an SPSC ring, parses and
// remaps them, and synthesises per-block sample offsets from the elapsed
// time since block start. The internal clock is nudged towards the device
// timestamps a fifth of the error at a time, so a drifting driver clock
// converges instead of jumping.
type Dispatcher struct {
	ring *rt.Ring[RawMessage]
	mode Mode

	sampleRate    int
	startFrame    int64
	startFrameSet bool

	pending []harmoniq.MIDIEvent // parsed events not yet due, offsets absolute in frames
	frames  []int64
	batch   []harmoniq.MIDIEvent
}

func NewDispatcher(sampleRate int, mode Mode, capacity int) *Dispatcher {
	if capacity < 1 {
		capacity = 1024
	}
	return &Dispatcher{
		ring:       rt.NewRing[RawMessage](capacity),
		mode:       mode,
		sampleRate: sampleRate,
		pending:    make([]harmoniq.MIDIEvent, 0, capacity),
		frames:     make([]int64, 0, capacity),
		batch:      make([]harmoniq.MIDIEvent, 0, batchMax),
	}
}

// Push is called from the driver callback. It never blocks; overflow drops
// the message and bumps a counter surfaced by Dropped.
func (d *Dispatcher) Push(msg RawMessage) { d.ring.PushOrDrop(msg) }

// Dropped reports how many raw messages were lost to ring overflow.
func (d *Dispatcher) Dropped() uint64 { return d.ring.Dropped() }

func (d *Dispatcher) frameForTimestamp(us int64) int64 {
	return us * int64(d.sampleRate) / 1e6
}

// CollectBlock turns everything that became due into a batch of typed
// events with offsets inside [0, frames), sorted by offset (arrival order
// breaks ties). At most batchMax events are delivered per call; the rest
// stay queued for the next block. The returned slice is valid until the
// next call.
func (d *Dispatcher) CollectBlock(frames int) []harmoniq.MIDIEvent {
	for {
		msg, ok := d.ring.Pop()
		if !ok {
			break
		}
		ev, ok := Parse(msg.Data[:msg.Len])
		if !ok {
			continue
		}
		ev.Channel = d.mode.Remap(ev.Channel)
		f := d.frameForTimestamp(msg.TimestampUs)
		if !d.startFrameSet {
			d.startFrame = f
			d.startFrameSet = true
		}
		d.pending = append(d.pending, ev)
		d.frames = append(d.frames, f)
	}

	d.batch = d.batch[:0]
	consumed := 0
	for i, ev := range d.pending {
		if len(d.batch) >= batchMax {
			break
		}
		offset := d.frames[i] - d.startFrame
		if offset >= int64(frames) {
			break
		}
		if offset < 0 {
			// we are consuming this event late; nudge the clock forward
			d.startFrame += offset / 5
			offset = 0
		}
		ev.Offset = int(offset)
		d.batch = append(d.batch, ev)
		consumed++
	}
	if consumed > 0 {
		copy(d.pending, d.pending[consumed:])
		copy(d.frames, d.frames[consumed:])
		d.pending = d.pending[:len(d.pending)-consumed]
		d.frames = d.frames[:len(d.frames)-consumed]
	}
	return d.batch
}

// FinishBlock advances the block clock. When events are still pending, the
// clock leans towards their timestamps so they render close to when they
// were received.
func (d *Dispatcher) FinishBlock(frames int) {
	d.startFrame += int64(frames)
	if len(d.frames) > 0 {
		delta := d.startFrame - d.frames[0]
		if delta > 0 {
			d.startFrame -= delta / 5
		}
	}
}
