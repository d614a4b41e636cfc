package engine

import (
	"sync/atomic"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
)

const noSchedule = -1

// Transport is the sample-accurate playhead of the engine. It lives for the
// lifetime of the render thread; every scalar field is an atomic so the
// control thread can read a coherent snapshot without taking a lock, and the
// tempo map is published by atomic pointer swap. Advance is only ever called
// from the render thread.
type Transport struct {
	pos     atomic.Uint64
	playing atomic.Bool
	version atomic.Uint64

	loopStart   atomic.Uint64
	loopEnd     atomic.Uint64
	loopEnabled atomic.Bool

	// scheduled play/stop flips, as offsets into the next Advance; honored
	// exactly once. noSchedule when nothing is pending.
	startOffset atomic.Int64
	stopOffset  atomic.Int64

	tempo atomic.Pointer[harmoniq.TempoMap]
}

func NewTransport() *Transport {
	t := &Transport{}
	t.startOffset.Store(noSchedule)
	t.stopOffset.Store(noSchedule)
	t.tempo.Store(harmoniq.DefaultTempoMap())
	return t
}

// Snapshot returns a coherent transport view for one block. Lock-free; the
// returned tempo map pointer stays valid for the duration of the block.
func (t *Transport) Snapshot() harmoniq.TransportSnapshot {
	return harmoniq.TransportSnapshot{
		SamplePos: t.pos.Load(),
		Playing:   t.playing.Load(),
		Loop: harmoniq.LoopRegion{
			Start:   t.loopStart.Load(),
			End:     t.loopEnd.Load(),
			Enabled: t.loopEnabled.Load(),
		},
		Tempo:   t.tempo.Load(),
		Version: t.version.Load(),
	}
}

// Advance moves the playhead by frames samples, honoring pending start/stop
// schedules and the loop region. Looping occurs after the per-frame
// increment, so the frame at loop end - 1 is produced normally and the
// playhead then jumps to loop start; no frame is skipped or duplicated.
// Within a block, a start scheduled at the same offset as a stop takes
// effect first.
func (t *Transport) Advance(frames int) {
	if frames <= 0 {
		return
	}
	pos := t.pos.Load()
	playing := t.playing.Load()
	start := t.startOffset.Load()
	stop := t.stopOffset.Load()
	loopEnabled := t.loopEnabled.Load()
	loopStart := t.loopStart.Load()
	loopEnd := t.loopEnd.Load()

	for f := 0; f < frames; f++ {
		if start != noSchedule && int64(f) >= start {
			playing = true
			start = noSchedule
		}
		if stop != noSchedule && int64(f) >= stop {
			playing = false
			stop = noSchedule
		}
		if !playing {
			continue
		}
		pos++
		if loopEnabled && loopEnd > loopStart && pos >= loopEnd {
			pos = loopStart + (pos - loopEnd)
		}
	}
	// a schedule pointing past this block fires at the start of the next one
	if start != noSchedule {
		playing = true
		start = noSchedule
	}
	if stop != noSchedule {
		playing = false
		stop = noSchedule
	}
	t.startOffset.Store(noSchedule)
	t.stopOffset.Store(noSchedule)
	t.pos.Store(pos)
	t.playing.Store(playing)
}

// Seek moves the playhead. Safe from any thread; the render thread picks the
// new position up at its next block boundary.
func (t *Transport) Seek(sample uint64) {
	t.pos.Store(sample)
	t.version.Add(1)
}

// Pos returns the current playhead position in samples.
func (t *Transport) Pos() uint64 { return t.pos.Load() }

func (t *Transport) Playing() bool { return t.playing.Load() }

// SetPlaying flips the play state immediately, replacing any pending
// schedule.
func (t *Transport) SetPlaying(playing bool) {
	t.startOffset.Store(noSchedule)
	t.stopOffset.Store(noSchedule)
	t.playing.Store(playing)
	t.version.Add(1)
}

// ScheduleStart causes playback to begin at the given sample offset within
// the next Advance.
func (t *Transport) ScheduleStart(offset int) {
	if offset < 0 {
		offset = 0
	}
	t.startOffset.Store(int64(offset))
	t.version.Add(1)
}

// ScheduleStop causes playback to stop at the given sample offset within the
// next Advance.
func (t *Transport) ScheduleStop(offset int) {
	if offset < 0 {
		offset = 0
	}
	t.stopOffset.Store(int64(offset))
	t.version.Add(1)
}

// SetLoop installs an inclusive-start, exclusive-end wrap range.
func (t *Transport) SetLoop(start, end uint64) {
	t.loopStart.Store(start)
	t.loopEnd.Store(end)
	t.loopEnabled.Store(end > start)
	t.version.Add(1)
}

func (t *Transport) ClearLoop() {
	t.loopEnabled.Store(false)
	t.version.Add(1)
}

// SetTempoMap publishes a new tempo map by atomic pointer swap. The prior
// map is released once no render pass still holds its snapshot.
func (t *Transport) SetTempoMap(m *harmoniq.TempoMap) {
	if m == nil || len(m.Events) == 0 {
		return
	}
	t.tempo.Store(m)
	t.version.Add(1)
}

// TempoAt answers the tempo of the segment containing the given sample.
func (t *Transport) TempoAt(sample uint64) harmoniq.TempoEvent {
	return t.tempo.Load().TempoAt(sample)
}
