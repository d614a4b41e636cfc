package engine

import (
	"sort"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

// WriteMode gates whether UI gestures record into an automation curve.
type WriteMode uint8

const (
	// ModeRead: the curve is authoritative, gestures are ignored.
	ModeRead WriteMode = iota
	// ModeTouch: gestures overwrite while held, the curve resumes on release.
	ModeTouch
	// ModeLatch: like touch, but the overwrite persists until playback stops.
	ModeLatch
	// ModeWrite: continuous overwrite while playing.
	ModeWrite
)

type cmdKind uint8

const (
	cmdRegister cmdKind = iota
	cmdDraw
	cmdSetMode
	cmdTouch
	cmdRelease
	cmdRemoveAfter
)

type (
	// Command is one control-thread request to the automation engine. The
	// command stream travels through a bounded SPSC ring and is drained at
	// the top of every block.
	Command struct {
		kind     cmdKind
		spec     harmoniq.ParameterSpec
		node     harmoniq.NodeID
		param    int
		sample   uint64
		value    float32
		hasValue bool
		shape    CurveShape
		mode     WriteMode
	}

	// recorder is the write-mode state machine of one lane.
	recorder struct {
		mode     WriteMode
		touching bool
		latched  bool
	}

	lane struct {
		spec      harmoniq.ParameterSpec
		curve     Curve
		rec       recorder
		lastValue float32
		emitted   bool // at least one update has been emitted since the curve last changed
	}

	// Automation owns the registered parameter lanes and renders
	// sample-accurate updates for each block. The control thread talks to it
	// exclusively through Send*; everything else runs on the render thread.
	Automation struct {
		commands *rt.Ring[Command]
		lanes    []*lane
		updates  []harmoniq.ParameterUpdate
		drain    []Command
	}
)

func RegisterCommand(spec harmoniq.ParameterSpec) Command {
	return Command{kind: cmdRegister, spec: spec, node: spec.Node, param: spec.Index}
}

func DrawCommand(node harmoniq.NodeID, param int, sample uint64, value float32, shape CurveShape) Command {
	return Command{kind: cmdDraw, node: node, param: param, sample: sample, value: value, hasValue: true, shape: shape}
}

func SetModeCommand(node harmoniq.NodeID, param int, mode WriteMode) Command {
	return Command{kind: cmdSetMode, node: node, param: param, mode: mode}
}

func TouchCommand(node harmoniq.NodeID, param int, sample uint64, value float32, shape CurveShape) Command {
	return Command{kind: cmdTouch, node: node, param: param, sample: sample, value: value, hasValue: true, shape: shape}
}

func ReleaseCommand(node harmoniq.NodeID, param int, sample uint64) Command {
	return Command{kind: cmdRelease, node: node, param: param, sample: sample}
}

func RemoveAfterCommand(node harmoniq.NodeID, param int, sample uint64) Command {
	return Command{kind: cmdRemoveAfter, node: node, param: param, sample: sample}
}

// updateEpsilon: an update is only emitted when the computed value moved at
// least this much since the previous one.
const updateEpsilon = 1e-6

func NewAutomation(commandCapacity int) *Automation {
	if commandCapacity < 1 {
		commandCapacity = 256
	}
	return &Automation{
		commands: rt.NewRing[Command](commandCapacity),
		drain:    make([]Command, 64),
	}
}

// Send enqueues a command from the control thread. Returns ErrOverflow when
// the ring is full; the rejection is counted so the render thread can surface
// it as telemetry, and the caller decides whether to retry.
func (a *Automation) Send(cmd Command) error {
	if !a.commands.PushOrDrop(cmd) {
		return ErrOverflow
	}
	return nil
}

// Dropped reports how many commands were rejected because the ring was full.
func (a *Automation) Dropped() uint64 { return a.commands.Dropped() }

func (a *Automation) findLane(node harmoniq.NodeID, param int) *lane {
	for _, l := range a.lanes {
		if l.spec.Node == node && l.spec.Index == param {
			return l
		}
	}
	return nil
}

func (a *Automation) apply(cmd Command) {
	if cmd.kind == cmdRegister {
		if l := a.findLane(cmd.node, cmd.param); l != nil {
			l.spec = cmd.spec
			return
		}
		a.lanes = append(a.lanes, &lane{spec: cmd.spec, lastValue: cmd.spec.Default})
		// keep lanes ordered by (node, index) so tie-breaks are stable
		sort.SliceStable(a.lanes, func(i, j int) bool {
			if a.lanes[i].spec.Node != a.lanes[j].spec.Node {
				return a.lanes[i].spec.Node < a.lanes[j].spec.Node
			}
			return a.lanes[i].spec.Index < a.lanes[j].spec.Index
		})
		return
	}
	l := a.findLane(cmd.node, cmd.param)
	if l == nil {
		return
	}
	switch cmd.kind {
	case cmdDraw:
		l.curve.AddPoint(CurvePoint{Sample: cmd.sample, Value: l.spec.Clamp(cmd.value), Shape: cmd.shape})
		l.emitted = false
	case cmdSetMode:
		l.rec.setMode(cmd.mode)
	case cmdTouch:
		if l.rec.beginTouch() && l.rec.canWrite() {
			l.curve.AddPoint(CurvePoint{Sample: cmd.sample, Value: l.spec.Clamp(cmd.value), Shape: cmd.shape})
			l.emitted = false
		}
	case cmdRelease:
		l.rec.endTouch()
	case cmdRemoveAfter:
		l.curve.RemoveAfter(cmd.sample)
		l.emitted = false
	}
}

// RenderBlock drains pending commands and walks every lane's curve across
// [start, start+frames), emitting an update whenever the computed value
// differs from the previously emitted one by more than updateEpsilon. A lane
// that has never emitted gets at least one update at offset 0. The result is
// sorted by (offset, parameter index) and stays valid until the next call.
func (a *Automation) RenderBlock(start uint64, frames int) []harmoniq.ParameterUpdate {
	for {
		n := a.commands.Drain(a.drain)
		for _, cmd := range a.drain[:n] {
			a.apply(cmd)
		}
		if n < len(a.drain) {
			break
		}
	}
	a.updates = a.updates[:0]
	if frames <= 0 {
		return a.updates
	}
	for _, l := range a.lanes {
		a.renderLane(l, start, frames)
	}
	sort.Stable(paramUpdates(a.updates))
	return a.updates
}

// paramUpdates sorts by (offset, parameter index). A concrete sort.Interface
// keeps RenderBlock off the reflect-based sort helpers, which allocate.
type paramUpdates []harmoniq.ParameterUpdate

func (u paramUpdates) Len() int      { return len(u) }
func (u paramUpdates) Swap(i, j int) { u[i], u[j] = u[j], u[i] }
func (u paramUpdates) Less(i, j int) bool {
	if u[i].Offset != u[j].Offset {
		return u[i].Offset < u[j].Offset
	}
	return u[i].Index < u[j].Index
}

func (a *Automation) renderLane(l *lane, start uint64, frames int) {
	for f := 0; f < frames; f++ {
		v, ok := l.curve.ValueAt(start + uint64(f))
		if !ok {
			v = l.spec.Default
		}
		v = l.spec.Clamp(v)
		delta := v - l.lastValue
		if delta < 0 {
			delta = -delta
		}
		if (!l.emitted && f == 0) || delta > updateEpsilon {
			a.updates = append(a.updates, harmoniq.ParameterUpdate{
				Node:   l.spec.Node,
				Index:  l.spec.Index,
				Value:  v,
				Offset: f,
			})
			l.lastValue = v
			l.emitted = true
		}
	}
}

// PlaybackStopped clears latched writes, as Latch mode only persists while
// playback runs.
func (a *Automation) PlaybackStopped() {
	for _, l := range a.lanes {
		l.rec.latched = false
		l.rec.touching = false
	}
}

func (r *recorder) setMode(mode WriteMode) {
	r.mode = mode
	if mode != ModeLatch {
		r.latched = false
	}
	if mode != ModeTouch && mode != ModeLatch {
		r.touching = false
	}
}

func (r *recorder) beginTouch() bool {
	switch r.mode {
	case ModeRead:
		return false
	case ModeWrite:
		return true
	case ModeTouch:
		r.touching = true
		return true
	case ModeLatch:
		r.latched = true
		r.touching = true
		return true
	}
	return false
}

func (r *recorder) endTouch() bool {
	switch r.mode {
	case ModeTouch:
		was := r.touching
		r.touching = false
		return was
	case ModeLatch:
		r.touching = false
	}
	return false
}

func (r *recorder) canWrite() bool {
	switch r.mode {
	case ModeRead:
		return false
	case ModeWrite:
		return true
	case ModeTouch:
		return r.touching
	case ModeLatch:
		return r.touching || r.latched
	}
	return false
}
