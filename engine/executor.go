package engine

import (
	"fmt"
	"log"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
)

// Executor pulls one block of audio through a validated graph. Prepare runs
// on whichever thread installs the graph and may allocate; Process runs on
// the render thread and must not. The executor owns its graph exclusively
// until the graph is swapped out.
type Executor struct {
	graph      *Graph
	sampleRate int
	blockSize  int
	channels   int
	prepared   bool

	latencies    []int
	totalLatency int

	faulted []bool
	faults  []NodeFault

	// ctx is reused across blocks; a per-call context would escape to the
	// heap through the node interface call.
	ctx harmoniq.ProcessContext

	warnedChannels bool
}

func NewExecutor(graph *Graph) *Executor {
	return &Executor{graph: graph}
}

func (e *Executor) Graph() *Graph { return e.graph }

// Prepare binds the device configuration, calls every node's Prepare once,
// caches reported latencies and sizes the port buffers and delay
// compensators. Idempotent; safe to re-call after a reconfiguration. A changed
// node latency or block size triggers a PDC recompute.
func (e *Executor) Prepare(sampleRate, blockSize, channels int) error {
	if sampleRate <= 0 || blockSize < 0 || channels < 0 {
		return fmt.Errorf("%w: sampleRate=%d blockSize=%d channels=%d", ErrConfigMismatch, sampleRate, blockSize, channels)
	}
	blockChanged := blockSize != e.blockSize
	e.sampleRate = sampleRate
	e.blockSize = blockSize
	e.channels = channels

	n := len(e.graph.nodes)
	if e.faulted == nil || len(e.faulted) != n {
		e.faulted = make([]bool, n)
		e.faults = make([]NodeFault, 0, n)
	}
	if e.latencies == nil || len(e.latencies) != n {
		e.latencies = make([]int, n)
	}

	latencyChanged := false
	for i, gn := range e.graph.nodes {
		if err := gn.proc.Prepare(sampleRate, blockSize, channels); err != nil {
			return fmt.Errorf("preparing node %d: %w", gn.id, err)
		}
		lat := gn.proc.LatencySamples()
		if lat != e.latencies[i] {
			e.latencies[i] = lat
			latencyChanged = true
		}
		ports := gn.spec.OutputPorts
		if ports < 1 {
			ports = 1
		}
		ch := gn.spec.Channels
		if ch == 0 {
			ch = channels
		}
		if len(gn.outputs) != ports || (ports > 0 && (gn.outputs[0].Channels() != ch || gn.outputs[0].Frames() != blockSize)) {
			gn.outputs = make([]*harmoniq.PortBuffer, ports)
			for p := range gn.outputs {
				gn.outputs[p] = harmoniq.NewPortBuffer(ch, blockSize)
			}
		}
		if len(gn.inputs) != len(gn.sources) {
			gn.inputs = make([]*harmoniq.PortBuffer, len(gn.sources))
			gn.comps = make([]*Compensator, len(gn.sources))
		}
		for s, src := range gn.sources {
			srcBuf := e.graph.nodes[src].outputs[0]
			if gn.inputs[s] == nil || gn.inputs[s].Channels() != srcBuf.Channels() || gn.inputs[s].Frames() != blockSize {
				gn.inputs[s] = harmoniq.NewPortBuffer(srcBuf.Channels(), blockSize)
			}
		}
	}
	if latencyChanged || blockChanged || !e.prepared {
		e.recomputePDC()
	}
	e.prepared = true
	return nil
}

// Process renders exactly one block into the caller-supplied interleaved
// sink. len(sink) must be a multiple of the device channel count; excess is
// zero-filled, deficit truncated. Errors inside a node never unwind: the
// node's outputs are silenced, a one-shot fault is recorded and rendering
// continues.
func (e *Executor) Process(sink []float32, tr harmoniq.TransportSnapshot, updates []harmoniq.ParameterUpdate, events []harmoniq.MIDIEvent) error {
	if !e.prepared {
		return fmt.Errorf("%w: Process called before Prepare", ErrConfigMismatch)
	}
	if e.blockSize == 0 {
		return nil
	}
	if e.channels == 0 || len(e.graph.nodes) == 0 {
		zero(sink)
		return nil
	}
	if len(sink)%e.channels != 0 {
		return fmt.Errorf("%w: sink length %d is not a multiple of %d channels", ErrConfigMismatch, len(sink), e.channels)
	}

	for _, u := range updates {
		if i, ok := e.graph.byID[u.Node]; ok {
			e.graph.nodes[i].proc.Param(u)
		}
	}

	e.ctx = harmoniq.ProcessContext{
		SampleRate: e.sampleRate,
		Frames:     e.blockSize,
		Transport:  tr,
		Events:     events,
	}
	for i, gn := range e.graph.nodes {
		for s, src := range gn.sources {
			in := gn.inputs[s]
			in.Clear()
			in.CopyFrom(e.graph.nodes[src].outputs[0])
			if c := gn.comps[s]; c != nil {
				c.Process(in)
			}
		}
		for _, out := range gn.outputs {
			out.Clear()
		}
		if e.faulted[i] {
			continue
		}
		e.processNode(i, gn, &e.ctx)
	}

	out := e.graph.nodes[e.output()].outputs[0]
	if out.Channels() > e.channels && !e.warnedChannels {
		log.Printf("graph produces %d channels but device has %d, truncating", out.Channels(), e.channels)
		e.warnedChannels = true
	}
	zero(sink)
	want := e.blockSize * e.channels
	if len(sink) > want {
		sink = sink[:want]
	}
	out.Interleave(sink, e.channels)
	return nil
}

// processNode isolates the node call so a panicking processor is downgraded
// to silence plus a one-shot fault instead of taking down the render thread.
func (e *Executor) processNode(i int, gn *graphNode, ctx *harmoniq.ProcessContext) {
	defer func() {
		if r := recover(); r != nil {
			e.fault(i, gn, fmt.Sprintf("panic: %v", r))
		}
	}()
	if err := gn.proc.Process(gn.inputs, gn.outputs, ctx); err != nil {
		e.fault(i, gn, err.Error())
	}
}

func (e *Executor) fault(i int, gn *graphNode, reason string) {
	for _, out := range gn.outputs {
		out.Clear()
	}
	e.faulted[i] = true
	if len(e.faults) < cap(e.faults) {
		e.faults = append(e.faults, NodeFault{Node: gn.id, Reason: reason})
	}
}

// Faults returns the faults recorded since the last call and clears them.
// The returned slice is only valid until the next Process call.
func (e *Executor) Faults() []NodeFault {
	if len(e.faults) == 0 {
		return nil
	}
	f := e.faults
	e.faults = e.faults[:0]
	return f
}

// TotalLatency is the end-to-end latency of the graph in samples, equal to
// the cumulative latency of the output node.
func (e *Executor) TotalLatency() int { return e.totalLatency }

func (e *Executor) BlockSize() int  { return e.blockSize }
func (e *Executor) Channels() int   { return e.channels }
func (e *Executor) SampleRate() int { return e.sampleRate }

func (e *Executor) output() int {
	if e.graph.output >= 0 {
		return e.graph.output
	}
	return 0
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
