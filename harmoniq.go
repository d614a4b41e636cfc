package harmoniq

type (
	// NodeID identifies a node within a graph. IDs are dense small integers
	// assigned by the caller when the graph is described; the engine never
	// invents new ones.
	NodeID int

	// Node is the contract every DSP processor installed in the audio graph
	// honors. Prepare is the one-shot allocation hook: after it returns, all
	// other methods are called from the render thread and must not allocate,
	// lock a mutex or invoke the OS. Process renders exactly ctx.Frames
	// frames. Reset clears internal state (filter memories, delay lines)
	// without reallocating. LatencySamples reports the steady-state group
	// delay of the node; it must stay stable between Prepare calls. Param
	// delivers an automation target and must not block.
	Node interface {
		Prepare(sampleRate, blockSize, channels int) error
		Process(inputs, outputs []*PortBuffer, ctx *ProcessContext) error
		Reset()
		LatencySamples() int
		Param(update ParameterUpdate)
	}

	// ProcessContext is handed to every Node.Process call. Events contains
	// the MIDI events of the current block, sorted by Offset; each node picks
	// the ones it cares about. Transport is a coherent snapshot valid for the
	// whole block.
	ProcessContext struct {
		SampleRate int
		Frames     int
		Transport  TransportSnapshot
		Events     []MIDIEvent
	}

	// ParameterSpec declares a single automatable parameter of a node.
	ParameterSpec struct {
		Node    NodeID
		Index   int
		Name    string
		Min     float32
		Max     float32
		Default float32
	}

	// ParameterUpdate is a sample-accurate automation target for one
	// parameter. Offset is relative to the start of the current block.
	ParameterUpdate struct {
		Node   NodeID
		Index  int
		Value  float32
		Offset int
	}
)

// Clamp limits value to the declared range of the parameter.
func (s ParameterSpec) Clamp(value float32) float32 {
	if value < s.Min {
		return s.Min
	}
	if value > s.Max {
		return s.Max
	}
	return value
}
