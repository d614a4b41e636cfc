package studio

import (
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

type (
	// MsgToModel is a message sent to the model. The frequently sent data
	// (transport position, levels, metrics) is not boxed, to avoid
	// allocations on the render thread; infrequent messages travel boxed in
	// Data.
	MsgToModel struct {
		HasEngineState bool
		SamplePos      uint64
		Playing        bool
		Levels         engine.MixerLevels
		Metrics        rt.MetricsSnapshot

		Data any
	}

	// Alert is a user-facing notification, typically shown by whatever
	// front-end sits on the model side.
	Alert struct {
		Name     string
		Message  string
		Priority AlertPriority
	}

	AlertPriority int

	// GraphMsg installs a freshly built graph in the player. The previous
	// graph comes back to the model in a GraphReleasedMsg once the render
	// thread has stopped touching it, and must be disposed of there.
	GraphMsg struct {
		Graph *engine.Graph
		Mixer *engine.Mixer // nil when the graph has none
	}

	GraphReleasedMsg struct {
		Graph *engine.Graph
	}

	// Transport control messages.
	StartPlayMsg struct{ Pos *uint64 } // nil: play from current position
	StopPlayMsg  struct{}
	SeekMsg      struct{ Pos uint64 }
	LoopMsg      struct {
		Start, End uint64
		Enabled    bool
	}

	// PanicMsg silences everything and resets every node.
	PanicMsg struct{}
)

const (
	Info AlertPriority = iota
	Warning
	Error
)
