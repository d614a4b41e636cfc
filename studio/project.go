package studio

import (
	"encoding/json"
	"fmt"
	"os"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
)

// Project is the serialized session document: metadata, tempo map, loop
// region, tracks and their automation. It compiles into an audio graph with
// one mixer input per track.
type (
	Project struct {
		Name            string  `json:"name"`
		SampleRate      float64 `json:"sample_rate"`
		BlockSize       int     `json:"block_size"`
		Channels        int     `json:"channels"`
		DurationSeconds float64 `json:"duration_seconds"`

		Tempo  []TempoChange `json:"tempo,omitempty"`
		Loop   *ProjectLoop  `json:"loop,omitempty"`
		Tracks []Track       `json:"tracks"`
	}

	TempoChange struct {
		StartSample uint64  `json:"start_sample"`
		BPM         float64 `json:"bpm"`
		TimeSigNum  int     `json:"time_sig_num"`
		TimeSigDen  int     `json:"time_sig_den"`
	}

	ProjectLoop struct {
		Start   uint64 `json:"start"`
		End     uint64 `json:"end"`
		Enabled bool   `json:"enabled"`
	}

	// Track is one mixer input. Kind selects the generator; Latency inserts
	// a delay node after it, which the executor compensates on the other
	// inputs. MIDIChannel below zero means the generator free-runs.
	Track struct {
		Name        string  `json:"name"`
		Kind        string  `json:"kind"` // "sine" or "noise"
		Freq        float32 `json:"freq,omitempty"`
		Amp         float32 `json:"amp,omitempty"`
		Gain        float32 `json:"gain"`
		Pan         float32 `json:"pan"`
		Latency     int     `json:"latency,omitempty"`
		MIDIChannel int     `json:"midi_channel"`

		Automation []AutomationPoint `json:"automation,omitempty"`
	}

	// AutomationPoint is one point on a track parameter curve. Param is
	// "gain", "pan", "freq" or "amp"; Shape is "step", "linear" or "exp".
	AutomationPoint struct {
		Param  string  `json:"param"`
		Sample uint64  `json:"sample"`
		Value  float32 `json:"value"`
		Shape  string  `json:"shape,omitempty"`
	}
)

// Node ID layout of a compiled project graph. Generators sit at even
// offsets from trackNodeBase, their latency delays right after them, and
// the mixer below all of them so it sorts last among ready nodes.
const (
	mixerNodeID   harmoniq.NodeID = 1 << 20
	trackNodeBase harmoniq.NodeID = 1
)

func TrackNodeID(track int) harmoniq.NodeID  { return trackNodeBase + harmoniq.NodeID(2*track) }
func trackDelayID(track int) harmoniq.NodeID { return TrackNodeID(track) + 1 }

// MixerNodeID is the node ID of the compiled project's mixer.
func MixerNodeID() harmoniq.NodeID { return mixerNodeID }

// LoadProject reads and validates a project file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read project: %w", err)
	}
	p := &Project{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("cannot parse project: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("project sample_rate must be positive, got %g", p.SampleRate)
	}
	if p.BlockSize <= 0 {
		return fmt.Errorf("project block_size must be positive, got %d", p.BlockSize)
	}
	if p.Channels <= 0 {
		return fmt.Errorf("project channels must be positive, got %d", p.Channels)
	}
	if len(p.Tracks) > engine.MaxMixerInputs {
		return fmt.Errorf("project has %d tracks, the mixer takes at most %d", len(p.Tracks), engine.MaxMixerInputs)
	}
	for i, t := range p.Tracks {
		switch t.Kind {
		case "sine", "noise":
		default:
			return fmt.Errorf("track %d: unknown kind %q", i, t.Kind)
		}
		if t.Latency < 0 {
			return fmt.Errorf("track %d: negative latency %d", i, t.Latency)
		}
	}
	return nil
}

// TempoMap converts the project's tempo changes, falling back to the
// 120 BPM default when there are none.
func (p *Project) TempoMap() (*harmoniq.TempoMap, error) {
	if len(p.Tempo) == 0 {
		return harmoniq.DefaultTempoMap(), nil
	}
	events := make([]harmoniq.TempoEvent, len(p.Tempo))
	for i, t := range p.Tempo {
		events[i] = harmoniq.TempoEvent{
			StartSample: t.StartSample,
			BPM:         t.BPM,
			TimeSigNum:  t.TimeSigNum,
			TimeSigDen:  t.TimeSigDen,
		}
	}
	return harmoniq.NewTempoMap(events)
}

// DurationFrames is the project length in frames at its own sample rate.
func (p *Project) DurationFrames() uint64 {
	return uint64(p.DurationSeconds * p.SampleRate)
}

// BuildGraph compiles the project into a graph: one generator per track,
// a delay behind it when the track reports latency, all feeding a mixer
// which is the output node. The mixer is returned for level metering and
// direct gain/pan control.
func (p *Project) BuildGraph() (*engine.Graph, *engine.Mixer, error) {
	spec := &engine.GraphSpec{}
	mixer := engine.NewMixer(len(p.Tracks))
	spec.AddNode(mixerNodeID, mixer).Channels = 2
	spec.SetOutput(mixerNodeID)
	for i, t := range p.Tracks {
		var gen harmoniq.Node
		switch t.Kind {
		case "sine":
			osc := engine.NewOscillator(t.Freq, t.Amp)
			osc.MIDIChannel = t.MIDIChannel
			gen = osc
		case "noise":
			gen = engine.NewNoise(t.Amp)
		default:
			return nil, nil, fmt.Errorf("track %d: unknown kind %q", i, t.Kind)
		}
		id := TrackNodeID(i)
		spec.AddNode(id, gen).Channels = 1
		if t.Latency > 0 {
			did := trackDelayID(i)
			spec.AddNode(did, engine.NewDelay(t.Latency)).Channels = 1
			spec.Connect(id, did)
			id = did
		}
		spec.Connect(id, mixerNodeID)
		mixer.SetGain(i, t.Gain)
		mixer.SetPan(i, t.Pan)
	}
	g, err := spec.Build()
	if err != nil {
		return nil, nil, err
	}
	return g, mixer, nil
}

// ApplyAutomation registers every track parameter with the automation
// recorder and draws the project's curves into it.
func (p *Project) ApplyAutomation(a *engine.Automation) error {
	for i, t := range p.Tracks {
		for _, pt := range t.Automation {
			node, param, spec, err := p.resolveParam(i, t, pt.Param)
			if err != nil {
				return err
			}
			if err := a.Send(engine.RegisterCommand(spec)); err != nil {
				return fmt.Errorf("track %d: %w", i, err)
			}
			shape, err := parseShape(pt.Shape)
			if err != nil {
				return fmt.Errorf("track %d: %w", i, err)
			}
			if err := a.Send(engine.DrawCommand(node, param, pt.Sample, pt.Value, shape)); err != nil {
				return fmt.Errorf("track %d: %w", i, err)
			}
		}
	}
	return nil
}

func (p *Project) resolveParam(i int, t Track, name string) (harmoniq.NodeID, int, harmoniq.ParameterSpec, error) {
	switch name {
	case "gain":
		return mixerNodeID, engine.MixerGainParam(i), harmoniq.ParameterSpec{
			Node: mixerNodeID, Index: engine.MixerGainParam(i),
			Name: t.Name + " gain", Min: 0, Max: 4, Default: t.Gain,
		}, nil
	case "pan":
		return mixerNodeID, engine.MixerPanParam(i), harmoniq.ParameterSpec{
			Node: mixerNodeID, Index: engine.MixerPanParam(i),
			Name: t.Name + " pan", Min: -1, Max: 1, Default: t.Pan,
		}, nil
	case "freq":
		if t.Kind != "sine" {
			return 0, 0, harmoniq.ParameterSpec{}, fmt.Errorf("track %d: %q has no freq parameter", i, t.Kind)
		}
		return TrackNodeID(i), engine.OscParamFreq, harmoniq.ParameterSpec{
			Node: TrackNodeID(i), Index: engine.OscParamFreq,
			Name: t.Name + " freq", Min: 0, Max: 20000, Default: t.Freq,
		}, nil
	case "amp":
		idx := engine.OscParamAmp
		if t.Kind == "noise" {
			idx = engine.NoiseParamAmp
		}
		return TrackNodeID(i), idx, harmoniq.ParameterSpec{
			Node: TrackNodeID(i), Index: idx,
			Name: t.Name + " amp", Min: 0, Max: 1, Default: t.Amp,
		}, nil
	}
	return 0, 0, harmoniq.ParameterSpec{}, fmt.Errorf("track %d: unknown parameter %q", i, name)
}

func parseShape(s string) (engine.CurveShape, error) {
	switch s {
	case "", "step":
		return engine.ShapeStep, nil
	case "linear":
		return engine.ShapeLinear, nil
	case "exp":
		return engine.ShapeExponential, nil
	}
	return engine.ShapeStep, fmt.Errorf("unknown curve shape %q", s)
}

// Save writes the project as indented JSON.
func (p *Project) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot serialize project: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("cannot write project: %w", err)
	}
	return nil
}
