package studio_test

import (
	"math"
	"path/filepath"
	"testing"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/studio"
)

func testProject() *studio.Project {
	return &studio.Project{
		Name:            "test",
		SampleRate:      48000,
		BlockSize:       128,
		Channels:        2,
		DurationSeconds: 1,
		Tracks: []studio.Track{
			{Name: "lead", Kind: "sine", Freq: 440, Amp: 0.5, Gain: 1, MIDIChannel: -1},
			{Name: "hiss", Kind: "noise", Amp: 0.1, Gain: 0.5, Pan: 0.5, MIDIChannel: -1},
		},
	}
}

func TestProjectRoundTrip(t *testing.T) {
	p := testProject()
	path := filepath.Join(t.TempDir(), "test.json")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := studio.LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if loaded.Name != p.Name || len(loaded.Tracks) != len(p.Tracks) {
		t.Fatalf("got %+v, expected %+v", loaded, p)
	}
	if loaded.Tracks[1].Pan != 0.5 {
		t.Fatalf("got pan %v, expected 0.5", loaded.Tracks[1].Pan)
	}
}

func TestProjectValidateRejectsBadKind(t *testing.T) {
	p := testProject()
	p.Tracks[0].Kind = "sampler"
	if err := p.Validate(); err == nil {
		t.Fatal("expected an error for an unknown track kind")
	}
}

func TestProjectValidateRejectsTooManyTracks(t *testing.T) {
	p := testProject()
	p.Tracks = make([]studio.Track, engine.MaxMixerInputs+1)
	for i := range p.Tracks {
		p.Tracks[i].Kind = "noise"
	}
	if err := p.Validate(); err == nil {
		t.Fatal("expected an error for too many tracks")
	}
}

func TestProjectBuildGraphRenders(t *testing.T) {
	p := testProject()
	g, mixer, err := p.BuildGraph()
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	if mixer.NumInputs() != 2 {
		t.Fatalf("got %v mixer inputs, expected 2", mixer.NumInputs())
	}
	e := engine.NewExecutor(g)
	if err := e.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	sink := make([]float32, 128*2)
	if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	var peak float32
	for _, v := range sink {
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		t.Fatal("expected the compiled graph to produce audio")
	}
}

func TestProjectTrackLatencyCompensated(t *testing.T) {
	p := testProject()
	p.Tracks[0].Latency = 64
	g, _, err := p.BuildGraph()
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	e := engine.NewExecutor(g)
	if err := e.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if lat := e.TotalLatency(); lat != 64 {
		t.Fatalf("got total latency %v, expected 64", lat)
	}
}

func TestProjectTempoMapDefault(t *testing.T) {
	p := testProject()
	m, err := p.TempoMap()
	if err != nil {
		t.Fatalf("TempoMap failed: %v", err)
	}
	if bpm := m.TempoAt(0).BPM; bpm != 120 {
		t.Fatalf("got %v, expected the 120 BPM default", bpm)
	}
}

func TestProjectApplyAutomation(t *testing.T) {
	p := testProject()
	p.Tracks[0].Automation = []studio.AutomationPoint{
		{Param: "gain", Sample: 0, Value: 0.2},
		{Param: "gain", Sample: 100, Value: 0.8, Shape: "linear"},
	}
	a := engine.NewAutomation(64)
	if err := p.ApplyAutomation(a); err != nil {
		t.Fatalf("ApplyAutomation failed: %v", err)
	}
	updates := a.RenderBlock(0, 64)
	if len(updates) == 0 {
		t.Fatal("expected automation updates from the drawn curve")
	}
	if updates[0].Node != studio.MixerNodeID() {
		t.Fatalf("got node %v, expected the mixer", updates[0].Node)
	}
}

func TestProjectApplyAutomationRejectsUnknownParam(t *testing.T) {
	p := testProject()
	p.Tracks[1].Automation = []studio.AutomationPoint{{Param: "freq", Sample: 0, Value: 100}}
	a := engine.NewAutomation(64)
	if err := p.ApplyAutomation(a); err == nil {
		t.Fatal("expected an error for freq automation on a noise track")
	}
}
