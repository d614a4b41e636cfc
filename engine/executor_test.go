package engine_test

import (
	"errors"
	"math"
	"testing"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
)

// panicNode blows up on the nth Process call.
type panicNode struct {
	calls   int
	panicAt int
}

func (p *panicNode) Prepare(sampleRate, blockSize, channels int) error { return nil }
func (p *panicNode) Reset()                                            {}
func (p *panicNode) LatencySamples() int                               { return 0 }
func (p *panicNode) Param(harmoniq.ParameterUpdate)                    {}

func (p *panicNode) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	p.calls++
	if p.calls >= p.panicAt {
		panic("deliberate test panic")
	}
	out := outputs[0]
	for c := 0; c < out.Channels(); c++ {
		for f := 0; f < ctx.Frames; f++ {
			out.Channel(c)[f] = 1
		}
	}
	return nil
}

func buildSineGraph(t *testing.T, freq float32) *engine.Executor {
	t.Helper()
	spec := &engine.GraphSpec{}
	spec.AddNode(1, engine.NewOscillator(freq, 0.5))
	spec.SetOutput(1)
	g, err := spec.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine.NewExecutor(g)
}

func TestExecutorProcessBeforePrepare(t *testing.T) {
	e := buildSineGraph(t, 440)
	sink := make([]float32, 512)
	err := e.Process(sink, harmoniq.TransportSnapshot{}, nil, nil)
	if !errors.Is(err, engine.ErrConfigMismatch) {
		t.Fatalf("got %v, expected ErrConfigMismatch", err)
	}
}

func TestExecutorRendersSine(t *testing.T) {
	e := buildSineGraph(t, 1000)
	if err := e.Prepare(48000, 256, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	sink := make([]float32, 256*2)
	var rendered []float32
	for block := 0; block < 48000/256; block++ {
		if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		rendered = append(rendered, sink...)
	}
	// amplitude bounded by the configured 0.5
	var peak float32
	for _, v := range rendered {
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	if peak < 0.45 || peak > 0.51 {
		t.Errorf("got peak %v, expected close to 0.5", peak)
	}
	// count rising zero crossings of the left channel over one second
	crossings := 0
	for i := 2; i < len(rendered); i += 2 {
		if rendered[i-2] < 0 && rendered[i] >= 0 {
			crossings++
		}
	}
	if crossings < 990 || crossings > 1010 {
		t.Errorf("got %v cycles, expected about 1000", crossings)
	}
}

func TestExecutorEmptyGraphOutputsSilence(t *testing.T) {
	g, err := (&engine.GraphSpec{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	e := engine.NewExecutor(g)
	if err := e.Prepare(48000, 64, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	sink := make([]float32, 64*2)
	for i := range sink {
		sink[i] = 99
	}
	if err := e.Process(sink, harmoniq.TransportSnapshot{}, nil, nil); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for i, v := range sink {
		if v != 0 {
			t.Fatalf("sample %v: got %v, expected silence", i, v)
		}
	}
}

func TestExecutorSinkNotMultipleOfChannels(t *testing.T) {
	e := buildSineGraph(t, 440)
	if err := e.Prepare(48000, 64, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	err := e.Process(make([]float32, 63), harmoniq.TransportSnapshot{}, nil, nil)
	if !errors.Is(err, engine.ErrConfigMismatch) {
		t.Fatalf("got %v, expected ErrConfigMismatch", err)
	}
}

func TestExecutorFaultIsolation(t *testing.T) {
	spec := &engine.GraphSpec{}
	spec.AddNode(1, engine.NewOscillator(440, 0.5))
	spec.AddNode(2, &panicNode{panicAt: 1})
	mixer := engine.NewMixer(2)
	spec.AddNode(3, mixer).Channels = 2
	spec.Connect(1, 3)
	spec.Connect(2, 3)
	spec.SetOutput(3)
	g, err := spec.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	e := engine.NewExecutor(g)
	if err := e.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	sink := make([]float32, 128*2)
	if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	faults := e.Faults()
	if len(faults) != 1 || faults[0].Node != 2 {
		t.Fatalf("got faults %v, expected one fault on node 2", faults)
	}
	// faults are one-shot
	if f := e.Faults(); f != nil {
		t.Fatalf("got %v, expected no repeated faults", f)
	}
	// the healthy branch still renders
	var peak float32
	if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	for _, v := range sink {
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		t.Fatal("expected the surviving oscillator to keep producing audio")
	}
	// the faulted node stays silenced and dead
	if f := e.Faults(); f != nil {
		t.Fatalf("faulted node reported again: %v", f)
	}
}

func TestExecutorParameterUpdateDispatch(t *testing.T) {
	e := buildSineGraph(t, 440)
	if err := e.Prepare(48000, 64, 1); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	sink := make([]float32, 64)
	updates := []harmoniq.ParameterUpdate{{Node: 1, Index: engine.OscParamAmp, Value: 0, Offset: 0}}
	if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, updates, nil); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for i, v := range sink {
		if v != 0 {
			t.Fatalf("sample %v: got %v, expected silence after amp update to 0", i, v)
		}
	}
}

func TestExecutorProcessDoesNotAllocate(t *testing.T) {
	e := buildSineGraph(t, 440)
	if err := e.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	sink := make([]float32, 128*2)
	snap := harmoniq.TransportSnapshot{Playing: true}
	allocs := testing.AllocsPerRun(100, func() {
		if err := e.Process(sink, snap, nil, nil); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	})
	if allocs != 0 {
		t.Errorf("Process allocates %v times per block", allocs)
	}
}

func TestExecutorZeroBlockSize(t *testing.T) {
	e := buildSineGraph(t, 440)
	if err := e.Prepare(48000, 0, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := e.Process(nil, harmoniq.TransportSnapshot{}, nil, nil); err != nil {
		t.Fatalf("Process with zero block size failed: %v", err)
	}
}
