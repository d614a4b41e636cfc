package engine_test

import (
	"testing"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
)

// Two branches of one impulse merge at a mixer; one branch carries 128
// samples of latency. Compensation must hold the direct branch back so both
// copies land on the same output sample.
func buildSplitGraph(t *testing.T, delaySamples int) *engine.Executor {
	t.Helper()
	spec := &engine.GraphSpec{}
	spec.AddNode(1, engine.NewImpulse()).Channels = 1
	spec.AddNode(2, engine.NewPassThrough()).Channels = 1
	spec.AddNode(3, engine.NewDelay(delaySamples)).Channels = 1
	mixer := engine.NewMixer(2)
	spec.AddNode(4, mixer).Channels = 2
	spec.Connect(1, 2)
	spec.Connect(1, 3)
	spec.Connect(2, 4)
	spec.Connect(3, 4)
	spec.SetOutput(4)
	g, err := spec.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine.NewExecutor(g)
}

func TestPDCAlignsParallelBranches(t *testing.T) {
	const blockSize = 64
	const delay = 128
	e := buildSplitGraph(t, delay)
	if err := e.Prepare(48000, blockSize, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if lat := e.TotalLatency(); lat != delay {
		t.Fatalf("got total latency %v, expected %v", lat, delay)
	}

	sink := make([]float32, blockSize*2)
	var left []float32
	for block := 0; block < 8; block++ {
		if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		for f := 0; f < blockSize; f++ {
			left = append(left, sink[f*2])
		}
	}

	// exactly one nonzero region, at the compensated position
	peakAt := -1
	for i, v := range left {
		if v != 0 {
			if peakAt != -1 && i != peakAt {
				t.Fatalf("second nonzero sample at %v, first at %v: branches not aligned", i, peakAt)
			}
			peakAt = i
		}
	}
	if peakAt != delay {
		t.Fatalf("got the impulse at sample %v, expected %v", peakAt, delay)
	}
}

func TestPDCZeroLatencyAddsNoCompensation(t *testing.T) {
	e := buildSplitGraph(t, 0)
	if err := e.Prepare(48000, 64, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if lat := e.TotalLatency(); lat != 0 {
		t.Fatalf("got total latency %v, expected 0", lat)
	}
	sink := make([]float32, 64*2)
	if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if sink[0] == 0 {
		t.Fatal("expected the impulse on the first output sample")
	}
	for i := 2; i < len(sink); i += 2 {
		if sink[i] != 0 {
			t.Fatalf("unexpected nonzero sample at frame %v", i/2)
		}
	}
}

func TestPDCBlockSizeChangeReconfiguresCompensation(t *testing.T) {
	const delay = 128
	e := buildSplitGraph(t, delay)
	if err := e.Prepare(48000, 64, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	// push the impulse into the compensator's delay memory
	sink := make([]float32, 64*2)
	for block := 0; block < 2; block++ {
		if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	// shrinking the block must reconfigure the compensators, not leave the
	// old in-flight samples in their delay lines
	if err := e.Prepare(48000, 32, 2); err != nil {
		t.Fatalf("re-Prepare failed: %v", err)
	}
	e.Graph().ResetNodes()

	sink = make([]float32, 32*2)
	var left []float32
	for block := 0; block < 8; block++ {
		if err := e.Process(sink, harmoniq.TransportSnapshot{Playing: true}, nil, nil); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		for f := 0; f < 32; f++ {
			left = append(left, sink[f*2])
		}
	}
	peakAt := -1
	for i, v := range left {
		if v != 0 {
			if peakAt != -1 && i != peakAt {
				t.Fatalf("second nonzero sample at %v, first at %v: stale compensator state", i, peakAt)
			}
			peakAt = i
		}
	}
	if peakAt != delay {
		t.Fatalf("got the impulse at sample %v, expected %v", peakAt, delay)
	}
}

func TestPDCLatencyChangeTriggersRecompute(t *testing.T) {
	e := buildSplitGraph(t, 32)
	if err := e.Prepare(48000, 64, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if lat := e.TotalLatency(); lat != 32 {
		t.Fatalf("got total latency %v, expected 32", lat)
	}
	// re-preparing with the same topology keeps the same answer
	if err := e.Prepare(48000, 64, 2); err != nil {
		t.Fatalf("second Prepare failed: %v", err)
	}
	if lat := e.TotalLatency(); lat != 32 {
		t.Fatalf("after re-prepare got %v, expected 32", lat)
	}
}
