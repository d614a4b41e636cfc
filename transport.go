package harmoniq

import (
	"errors"
	"fmt"
	"sort"
)

type (
	// TempoEvent is one segment of a piecewise-constant tempo map. The tempo
	// and time signature hold from StartSample until the next event.
	TempoEvent struct {
		StartSample uint64
		BPM         float64
		TimeSigNum  int
		TimeSigDen  int
	}

	// TempoMap is an ordered sequence of tempo events. The first event always
	// starts at sample 0. Tempo maps are immutable once published to the
	// render thread; mutation happens on a fresh copy which is then swapped
	// in atomically.
	TempoMap struct {
		Events []TempoEvent
	}

	// LoopRegion is an inclusive-start, exclusive-end wrap range in samples.
	LoopRegion struct {
		Start   uint64
		End     uint64
		Enabled bool
	}

	// TransportSnapshot is a coherent view of the transport, valid for one
	// block. The TempoMap pointer stays valid for the duration of the block.
	TransportSnapshot struct {
		SamplePos uint64
		Playing   bool
		Loop      LoopRegion
		Tempo     *TempoMap
		Version   uint64
	}
)

// DefaultTempoMap returns a single-segment 120 BPM 4/4 map.
func DefaultTempoMap() *TempoMap {
	return &TempoMap{Events: []TempoEvent{{StartSample: 0, BPM: 120, TimeSigNum: 4, TimeSigDen: 4}}}
}

// NewTempoMap validates and normalizes a sequence of tempo events. Events are
// sorted by start sample; the first event must start at 0.
func NewTempoMap(events []TempoEvent) (*TempoMap, error) {
	if len(events) == 0 {
		return nil, errors.New("tempo map needs at least one event")
	}
	sorted := make([]TempoEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartSample < sorted[j].StartSample })
	if sorted[0].StartSample != 0 {
		return nil, fmt.Errorf("first tempo event starts at sample %d, expected 0", sorted[0].StartSample)
	}
	for _, e := range sorted {
		if e.BPM <= 0 {
			return nil, fmt.Errorf("tempo event at sample %d has non-positive BPM %v", e.StartSample, e.BPM)
		}
	}
	return &TempoMap{Events: sorted}, nil
}

// TempoAt returns the tempo event whose segment contains the given sample,
// i.e. the event with the greatest StartSample <= sample.
func (m *TempoMap) TempoAt(sample uint64) TempoEvent {
	i := sort.Search(len(m.Events), func(i int) bool { return m.Events[i].StartSample > sample })
	if i == 0 {
		return m.Events[0]
	}
	return m.Events[i-1]
}
