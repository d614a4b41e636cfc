package rt

import (
	"sync/atomic"
	"time"
)

type (
	// Metrics collects render telemetry written by the realtime threads and
	// read by the control thread. All fields are atomics; there is no lock
	// anywhere near the render path.
	Metrics struct {
		xruns       atomic.Uint64
		cmdDrops    atomic.Uint64
		midiDrops   atomic.Uint64
		lastBlockNs atomic.Uint64
		maxBlockNs  atomic.Uint64
	}

	// MetricsSnapshot is a plain copy of the counters at one point in time.
	MetricsSnapshot struct {
		XRuns       uint64
		CmdDrops    uint64
		MIDIDrops   uint64
		LastBlockNs uint64
		MaxBlockNs  uint64
	}
)

// AddXrun records device underruns.
func (m *Metrics) AddXrun(n uint64) { m.xruns.Add(n) }

// AddCmdDrops and AddMIDIDrops record queue overflow on the respective
// ingress rings.
func (m *Metrics) AddCmdDrops(n uint64)  { m.cmdDrops.Add(n) }
func (m *Metrics) AddMIDIDrops(n uint64) { m.midiDrops.Add(n) }

// ObserveBlock records the wall time one block took to render.
func (m *Metrics) ObserveBlock(d time.Duration) {
	ns := uint64(d.Nanoseconds())
	m.lastBlockNs.Store(ns)
	for {
		max := m.maxBlockNs.Load()
		if ns <= max || m.maxBlockNs.CompareAndSwap(max, ns) {
			return
		}
	}
}

func (m *Metrics) XRuns() uint64 { return m.xruns.Load() }

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		XRuns:       m.xruns.Load(),
		CmdDrops:    m.cmdDrops.Load(),
		MIDIDrops:   m.midiDrops.Load(),
		LastBlockNs: m.lastBlockNs.Load(),
		MaxBlockNs:  m.maxBlockNs.Load(),
	}
}
