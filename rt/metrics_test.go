package rt_test

import (
	"testing"
	"time"

	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

func TestMetricsCounters(t *testing.T) {
	m := &rt.Metrics{}
	m.AddXrun(1)
	m.AddXrun(2)
	m.AddCmdDrops(5)
	m.AddMIDIDrops(7)
	s := m.Snapshot()
	if s.XRuns != 3 || s.CmdDrops != 5 || s.MIDIDrops != 7 {
		t.Fatalf("got %+v, expected xruns 3, cmd drops 5, midi drops 7", s)
	}
}

func TestMetricsObserveBlockTracksMax(t *testing.T) {
	m := &rt.Metrics{}
	m.ObserveBlock(3 * time.Millisecond)
	m.ObserveBlock(1 * time.Millisecond)
	s := m.Snapshot()
	if s.LastBlockNs != uint64(time.Millisecond) {
		t.Errorf("got last %v, expected %v", s.LastBlockNs, uint64(time.Millisecond))
	}
	if s.MaxBlockNs != uint64(3*time.Millisecond) {
		t.Errorf("got max %v, expected %v", s.MaxBlockNs, uint64(3*time.Millisecond))
	}
}
