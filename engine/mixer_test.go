package engine_test

import (
	"math"
	"testing"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
)

func mixBlock(t *testing.T, m *engine.Mixer, inputs []*harmoniq.PortBuffer, frames int) *harmoniq.PortBuffer {
	t.Helper()
	out := harmoniq.NewPortBuffer(2, frames)
	ctx := &harmoniq.ProcessContext{SampleRate: 48000, Frames: frames}
	if err := m.Process(inputs, []*harmoniq.PortBuffer{out}, ctx); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return out
}

func dcInput(frames int, value float32) *harmoniq.PortBuffer {
	in := harmoniq.NewPortBuffer(1, frames)
	ch := in.Channel(0)
	for i := range ch {
		ch[i] = value
	}
	return in
}

func TestMixerCenterPanIsMinusThreeDB(t *testing.T) {
	m := engine.NewMixer(1)
	if err := m.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	out := mixBlock(t, m, []*harmoniq.PortBuffer{dcInput(128, 1)}, 128)
	want := float32(math.Sqrt2 / 2)
	l, r := out.Channel(0)[64], out.Channel(1)[64]
	if math.Abs(float64(l-want)) > 1e-4 || math.Abs(float64(r-want)) > 1e-4 {
		t.Fatalf("got L=%v R=%v, expected both %v", l, r, want)
	}
}

func TestMixerHardPan(t *testing.T) {
	m := engine.NewMixer(1)
	if err := m.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	m.SetPan(0, -1)
	out := mixBlock(t, m, []*harmoniq.PortBuffer{dcInput(128, 1)}, 128)
	if l := out.Channel(0)[64]; math.Abs(float64(l)-1) > 1e-4 {
		t.Errorf("got L=%v, expected 1 at hard left", l)
	}
	if r := out.Channel(1)[64]; math.Abs(float64(r)) > 1e-4 {
		t.Errorf("got R=%v, expected 0 at hard left", r)
	}
}

func TestMixerPanPowerIsConstant(t *testing.T) {
	m := engine.NewMixer(1)
	if err := m.Prepare(48000, 16, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	for _, pan := range []float32{-1, -0.5, 0, 0.5, 1} {
		m.SetPan(0, pan)
		out := mixBlock(t, m, []*harmoniq.PortBuffer{dcInput(16, 1)}, 16)
		l, r := out.Channel(0)[8], out.Channel(1)[8]
		power := float64(l*l + r*r)
		if math.Abs(power-1) > 1e-3 {
			t.Errorf("pan %v: got power %v, expected 1", pan, power)
		}
	}
}

func TestMixerSumsInputs(t *testing.T) {
	m := engine.NewMixer(2)
	if err := m.Prepare(48000, 64, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	m.SetPan(0, -1)
	m.SetPan(1, 1)
	inputs := []*harmoniq.PortBuffer{dcInput(64, 0.25), dcInput(64, 0.5)}
	out := mixBlock(t, m, inputs, 64)
	if l := out.Channel(0)[32]; math.Abs(float64(l)-0.25) > 1e-4 {
		t.Errorf("got L=%v, expected 0.25", l)
	}
	if r := out.Channel(1)[32]; math.Abs(float64(r)-0.5) > 1e-4 {
		t.Errorf("got R=%v, expected 0.5", r)
	}
}

func TestMixerGainParamSmoothing(t *testing.T) {
	m := engine.NewMixer(1)
	if err := m.Prepare(48000, 4800, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	m.Param(harmoniq.ParameterUpdate{Index: engine.MixerGainParam(0), Value: 0})
	out := mixBlock(t, m, []*harmoniq.PortBuffer{dcInput(4800, 1)}, 4800)
	first := out.Channel(0)[0]
	last := out.Channel(0)[4799]
	if first <= last {
		t.Fatalf("expected a decaying ramp, got first=%v last=%v", first, last)
	}
	if math.Abs(float64(last)) > 1e-3 {
		t.Fatalf("got %v at the end of the ramp, expected near 0", last)
	}
}

func TestMixerMeters(t *testing.T) {
	m := engine.NewMixer(2)
	if err := m.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	m.SetPan(0, -1)
	mixBlock(t, m, []*harmoniq.PortBuffer{dcInput(128, 0.5), dcInput(128, 0)}, 128)
	levels := m.Levels()
	if levels.NumInputs != 2 {
		t.Fatalf("got NumInputs %v, expected 2", levels.NumInputs)
	}
	if p := levels.Inputs[0].Peak[0]; math.Abs(float64(p)-0.5) > 1e-4 {
		t.Errorf("got input 0 left peak %v, expected 0.5", p)
	}
	if p := levels.Inputs[1].Peak[0]; p != 0 {
		t.Errorf("got input 1 peak %v, expected 0", p)
	}
	if p := levels.Master.Peak[0]; math.Abs(float64(p)-0.5) > 1e-4 {
		t.Errorf("got master left peak %v, expected 0.5", p)
	}
}

func TestMixerResetClearsMeters(t *testing.T) {
	m := engine.NewMixer(1)
	if err := m.Prepare(48000, 128, 2); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	mixBlock(t, m, []*harmoniq.PortBuffer{dcInput(128, 1)}, 128)
	m.Reset()
	levels := m.Levels()
	if levels.Master.Peak[0] != 0 || levels.Inputs[0].RMS[0] != 0 {
		t.Fatalf("meters not cleared after Reset: %+v", levels)
	}
}
