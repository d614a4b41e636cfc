package engine

import (
	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

// Parameter indices of the generator nodes.
const (
	OscParamFreq = iota
	OscParamAmp
)

const GainParamGain = 0
const NoiseParamAmp = 0

const twoPi = 2 * math32.Pi

// Oscillator is a sine generator. With MIDIChannel < 0 it free-runs at the
// configured frequency and amplitude; otherwise it is gated by note events
// on that channel, deriving its frequency from the note number and its level
// from the velocity. Targets are applied directly, without smoothing.
type Oscillator struct {
	Freq        float32
	Amp         float32
	MIDIChannel int // -1: free-running

	sampleRate int
	phase      float32
	inc        float32
	env        float32
	gate       bool
	note       uint8
	velGain    float32
	relCoef    float32
}

func NewOscillator(freq, amp float32) *Oscillator {
	return &Oscillator{Freq: freq, Amp: amp, MIDIChannel: -1}
}

func (o *Oscillator) Prepare(sampleRate, blockSize, channels int) error {
	o.sampleRate = sampleRate
	o.inc = twoPi * o.Freq / float32(sampleRate)
	// ~50 ms release so a released voice does not click
	o.relCoef = math32.Exp(-1.0 / (0.05 * float32(sampleRate)))
	if o.MIDIChannel < 0 {
		o.env = 1
		o.velGain = 1
		o.gate = true
	}
	return nil
}

func (o *Oscillator) Reset() {
	o.phase = 0
	if o.MIDIChannel >= 0 {
		o.env = 0
		o.gate = false
	}
}

func (o *Oscillator) LatencySamples() int { return 0 }

func (o *Oscillator) Param(u harmoniq.ParameterUpdate) {
	switch u.Index {
	case OscParamFreq:
		o.Freq = u.Value
		if o.sampleRate > 0 {
			o.inc = twoPi * o.Freq / float32(o.sampleRate)
		}
	case OscParamAmp:
		o.Amp = u.Value
	}
}

func (o *Oscillator) handleEvent(ev harmoniq.MIDIEvent) {
	if int(ev.Channel) != o.MIDIChannel {
		return
	}
	switch ev.Kind {
	case harmoniq.NoteOn:
		o.note = ev.Note()
		o.velGain = float32(ev.Velocity()) / 127
		o.Freq = 440 * math32.Pow(2, (float32(ev.Note())-69)/12)
		o.inc = twoPi * o.Freq / float32(o.sampleRate)
		o.gate = true
		o.env = 1
	case harmoniq.NoteOff:
		if ev.Note() == o.note {
			o.gate = false
		}
	}
}

func (o *Oscillator) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	out := outputs[0]
	evIdx := 0
	midi := o.MIDIChannel >= 0
	for f := 0; f < ctx.Frames; f++ {
		if midi {
			for evIdx < len(ctx.Events) && ctx.Events[evIdx].Offset <= f {
				o.handleEvent(ctx.Events[evIdx])
				evIdx++
			}
			if !o.gate {
				o.env *= o.relCoef
				if o.env < denormalLimit {
					o.env = 0
				}
			}
		}
		s := math32.Sin(o.phase) * o.Amp * o.env * o.velGain
		o.phase += o.inc
		if o.phase >= twoPi {
			o.phase -= twoPi
		}
		for c := 0; c < out.Channels(); c++ {
			out.Channel(c)[f] = s
		}
	}
	return nil
}

// Impulse emits a single unit sample at the first frame after Reset, then
// silence. Used to measure graph latency.
type Impulse struct {
	fired bool
}

func NewImpulse() *Impulse { return &Impulse{} }

func (n *Impulse) Prepare(sampleRate, blockSize, channels int) error { return nil }
func (n *Impulse) Reset()                                            { n.fired = false }
func (n *Impulse) LatencySamples() int                               { return 0 }
func (n *Impulse) Param(harmoniq.ParameterUpdate)                    {}

func (n *Impulse) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	out := outputs[0]
	if n.fired || ctx.Frames == 0 {
		return nil
	}
	for c := 0; c < out.Channels(); c++ {
		out.Channel(c)[0] = 1
	}
	n.fired = true
	return nil
}

// PassThrough copies its first input to its output unchanged.
type PassThrough struct{}

func NewPassThrough() *PassThrough { return &PassThrough{} }

func (n *PassThrough) Prepare(sampleRate, blockSize, channels int) error { return nil }
func (n *PassThrough) Reset()                                            {}
func (n *PassThrough) LatencySamples() int                               { return 0 }
func (n *PassThrough) Param(harmoniq.ParameterUpdate)                    {}

func (n *PassThrough) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	if len(inputs) > 0 {
		outputs[0].CopyFrom(inputs[0])
	}
	return nil
}

// Gain scales its input by a smoothed gain parameter. While the smoother is
// ramping the scaling runs per sample; once settled it falls back to the
// vectorized path.
type Gain struct {
	smoother Smoother
}

func NewGain(gain float32) *Gain {
	g := &Gain{}
	g.smoother.Jump(gain)
	return g
}

func (g *Gain) Prepare(sampleRate, blockSize, channels int) error {
	g.smoother.Prepare(0.005, sampleRate)
	return nil
}

func (g *Gain) Reset()              { g.smoother.Reset() }
func (g *Gain) LatencySamples() int { return 0 }

func (g *Gain) Param(u harmoniq.ParameterUpdate) {
	if u.Index == GainParamGain {
		g.smoother.SetTarget(u.Value)
	}
}

func (g *Gain) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	if len(inputs) == 0 {
		return nil
	}
	in, out := inputs[0], outputs[0]
	settled := math32.Abs(g.smoother.Value()-g.smoother.target) < updateEpsilon
	if settled {
		v := g.smoother.Value()
		for c := 0; c < out.Channels() && c < in.Channels(); c++ {
			vek32.MulNumber_Into(out.Channel(c)[:ctx.Frames], in.Channel(c)[:ctx.Frames], v)
		}
		return nil
	}
	for f := 0; f < ctx.Frames; f++ {
		v := g.smoother.Next()
		for c := 0; c < out.Channels() && c < in.Channels(); c++ {
			out.Channel(c)[f] = in.Channel(c)[f] * v
		}
	}
	return nil
}

// Noise is a white noise generator with a linear congruential state, so
// Process stays alloc- and syscall-free.
type Noise struct {
	Amp  float32
	seed uint32
}

func NewNoise(amp float32) *Noise { return &Noise{Amp: amp, seed: 0x1} }

func (n *Noise) Prepare(sampleRate, blockSize, channels int) error { return nil }
func (n *Noise) Reset()                                            { n.seed = 0x1 }
func (n *Noise) LatencySamples() int                               { return 0 }

func (n *Noise) Param(u harmoniq.ParameterUpdate) {
	if u.Index == NoiseParamAmp {
		n.Amp = u.Value
	}
}

func (n *Noise) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	out := outputs[0]
	for f := 0; f < ctx.Frames; f++ {
		n.seed = n.seed*1664525 + 1013904223
		s := (float32(n.seed>>8)/float32(1<<24)*2 - 1) * n.Amp
		for c := 0; c < out.Channels(); c++ {
			out.Channel(c)[f] = s
		}
	}
	return nil
}

// Meter passes its input through and publishes the per-channel block peak
// through a triple buffer the control thread polls.
type Meter struct {
	peaks *rt.Triple[[2]float32]
}

func NewMeter() *Meter { return &Meter{peaks: rt.NewTriple[[2]float32]()} }

func (m *Meter) Prepare(sampleRate, blockSize, channels int) error { return nil }
func (m *Meter) Reset()                                            { m.peaks.Write([2]float32{}) }
func (m *Meter) LatencySamples() int                               { return 0 }
func (m *Meter) Param(harmoniq.ParameterUpdate)                    {}

// Peaks returns the most recently published per-channel peaks.
func (m *Meter) Peaks() [2]float32 { return m.peaks.Read() }

func (m *Meter) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	if len(inputs) == 0 {
		return nil
	}
	in, out := inputs[0], outputs[0]
	out.CopyFrom(in)
	var p [2]float32
	for c := 0; c < in.Channels() && c < 2; c++ {
		ch := in.Channel(c)[:ctx.Frames]
		if len(ch) == 0 {
			continue
		}
		hi := vek32.Max(ch)
		lo := vek32.Min(ch)
		if -lo > hi {
			hi = -lo
		}
		p[c] = hi
	}
	m.peaks.Write(p)
	return nil
}

// Delay buffers its input by a fixed number of samples and reports that
// amount as its latency, so the compensator machinery can line the other
// branches up against it.
type Delay struct {
	delay int
	comp  *Compensator
}

func NewDelay(samples int) *Delay {
	return &Delay{delay: samples, comp: NewCompensator()}
}

func (d *Delay) Prepare(sampleRate, blockSize, channels int) error {
	d.comp.Configure(channels, d.delay, blockSize)
	return nil
}

func (d *Delay) Reset()              { d.comp.Reset() }
func (d *Delay) LatencySamples() int { return d.delay }

func (d *Delay) Param(harmoniq.ParameterUpdate) {}

func (d *Delay) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	if len(inputs) == 0 {
		return nil
	}
	outputs[0].CopyFrom(inputs[0])
	d.comp.Process(outputs[0])
	return nil
}
