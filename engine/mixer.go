package engine

import (
	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
	"github.com/BobTheZombie/Harmoniq-Studio-sub001/rt"
)

// MaxMixerInputs bounds the snapshot struct so meter publishing never
// allocates on the render thread.
const MaxMixerInputs = 16

// Mixer parameter addressing: input i exposes gain at index 2i and pan at
// index 2i+1.
func MixerGainParam(input int) int { return 2 * input }
func MixerPanParam(input int) int  { return 2*input + 1 }

type (
	// MixerLevel is the peak and short-window RMS of one stereo signal,
	// linear scale.
	MixerLevel struct {
		Peak [2]float32
		RMS  [2]float32
	}

	// MixerLevels is a consistent meter frame published once per block
	// through a triple buffer; the control thread always reads the latest
	// complete frame.
	MixerLevels struct {
		Inputs    [MaxMixerInputs]MixerLevel
		NumInputs int
		Master    MixerLevel
	}

	// Mixer sums its input buffers into a stereo output with per-input
	// linear gain and constant-power pan (-3 dB center). Gains and pans are
	// smoothed; meters are exposed through a single-writer snapshot.
	Mixer struct {
		numInputs int
		gains     []Smoother
		pans      []Smoother

		meters   *rt.Triple[MixerLevels]
		levels   MixerLevels
		rmsState [MaxMixerInputs + 1][2]float32
		rmsAlpha float32
	}
)

// panGains maps a pan position in [-1, 1] to left/right gains using a
// constant-power law with -3 dB at center.
func panGains(pan float32) (l, r float32) {
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	theta := (pan + 1) * 0.5 * (math32.Pi / 2)
	return math32.Cos(theta), math32.Sin(theta)
}

func NewMixer(numInputs int) *Mixer {
	if numInputs > MaxMixerInputs {
		numInputs = MaxMixerInputs
	}
	m := &Mixer{
		numInputs: numInputs,
		gains:     make([]Smoother, numInputs),
		pans:      make([]Smoother, numInputs),
		meters:    rt.NewTriple[MixerLevels](),
	}
	for i := range m.gains {
		m.gains[i].Jump(1)
		m.pans[i].Jump(0)
	}
	m.levels.NumInputs = numInputs
	return m
}

func (m *Mixer) NumInputs() int { return m.numInputs }

func (m *Mixer) Prepare(sampleRate, blockSize, channels int) error {
	for i := range m.gains {
		m.gains[i].Prepare(0.005, sampleRate)
		m.pans[i].Prepare(0.005, sampleRate)
	}
	// ~300 ms RMS window
	m.rmsAlpha = 1 - math32.Exp(-1.0/(0.3*float32(sampleRate)))
	return nil
}

// Reset clears meter hold and smoother ramps; called when the mixer is
// rewired into a fresh graph.
func (m *Mixer) Reset() {
	for i := range m.gains {
		m.gains[i].Reset()
		m.pans[i].Reset()
	}
	m.levels = MixerLevels{NumInputs: m.numInputs}
	m.rmsState = [MaxMixerInputs + 1][2]float32{}
	m.meters.Write(m.levels)
}

func (m *Mixer) LatencySamples() int { return 0 }

func (m *Mixer) Param(u harmoniq.ParameterUpdate) {
	input := u.Index / 2
	if input < 0 || input >= m.numInputs {
		return
	}
	if u.Index%2 == 0 {
		m.gains[input].SetTarget(u.Value)
	} else {
		m.pans[input].SetTarget(u.Value)
	}
}

// SetGain and SetPan jump the targets directly; used when building a graph
// from a project description.
func (m *Mixer) SetGain(input int, gain float32) {
	if input >= 0 && input < m.numInputs {
		m.gains[input].Jump(gain)
	}
}

func (m *Mixer) SetPan(input int, pan float32) {
	if input >= 0 && input < m.numInputs {
		m.pans[input].Jump(pan)
	}
}

// Levels returns the latest published meter frame.
func (m *Mixer) Levels() MixerLevels { return m.meters.Read() }

func (m *Mixer) Process(inputs, outputs []*harmoniq.PortBuffer, ctx *harmoniq.ProcessContext) error {
	out := outputs[0]
	if out.Channels() < 2 || ctx.Frames == 0 {
		return nil
	}
	outL := out.Channel(0)[:ctx.Frames]
	outR := out.Channel(1)[:ctx.Frames]

	n := len(inputs)
	if n > m.numInputs {
		n = m.numInputs
	}
	for i := 0; i < n; i++ {
		in := inputs[i]
		if in.Channels() == 0 {
			m.levels.Inputs[i] = MixerLevel{RMS: m.rmsState[i]}
			continue
		}
		srcL := in.Channel(0)[:ctx.Frames]
		srcR := srcL
		if in.Channels() > 1 {
			srcR = in.Channel(1)[:ctx.Frames]
		}
		var peakL, peakR float32
		for f := 0; f < ctx.Frames; f++ {
			g := m.gains[i].Next()
			pl, pr := panGains(m.pans[i].Next())
			l := srcL[f] * g * pl
			r := srcR[f] * g * pr
			outL[f] += l
			outR[f] += r
			if al := math32.Abs(l); al > peakL {
				peakL = al
			}
			if ar := math32.Abs(r); ar > peakR {
				peakR = ar
			}
			m.rmsState[i][0] += (l*l - m.rmsState[i][0]) * m.rmsAlpha
			m.rmsState[i][1] += (r*r - m.rmsState[i][1]) * m.rmsAlpha
		}
		m.levels.Inputs[i] = MixerLevel{
			Peak: [2]float32{peakL, peakR},
			RMS:  [2]float32{math32.Sqrt(m.rmsState[i][0]), math32.Sqrt(m.rmsState[i][1])},
		}
	}

	master := &m.rmsState[MaxMixerInputs]
	var mp [2]float32
	if ctx.Frames > 0 {
		hiL, loL := vek32.Max(outL), vek32.Min(outL)
		hiR, loR := vek32.Max(outR), vek32.Min(outR)
		mp[0] = math32.Max(hiL, -loL)
		mp[1] = math32.Max(hiR, -loR)
	}
	for f := 0; f < ctx.Frames; f++ {
		master[0] += (outL[f]*outL[f] - master[0]) * m.rmsAlpha
		master[1] += (outR[f]*outR[f] - master[1]) * m.rmsAlpha
	}
	m.levels.Master = MixerLevel{
		Peak: mp,
		RMS:  [2]float32{math32.Sqrt(master[0]), math32.Sqrt(master[1])},
	}
	m.meters.Write(m.levels)
	return nil
}
