package engine

import "github.com/chewxy/math32"

// denormalLimit is the magnitude below which a smoother state is snapped to
// zero, so the one-pole recursion can never linger in denormal territory.
const denormalLimit = 1e-20

// Smoother is a single-pole parameter smoother: y += alpha * (target - y),
// with alpha derived from a time constant in Prepare. Targets arrive as
// automation updates; Next is read once per sample inside process. Smoothers
// are optional per node; generators may apply targets directly.
type Smoother struct {
	value  float32
	target float32
	alpha  float32
}

// Prepare computes the smoothing coefficient for the given time constant
// (seconds) at the given sample rate. A time constant of ~5 ms is typical.
func (s *Smoother) Prepare(tau float64, sampleRate int) {
	if tau <= 0 || sampleRate <= 0 {
		s.alpha = 1
		return
	}
	s.alpha = 1 - math32.Exp(float32(-1.0/(tau*float64(sampleRate))))
}

// SetTarget aims the smoother at a new value.
func (s *Smoother) SetTarget(target float32) { s.target = target }

// Jump snaps both state and target, bypassing the ramp.
func (s *Smoother) Jump(value float32) {
	s.value = value
	s.target = value
}

// Next advances one sample and returns the smoothed value.
func (s *Smoother) Next() float32 {
	s.value += s.alpha * (s.target - s.value)
	if s.value > -denormalLimit && s.value < denormalLimit {
		s.value = 0
	}
	return s.value
}

// Value returns the current state without advancing.
func (s *Smoother) Value() float32 { return s.value }

// Reset clears the state to the target, as after a transport jump.
func (s *Smoother) Reset() { s.value = s.target }
