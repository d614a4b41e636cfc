package engine

import (
	"sort"

	"github.com/chewxy/math32"
)

// CurveShape selects how the segment starting at a point interpolates
// towards the next point.
type CurveShape uint8

const (
	ShapeStep CurveShape = iota
	ShapeLinear
	ShapeExponential
)

// expEpsilon clamps non-positive values before interpolating in log space.
const expEpsilon = 1e-6

type (
	// CurvePoint is one breakpoint of an automation curve.
	CurvePoint struct {
		Sample uint64
		Value  float32
		Shape  CurveShape
	}

	// Curve is an ordered sequence of breakpoints governing one parameter.
	// Points are kept sorted by sample position; adding a point at an
	// occupied position replaces it, so the latest write wins.
	Curve struct {
		points []CurvePoint
	}
)

func (c *Curve) Len() int             { return len(c.points) }
func (c *Curve) Points() []CurvePoint { return c.points }

// AddPoint inserts the point at its sorted position, coalescing with an
// existing point at the same sample.
func (c *Curve) AddPoint(p CurvePoint) {
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Sample >= p.Sample })
	if i < len(c.points) && c.points[i].Sample == p.Sample {
		c.points[i] = p
		return
	}
	c.points = append(c.points, CurvePoint{})
	copy(c.points[i+1:], c.points[i:])
	c.points[i] = p
}

// RemoveAfter drops every point strictly after the given sample.
func (c *Curve) RemoveAfter(sample uint64) {
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Sample > sample })
	c.points = c.points[:i]
}

// Clear removes all points, keeping capacity.
func (c *Curve) Clear() { c.points = c.points[:0] }

// ValueAt evaluates the curve at the given sample. Before the first point it
// reports ok=false so the caller can fall back to the parameter's default;
// at or after the last point it holds the last value. Evaluation is
// deterministic: re-reading the same sample returns the same value until the
// curve is mutated.
func (c *Curve) ValueAt(sample uint64) (value float32, ok bool) {
	if len(c.points) == 0 {
		return 0, false
	}
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Sample > sample })
	if i == 0 {
		return 0, false
	}
	prev := c.points[i-1]
	if prev.Sample == sample || i == len(c.points) {
		return prev.Value, true
	}
	next := c.points[i]
	span := next.Sample - prev.Sample
	if span == 0 {
		return next.Value, true
	}
	t := float32(sample-prev.Sample) / float32(span)
	switch prev.Shape {
	case ShapeLinear:
		return prev.Value + (next.Value-prev.Value)*t, true
	case ShapeExponential:
		a := math32.Max(prev.Value, expEpsilon)
		b := math32.Max(next.Value, expEpsilon)
		return math32.Exp(math32.Log(a) + (math32.Log(b)-math32.Log(a))*t), true
	default:
		return prev.Value, true
	}
}

// LastValueBefore returns the value of the latest point strictly before the
// given sample.
func (c *Curve) LastValueBefore(sample uint64) (float32, bool) {
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Sample >= sample })
	if i == 0 {
		return 0, false
	}
	return c.points[i-1].Value, true
}
