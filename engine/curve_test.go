package engine_test

import (
	"math"
	"testing"

	"github.com/BobTheZombie/Harmoniq-Studio-sub001/engine"
)

func TestCurveAddPointKeepsOrder(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 300, Value: 3})
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 1})
	c.AddPoint(engine.CurvePoint{Sample: 200, Value: 2})
	points := c.Points()
	if len(points) != 3 {
		t.Fatalf("got %v points, expected 3", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i-1].Sample >= points[i].Sample {
			t.Fatalf("points out of order: %v", points)
		}
	}
}

func TestCurveAddPointReplacesAtSameSample(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 1})
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 2})
	if c.Len() != 1 {
		t.Fatalf("got %v points, expected 1", c.Len())
	}
	if v, _ := c.ValueAt(100); v != 2 {
		t.Fatalf("got %v, expected the latest write 2", v)
	}
}

func TestCurveValueAtBeforeFirstPoint(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 1})
	if _, ok := c.ValueAt(50); ok {
		t.Fatal("expected ok=false before the first point")
	}
}

func TestCurveStepHoldsValue(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 0, Value: 1, Shape: engine.ShapeStep})
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 2, Shape: engine.ShapeStep})
	if v, _ := c.ValueAt(99); v != 1 {
		t.Errorf("got %v, expected 1", v)
	}
	if v, _ := c.ValueAt(100); v != 2 {
		t.Errorf("got %v, expected 2", v)
	}
	if v, _ := c.ValueAt(10000); v != 2 {
		t.Errorf("got %v, expected the last value to hold", v)
	}
}

func TestCurveLinearInterpolation(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 0, Value: 0, Shape: engine.ShapeLinear})
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 1, Shape: engine.ShapeLinear})
	if v, _ := c.ValueAt(50); math.Abs(float64(v)-0.5) > 1e-6 {
		t.Errorf("got %v, expected 0.5", v)
	}
	if v, _ := c.ValueAt(25); math.Abs(float64(v)-0.25) > 1e-6 {
		t.Errorf("got %v, expected 0.25", v)
	}
}

func TestCurveExponentialInterpolation(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 0, Value: 0.01, Shape: engine.ShapeExponential})
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 1, Shape: engine.ShapeExponential})
	// geometric midpoint of 0.01 and 1 is 0.1
	if v, _ := c.ValueAt(50); math.Abs(float64(v)-0.1) > 1e-4 {
		t.Errorf("got %v, expected 0.1", v)
	}
}

func TestCurveExponentialClampsNonPositive(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 0, Value: 0, Shape: engine.ShapeExponential})
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 1, Shape: engine.ShapeExponential})
	v, _ := c.ValueAt(50)
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		t.Fatalf("got %v, expected a finite value", v)
	}
}

func TestCurveRemoveAfter(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 0, Value: 1})
	c.AddPoint(engine.CurvePoint{Sample: 100, Value: 2})
	c.AddPoint(engine.CurvePoint{Sample: 200, Value: 3})
	c.RemoveAfter(100)
	if c.Len() != 2 {
		t.Fatalf("got %v points, expected 2", c.Len())
	}
	if v, _ := c.ValueAt(500); v != 2 {
		t.Fatalf("got %v, expected 2", v)
	}
}

func TestCurveDeterministicReads(t *testing.T) {
	c := &engine.Curve{}
	c.AddPoint(engine.CurvePoint{Sample: 0, Value: 0.3, Shape: engine.ShapeLinear})
	c.AddPoint(engine.CurvePoint{Sample: 1000, Value: 0.9, Shape: engine.ShapeLinear})
	v1, _ := c.ValueAt(123)
	v2, _ := c.ValueAt(123)
	if v1 != v2 {
		t.Fatalf("re-reading the same sample gave %v then %v", v1, v2)
	}
}
