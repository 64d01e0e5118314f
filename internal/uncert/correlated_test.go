package uncert

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCorrelatedAt(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{
		0.04, 0.01,
		0.01, 0.09,
	})
	c, err := NewCorrelated([]string{"a", "b"}, []float64{2, 5}, cov)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	a, err := c.At("a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Nominal != 2 || math.Abs(a.StdDev-0.2) > 1e-15 {
		t.Errorf("Expected 2 ± 0.2, got %v ± %v", a.Nominal, a.StdDev)
	}

	if _, err := c.At("missing"); err == nil {
		t.Error("Expected error for unknown member, got nil")
	}
}

func TestPropagateKeepsCorrelation(t *testing.T) {
	// x and y fully correlated: the difference x - y must have zero
	// uncertainty, which an independent treatment would miss entirely.
	cov := mat.NewSymDense(2, []float64{
		1, 1,
		1, 1,
	})
	c, err := NewCorrelated([]string{"x", "y"}, []float64{3, 1}, cov)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out, err := c.Propagate(
		[]string{"diff", "sum"},
		[]func(v []float64) float64{
			func(v []float64) float64 { return v[0] - v[1] },
			func(v []float64) float64 { return v[0] + v[1] },
		},
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	diff, _ := out.At("diff")
	if diff.Nominal != 2 {
		t.Errorf("Expected diff 2, got %v", diff.Nominal)
	}
	if diff.StdDev > 1e-6 {
		t.Errorf("Fully correlated difference should have ~0 std dev, got %v", diff.StdDev)
	}

	sum, _ := out.At("sum")
	if math.Abs(sum.StdDev-2) > 1e-6 {
		t.Errorf("Fully correlated sum should have std dev 2, got %v", sum.StdDev)
	}
}

func TestPropagateNonlinear(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{
		0.01, 0,
		0, 0.04,
	})
	c, err := NewCorrelated([]string{"a", "b"}, []float64{3, 4}, cov)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out, err := c.Propagate(
		[]string{"norm"},
		[]func(v []float64) float64{
			func(v []float64) float64 { return math.Hypot(v[0], v[1]) },
		},
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	norm, _ := out.At("norm")
	if math.Abs(norm.Nominal-5) > 1e-12 {
		t.Errorf("Expected norm 5, got %v", norm.Nominal)
	}
	// Analytic: σ² = (3/5)²·0.01 + (4/5)²·0.04.
	want := math.Sqrt(0.36*0.01 + 0.64*0.04)
	if math.Abs(norm.StdDev-want) > 1e-6 {
		t.Errorf("Expected std dev %v, got %v", want, norm.StdDev)
	}
}

func TestGradient(t *testing.T) {
	f := func(x []float64) float64 { return x[0]*x[0] + 3*x[1] }
	g := Gradient(f, []float64{2, 7})
	if math.Abs(g[0]-4) > 1e-5 {
		t.Errorf("Expected df/dx0 = 4, got %v", g[0])
	}
	if math.Abs(g[1]-3) > 1e-5 {
		t.Errorf("Expected df/dx1 = 3, got %v", g[1])
	}
}
