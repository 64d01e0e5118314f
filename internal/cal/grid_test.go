package cal

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/helio-data/sweep.report/internal/uncert"
)

// correctionLUT reproduces the flight-style temperature/density correction
// table: a full rectangular grid over (speed, deflection, clock, density,
// temperature) with fixed correction factors on the density and temperature
// outputs.
func correctionLUT(t *testing.T) *GridTable {
	t.Helper()
	speeds := []float64{250, 1000}
	deflections := []float64{0, 6}
	clocks := []float64{0, 360}
	densities := []float64{1, 10}
	temperatures := []float64{1000, 100000}

	var rows [][]float64
	for _, s := range speeds {
		for _, d := range deflections {
			for _, c := range clocks {
				for _, n := range densities {
					for _, temp := range temperatures {
						rows = append(rows, []float64{s, d, c, n, 1.021 * n, temp, 0.97561 * temp})
					}
				}
			}
		}
	}

	table, err := NewGridTable(rows, []int{0, 1, 2, 3, 5}, []int{4, 6}, nil)
	if err != nil {
		t.Fatalf("Unexpected error building table: %v", err)
	}
	return table
}

func TestGridTableCorrectionScenario(t *testing.T) {
	table := correctionLUT(t)

	got, err := table.Lookup([]uncert.Value{
		uncert.V(450, 2),
		uncert.V(3, 0.1),
		uncert.V(1, 1),
		uncert.V(4, 0.1),
		uncert.V(50000, 10000),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	density, temperature := got[0], got[1]
	if math.Abs(density.Nominal-4*1.021) > 1e-9 {
		t.Errorf("Expected corrected density %v, got %v", 4*1.021, density.Nominal)
	}
	if math.Abs(density.StdDev-0.1*1.021) > 1e-9 {
		t.Errorf("Expected density std dev %v, got %v", 0.1*1.021, density.StdDev)
	}
	if math.Abs(temperature.Nominal-50000*0.97561) > 1e-3 {
		t.Errorf("Expected corrected temperature %v, got %v", 50000*0.97561, temperature.Nominal)
	}
	if math.Abs(temperature.StdDev-10000*0.97561) > 1e-3 {
		t.Errorf("Expected temperature std dev %v, got %v", 10000*0.97561, temperature.StdDev)
	}
}

func TestGridTableBatchedMatchesScalar(t *testing.T) {
	table := correctionLUT(t)

	points := [][]uncert.Value{
		{uncert.V(450, 2), uncert.V(3, 0.1), uncert.V(265, 5), uncert.V(4, 0.1), uncert.V(50000, 10000)},
		{uncert.V(550, 13), uncert.V(4, 0.2), uncert.V(270, 6), uncert.V(4.3, 0.2), uncert.V(60000, 8000)},
	}

	batch, err := table.LookupBatch(points)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for p, point := range points {
		scalar, err := table.Lookup(point)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		for j := range scalar {
			if diff := cmp.Diff(scalar[j], batch[j][p]); diff != "" {
				t.Errorf("Batched result differs from scalar at point %d output %d:\n%s", p, j, diff)
			}
		}
	}

	if math.Abs(batch[0][1].Nominal-4.3*1.021) > 1e-9 {
		t.Errorf("Expected %v, got %v", 4.3*1.021, batch[1][1].Nominal)
	}
	if math.Abs(batch[0][1].StdDev-0.2*1.021) > 1e-9 {
		t.Errorf("Expected %v, got %v", 0.2*1.021, batch[0][1].StdDev)
	}
}

func TestGridTableExactHitIsStoredValue(t *testing.T) {
	rows := [][]float64{
		{1, 10, 0.123456789012345},
		{1, 20, 0.223456789012345},
		{2, 10, 0.323456789012345},
		{2, 20, 0.423456789012345},
	}
	table, err := NewGridTable(rows, []int{0, 1}, []int{2}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, row := range rows {
		got, err := table.Lookup([]uncert.Value{uncert.Exact(row[0]), uncert.Exact(row[1])})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got[0].Nominal != row[2] {
			t.Errorf("Exact grid hit (%v, %v): expected stored %v bit-for-bit, got %v",
				row[0], row[1], row[2], got[0].Nominal)
		}
	}
}

func TestGridTableBracketing(t *testing.T) {
	rows := [][]float64{
		{0, 1},
		{10, 5},
	}
	table, err := NewGridTable(rows, []int{0}, []int{1}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Value between two nodes is the convex combination with linear weights.
	for _, q := range []float64{2.5, 5, 7.5} {
		got, err := table.Lookup([]uncert.Value{uncert.Exact(q)})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		w := q / 10
		want := (1-w)*1 + w*5
		if math.Abs(got[0].Nominal-want) > 1e-12 {
			t.Errorf("Query %v: expected %v, got %v", q, want, got[0].Nominal)
		}
		if got[0].Nominal < 1 || got[0].Nominal > 5 {
			t.Errorf("Query %v: result %v outside bracket [1, 5]", q, got[0].Nominal)
		}
	}
}

func TestGridTableOutOfRange(t *testing.T) {
	table := correctionLUT(t)
	_, err := table.Lookup([]uncert.Value{
		uncert.V(2000, 2), // outside speed axis
		uncert.V(3, 0.1),
		uncert.V(1, 1),
		uncert.V(4, 0.1),
		uncert.V(50000, 10000),
	})
	if err == nil {
		t.Fatal("Expected out-of-range error, got nil")
	}
}

func TestGridTableRejectsPartialGrid(t *testing.T) {
	rows := [][]float64{
		{1, 10, 0.5},
		{1, 20, 0.6},
		{2, 10, 0.7},
		// (2, 20) missing
	}
	if _, err := NewGridTable(rows, []int{0, 1}, []int{2}, nil); err == nil {
		t.Error("Expected partial-grid error, got nil")
	}

	dup := [][]float64{
		{1, 10, 0.5},
		{1, 20, 0.6},
		{2, 10, 0.7},
		{2, 10, 0.8},
	}
	if _, err := NewGridTable(dup, []int{0, 1}, []int{2}, nil); err == nil {
		t.Error("Expected duplicate-cell error, got nil")
	}
}

func TestGridTableFixedOutputSigma(t *testing.T) {
	rows := [][]float64{
		{0, 1},
		{10, 1},
	}
	table, err := NewGridTable(rows, []int{0}, []int{1}, []float64{0.25})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got, err := table.Lookup([]uncert.Value{uncert.Exact(5)})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Flat table: no slope contribution, only the baked-in output sigma.
	if math.Abs(got[0].StdDev-0.25) > 1e-12 {
		t.Errorf("Expected std dev 0.25, got %v", got[0].StdDev)
	}
}
