package vdf

import (
	"math"
	"testing"

	"github.com/helio-data/sweep.report/internal/cal"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/units"
)

func flatFactorTable(t *testing.T, loEnergy, hiEnergy, factor float64) *cal.ResponseTable {
	t.Helper()
	table, err := cal.NewResponseTable([]float64{loEnergy, hiEnergy}, []float64{factor, factor})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return table
}

func relDiff(a, b float64) float64 {
	return math.Abs(a-b) / math.Abs(b)
}

func TestProtonVDFReferenceScenario(t *testing.T) {
	c := physics.Default()
	energies := []float64{0, 1000, 750, 500}
	rates := uncert.UArray([]float64{0, 10, 20, 30}, []float64{0, 1, 2, 3})
	factors := flatFactorTable(t, 100, 2000, 1e-12)

	sample, err := ProtonVDF(c, energies, rates, 0.0882, factors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wantVelocities := []float64{0, 437.6947142244463, 379.05474162054054, 309.496900517614}
	wantDensities := []float64{math.NaN(), 14874.030602544019, 39664.08160678405, 89244.1836152641}

	for i := range wantVelocities {
		if math.Abs(sample.Velocities[i]-wantVelocities[i]) > 1e-9 {
			t.Errorf("Bin %d: expected velocity %v, got %v", i, wantVelocities[i], sample.Velocities[i])
		}
	}
	if !math.IsNaN(sample.Densities[0].Nominal) {
		t.Errorf("Expected NaN density for zero-rate bin, got %v", sample.Densities[0].Nominal)
	}
	for i := 1; i < len(wantDensities); i++ {
		if relDiff(sample.Densities[i].Nominal, wantDensities[i]) > 1e-6 {
			t.Errorf("Bin %d: expected density %v, got %v", i, wantDensities[i], sample.Densities[i].Nominal)
		}
		if sample.Densities[i].StdDev <= 0 {
			t.Errorf("Bin %d: expected positive density uncertainty, got %v", i, sample.Densities[i].StdDev)
		}
	}
}

func TestAlphaVDFSpeedScaling(t *testing.T) {
	c := physics.Default()
	energies := []float64{1000}
	rates := uncert.UArray([]float64{10}, []float64{1})
	factors := flatFactorTable(t, 100, 2000, 1e-12)

	sample, err := AlphaVDF(c, energies, rates, 0.0882, factors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := units.SpeedForEnergy(1000, c.AlphaMassKg, c.AlphaChargeC)
	if math.Abs(sample.Velocities[0]-want) > 1e-9 {
		t.Errorf("Expected alpha velocity %v, got %v", want, sample.Velocities[0])
	}
}

func TestPickupIonVDFSpeedScaling(t *testing.T) {
	c := physics.Default()
	energies := []float64{1000}
	rates := uncert.UArray([]float64{10}, []float64{1})
	factors := flatFactorTable(t, 100, 2000, 1e-12)

	sample, err := PickupIonVDF(c, energies, rates, 0.0882, factors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := 0.5 * units.SpeedForEnergy(1000, c.ProtonMassKg, c.ProtonChargeC)
	if math.Abs(sample.Velocities[0]-want) > 1e-9 {
		t.Errorf("Expected pickup-ion velocity %v, got %v", want, sample.Velocities[0])
	}
}

func TestComputeNegativeRateBin(t *testing.T) {
	c := physics.Default()
	energies := []float64{1000, 750}
	rates := uncert.UArray([]float64{-0.2, 10}, []float64{0.1, 1})
	factors := flatFactorTable(t, 100, 2000, 1e-12)

	sample, err := ProtonVDF(c, energies, rates, 0.0882, factors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sample.Velocities[0] != 0 {
		t.Errorf("Expected velocity 0 for negative-rate bin, got %v", sample.Velocities[0])
	}
	if !math.IsNaN(sample.Densities[0].Nominal) {
		t.Errorf("Expected NaN density for negative-rate bin, got %v", sample.Densities[0].Nominal)
	}
	if math.IsNaN(sample.Densities[1].Nominal) {
		t.Error("Expected usable density for the positive bin, got NaN")
	}
}

func TestComputeValidation(t *testing.T) {
	c := physics.Default()
	factors := flatFactorTable(t, 100, 2000, 1e-12)
	rates := uncert.UArray([]float64{10}, []float64{1})

	if _, err := ProtonVDF(c, []float64{1000, 500}, rates, 0.0882, factors); err == nil {
		t.Error("Expected error for mismatched array lengths, got nil")
	}
	if _, err := ProtonVDF(c, []float64{1000}, rates, 0, factors); err == nil {
		t.Error("Expected error for non-positive efficiency, got nil")
	}
	// Energy outside the factor table is a configuration error, not a
	// no-data bin.
	if _, err := ProtonVDF(c, []float64{5000}, rates, 0.0882, factors); err == nil {
		t.Error("Expected out-of-range error for uncovered energy, got nil")
	}
}

func TestDifferentialFlux(t *testing.T) {
	energies := []float64{1000, 500}
	rates := uncert.UArray([]float64{10, 0}, []float64{1, 0})
	eff := 0.0882
	g := 1e-12
	factors := flatFactorTable(t, 100, 2000, g)

	flux, err := DifferentialFlux(energies, rates, eff, factors)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := 10 / (eff * g * 1000)
	if relDiff(flux[0].Nominal, want) > 1e-12 {
		t.Errorf("Expected flux %v, got %v", want, flux[0].Nominal)
	}
	wantSigma := 1 / (eff * g * 1000)
	if relDiff(flux[0].StdDev, wantSigma) > 1e-12 {
		t.Errorf("Expected flux uncertainty %v, got %v", wantSigma, flux[0].StdDev)
	}
	if !math.IsNaN(flux[1].Nominal) {
		t.Errorf("Expected NaN flux for zero-rate bin, got %v", flux[1].Nominal)
	}
}

func TestDeltaMinusPlus(t *testing.T) {
	d := DeltaMinusPlus([]float64{100, 200, 400, 1000})

	wantMinus := []float64{50, 50, 100, 300}
	wantPlus := []float64{50, 100, 300, 300}
	for i := range wantMinus {
		if math.Abs(d.Minus[i]-wantMinus[i]) > 1e-12 {
			t.Errorf("Minus[%d]: expected %v, got %v", i, wantMinus[i], d.Minus[i])
		}
		if math.Abs(d.Plus[i]-wantPlus[i]) > 1e-12 {
			t.Errorf("Plus[%d]: expected %v, got %v", i, wantPlus[i], d.Plus[i])
		}
	}
}

func TestDeltaMinusPlusDegenerate(t *testing.T) {
	d := DeltaMinusPlus([]float64{42})
	if d.Minus[0] != 0 || d.Plus[0] != 0 {
		t.Errorf("Expected zero deltas for a single sample, got %v and %v", d.Minus[0], d.Plus[0])
	}
}
