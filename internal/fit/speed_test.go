package fit

import (
	"math"
	"testing"
	"time"

	"github.com/helio-data/sweep.report/internal/model"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/sweep"
	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/units"
)

func geomspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	ratio := math.Pow(hi/lo, 1/float64(n-1))
	v := lo
	for i := range out {
		out[i] = v
		v *= ratio
	}
	return out
}

// syntheticWindow builds a window of sweeps whose count-rate peak follows
// the spin harmonic E_peak(φ) = a·sin(φ + phi) + b.
func syntheticWindow(t *testing.T, c physics.Constants, a, phiRad, b float64, spinAngles []float64) sweep.Window {
	t.Helper()
	energies := geomspace(100, 19000, 62)
	epoch := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	var w sweep.Window
	for k, angle := range spinAngles {
		peakEnergy := a*math.Sin(units.DegToRad(angle)+phiRad) + b
		speed := units.SpeedForEnergy(peakEnergy, c.ProtonMassKg, c.ProtonChargeC)
		rates := model.ProtonCountRate(c, energies, 5, 40e3, speed)
		uncerts := model.SynthesizeUncertainties(c, rates)
		angles := make([]float64, len(energies))
		for i := range angles {
			angles[i] = angle
		}
		s, err := sweep.New(epoch.Add(time.Duration(k)*12*time.Second), energies, rates, uncerts, angles)
		if err != nil {
			t.Fatalf("Unexpected error building sweep: %v", err)
		}
		w = append(w, s)
	}
	return w
}

func TestProtonSpeedRecoversHarmonic(t *testing.T) {
	c := physics.Default()
	trueB := units.EnergyForSpeed(450, c.ProtonMassKg, c.ProtonChargeC)
	trueA := 0.25 * trueB
	truePhi := 0.7

	w := syntheticWindow(t, c, trueA, truePhi, trueB,
		[]float64{10, 82, 154, 226, 298})

	res, err := ProtonSpeed(c, w)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The count-rate maximum sits slightly above the bulk-speed energy
	// because of the v⁴ weighting, so recovery is approximate.
	if math.Abs(res.Speed.Nominal-450) > 15 {
		t.Errorf("Expected speed near 450 km/s, got %v", res.Speed.Nominal)
	}
	if math.Abs(res.A.Nominal-trueA)/trueA > 0.2 {
		t.Errorf("Expected a near %v, got %v", trueA, res.A.Nominal)
	}
	if math.Abs(res.Phi.Nominal-truePhi) > 0.2 {
		t.Errorf("Expected phi near %v, got %v", truePhi, res.Phi.Nominal)
	}
	if res.Speed.StdDev <= 0 {
		t.Errorf("Expected positive speed uncertainty, got %v", res.Speed.StdDev)
	}

	// Speed is a function of b alone, so their correlation must survive in
	// the joint parameter set.
	if res.Params == nil || res.Params.Index("speed") < 0 || res.Params.Index("b") < 0 {
		t.Error("Expected joint parameter set with b and speed members")
	}
}

func TestProtonSpeedRejectsShortWindow(t *testing.T) {
	c := physics.Default()
	w := syntheticWindow(t, c, 100, 0, 1000, []float64{0, 120})
	if _, err := ProtonSpeed(c, w); err == nil {
		t.Error("Expected error for a 2-sweep window, got nil")
	}
}

func TestRefinePeakExactOnSymmetricParabola(t *testing.T) {
	// Symmetric samples around the vertex of a log-parabola recover the
	// vertex energy exactly.
	center := 1000.0
	ratio := 1.1
	energies := []float64{center / ratio, center, center * ratio}
	rates := []uncert.Value{
		uncert.V(80, 1),
		uncert.V(100, 1),
		uncert.V(80, 1),
	}
	peak, err := refinePeak(energies, rates, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(peak.Nominal-center) > 1e-9 {
		t.Errorf("Expected vertex at %v, got %v", center, peak.Nominal)
	}
	if peak.StdDev <= 0 {
		t.Errorf("Expected positive peak uncertainty, got %v", peak.StdDev)
	}
}

func TestRefinePeakAtBoundaryFails(t *testing.T) {
	energies := []float64{100, 200, 300}
	rates := []uncert.Value{uncert.V(30, 1), uncert.V(20, 1), uncert.V(10, 1)}
	if _, err := refinePeak(energies, rates, 0); err == nil {
		t.Error("Expected error for peak at sweep boundary, got nil")
	}
}

func TestAlphaSpeed(t *testing.T) {
	c := physics.Default()
	energies := geomspace(100, 19000, 124)

	// Protons at 450 km/s plus an alpha population at the same bulk speed;
	// alphas peak near twice the proton energy-per-charge.
	protons := model.ProtonCountRate(c, energies, 5, 40e3, 450)
	alphas := model.AlphaCountRate(c, energies, 0.25, 80e3, 450)
	rates := make([]uncert.Value, len(energies))
	for i := range rates {
		total := protons[i] + alphas[i] - c.BackgroundCountRate
		rates[i] = uncert.V(total, math.Max(math.Sqrt(total), c.BackgroundCountRate))
	}

	got, err := AlphaSpeed(c, energies, rates)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(got.Nominal-450) > 20 {
		t.Errorf("Expected alpha speed near 450 km/s, got %v", got.Nominal)
	}
}

func TestAlphaSpeedNoBinsAboveCutoff(t *testing.T) {
	c := physics.Default()
	// Peak in the last usable region: nothing above 1.3× the peak energy.
	energies := []float64{100, 200, 400}
	rates := []uncert.Value{uncert.V(1, 0.1), uncert.V(2, 0.1), uncert.V(50, 1)}
	if _, err := AlphaSpeed(c, energies, rates); err == nil {
		t.Error("Expected error when no steps lie above the alpha cutoff, got nil")
	}
}
