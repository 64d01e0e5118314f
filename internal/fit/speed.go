package fit

import (
	"fmt"
	"math"

	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/sweep"
	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/units"
)

// SpeedResult holds the spin-harmonic fit for one window: the bulk speed
// and the harmonic coefficients of the peak-energy curve
//
//	E_peak(φ) = a·sin(φ + phi) + b
//
// with φ the spin angle. All four quantities derive from one least-squares
// solve and are carried jointly in Params (members "a", "phi", "b",
// "speed") so downstream angle formulas see their full covariance.
type SpeedResult struct {
	Speed uncert.Value
	A     uncert.Value
	Phi   uncert.Value
	B     uncert.Value

	Params *uncert.Correlated
}

// ProtonSpeed fits the spin-angle harmonic to a window of sweeps and
// converts its mean term to the proton bulk speed.
//
// Each sweep contributes one (spin angle, peak energy) sample: the peak
// energy is refined by a log-parabola through the three samples around the
// maximum count rate, which also supplies the sample's uncertainty. The
// harmonic fit then runs as weighted least squares over those samples.
func ProtonSpeed(c physics.Constants, w sweep.Window) (*SpeedResult, error) {
	if len(w) < 3 {
		return nil, fmt.Errorf("speed fit needs at least 3 sweeps, got %d", len(w))
	}

	angles := make([]float64, len(w))
	peaks := make([]float64, len(w))
	sigmas := make([]float64, len(w))
	for i, s := range w {
		angle, peak, err := peakEnergy(s)
		if err != nil {
			return nil, fmt.Errorf("sweep %d: %w", i, err)
		}
		angles[i] = angle
		peaks[i] = peak.Nominal
		sigmas[i] = peak.StdDev
	}

	// Fixed initial guess: mean level for b, half the spread for a, zero
	// phase.
	var sum, lo, hi float64
	lo, hi = peaks[0], peaks[0]
	for _, pk := range peaks {
		sum += pk
		lo = math.Min(lo, pk)
		hi = math.Max(hi, pk)
	}
	initial := []float64{math.Max((hi-lo)/2, 1), 0, sum / float64(len(peaks))}

	res, err := Curve(Problem{
		X:     angles,
		Y:     peaks,
		Sigma: sigmas,
		Model: func(p []float64, x float64) float64 {
			return p[0]*math.Sin(units.DegToRad(x)+p[1]) + p[2]
		},
	}, initial)
	if err != nil {
		return nil, fmt.Errorf("harmonic speed fit: %w", err)
	}

	base, err := uncert.NewCorrelated([]string{"a", "phi", "b"}, res.Params, res.Cov)
	if err != nil {
		return nil, err
	}
	mass, charge := c.Mass(physics.Proton), c.Charge(physics.Proton)
	params, err := base.Propagate(
		[]string{"a", "phi", "b", "speed"},
		[]func(x []float64) float64{
			func(x []float64) float64 { return x[0] },
			func(x []float64) float64 { return x[1] },
			func(x []float64) float64 { return x[2] },
			func(x []float64) float64 { return units.SpeedForEnergy(x[2], mass, charge) },
		},
	)
	if err != nil {
		return nil, err
	}

	out := &SpeedResult{Params: params}
	if out.A, err = params.At("a"); err != nil {
		return nil, err
	}
	if out.Phi, err = params.At("phi"); err != nil {
		return nil, err
	}
	if out.B, err = params.At("b"); err != nil {
		return nil, err
	}
	if out.Speed, err = params.At("speed"); err != nil {
		return nil, err
	}
	return out, nil
}

// AlphaSpeed estimates the alpha-particle bulk speed from a combined sweep.
// Alphas appear as a secondary peak above roughly twice the proton peak
// energy-per-charge; the peak is refined with the same log-parabola used
// for protons and converted with the alpha mass and charge.
func AlphaSpeed(c physics.Constants, energies []float64, rates []uncert.Value) (uncert.Value, error) {
	if len(energies) != len(rates) {
		return uncert.Value{}, fmt.Errorf("got %d energies for %d rates", len(energies), len(rates))
	}
	protonPeak := argmaxRate(rates)
	protonEnergy := energies[protonPeak]

	// Search above 1.3× the proton peak energy so the proton Maxwellian
	// tail cannot win.
	alphaPeak := -1
	for i := range energies {
		if energies[i] > 1.3*protonEnergy {
			if alphaPeak < 0 || rates[i].Nominal > rates[alphaPeak].Nominal {
				alphaPeak = i
			}
		}
	}
	if alphaPeak < 0 {
		return uncert.Value{}, fmt.Errorf("no energy steps above alpha cutoff %v eV/q", 1.3*protonEnergy)
	}

	peak, err := refinePeak(energies, rates, alphaPeak)
	if err != nil {
		return uncert.Value{}, fmt.Errorf("alpha peak: %w", err)
	}

	mass, charge := c.Mass(physics.Alpha), c.Charge(physics.Alpha)
	return peak.Apply(
		func(e float64) float64 { return units.SpeedForEnergy(e, mass, charge) },
		func(e float64) float64 {
			// d/dE sqrt(2qE/m)/1000 = v/(2E)
			return units.SpeedForEnergy(e, mass, charge) / (2 * e)
		},
	), nil
}

// peakEnergy locates the count-rate peak of one sweep and returns the spin
// angle at the peak step together with the log-parabola-refined peak
// energy.
func peakEnergy(s sweep.Sweep) (angle float64, peak uncert.Value, err error) {
	idx := argmaxRate(s.Rates)
	peak, err = refinePeak(s.Energies, s.Rates, idx)
	if err != nil {
		return 0, uncert.Value{}, err
	}
	return units.NormalizeAngle(s.SpinAngles[idx]), peak, nil
}

func argmaxRate(rates []uncert.Value) int {
	peak := 0
	for i, r := range rates {
		if r.Nominal > rates[peak].Nominal {
			peak = i
		}
	}
	return peak
}

// refinePeak fits a parabola in (ln E, ln R) through the peak step and its
// two neighbours and returns the vertex energy. The vertex uncertainty
// comes from projecting the three rate uncertainties through the analytic
// vertex formula, keeping the shared middle sample's contribution exact.
func refinePeak(energies []float64, rates []uncert.Value, idx int) (uncert.Value, error) {
	if idx == 0 || idx == len(energies)-1 {
		return uncert.Value{}, fmt.Errorf("count-rate peak at sweep boundary (step %d)", idx)
	}
	for _, r := range rates[idx-1 : idx+2] {
		if r.Nominal <= 0 {
			return uncert.Value{}, fmt.Errorf("non-positive count rate adjacent to peak")
		}
	}

	x := []float64{math.Log(energies[idx-1]), math.Log(energies[idx]), math.Log(energies[idx+1])}
	vertex := func(y []float64) float64 {
		d1 := (y[1] - y[0]) / (x[1] - x[0])
		d2 := (y[2] - y[1]) / (x[2] - x[1])
		alpha := (d2 - d1) / (x[2] - x[0])
		beta := d1 - alpha*(x[0]+x[1])
		return math.Exp(-beta / (2 * alpha))
	}

	y := make([]float64, 3)
	var variance float64
	for i := 0; i < 3; i++ {
		y[i] = math.Log(rates[idx-1+i].Nominal)
	}
	nominal := vertex(y)
	if math.IsNaN(nominal) || math.IsInf(nominal, 0) {
		return uncert.Value{}, fmt.Errorf("degenerate parabola at peak (flat count rates)")
	}
	grad := uncert.Gradient(vertex, y)
	for i := 0; i < 3; i++ {
		// σ_lnR = σ_R / R
		s := grad[i] * rates[idx-1+i].StdDev / rates[idx-1+i].Nominal
		variance += s * s
	}
	return uncert.V(nominal, math.Sqrt(variance)), nil
}
