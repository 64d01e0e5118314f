// Package vdf converts combined-sweep count rates into velocity
// distribution functions and differential particle flux. Each energy bin
// maps to a species velocity and a phase-space density; bins without signal
// are carried as NaN rather than dropped, so output arrays stay aligned
// with the instrument energy table.
package vdf

import (
	"fmt"
	"math"

	"github.com/helio-data/sweep.report/internal/cal"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/units"
)

// PhaseSpaceFactor is the instrument normalization of the phase-space
// density conversion for velocities in km/s and energies in eV/q:
//
//	f = PhaseSpaceFactor · E · R / (eff · G(E) · v⁴)
const PhaseSpaceFactor = 4.814847e-3

// Sample holds the distribution function of one species over one combined
// sweep: the per-bin species velocity and phase-space density. A bin with
// no usable signal has velocity 0 and NaN density.
type Sample struct {
	Velocities []float64      // km/s
	Densities  []uncert.Value // s³/km⁶ scaled by the instrument normalization
}

// speedScale returns the factor applied to the proton-equivalent speed for
// each species. Pickup hydrogen is singly charged at proton mass but is
// measured against the solar-wind frame, where the instrument convention
// halves the equivalent speed.
func speedScale(s physics.Species) float64 {
	if s == physics.PickupIon {
		return 0.5
	}
	return 1
}

// Compute builds the distribution function of one species from a combined
// sweep. Energies are in eV/q; rates carry counting uncertainties;
// efficiency is the detector efficiency in effect at the window epoch and
// factors the geometric-factor table. Bins with non-positive count rate
// yield velocity 0 and density NaN; bins with zero velocity yield NaN
// density. Both are data-domain conditions, not errors.
func Compute(c physics.Constants, s physics.Species, energies []float64, rates []uncert.Value, efficiency float64, factors *cal.ResponseTable) (Sample, error) {
	if len(energies) != len(rates) {
		return Sample{}, fmt.Errorf("got %d energies for %d rates", len(energies), len(rates))
	}
	if efficiency <= 0 {
		return Sample{}, fmt.Errorf("non-positive efficiency %v", efficiency)
	}

	mass, charge := c.Mass(s), c.Charge(s)
	scale := speedScale(s)

	out := Sample{
		Velocities: make([]float64, len(energies)),
		Densities:  make([]uncert.Value, len(energies)),
	}
	for i, e := range energies {
		if rates[i].Nominal <= 0 || e <= 0 {
			out.Velocities[i] = 0
			out.Densities[i] = uncert.Exact(math.NaN())
			continue
		}
		v := scale * units.SpeedForEnergy(e, mass, charge)
		out.Velocities[i] = v

		g, err := factors.LookupWithUncertainty(uncert.Exact(e))
		if err != nil {
			return Sample{}, fmt.Errorf("geometric factor at %v eV/q: %w", e, err)
		}
		numerator := rates[i].Scale(PhaseSpaceFactor * e)
		denominator := g.Scale(efficiency * v * v * v * v)
		out.Densities[i] = numerator.Div(denominator)
	}
	return out, nil
}

// ProtonVDF computes the proton distribution function.
func ProtonVDF(c physics.Constants, energies []float64, rates []uncert.Value, efficiency float64, factors *cal.ResponseTable) (Sample, error) {
	return Compute(c, physics.Proton, energies, rates, efficiency, factors)
}

// AlphaVDF computes the alpha-particle distribution function.
func AlphaVDF(c physics.Constants, energies []float64, rates []uncert.Value, efficiency float64, factors *cal.ResponseTable) (Sample, error) {
	return Compute(c, physics.Alpha, energies, rates, efficiency, factors)
}

// PickupIonVDF computes the pickup-hydrogen distribution function.
func PickupIonVDF(c physics.Constants, energies []float64, rates []uncert.Value, efficiency float64, factors *cal.ResponseTable) (Sample, error) {
	return Compute(c, physics.PickupIon, energies, rates, efficiency, factors)
}

// DifferentialFlux converts a combined sweep to differential particle flux
// per energy bin:
//
//	j = R / (eff · G(E) · E)
//
// The no-signal policy matches Compute: non-positive rate or energy yields
// NaN for that bin.
func DifferentialFlux(energies []float64, rates []uncert.Value, efficiency float64, factors *cal.ResponseTable) ([]uncert.Value, error) {
	if len(energies) != len(rates) {
		return nil, fmt.Errorf("got %d energies for %d rates", len(energies), len(rates))
	}
	if efficiency <= 0 {
		return nil, fmt.Errorf("non-positive efficiency %v", efficiency)
	}

	out := make([]uncert.Value, len(energies))
	for i, e := range energies {
		if rates[i].Nominal <= 0 || e <= 0 {
			out[i] = uncert.Exact(math.NaN())
			continue
		}
		g, err := factors.LookupWithUncertainty(uncert.Exact(e))
		if err != nil {
			return nil, fmt.Errorf("geometric factor at %v eV/q: %w", e, err)
		}
		out[i] = rates[i].Div(g.Scale(efficiency * e))
	}
	return out, nil
}

// Deltas are half-gap bin widths for plotting and archiving: the distance
// from each sample to the midpoint of its neighbours, with the edge gaps
// replicated outward.
type Deltas struct {
	Minus []float64
	Plus  []float64
}

// DeltaMinusPlus computes half-gap bin widths for a sample axis.
func DeltaMinusPlus(values []float64) Deltas {
	n := len(values)
	d := Deltas{Minus: make([]float64, n), Plus: make([]float64, n)}
	if n < 2 {
		return d
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			d.Minus[i] = math.Abs(values[i]-values[i-1]) / 2
		}
		if i < n-1 {
			d.Plus[i] = math.Abs(values[i+1]-values[i]) / 2
		}
	}
	d.Minus[0] = d.Plus[0]
	d.Plus[n-1] = d.Minus[n-1]
	return d
}
