// Package model implements the analytic count-rate forward model: the
// expected coincidence count rate at each energy step for a drifting
// Maxwellian plasma observed through the instrument's energy passband.
// The model is a pure function of its numeric inputs and is smooth in
// density, temperature and bulk speed so it can drive nonlinear least
// squares.
package model

import (
	"math"

	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/units"
)

// CountRate evaluates the forward model for one species at each energy
// step:
//
//	R(E) = R_bg + n · A_eff · (ΔE/E) · v(E)⁴ · (m/2πkT)^(3/2) · exp(−m(v−u)²/2kT)
//
// with v(E) = sqrt(2qE/m) the energy-step speed, n the density in cm⁻³
// (converted to m⁻³ internally), T the temperature in K and u the bulk
// speed in km/s. R_bg is the fixed instrument noise floor; it is part of
// the model, not a fitted parameter, so low-rate tails do not bias fits.
//
// Every factor is positive for physical inputs, so the returned rates are
// always ≥ R_bg; a negative rate would indicate a modelling bug, not a
// runtime condition.
func CountRate(c physics.Constants, s physics.Species, energies []float64, densityPerCm3, temperatureK, speedKmPerS float64) []float64 {
	out := make([]float64, len(energies))
	for i, e := range energies {
		out[i] = CountRateAt(c, s, e, densityPerCm3, temperatureK, speedKmPerS)
	}
	return out
}

// CountRateAt evaluates the forward model at a single energy step. It is
// the hot path of the temperature/density fit.
func CountRateAt(c physics.Constants, s physics.Species, energyEV, densityPerCm3, temperatureK, speedKmPerS float64) float64 {
	mass := c.Mass(s)
	charge := c.Charge(s)

	nPerM3 := densityPerCm3 * 1e6
	uMPerS := speedKmPerS * 1000
	kt := c.BoltzmannJPerK * temperatureK
	norm := math.Pow(mass/(2*math.Pi*kt), 1.5)
	amplitude := nPerM3 * c.EffectiveArea * c.EnergyPassband * norm

	v := units.SpeedForEnergy(energyEV, mass, charge) * 1000
	dv := v - uMPerS
	return c.BackgroundCountRate + amplitude*v*v*v*v*math.Exp(-mass*dv*dv/(2*kt))
}

// ProtonCountRate is CountRate for protons.
func ProtonCountRate(c physics.Constants, energies []float64, densityPerCm3, temperatureK, speedKmPerS float64) []float64 {
	return CountRate(c, physics.Proton, energies, densityPerCm3, temperatureK, speedKmPerS)
}

// AlphaCountRate is CountRate for alpha particles. Energies remain in eV
// per charge; the doubled alpha charge and quadrupled mass enter through
// the species constants.
func AlphaCountRate(c physics.Constants, energies []float64, densityPerCm3, temperatureK, speedKmPerS float64) []float64 {
	return CountRate(c, physics.Alpha, energies, densityPerCm3, temperatureK, speedKmPerS)
}

// SynthesizeUncertainties returns Poisson-style counting uncertainties for
// model-generated rates, used by round-trip tests and simulation tooling:
// σ = sqrt(R) with a floor at the background level so zero-signal bins
// still carry weight.
func SynthesizeUncertainties(c physics.Constants, rates []float64) []float64 {
	out := make([]float64, len(rates))
	for i, r := range rates {
		out[i] = math.Max(math.Sqrt(math.Abs(r)), c.BackgroundCountRate)
	}
	return out
}
