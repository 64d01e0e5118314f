// Package swind recovers the bulk solar-wind parameters of one sweep
// window: proton and alpha speed, temperature and density, and the proton
// flow direction as clock and deflection angles. It composes the fitters in
// internal/fit with the calibration grids, keeping the fit covariance alive
// through the angle formulas and projecting lookup inputs through the grid
// slopes.
package swind

import (
	"fmt"
	"math"

	"github.com/helio-data/sweep.report/internal/fit"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/sweep"
	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/units"
)

// DeflectionPrior is the fixed flow-deflection estimate fed into the proton
// temperature/density correction. The deflection is not observable from a
// single-look sweep, so the correction runs at the nominal pointing with a
// wide uncertainty.
var DeflectionPrior = uncert.V(0.01, 1.0)

// ProtonResult holds the calibrated proton parameters of one window.
type ProtonResult struct {
	Speed           uncert.Value // km/s
	Density         uncert.Value // cm⁻³
	Temperature     uncert.Value // K
	ClockAngle      uncert.Value // degrees in [0, 360)
	DeflectionAngle uncert.Value // degrees
}

// AlphaResult holds the calibrated alpha-particle parameters of one window.
type AlphaResult struct {
	Speed       uncert.Value // km/s
	Density     uncert.Value // cm⁻³
	Temperature uncert.Value // K
}

// RawAngles derives the uncalibrated flow direction from the harmonic
// coefficients of a speed fit: the clock angle is the harmonic phase mapped
// onto the spin convention, the deflection angle the tilt of the peak-energy
// modulation against its mean level,
//
//	clock_raw      = phi (degrees, normalized)
//	deflection_raw = atan2(a, b) (degrees)
//
// Both are propagated jointly from the fit covariance, so shared dependence
// on a and b survives into the calibration lookup.
func RawAngles(speedFit *fit.SpeedResult) (clockRaw, deflectionRaw uncert.Value, err error) {
	p := speedFit.Params
	ai, phii, bi := p.Index("a"), p.Index("phi"), p.Index("b")
	if ai < 0 || phii < 0 || bi < 0 {
		return uncert.Value{}, uncert.Value{}, fmt.Errorf("speed fit parameters missing harmonic coefficients")
	}
	raw, err := p.Propagate(
		[]string{"clock_raw", "deflection_raw"},
		[]func(x []float64) float64{
			func(x []float64) float64 { return units.RadToDeg(x[phii]) },
			func(x []float64) float64 { return units.RadToDeg(math.Atan2(x[ai], x[bi])) },
		},
	)
	if err != nil {
		return uncert.Value{}, uncert.Value{}, err
	}
	if clockRaw, err = raw.At("clock_raw"); err != nil {
		return uncert.Value{}, uncert.Value{}, err
	}
	if deflectionRaw, err = raw.At("deflection_raw"); err != nil {
		return uncert.Value{}, uncert.Value{}, err
	}
	clockRaw.Nominal = units.NormalizeAngle(clockRaw.Nominal)
	return clockRaw, deflectionRaw, nil
}

// ClockAndDeflection calibrates the raw flow direction from RawAngles: the
// angle grid maps (speed, raw deflection) to a clock offset and the true
// flow deflection, and the final clock angle is the raw phase plus that
// offset, normalized.
func ClockAndDeflection(table *AngleTable, speed, clockRaw, deflectionRaw uncert.Value) (clock, deflection uncert.Value, err error) {
	offset, deflection, err := table.Lookup(speed, deflectionRaw)
	if err != nil {
		return uncert.Value{}, uncert.Value{}, fmt.Errorf("clock/deflection lookup: %w", err)
	}
	clock = clockRaw.Add(offset)
	clock.Nominal = units.NormalizeAngle(clock.Nominal)
	return clock, deflection, nil
}

// ProtonParameters recovers the full proton parameter set from one moment
// window: the spin-harmonic speed fit, the temperature/density fit over
// every sample in the window, the grid correction of both thermal
// parameters, and the calibrated flow angles.
func ProtonParameters(c physics.Constants, protons *ProtonTable, angles *AngleTable, w sweep.Window) (*ProtonResult, error) {
	speedFit, err := fit.ProtonSpeed(c, w)
	if err != nil {
		return nil, err
	}

	energies, rates, _ := w.AllPoints()
	td, err := fit.TempDensity(c, physics.Proton, energies, rates, speedFit.Speed.Nominal)
	if err != nil {
		return nil, err
	}

	clockRaw, deflectionRaw, err := RawAngles(speedFit)
	if err != nil {
		return nil, err
	}
	clock, deflection, err := ClockAndDeflection(angles, speedFit.Speed, clockRaw, deflectionRaw)
	if err != nil {
		return nil, err
	}

	density, temperature, err := protons.Lookup(
		speedFit.Speed, DeflectionPrior, clockRaw, td.Density, td.Temperature)
	if err != nil {
		return nil, fmt.Errorf("proton temperature/density correction: %w", err)
	}

	return &ProtonResult{
		Speed:           speedFit.Speed,
		Density:         density,
		Temperature:     temperature,
		ClockAngle:      clock,
		DeflectionAngle: deflection,
	}, nil
}

// AlphaParameters recovers the alpha-particle parameter set from one moment
// window. Alphas are too sparse for per-sweep statistics, so the window is
// first combined into one averaged sweep.
func AlphaParameters(c physics.Constants, alphas *AlphaTable, w sweep.Window) (*AlphaResult, error) {
	energies, rates, err := w.Combine()
	if err != nil {
		return nil, err
	}

	speed, err := fit.AlphaSpeed(c, energies, rates)
	if err != nil {
		return nil, err
	}
	td, err := fit.TempDensity(c, physics.Alpha, energies, rates, speed.Nominal)
	if err != nil {
		return nil, err
	}

	density, temperature, err := alphas.Lookup(speed, td.Density, td.Temperature)
	if err != nil {
		return nil, fmt.Errorf("alpha temperature/density correction: %w", err)
	}

	return &AlphaResult{
		Speed:       speed,
		Density:     density,
		Temperature: temperature,
	}, nil
}
