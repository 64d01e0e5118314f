// Package pui implements the pickup-hydrogen forward model: the energy
// cutoff separating pickup ions from the solar-wind beam, extraction of the
// energy bins above that cutoff, and the analytic flux-density model
// integrated over the instrument's angular response. Frame conversions and
// spacecraft state come from an injected Ephemeris capability, so the model
// stays independent of any particular ephemeris backend.
package pui

import (
	"fmt"
	"math"
	"time"

	"github.com/helio-data/sweep.report/internal/cal"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/units"
)

// Reference frame names used by the model. The instrument frame is fixed to
// the sensor aperture; the ecliptic frame is the inertial frame the inflow
// vector and spacecraft state are expressed in.
const (
	FrameEcliptic   = "ECLIPJ2000"
	FrameInstrument = "INSTRUMENT"
)

// Ephemeris supplies spacecraft state and frame rotations at a given time.
// Positions are km, velocities km/s.
type Ephemeris interface {
	// State returns the spacecraft position and velocity relative to the Sun
	// in the named frame.
	State(epoch time.Time, frame string) (pos, vel [3]float64, err error)
	// Rotate re-expresses a vector from one named frame in another at the
	// given time.
	Rotate(v [3]float64, epoch time.Time, from, to string) ([3]float64, error)
}

// HydrogenInflowVelocity returns the interstellar neutral hydrogen flow
// velocity in the ecliptic frame: the gas streams inward from the upwind
// longitude/latitude direction.
func HydrogenInflowVelocity(c physics.Constants) [3]float64 {
	lon := units.DegToRad(c.HydrogenInflowLongitudeDeg)
	lat := units.DegToRad(c.HydrogenInflowLatitudeDeg)
	s := c.HydrogenInflowSpeedKmPerS
	return [3]float64{
		-s * math.Cos(lat) * math.Cos(lon),
		-s * math.Cos(lat) * math.Sin(lon),
		-s * math.Sin(lat),
	}
}

// EnergyCutoff computes the energy-per-charge below which the solar-wind
// beam dominates over pickup hydrogen. The cutoff follows from the pickup
// kinematics: a freshly ionized hydrogen atom can reach at most twice the
// solar-wind speed in the spacecraft frame, so
//
//	E_cut = ½ · (m_p/q_p) · (2·|v_sw − v_inflow − v_sc|)²
//
// with all velocities in the ecliptic frame. solarWindVelocity is the bulk
// solar-wind velocity in the instrument frame, as recovered by the moment
// fits.
func EnergyCutoff(c physics.Constants, eph Ephemeris, epoch time.Time, solarWindVelocity [3]float64) (float64, error) {
	swEcliptic, err := eph.Rotate(solarWindVelocity, epoch, FrameInstrument, FrameEcliptic)
	if err != nil {
		return 0, fmt.Errorf("solar-wind frame conversion: %w", err)
	}
	_, scVelocity, err := eph.State(epoch, FrameEcliptic)
	if err != nil {
		return 0, fmt.Errorf("spacecraft state: %w", err)
	}

	cutoffVector := units.VectorSub(units.VectorSub(swEcliptic, HydrogenInflowVelocity(c)), scVelocity)
	cutoffSpeedMPerS := 1000 * units.VectorNorm(cutoffVector)
	return 0.5 * (c.ProtonMassKg / c.ProtonChargeC) * (2 * cutoffSpeedMPerS) * (2 * cutoffSpeedMPerS), nil
}

// ExtractEnergyBins keeps the bins usable for pickup-ion work: energy above
// the cutoff and count rate above the instrument background. Returned
// slices preserve sweep order.
func ExtractEnergyBins(energies []float64, rates []uncert.Value, energyCutoff, backgroundRate float64) (binEnergies []float64, binRates []uncert.Value) {
	for i, e := range energies {
		if e > energyCutoff && rates[i].Nominal > backgroundRate {
			binEnergies = append(binEnergies, e)
			binRates = append(binRates, rates[i])
		}
	}
	return binEnergies, binRates
}

// FittingParameters are the free parameters of the pickup-hydrogen
// distribution model.
type FittingParameters struct {
	// CoolingIndex is the adiabatic cooling exponent of the pickup shell.
	CoolingIndex float64
	// IonizationRate is the neutral ionization rate at 1 AU in s⁻¹.
	IonizationRate float64
	// CutoffSpeed is the shell cutoff speed in km/s in the solar-wind frame.
	CutoffSpeed float64
	// BackgroundDensity is the neutral hydrogen reference density in cm⁻³.
	BackgroundDensity float64
}

// ForwardModel evaluates the pickup-hydrogen phase-space flux seen by the
// instrument for one window: the observation geometry is fixed by the epoch
// and the recovered solar-wind flow, the shape by FittingParameters.
type ForwardModel struct {
	Constants physics.Constants
	Ephemeris Ephemeris
	Epoch     time.Time
	// SolarWindSpeed is the bulk speed in km/s; SolarWindVelocity the bulk
	// velocity vector in the ecliptic frame.
	SolarWindSpeed    float64
	SolarWindVelocity [3]float64
}

// Flux evaluates the model flux density at one instrument look direction:
// an energy-per-charge in eV/q and a pointing given as colatitude and
// azimuth in degrees in the instrument frame.
//
// The incoming velocity is built from the pickup-proton speed for that
// energy, rotated into the ecliptic frame, and measured against the bulk
// solar-wind flow; the isotropic cooled-shell distribution then gives
//
//	F(w) = (α/4π) · (β·AU²)/(r·u_sw·v_c) · (w/v_c)^(α−3)   for w ≤ v_c
//
// and zero outside the shell (w > v_c).
func (m *ForwardModel) Flux(p FittingParameters, energyEV, colatitudeDeg, azimuthDeg float64) (float64, error) {
	if p.CutoffSpeed <= 0 {
		return 0, fmt.Errorf("non-positive cutoff speed %v km/s", p.CutoffSpeed)
	}
	if m.SolarWindSpeed <= 0 {
		return 0, fmt.Errorf("non-positive solar-wind speed %v km/s", m.SolarWindSpeed)
	}

	speed := 0.5 * units.SpeedForEnergy(energyEV, m.Constants.ProtonMassKg, m.Constants.ProtonChargeC)
	look := units.SphericalToRect(speed, colatitudeDeg, azimuthDeg)
	velocity, err := m.Ephemeris.Rotate(look, m.Epoch, FrameInstrument, FrameEcliptic)
	if err != nil {
		return 0, fmt.Errorf("look-direction frame conversion: %w", err)
	}
	w := units.VectorNorm(units.VectorSub(velocity, m.SolarWindVelocity))
	if w > p.CutoffSpeed {
		return 0, nil
	}

	pos, _, err := m.Ephemeris.State(m.Epoch, FrameEcliptic)
	if err != nil {
		return 0, fmt.Errorf("spacecraft state: %w", err)
	}
	rKm := units.VectorNorm(pos)
	if rKm <= 0 {
		return 0, fmt.Errorf("degenerate spacecraft position %v", pos)
	}

	au := m.Constants.OneAUKm
	norm := p.CoolingIndex / (4 * math.Pi) *
		p.IonizationRate * au * au / (rKm * m.SolarWindSpeed * p.CutoffSpeed)
	return p.BackgroundDensity * norm * math.Pow(w/p.CutoffSpeed, p.CoolingIndex-3), nil
}

// ResponseWeightedFlux integrates the model flux over the instrument's
// angular and energy acceptance, giving the effective flux for one energy
// step. Cells are weighted by their response, the solid-angle projection of
// their elevation and their integration widths:
//
//	⟨F⟩ = Σ F·resp·cos(90°−elev)·dE·dθ·dφ / Σ resp·cos(90°−elev)·dE·dθ·dφ
func (m *ForwardModel) ResponseWeightedFlux(p FittingParameters, table *cal.InstrumentResponseTable) (float64, error) {
	var numerator, denominator float64
	for i, row := range table.Rows {
		weight := row.Response *
			math.Cos(units.DegToRad(90-row.ElevationDeg)) *
			row.DEnergy * row.DElevation * row.DAzimuth
		flux, err := m.Flux(p, row.EnergyEV, 90-row.ElevationDeg, row.AzimuthDeg)
		if err != nil {
			return 0, fmt.Errorf("response cell %d: %w", i, err)
		}
		numerator += flux * weight
		denominator += weight
	}
	if denominator == 0 {
		return 0, fmt.Errorf("instrument response integrates to zero")
	}
	return numerator / denominator, nil
}
