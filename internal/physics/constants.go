// Package physics holds the physical and instrument constants used by the
// inversion engine. Constants are carried in an immutable value passed to
// the components that need them rather than as package-level mutable state,
// so a processing run can be pinned to one consistent set.
package physics

// Species identifies the particle population a computation applies to.
type Species int

const (
	Proton Species = iota
	Alpha
	PickupIon
)

// String returns the species name used in output labelling.
func (s Species) String() string {
	switch s {
	case Proton:
		return "proton"
	case Alpha:
		return "alpha"
	case PickupIon:
		return "pui"
	default:
		return "unknown"
	}
}

// Constants collects the physical constants and fixed instrument parameters
// for one processing run.
type Constants struct {
	// Particle properties (SI).
	ProtonMassKg  float64
	ProtonChargeC float64
	AlphaMassKg   float64
	AlphaChargeC  float64

	// Boltzmann constant in J/K.
	BoltzmannJPerK float64

	// One astronomical unit in km.
	OneAUKm float64

	// Interstellar hydrogen inflow in the ecliptic inertial frame.
	// Longitude/latitude are degrees; speed is km/s.
	HydrogenInflowSpeedKmPerS  float64
	HydrogenInflowLongitudeDeg float64
	HydrogenInflowLatitudeDeg  float64

	// Instrument-level fixed terms. BackgroundCountRate is the constant
	// noise floor folded into the count-rate forward model and used as the
	// pickup-ion detection threshold; it is not fitted per sweep.
	BackgroundCountRate float64
	// EnergyPassband is the instrument ΔE/E of one energy step.
	EnergyPassband float64
	// EffectiveArea is the model normalisation in m²·sr, chosen so that
	// typical solar-wind densities land in the instrument's observed
	// count-rate range.
	EffectiveArea float64
}

// Default returns the constants used for flight processing.
func Default() Constants {
	return Constants{
		// CODATA 2022 masses; the calibration reference velocities were
		// produced with these values and the exact elementary charge.
		ProtonMassKg:  1.67262192595e-27,
		ProtonChargeC: 1.602176634e-19,
		AlphaMassKg:   6.6446573450e-27,
		AlphaChargeC:  2 * 1.602176634e-19,

		BoltzmannJPerK: 1.380649e-23,
		OneAUKm:        1.496e8,

		HydrogenInflowSpeedKmPerS:  26.0,
		HydrogenInflowLongitudeDeg: 255.7,
		HydrogenInflowLatitudeDeg:  5.1,

		BackgroundCountRate: 0.1,
		EnergyPassband:      0.085,
		EffectiveArea:       3.3e-10,
	}
}

// Mass returns the mass in kg for the given species. Pickup hydrogen shares
// the proton mass.
func (c Constants) Mass(s Species) float64 {
	if s == Alpha {
		return c.AlphaMassKg
	}
	return c.ProtonMassKg
}

// Charge returns the charge in Coulombs for the given species.
func (c Constants) Charge(s Species) float64 {
	if s == Alpha {
		return c.AlphaChargeC
	}
	return c.ProtonChargeC
}
