// Package units provides unit conversions shared across the sweep-inversion
// pipeline: energy-per-charge to speed, eV/Joule conversions, and angle
// normalisation helpers. All sweep energies are expressed in eV per charge
// and all speeds in km/s unless a function says otherwise.
package units

import (
	"fmt"
	"math"
)

// ElementaryChargeC is the elementary charge in Coulombs (CODATA 2018 exact).
const ElementaryChargeC = 1.602176634e-19

// EVToJoules converts an energy in electron-volts to Joules.
func EVToJoules(ev float64) float64 {
	return ev * ElementaryChargeC
}

// JoulesToEV converts an energy in Joules to electron-volts.
func JoulesToEV(j float64) float64 {
	return j / ElementaryChargeC
}

// SpeedForEnergy returns the speed in km/s of a particle with the given
// energy-per-charge (eV/q), mass (kg) and charge (C):
//
//	v = sqrt(2 · q · E / m)
//
// Energies must be strictly positive; that contract is owned by the caller
// (upstream data validation), so this function does not re-check it.
func SpeedForEnergy(evPerQ, massKg, chargeC float64) float64 {
	return math.Sqrt(2*chargeC*evPerQ/massKg) / 1000.0
}

// EnergyForSpeed is the inverse of SpeedForEnergy: given a speed in km/s it
// returns the energy-per-charge in eV/q.
func EnergyForSpeed(speedKmPerS, massKg, chargeC float64) float64 {
	v := speedKmPerS * 1000.0
	return massKg * v * v / (2 * chargeC)
}

// NormalizeAngle reduces an angle in degrees to the range [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// SphericalToRect converts spherical coordinates (radius, colatitude and
// azimuth in degrees) to a rectangular vector, following the convention of
// ephemeris toolkits: x = r·sinθ·cosφ, y = r·sinθ·sinφ, z = r·cosθ.
func SphericalToRect(r, colatDeg, azimuthDeg float64) [3]float64 {
	theta := DegToRad(colatDeg)
	phi := DegToRad(azimuthDeg)
	return [3]float64{
		r * math.Sin(theta) * math.Cos(phi),
		r * math.Sin(theta) * math.Sin(phi),
		r * math.Cos(theta),
	}
}

// VectorNorm returns the Euclidean norm of a 3-vector.
func VectorNorm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// VectorSub returns a - b.
func VectorSub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// VectorAdd returns a + b.
func VectorAdd(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// CheckSameLength validates that all supplied slices share one length.
// It returns a descriptive error naming the first mismatched slice so input
// contract violations surface immediately rather than as index panics.
func CheckSameLength(names []string, lengths []int) error {
	if len(lengths) == 0 {
		return nil
	}
	want := lengths[0]
	for i, n := range lengths {
		if n != want {
			return fmt.Errorf("array length mismatch: %s has %d elements, %s has %d",
				names[0], want, names[i], n)
		}
	}
	return nil
}
