package units

import (
	"math"
	"testing"
)

func TestSpeedForEnergy(t *testing.T) {
	const protonMass = 1.67262192595e-27

	testCases := []struct {
		name     string
		evPerQ   float64
		massKg   float64
		chargeC  float64
		expected float64
	}{
		// Reference values from the instrument calibration worksheet: a
		// 1000 eV proton moves at 437.6947142244463 km/s.
		{"proton_1000ev", 1000, protonMass, ElementaryChargeC, 437.6947142244463},
		{"proton_750ev", 750, protonMass, ElementaryChargeC, 379.05474162054054},
		{"proton_500ev", 500, protonMass, ElementaryChargeC, 309.496900517614},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SpeedForEnergy(tc.evPerQ, tc.massKg, tc.chargeC)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Expected %v km/s, got %v", tc.expected, got)
			}
		})
	}
}

func TestEnergyForSpeedRoundTrip(t *testing.T) {
	const protonMass = 1.67262192595e-27
	for _, ev := range []float64{100, 543.2, 1000, 19000} {
		speed := SpeedForEnergy(ev, protonMass, ElementaryChargeC)
		back := EnergyForSpeed(speed, protonMass, ElementaryChargeC)
		if math.Abs(back-ev) > 1e-9*ev {
			t.Errorf("Round trip failed for %v eV: got %v", ev, back)
		}
	}
}

func TestNormalizeAngle(t *testing.T) {
	testCases := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"zero", 0, 0},
		{"in_range", 123.4, 123.4},
		{"exactly_360", 360, 0},
		{"above_360", 450, 90},
		{"negative", -90, 270},
		{"large_negative", -720.5, 359.5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeAngle(tc.input)
			if math.Abs(got-tc.expected) > 1e-12 {
				t.Errorf("NormalizeAngle(%v): expected %v, got %v", tc.input, tc.expected, got)
			}
		})
	}
}

func TestSphericalToRect(t *testing.T) {
	// Colatitude 90°, azimuth 0° points along +x.
	v := SphericalToRect(2, 90, 0)
	if math.Abs(v[0]-2) > 1e-12 || math.Abs(v[1]) > 1e-12 || math.Abs(v[2]) > 1e-12 {
		t.Errorf("Expected [2 0 0], got %v", v)
	}

	// Colatitude 0° points along +z regardless of azimuth.
	v = SphericalToRect(3, 0, -149)
	if math.Abs(v[2]-3) > 1e-12 {
		t.Errorf("Expected z=3, got %v", v)
	}

	if norm := VectorNorm(SphericalToRect(45.6787, 88.3, -149)); math.Abs(norm-45.6787) > 1e-9 {
		t.Errorf("Norm not preserved: got %v", norm)
	}
}

func TestCheckSameLength(t *testing.T) {
	if err := CheckSameLength([]string{"a", "b"}, []int{3, 3}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := CheckSameLength([]string{"energy", "count_rate"}, []int{62, 61}); err == nil {
		t.Error("Expected error for mismatched lengths, got nil")
	}
}
