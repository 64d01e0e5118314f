// Package sweep defines the in-memory data model for instrument count-rate
// sweeps: one scan across the energy table, windows of consecutive sweeps,
// and the combined (averaged) sweeps used for distribution-function work.
// The package owns the input contract checks: sweeps with mismatched array
// lengths, non-positive energies or a non-monotonic energy table are
// rejected at construction rather than coerced downstream.
package sweep

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/units"
)

// Standard window sizes: moment fitting averages over 5 raw sweeps, the
// distribution-function products over 50.
const (
	MomentWindowSize = 5
	VDFWindowSize    = 50
)

// Epoch offsets applied when a window of sweeps collapses to one timestamp.
const (
	MomentEpochOffset = 30 * time.Second
	VDFEpochOffset    = 5 * time.Minute
)

var (
	// ErrEmptyWindow is returned when a window holds no sweeps.
	ErrEmptyWindow = errors.New("sweep window is empty")
	// ErrEnergyMismatch is returned when sweeps in one window do not share
	// the instrument energy table.
	ErrEnergyMismatch = errors.New("sweeps in window have differing energy tables")
)

// Sweep is one scan across the instrument's energy steps.
type Sweep struct {
	Epoch time.Time
	// Energies holds the energy-per-charge of each step in eV/q, in sweep
	// order (monotonic ascending or descending).
	Energies []float64
	// Rates holds the coincidence count rate with its counting uncertainty
	// at each step.
	Rates []uncert.Value
	// SpinAngles holds the spacecraft spin angle in degrees at which each
	// step was sampled.
	SpinAngles []float64
}

// New validates and builds a Sweep from raw arrays.
func New(epoch time.Time, energies, rates, rateUncertainties, spinAngles []float64) (Sweep, error) {
	if len(energies) == 0 {
		return Sweep{}, errors.New("sweep has no energy steps")
	}
	lengths := []int{len(energies), len(rates), len(rateUncertainties), len(spinAngles)}
	names := []string{"energy", "count_rate", "count_rate_uncertainty", "spin_angle"}
	if err := units.CheckSameLength(names, lengths); err != nil {
		return Sweep{}, err
	}
	for i, e := range energies {
		if e <= 0 {
			return Sweep{}, fmt.Errorf("non-positive energy %v at step %d", e, i)
		}
	}
	if !monotonic(energies) {
		return Sweep{}, errors.New("sweep energies are not monotonic")
	}
	return Sweep{
		Epoch:      epoch,
		Energies:   append([]float64(nil), energies...),
		Rates:      uncert.UArray(rates, rateUncertainties),
		SpinAngles: append([]float64(nil), spinAngles...),
	}, nil
}

func monotonic(xs []float64) bool {
	if len(xs) < 2 {
		return true
	}
	ascending := xs[1] > xs[0]
	for i := 1; i < len(xs); i++ {
		if ascending && xs[i] <= xs[i-1] {
			return false
		}
		if !ascending && xs[i] >= xs[i-1] {
			return false
		}
	}
	return true
}

// Window is a group of consecutive sweeps processed as one unit.
type Window []Sweep

// Windows slices sweeps into consecutive non-overlapping windows of the
// given size. A trailing partial window is dropped: downstream fits assume
// full statistics, and the original pipeline discards short tails the same
// way.
func Windows(sweeps []Sweep, size int) []Window {
	if size <= 0 {
		return nil
	}
	var out []Window
	for i := 0; i+size <= len(sweeps); i += size {
		out = append(out, Window(sweeps[i:i+size]))
	}
	return out
}

// Epoch returns the window's representative timestamp: the first sweep's
// epoch shifted by the given offset to the window centre.
func (w Window) Epoch(offset time.Duration) (time.Time, error) {
	if len(w) == 0 {
		return time.Time{}, ErrEmptyWindow
	}
	return w[0].Epoch.Add(offset), nil
}

// Combine averages the window's count rates per energy step, producing one
// combined sweep with reduced counting noise. All sweeps must share the
// energy table. The averaged uncertainty assumes independent counting noise
// between sweeps: σ = sqrt(Σσᵢ²)/N.
func (w Window) Combine() (energies []float64, rates []uncert.Value, err error) {
	if len(w) == 0 {
		return nil, nil, ErrEmptyWindow
	}
	steps := len(w[0].Energies)
	for _, s := range w[1:] {
		if len(s.Energies) != steps || !floats.Equal(s.Energies, w[0].Energies) {
			return nil, nil, ErrEnergyMismatch
		}
	}

	energies = append([]float64(nil), w[0].Energies...)
	rates = make([]uncert.Value, steps)
	n := float64(len(w))
	samples := make([]float64, len(w))
	for i := 0; i < steps; i++ {
		var varSum float64
		for k, s := range w {
			samples[k] = s.Rates[i].Nominal
			varSum += s.Rates[i].StdDev * s.Rates[i].StdDev
		}
		rates[i] = uncert.Value{
			Nominal: stat.Mean(samples, nil),
			StdDev:  math.Sqrt(varSum) / n,
		}
	}
	return energies, rates, nil
}

// AllPoints flattens the window into parallel energy, rate and spin-angle
// slices for joint fitting over every sample in the window.
func (w Window) AllPoints() (energies []float64, rates []uncert.Value, spinAngles []float64) {
	for _, s := range w {
		energies = append(energies, s.Energies...)
		rates = append(rates, s.Rates...)
		spinAngles = append(spinAngles, s.SpinAngles...)
	}
	return energies, rates, spinAngles
}
