// Package pipeline drives the inversion over time-ordered sweep windows:
// the moment pass fits proton and alpha parameters per five-sweep window,
// the distribution pass builds per-species VDFs and differential flux per
// fifty-sweep window. The drivers stay array-in/array-out; a window that
// fails to invert is recorded and skipped, never silently dropped and never
// fatal to the run.
package pipeline

import (
	"time"

	"github.com/helio-data/sweep.report/internal/cal"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/sweep"
	"github.com/helio-data/sweep.report/internal/swind"
	"github.com/helio-data/sweep.report/internal/uncert"
	"github.com/helio-data/sweep.report/internal/vdf"
)

// L3aTables bundles the calibration tables of the moment pass.
type L3aTables struct {
	Protons *swind.ProtonTable
	Alphas  *swind.AlphaTable
	Angles  *swind.AngleTable
}

// L3aRecord is the inverted output of one moment window.
type L3aRecord struct {
	Epoch  time.Time
	Proton *swind.ProtonResult
	Alpha  *swind.AlphaResult
}

// SkippedWindow records a window the driver could not invert, with the
// failure that caused the skip.
type SkippedWindow struct {
	Index int
	Epoch time.Time
	Err   error
}

// L3aOutput holds the moment-pass results in input window order.
type L3aOutput struct {
	Records []L3aRecord
	Skipped []SkippedWindow
}

// ProcessL3a runs the moment pass over time-ordered sweeps. Sweeps are
// windowed in fives; a trailing partial window is dropped. Windows whose
// fits do not converge, or whose fitted values fall outside the calibration
// grids, are recorded in Skipped and processing continues.
func ProcessL3a(c physics.Constants, tables L3aTables, sweeps []sweep.Sweep) *L3aOutput {
	out := &L3aOutput{}
	for i, w := range sweep.Windows(sweeps, sweep.MomentWindowSize) {
		epoch, err := w.Epoch(sweep.MomentEpochOffset)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedWindow{Index: i, Err: err})
			continue
		}

		proton, err := swind.ProtonParameters(c, tables.Protons, tables.Angles, w)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedWindow{Index: i, Epoch: epoch, Err: err})
			continue
		}
		alpha, err := swind.AlphaParameters(c, tables.Alphas, w)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedWindow{Index: i, Epoch: epoch, Err: err})
			continue
		}

		out.Records = append(out.Records, L3aRecord{Epoch: epoch, Proton: proton, Alpha: alpha})
	}
	return out
}

// VDFTables bundles the calibration tables of the distribution pass.
type VDFTables struct {
	GeometricFactors *cal.ResponseTable
	Efficiencies     *cal.EfficiencyTable
}

// VDFRecord is the distribution output of one combined window: per-species
// velocity/density samples with plotting deltas, and the combined
// differential flux over the shared energy table.
type VDFRecord struct {
	Epoch time.Time

	Energies     []float64
	EnergyDeltas vdf.Deltas

	Proton          vdf.Sample
	ProtonDeltas    vdf.Deltas
	Alpha           vdf.Sample
	AlphaDeltas     vdf.Deltas
	PickupIon       vdf.Sample
	PickupIonDeltas vdf.Deltas

	DifferentialFlux []uncert.Value
}

// VDFOutput holds the distribution-pass results in input window order.
type VDFOutput struct {
	Records []VDFRecord
	Skipped []SkippedWindow
}

// ProcessVDF runs the distribution pass over time-ordered sweeps, windowed
// in fifties. Each window is averaged into one combined sweep before
// conversion; the detection efficiency is resolved at the window epoch.
func ProcessVDF(c physics.Constants, tables VDFTables, sweeps []sweep.Sweep) *VDFOutput {
	out := &VDFOutput{}
	for i, w := range sweep.Windows(sweeps, sweep.VDFWindowSize) {
		epoch, err := w.Epoch(sweep.VDFEpochOffset)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedWindow{Index: i, Err: err})
			continue
		}

		record, err := processVDFWindow(c, tables, epoch, w)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedWindow{Index: i, Epoch: epoch, Err: err})
			continue
		}
		out.Records = append(out.Records, *record)
	}
	return out
}

func processVDFWindow(c physics.Constants, tables VDFTables, epoch time.Time, w sweep.Window) (*VDFRecord, error) {
	energies, rates, err := w.Combine()
	if err != nil {
		return nil, err
	}
	efficiency, err := tables.Efficiencies.EfficiencyFor(epoch)
	if err != nil {
		return nil, err
	}

	record := &VDFRecord{
		Epoch:        epoch,
		Energies:     energies,
		EnergyDeltas: vdf.DeltaMinusPlus(energies),
	}
	if record.Proton, err = vdf.ProtonVDF(c, energies, rates, efficiency, tables.GeometricFactors); err != nil {
		return nil, err
	}
	if record.Alpha, err = vdf.AlphaVDF(c, energies, rates, efficiency, tables.GeometricFactors); err != nil {
		return nil, err
	}
	if record.PickupIon, err = vdf.PickupIonVDF(c, energies, rates, efficiency, tables.GeometricFactors); err != nil {
		return nil, err
	}
	if record.DifferentialFlux, err = vdf.DifferentialFlux(energies, rates, efficiency, tables.GeometricFactors); err != nil {
		return nil, err
	}
	record.ProtonDeltas = vdf.DeltaMinusPlus(record.Proton.Velocities)
	record.AlphaDeltas = vdf.DeltaMinusPlus(record.Alpha.Velocities)
	record.PickupIonDeltas = vdf.DeltaMinusPlus(record.PickupIon.Velocities)
	return record, nil
}
