package cal

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/helio-data/sweep.report/internal/uncert"
)

// ResponseTable maps a single monotonically increasing axis (energy in
// eV/q) to an instrument sensitivity scalar such as a geometric factor.
// Queries exactly on a sampled energy return the stored value; queries
// between samples interpolate linearly; queries outside the sampled range
// fail with ErrOutOfRange rather than extrapolating.
type ResponseTable struct {
	energies []float64
	factors  []float64
	pl       interp.PiecewiseLinear
}

// NewResponseTable builds a ResponseTable from parallel energy/factor
// slices. Energies must be strictly increasing.
func NewResponseTable(energies, factors []float64) (*ResponseTable, error) {
	if len(energies) != len(factors) {
		return nil, fmt.Errorf("got %d energies for %d factors", len(energies), len(factors))
	}
	if len(energies) < 2 {
		return nil, fmt.Errorf("response table needs at least 2 samples, got %d", len(energies))
	}
	// interp.PiecewiseLinear.Fit panics on a non-increasing axis, so the
	// monotonicity contract is checked here first.
	for i := 1; i < len(energies); i++ {
		if energies[i] <= energies[i-1] {
			return nil, fmt.Errorf("response table axis must be strictly increasing: sample %d (%v) after %v",
				i, energies[i], energies[i-1])
		}
	}
	t := &ResponseTable{
		energies: append([]float64(nil), energies...),
		factors:  append([]float64(nil), factors...),
	}
	if err := t.pl.Fit(t.energies, t.factors); err != nil {
		return nil, fmt.Errorf("response table: %w", err)
	}
	return t, nil
}

// ReadResponseTable parses a two-column (energy, factor) text table.
func ReadResponseTable(r io.Reader) (*ResponseTable, error) {
	rows, err := ParseRows(r)
	if err != nil {
		return nil, err
	}
	energies := make([]float64, len(rows))
	factors := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("row %d: expected 2 columns, got %d", i, len(row))
		}
		energies[i] = row[0]
		factors[i] = row[1]
	}
	return NewResponseTable(energies, factors)
}

// Len returns the number of samples on the energy axis.
func (t *ResponseTable) Len() int { return len(t.energies) }

// Lookup returns the sensitivity factor at the given energy.
func (t *ResponseTable) Lookup(energy float64) (float64, error) {
	if math.IsNaN(energy) || energy < t.energies[0] || energy > t.energies[len(t.energies)-1] {
		return 0, fmt.Errorf("%w: energy %v outside [%v, %v]",
			ErrOutOfRange, energy, t.energies[0], t.energies[len(t.energies)-1])
	}
	return t.pl.Predict(energy), nil
}

// LookupWithUncertainty projects the energy uncertainty through the local
// interpolation slope.
func (t *ResponseTable) LookupWithUncertainty(energy uncert.Value) (uncert.Value, error) {
	n, err := t.Lookup(energy.Nominal)
	if err != nil {
		return uncert.Value{}, err
	}
	seg := sort.SearchFloat64s(t.energies, energy.Nominal)
	if seg > 0 {
		seg--
	}
	if seg == len(t.energies)-1 {
		seg--
	}
	slope := (t.factors[seg+1] - t.factors[seg]) / (t.energies[seg+1] - t.energies[seg])
	return uncert.Value{Nominal: n, StdDev: math.Abs(slope) * energy.StdDev}, nil
}

// LookupBatch applies Lookup element-wise.
func (t *ResponseTable) LookupBatch(energies []float64) ([]float64, error) {
	out := make([]float64, len(energies))
	for i, e := range energies {
		v, err := t.Lookup(e)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// EfficiencyTable maps epochs to the instrument detection efficiency in
// effect at that time. Efficiencies change at discrete recalibration
// boundaries, so the lookup is a step function: the entry with the latest
// epoch not after the query applies.
type EfficiencyTable struct {
	epochs       []time.Time
	efficiencies []float64
}

// NewEfficiencyTable builds an EfficiencyTable; epochs must be strictly
// increasing.
func NewEfficiencyTable(epochs []time.Time, efficiencies []float64) (*EfficiencyTable, error) {
	if len(epochs) != len(efficiencies) {
		return nil, fmt.Errorf("got %d epochs for %d efficiencies", len(epochs), len(efficiencies))
	}
	if len(epochs) == 0 {
		return nil, fmt.Errorf("efficiency table is empty")
	}
	for i := 1; i < len(epochs); i++ {
		if !epochs[i].After(epochs[i-1]) {
			return nil, fmt.Errorf("efficiency table epochs not increasing at entry %d", i)
		}
	}
	return &EfficiencyTable{
		epochs:       append([]time.Time(nil), epochs...),
		efficiencies: append([]float64(nil), efficiencies...),
	}, nil
}

// EfficiencyFor returns the efficiency in effect at the given epoch.
func (t *EfficiencyTable) EfficiencyFor(epoch time.Time) (float64, error) {
	if epoch.Before(t.epochs[0]) {
		return 0, fmt.Errorf("%w: epoch %v precedes first calibration %v",
			ErrOutOfRange, epoch, t.epochs[0])
	}
	idx := sort.Search(len(t.epochs), func(i int) bool { return t.epochs[i].After(epoch) }) - 1
	return t.efficiencies[idx], nil
}
