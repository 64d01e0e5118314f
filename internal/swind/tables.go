package swind

import (
	"fmt"
	"io"

	"github.com/helio-data/sweep.report/internal/cal"
	"github.com/helio-data/sweep.report/internal/uncert"
)

// ProtonTable corrects fitted proton density and temperature through the
// instrument calibration grid. Rows carry
//
//	speed  deflection  clock  density_in  density_out  temp_in  temp_out
//
// so the grid has five axes (columns 0, 1, 2, 3, 5) and two outputs
// (columns 4 and 6).
type ProtonTable struct {
	grid *cal.GridTable
}

// NewProtonTable builds the correction grid from parsed calibration rows.
func NewProtonTable(rows [][]float64) (*ProtonTable, error) {
	g, err := cal.NewGridTable(rows, []int{0, 1, 2, 3, 5}, []int{4, 6}, nil)
	if err != nil {
		return nil, fmt.Errorf("proton temperature/density table: %w", err)
	}
	return &ProtonTable{grid: g}, nil
}

// ReadProtonTable parses the row-text calibration file and builds the table.
func ReadProtonTable(r io.Reader) (*ProtonTable, error) {
	rows, err := cal.ParseRows(r)
	if err != nil {
		return nil, fmt.Errorf("proton temperature/density table: %w", err)
	}
	return NewProtonTable(rows)
}

// Lookup returns the corrected (density, temperature) at the given
// operating point.
func (t *ProtonTable) Lookup(speed, deflection, clock, density, temperature uncert.Value) (correctedDensity, correctedTemperature uncert.Value, err error) {
	out, err := t.grid.Lookup([]uncert.Value{speed, deflection, clock, density, temperature})
	if err != nil {
		return uncert.Value{}, uncert.Value{}, err
	}
	return out[0], out[1], nil
}

// AlphaTable is the alpha-particle analogue of ProtonTable. Alphas carry no
// angle axes; rows are
//
//	speed  density_in  density_out  temp_in  temp_out
type AlphaTable struct {
	grid *cal.GridTable
}

// NewAlphaTable builds the correction grid from parsed calibration rows.
func NewAlphaTable(rows [][]float64) (*AlphaTable, error) {
	g, err := cal.NewGridTable(rows, []int{0, 1, 3}, []int{2, 4}, nil)
	if err != nil {
		return nil, fmt.Errorf("alpha temperature/density table: %w", err)
	}
	return &AlphaTable{grid: g}, nil
}

// ReadAlphaTable parses the row-text calibration file and builds the table.
func ReadAlphaTable(r io.Reader) (*AlphaTable, error) {
	rows, err := cal.ParseRows(r)
	if err != nil {
		return nil, fmt.Errorf("alpha temperature/density table: %w", err)
	}
	return NewAlphaTable(rows)
}

// Lookup returns the corrected (density, temperature) at the given
// operating point.
func (t *AlphaTable) Lookup(speed, density, temperature uncert.Value) (correctedDensity, correctedTemperature uncert.Value, err error) {
	out, err := t.grid.Lookup([]uncert.Value{speed, density, temperature})
	if err != nil {
		return uncert.Value{}, uncert.Value{}, err
	}
	return out[0], out[1], nil
}

// AngleTable maps the raw harmonic-derived flow direction to the calibrated
// clock offset and flow deflection. Rows are
//
//	speed  raw_deflection  clock_offset  flow_deflection
type AngleTable struct {
	grid *cal.GridTable
}

// NewAngleTable builds the angle grid from parsed calibration rows.
func NewAngleTable(rows [][]float64) (*AngleTable, error) {
	g, err := cal.NewGridTable(rows, []int{0, 1}, []int{2, 3}, nil)
	if err != nil {
		return nil, fmt.Errorf("clock/deflection table: %w", err)
	}
	return &AngleTable{grid: g}, nil
}

// ReadAngleTable parses the row-text calibration file and builds the table.
func ReadAngleTable(r io.Reader) (*AngleTable, error) {
	rows, err := cal.ParseRows(r)
	if err != nil {
		return nil, fmt.Errorf("clock/deflection table: %w", err)
	}
	return NewAngleTable(rows)
}

// Lookup returns the (clock offset, flow deflection) pair at the given
// speed and raw deflection angle.
func (t *AngleTable) Lookup(speed, rawDeflection uncert.Value) (clockOffset, flowDeflection uncert.Value, err error) {
	out, err := t.grid.Lookup([]uncert.Value{speed, rawDeflection})
	if err != nil {
		return uncert.Value{}, uncert.Value{}, err
	}
	return out[0], out[1], nil
}
