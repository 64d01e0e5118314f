package cal

import (
	"fmt"
	"io"
)

// InstrumentResponseRow describes one cell of the instrument's angular and
// energy response for a single energy step: where the cell points, how
// sensitive it is, and the integration widths attached to it.
type InstrumentResponseRow struct {
	// EnergyEV is the cell centre energy-per-charge in eV/q.
	EnergyEV float64
	// ElevationDeg and AzimuthDeg give the cell pointing in instrument
	// coordinates.
	ElevationDeg float64
	AzimuthDeg   float64
	// Response is the relative sensitivity of the cell.
	Response float64
	// DEnergy, DElevation and DAzimuth are the cell integration widths.
	DEnergy    float64
	DElevation float64
	DAzimuth   float64
}

// InstrumentResponseTable holds the response cells for one energy step of
// the sweep, used by the pickup-ion forward model to integrate predicted
// flux over the instrument acceptance.
type InstrumentResponseTable struct {
	Rows []InstrumentResponseRow
}

// NewInstrumentResponseTable wraps validated rows in a table.
func NewInstrumentResponseTable(rows []InstrumentResponseRow) (*InstrumentResponseTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("instrument response table is empty")
	}
	for i, r := range rows {
		if r.EnergyEV <= 0 {
			return nil, fmt.Errorf("row %d: non-positive energy %v", i, r.EnergyEV)
		}
		if r.Response < 0 {
			return nil, fmt.Errorf("row %d: negative response %v", i, r.Response)
		}
	}
	return &InstrumentResponseTable{Rows: append([]InstrumentResponseRow(nil), rows...)}, nil
}

// ReadInstrumentResponseTable parses a seven-column text table with columns
// (energy, elevation, azimuth, response, d_energy, d_elevation, d_azimuth).
func ReadInstrumentResponseTable(r io.Reader) (*InstrumentResponseTable, error) {
	raw, err := ParseRows(r)
	if err != nil {
		return nil, err
	}
	rows := make([]InstrumentResponseRow, len(raw))
	for i, row := range raw {
		if len(row) != 7 {
			return nil, fmt.Errorf("row %d: expected 7 columns, got %d", i, len(row))
		}
		rows[i] = InstrumentResponseRow{
			EnergyEV:     row[0],
			ElevationDeg: row[1],
			AzimuthDeg:   row[2],
			Response:     row[3],
			DEnergy:      row[4],
			DElevation:   row[5],
			DAzimuth:     row[6],
		}
	}
	return NewInstrumentResponseTable(rows)
}
