package cal

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/helio-data/sweep.report/internal/uncert"
)

// ErrOutOfRange is returned when a query point falls outside the sampled
// axis bounds. The engine never extrapolates; callers decide whether to
// skip or abort the window.
var ErrOutOfRange = errors.New("calibration lookup outside table bounds")

// GridTable is an immutable N-dimensional rectangular calibration grid.
// Construction consumes row-oriented data where designated columns form the
// axes and the remaining designated columns hold output values; the axis
// combinations must cover the full cross product of the per-axis values.
//
// Lookup interpolates multilinearly between the bracketing grid points on
// each axis. A query exactly on a grid node reduces to the stored value with
// no interpolation artifact. Input uncertainty is projected through the
// local interpolation slope of each axis; a fixed per-output table
// uncertainty, when configured, is added in quadrature.
type GridTable struct {
	axes      [][]float64 // sorted unique values per axis
	strides   []int
	values    [][]float64 // per output column, flattened over the grid
	outSigmas []float64   // optional fixed absolute uncertainty per output
}

// NewGridTable builds a GridTable from parsed rows. axisCols and outCols
// index into each row; outSigmas, when non-nil, supplies a fixed absolute
// uncertainty per output column (use nil for none).
func NewGridTable(rows [][]float64, axisCols, outCols []int, outSigmas []float64) (*GridTable, error) {
	if len(axisCols) == 0 {
		return nil, errors.New("grid table needs at least one axis column")
	}
	if len(outCols) == 0 {
		return nil, errors.New("grid table needs at least one output column")
	}
	if outSigmas != nil && len(outSigmas) != len(outCols) {
		return nil, fmt.Errorf("got %d output sigmas for %d output columns", len(outSigmas), len(outCols))
	}
	for _, r := range rows {
		for _, c := range append(append([]int(nil), axisCols...), outCols...) {
			if c >= len(r) {
				return nil, fmt.Errorf("column index %d out of range for %d-column row", c, len(r))
			}
		}
	}

	// Collect the sorted unique values of each axis.
	axes := make([][]float64, len(axisCols))
	for i, c := range axisCols {
		seen := map[float64]bool{}
		for _, r := range rows {
			seen[r[c]] = true
		}
		vals := make([]float64, 0, len(seen))
		for v := range seen {
			vals = append(vals, v)
		}
		sort.Float64s(vals)
		if len(vals) < 2 {
			return nil, fmt.Errorf("axis column %d has %d distinct values; need at least 2", c, len(vals))
		}
		axes[i] = vals
	}

	size := 1
	strides := make([]int, len(axes))
	for i := len(axes) - 1; i >= 0; i-- {
		strides[i] = size
		size *= len(axes[i])
	}
	if len(rows) != size {
		return nil, fmt.Errorf("partial grid: %d rows for a %d-cell rectangular grid", len(rows), size)
	}

	values := make([][]float64, len(outCols))
	for i := range values {
		values[i] = make([]float64, size)
	}
	filled := make([]bool, size)
	for _, r := range rows {
		idx := 0
		for i, c := range axisCols {
			pos := sort.SearchFloat64s(axes[i], r[c])
			idx += pos * strides[i]
		}
		if filled[idx] {
			return nil, fmt.Errorf("duplicate grid cell for axis values %v", axisValues(r, axisCols))
		}
		filled[idx] = true
		for j, c := range outCols {
			values[j][idx] = r[c]
		}
	}
	for _, f := range filled {
		if !f {
			return nil, errors.New("partial grid: missing axis combinations")
		}
	}

	t := &GridTable{axes: axes, strides: strides, values: values}
	if outSigmas != nil {
		t.outSigmas = append([]float64(nil), outSigmas...)
	}
	return t, nil
}

func axisValues(row []float64, axisCols []int) []float64 {
	out := make([]float64, len(axisCols))
	for i, c := range axisCols {
		out[i] = row[c]
	}
	return out
}

// Axes returns the number of axes of the table.
func (t *GridTable) Axes() int { return len(t.axes) }

// Outputs returns the number of output columns of the table.
func (t *GridTable) Outputs() int { return len(t.values) }

// Lookup interpolates all output columns at one query point. The point must
// have one Value per axis; each coordinate must lie within the sampled axis
// range.
func (t *GridTable) Lookup(point []uncert.Value) ([]uncert.Value, error) {
	if len(point) != len(t.axes) {
		return nil, fmt.Errorf("query has %d coordinates for a %d-axis table", len(point), len(t.axes))
	}

	// Bracketing segment and interpolation weight per axis.
	lo := make([]int, len(t.axes))
	w := make([]float64, len(t.axes))
	span := make([]float64, len(t.axes))
	for i, ax := range t.axes {
		q := point[i].Nominal
		if q < ax[0] || q > ax[len(ax)-1] || math.IsNaN(q) {
			return nil, fmt.Errorf("%w: axis %d value %v outside [%v, %v]",
				ErrOutOfRange, i, q, ax[0], ax[len(ax)-1])
		}
		seg := sort.SearchFloat64s(ax, q)
		if seg > 0 && (seg == len(ax) || ax[seg] != q) {
			seg--
		}
		if seg == len(ax)-1 {
			seg--
		}
		lo[i] = seg
		span[i] = ax[seg+1] - ax[seg]
		w[i] = (q - ax[seg]) / span[i]
	}

	out := make([]uncert.Value, len(t.values))
	nAxes := len(t.axes)
	corners := 1 << nAxes
	for j, vals := range t.values {
		var nominal float64
		grad := make([]float64, nAxes)
		for corner := 0; corner < corners; corner++ {
			idx := 0
			weight := 1.0
			for i := 0; i < nAxes; i++ {
				if corner&(1<<i) != 0 {
					idx += (lo[i] + 1) * t.strides[i]
					weight *= w[i]
				} else {
					idx += lo[i] * t.strides[i]
					weight *= 1 - w[i]
				}
			}
			v := vals[idx]
			nominal += weight * v
			// Per-axis slope contribution: derivative of this corner's
			// weight with respect to the axis coordinate.
			for i := 0; i < nAxes; i++ {
				dw := 1.0
				for k := 0; k < nAxes; k++ {
					if k == i {
						continue
					}
					if corner&(1<<k) != 0 {
						dw *= w[k]
					} else {
						dw *= 1 - w[k]
					}
				}
				if corner&(1<<i) != 0 {
					grad[i] += dw / span[i] * v
				} else {
					grad[i] -= dw / span[i] * v
				}
			}
		}

		var variance float64
		for i := 0; i < nAxes; i++ {
			d := grad[i] * point[i].StdDev
			variance += d * d
		}
		if t.outSigmas != nil {
			variance += t.outSigmas[j] * t.outSigmas[j]
		}
		out[j] = uncert.Value{Nominal: nominal, StdDev: math.Sqrt(variance)}
	}
	return out, nil
}

// LookupBatch applies Lookup to each query point, yielding results identical
// to independent scalar calls, transposed to one slice per output column.
func (t *GridTable) LookupBatch(points [][]uncert.Value) ([][]uncert.Value, error) {
	out := make([][]uncert.Value, len(t.values))
	for j := range out {
		out[j] = make([]uncert.Value, len(points))
	}
	for p, point := range points {
		res, err := t.Lookup(point)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", p, err)
		}
		for j, v := range res {
			out[j][p] = v
		}
	}
	return out, nil
}
