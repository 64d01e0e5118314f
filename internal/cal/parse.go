// Package cal implements the calibration lookup engine: immutable tables
// built once per processing run from row-oriented text data, then shared
// read-only across any number of lookups. Two shapes exist, the
// rectangular N-dimensional GridTable and the single-axis ResponseTable,
// both behind strict no-extrapolation bounds checks.
package cal

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseRows reads a whitespace-separated numeric table. Blank lines and
// lines starting with '#' or ';' are skipped. Every data row must have the
// same number of columns.
func ParseRows(r io.Reader) ([][]float64, error) {
	scanner := bufio.NewScanner(r)
	var rows [][]float64
	lineNo := 0
	cols := -1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if cols == -1 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", lineNo, cols, len(fields))
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q: %w", lineNo, f, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	return rows, nil
}
