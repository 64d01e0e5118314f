// Package main runs the moment inversion over a CSV of instrument sweeps,
// producing one row of calibrated proton and alpha parameters per window.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/pipeline"
	"github.com/helio-data/sweep.report/internal/sweep"
	"github.com/helio-data/sweep.report/internal/swind"
	"github.com/helio-data/sweep.report/internal/version"
)

type config struct {
	SweepFile       string
	ProtonTableFile string
	AlphaTableFile  string
	AngleTableFile  string
	OutputFile      string
	Verbose         bool
	ShowVersion     bool
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.SweepFile, "sweeps", "", "CSV of sweep samples (epoch,energy,rate,rate_uncertainty,spin_angle)")
	flag.StringVar(&cfg.ProtonTableFile, "proton-lut", "", "proton temperature/density calibration table")
	flag.StringVar(&cfg.AlphaTableFile, "alpha-lut", "", "alpha temperature/density calibration table")
	flag.StringVar(&cfg.AngleTableFile, "angle-lut", "", "clock/deflection calibration table")
	flag.StringVar(&cfg.OutputFile, "out", "", "output CSV (default stdout)")
	flag.BoolVar(&cfg.Verbose, "v", false, "log per-window progress")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()
	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}
	if cfg.SweepFile == "" || cfg.ProtonTableFile == "" || cfg.AlphaTableFile == "" || cfg.AngleTableFile == "" {
		flag.Usage()
		log.Fatal("sweeps and all three calibration tables are required")
	}

	tables, err := loadTables(cfg)
	if err != nil {
		log.Fatalf("Failed to load calibration tables: %v", err)
	}
	sweeps, err := loadSweeps(cfg.SweepFile)
	if err != nil {
		log.Fatalf("Failed to load sweeps: %v", err)
	}
	if cfg.Verbose {
		log.Printf("Loaded %d sweeps (%d windows)", len(sweeps), len(sweeps)/sweep.MomentWindowSize)
	}

	out := pipeline.ProcessL3a(physics.Default(), tables, sweeps)
	for _, skipped := range out.Skipped {
		log.Printf("Skipped window %d (%s): %v", skipped.Index, skipped.Epoch.Format(time.RFC3339), skipped.Err)
	}
	if cfg.Verbose {
		log.Printf("Inverted %d windows, skipped %d", len(out.Records), len(out.Skipped))
	}

	w := os.Stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		w = f
	}
	if err := writeRecords(w, out.Records); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

func loadTables(cfg config) (pipeline.L3aTables, error) {
	var tables pipeline.L3aTables

	f, err := os.Open(cfg.ProtonTableFile)
	if err != nil {
		return tables, err
	}
	defer f.Close()
	if tables.Protons, err = swind.ReadProtonTable(f); err != nil {
		return tables, fmt.Errorf("%s: %w", cfg.ProtonTableFile, err)
	}

	f, err = os.Open(cfg.AlphaTableFile)
	if err != nil {
		return tables, err
	}
	defer f.Close()
	if tables.Alphas, err = swind.ReadAlphaTable(f); err != nil {
		return tables, fmt.Errorf("%s: %w", cfg.AlphaTableFile, err)
	}

	f, err = os.Open(cfg.AngleTableFile)
	if err != nil {
		return tables, err
	}
	defer f.Close()
	if tables.Angles, err = swind.ReadAngleTable(f); err != nil {
		return tables, fmt.Errorf("%s: %w", cfg.AngleTableFile, err)
	}
	return tables, nil
}

// loadSweeps reads the sample CSV and groups rows into sweeps by epoch.
// Rows for one sweep must be contiguous and in energy-sweep order.
func loadSweeps(path string) ([]sweep.Sweep, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSweeps(f)
}

func readSweeps(r io.Reader) ([]sweep.Sweep, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5

	type raw struct {
		energies, rates, sigmas, angles []float64
	}
	order := []time.Time{}
	byEpoch := map[time.Time]*raw{}

	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && record[0] == "epoch" {
			continue
		}

		epoch, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad epoch %q: %w", line, record[0], err)
		}
		fields := make([]float64, 4)
		for i := 0; i < 4; i++ {
			if fields[i], err = strconv.ParseFloat(record[i+1], 64); err != nil {
				return nil, fmt.Errorf("line %d: bad value %q: %w", line, record[i+1], err)
			}
		}

		s, ok := byEpoch[epoch]
		if !ok {
			s = &raw{}
			byEpoch[epoch] = s
			order = append(order, epoch)
		}
		s.energies = append(s.energies, fields[0])
		s.rates = append(s.rates, fields[1])
		s.sigmas = append(s.sigmas, fields[2])
		s.angles = append(s.angles, fields[3])
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	sweeps := make([]sweep.Sweep, 0, len(order))
	for _, epoch := range order {
		raw := byEpoch[epoch]
		s, err := sweep.New(epoch, raw.energies, raw.rates, raw.sigmas, raw.angles)
		if err != nil {
			return nil, fmt.Errorf("sweep at %s: %w", epoch.Format(time.RFC3339), err)
		}
		sweeps = append(sweeps, s)
	}
	return sweeps, nil
}

func writeRecords(w io.Writer, records []pipeline.L3aRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"epoch",
		"proton_speed", "proton_speed_unc",
		"proton_density", "proton_density_unc",
		"proton_temperature", "proton_temperature_unc",
		"proton_clock_angle", "proton_clock_angle_unc",
		"proton_deflection_angle", "proton_deflection_angle_unc",
		"alpha_speed", "alpha_speed_unc",
		"alpha_density", "alpha_density_unc",
		"alpha_temperature", "alpha_temperature_unc",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{rec.Epoch.Format(time.RFC3339)}
		for _, v := range []struct{ n, s float64 }{
			{rec.Proton.Speed.Nominal, rec.Proton.Speed.StdDev},
			{rec.Proton.Density.Nominal, rec.Proton.Density.StdDev},
			{rec.Proton.Temperature.Nominal, rec.Proton.Temperature.StdDev},
			{rec.Proton.ClockAngle.Nominal, rec.Proton.ClockAngle.StdDev},
			{rec.Proton.DeflectionAngle.Nominal, rec.Proton.DeflectionAngle.StdDev},
			{rec.Alpha.Speed.Nominal, rec.Alpha.Speed.StdDev},
			{rec.Alpha.Density.Nominal, rec.Alpha.Density.StdDev},
			{rec.Alpha.Temperature.Nominal, rec.Alpha.Temperature.StdDev},
		} {
			row = append(row,
				strconv.FormatFloat(v.n, 'g', -1, 64),
				strconv.FormatFloat(v.s, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
