// Package main plots an observed count-rate spectrum against the fitted
// forward model for one sweep window, as a quick visual check of fit
// quality during calibration work.
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

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/helio-data/sweep.report/internal/fit"
	"github.com/helio-data/sweep.report/internal/model"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/sweep"
)

func main() {
	sweepFile := flag.String("sweeps", "", "CSV of sweep samples (epoch,energy,rate,rate_uncertainty,spin_angle)")
	outFile := flag.String("out", "sweep.png", "output image")
	windowIdx := flag.Int("window", 0, "moment window index to plot")
	flag.Parse()

	if *sweepFile == "" {
		flag.Usage()
		log.Fatal("sweeps CSV is required")
	}

	f, err := os.Open(*sweepFile)
	if err != nil {
		log.Fatalf("Failed to open sweeps: %v", err)
	}
	sweeps, err := readSweeps(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read sweeps: %v", err)
	}

	windows := sweep.Windows(sweeps, sweep.MomentWindowSize)
	if *windowIdx < 0 || *windowIdx >= len(windows) {
		log.Fatalf("Window %d out of range: %d sweeps give %d windows", *windowIdx, len(sweeps), len(windows))
	}
	w := windows[*windowIdx]

	if err := plotWindow(w, *outFile); err != nil {
		log.Fatalf("Failed to plot window: %v", err)
	}
	log.Printf("Wrote %s", *outFile)
}

// plotWindow draws the combined observed spectrum and, when the fits
// converge, the fitted proton model curve.
func plotWindow(w sweep.Window, outFile string) error {
	energies, rates, err := w.Combine()
	if err != nil {
		return err
	}

	p := plot.New()
	epoch, _ := w.Epoch(sweep.MomentEpochOffset)
	p.Title.Text = fmt.Sprintf("Combined sweep %s", epoch.Format(time.RFC3339))
	p.X.Label.Text = "Energy (eV/q)"
	p.Y.Label.Text = "Count rate (1/s)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{}

	observed := make(plotter.XYs, 0, len(energies))
	for i := range energies {
		observed = append(observed, plotter.XY{X: energies[i], Y: rates[i].Nominal})
	}
	scatter, err := plotter.NewScatter(observed)
	if err != nil {
		return err
	}
	p.Add(scatter)
	p.Legend.Add("observed", scatter)

	c := physics.Default()
	if fitted := fitModelCurve(c, w, energies); fitted != nil {
		line, err := plotter.NewLine(fitted)
		if err != nil {
			return err
		}
		p.Add(line)
		p.Legend.Add("proton fit", line)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, outFile)
}

// fitModelCurve runs the proton fits over the window and samples the
// resulting model. A non-convergent window still gets its observed
// spectrum plotted, so fit failures return nil rather than aborting.
func fitModelCurve(c physics.Constants, w sweep.Window, energies []float64) plotter.XYs {
	speedFit, err := fit.ProtonSpeed(c, w)
	if err != nil {
		log.Printf("Speed fit failed, plotting observations only: %v", err)
		return nil
	}
	allEnergies, allRates, _ := w.AllPoints()
	td, err := fit.TempDensity(c, physics.Proton, allEnergies, allRates, speedFit.Speed.Nominal)
	if err != nil {
		log.Printf("Temperature/density fit failed, plotting observations only: %v", err)
		return nil
	}

	curve := make(plotter.XYs, 0, len(energies))
	for _, e := range energies {
		rate := model.CountRateAt(c, physics.Proton, e,
			td.Density.Nominal, td.Temperature.Nominal, speedFit.Speed.Nominal)
		curve = append(curve, plotter.XY{X: e, Y: rate})
	}
	return curve
}

// readSweeps reads the same sample CSV format as the l3a tool.
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
