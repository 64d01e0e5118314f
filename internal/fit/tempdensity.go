package fit

import (
	"fmt"
	"math"

	"github.com/helio-data/sweep.report/internal/model"
	"github.com/helio-data/sweep.report/internal/physics"
	"github.com/helio-data/sweep.report/internal/uncert"
)

// Fixed initial guess for the temperature/density fit: 5 cm⁻³ and 1e5 K,
// typical quiet solar wind. The fit runs in log space, which keeps both
// parameters positive and makes the step scale-free across the three
// decades of density seen in practice.
const (
	initialDensityPerCm3 = 5.0
	initialTemperatureK  = 1e5
)

// TempDensityResult carries the recovered thermal parameters of one
// species. Density and Temperature share the fit covariance through Params
// (members "density", "temperature").
type TempDensityResult struct {
	Density     uncert.Value
	Temperature uncert.Value

	Params *uncert.Correlated
}

// TempDensity fits the count-rate forward model to a sweep (or combined
// sweep group) at a known bulk speed, recovering density and temperature.
// Points are weighted by their count-rate uncertainties. Non-convergence
// or a singular solve is reported via ErrNoConvergence / ErrSingular so
// the window driver can skip the window.
func TempDensity(c physics.Constants, s physics.Species, energies []float64, rates []uncert.Value, speedKmPerS float64) (*TempDensityResult, error) {
	if len(energies) != len(rates) {
		return nil, fmt.Errorf("got %d energies for %d rates", len(energies), len(rates))
	}
	if speedKmPerS <= 0 {
		return nil, fmt.Errorf("non-positive bulk speed %v km/s", speedKmPerS)
	}

	res, err := Curve(Problem{
		X:     energies,
		Y:     uncert.Nominals(rates),
		Sigma: uncert.StdDevs(rates),
		Model: func(p []float64, x float64) float64 {
			return model.CountRateAt(c, s, x, math.Exp(p[0]), math.Exp(p[1]), speedKmPerS)
		},
	}, []float64{math.Log(initialDensityPerCm3), math.Log(initialTemperatureK)})
	if err != nil {
		return nil, fmt.Errorf("%s temperature/density fit: %w", s, err)
	}

	logParams, err := uncert.NewCorrelated([]string{"log_density", "log_temperature"}, res.Params, res.Cov)
	if err != nil {
		return nil, err
	}
	params, err := logParams.Propagate(
		[]string{"density", "temperature"},
		[]func(x []float64) float64{
			func(x []float64) float64 { return math.Exp(x[0]) },
			func(x []float64) float64 { return math.Exp(x[1]) },
		},
	)
	if err != nil {
		return nil, err
	}

	out := &TempDensityResult{Params: params}
	if out.Density, err = params.At("density"); err != nil {
		return nil, err
	}
	if out.Temperature, err = params.At("temperature"); err != nil {
		return nil, err
	}
	return out, nil
}
