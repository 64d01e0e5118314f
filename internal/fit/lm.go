// Package fit implements the nonlinear least-squares machinery that
// recovers plasma parameters from count-rate sweeps: a generic weighted
// Levenberg–Marquardt curve fitter, the spin-harmonic speed fit, and the
// temperature/density fit against the count-rate forward model.
//
// Fits either converge within a bounded iteration count or fail with a
// distinct error; a non-convergent window is reported to the caller, never
// papered over with plausible-looking numbers.
package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoConvergence is returned when the fitter exhausts its iteration
	// budget without meeting the convergence criteria.
	ErrNoConvergence = errors.New("fit did not converge")
	// ErrSingular is returned when the normal equations are singular, so no
	// meaningful parameter covariance exists.
	ErrSingular = errors.New("fit produced a singular system")
)

const (
	maxIterations = 500
	// Damping bounds for the Levenberg–Marquardt lambda schedule.
	lambdaInit = 1e-3
	lambdaMax  = 1e12
	// Convergence: relative chi-square improvement of an accepted step, and
	// an absolute floor for noise-free synthetic data.
	chi2RelTol  = 1e-14
	chi2AbsTol  = 1e-22
	stepRelTol  = 1e-12
	jacobianEps = 1e-7
)

// ModelFunc evaluates a scalar model at x for the given parameters.
type ModelFunc func(params []float64, x float64) float64

// Problem is one weighted curve-fit: observations Y at points X with
// per-point standard deviations Sigma, against Model.
type Problem struct {
	X, Y, Sigma []float64
	Model       ModelFunc
}

// Result holds a converged fit: parameter values, their covariance from the
// linearised weighted least-squares solve, and diagnostics.
type Result struct {
	Params     []float64
	Cov        *mat.SymDense
	ChiSquare  float64
	Iterations int
}

// Curve runs Levenberg–Marquardt from the given initial parameters.
// Weights are the inverse per-point variances, so Sigma entries must be
// strictly positive.
func Curve(p Problem, initial []float64) (*Result, error) {
	n := len(p.X)
	k := len(initial)
	if n != len(p.Y) || n != len(p.Sigma) {
		return nil, fmt.Errorf("fit arrays disagree: %d x, %d y, %d sigma", n, len(p.Y), len(p.Sigma))
	}
	if n < k {
		return nil, fmt.Errorf("fit needs at least %d points for %d parameters, got %d", k, k, n)
	}
	for i, s := range p.Sigma {
		if s <= 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("non-positive uncertainty %v at point %d", s, i)
		}
	}

	params := append([]float64(nil), initial...)
	chi2 := chiSquare(p, params)
	if math.IsNaN(chi2) {
		return nil, fmt.Errorf("%w: model undefined at initial guess", ErrSingular)
	}

	lambda := lambdaInit
	iterations := 0
	for ; iterations < maxIterations; iterations++ {
		jac := jacobian(p, params)
		a, g := normalEquations(p, params, jac)

		accepted := false
		for lambda <= lambdaMax {
			step, err := solveDamped(a, g, lambda)
			if err != nil {
				lambda *= 10
				continue
			}
			trial := make([]float64, k)
			for j := range trial {
				trial[j] = params[j] + step[j]
			}
			trialChi2 := chiSquare(p, trial)
			if !math.IsNaN(trialChi2) && trialChi2 <= chi2 {
				relImprovement := (chi2 - trialChi2) / math.Max(chi2, chi2AbsTol)
				small := maxRelStep(step, params) < stepRelTol
				params = trial
				// Convergence is judged on the accepted step itself: no
				// further chi-square improvement, or no parameter motion.
				// The damping level is not part of the criterion; accepts
				// and rejects can leave lambda oscillating indefinitely on
				// problems with a nonzero residual floor.
				converged := trialChi2 < chi2AbsTol ||
					relImprovement < chi2RelTol || small
				chi2 = trialChi2
				lambda = math.Max(lambda/10, 1e-12)
				accepted = true
				if converged {
					cov, err := covariance(p, params)
					if err != nil {
						return nil, err
					}
					return &Result{Params: params, Cov: cov, ChiSquare: chi2, Iterations: iterations + 1}, nil
				}
				break
			}
			lambda *= 10
		}
		if !accepted {
			// Fully damped and still no downhill step: treat as converged
			// only if the system is well posed, otherwise singular.
			cov, err := covariance(p, params)
			if err != nil {
				return nil, err
			}
			return &Result{Params: params, Cov: cov, ChiSquare: chi2, Iterations: iterations + 1}, nil
		}
	}
	return nil, fmt.Errorf("%w after %d iterations (chi2=%v)", ErrNoConvergence, maxIterations, chi2)
}

func chiSquare(p Problem, params []float64) float64 {
	var sum float64
	for i := range p.X {
		r := (p.Y[i] - p.Model(params, p.X[i])) / p.Sigma[i]
		sum += r * r
	}
	return sum
}

// jacobian computes ∂model/∂param at every point by central differences.
func jacobian(p Problem, params []float64) *mat.Dense {
	n := len(p.X)
	k := len(params)
	jac := mat.NewDense(n, k, nil)
	work := append([]float64(nil), params...)
	for j := 0; j < k; j++ {
		h := jacobianEps * math.Max(math.Abs(params[j]), 1.0)
		work[j] = params[j] + h
		for i := 0; i < n; i++ {
			jac.Set(i, j, p.Model(work, p.X[i]))
		}
		work[j] = params[j] - h
		for i := 0; i < n; i++ {
			jac.Set(i, j, (jac.At(i, j)-p.Model(work, p.X[i]))/(2*h))
		}
		work[j] = params[j]
	}
	return jac
}

// normalEquations forms A = JᵀWJ and g = JᵀW·r with W = diag(1/σ²).
func normalEquations(p Problem, params []float64, jac *mat.Dense) (*mat.SymDense, *mat.VecDense) {
	n := len(p.X)
	k := len(params)
	a := mat.NewSymDense(k, nil)
	g := mat.NewVecDense(k, nil)
	for i := 0; i < n; i++ {
		w := 1 / (p.Sigma[i] * p.Sigma[i])
		r := p.Y[i] - p.Model(params, p.X[i])
		for j := 0; j < k; j++ {
			jij := jac.At(i, j)
			g.SetVec(j, g.AtVec(j)+w*jij*r)
			for l := j; l < k; l++ {
				a.SetSym(j, l, a.At(j, l)+w*jij*jac.At(i, l))
			}
		}
	}
	return a, g
}

// solveDamped solves (A + λ·diag(A))·step = g.
func solveDamped(a *mat.SymDense, g *mat.VecDense, lambda float64) ([]float64, error) {
	k, _ := a.Dims()
	damped := mat.NewSymDense(k, nil)
	damped.CopySym(a)
	for j := 0; j < k; j++ {
		d := a.At(j, j)
		if d == 0 {
			d = 1e-12
		}
		damped.SetSym(j, j, d*(1+lambda))
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return nil, ErrSingular
	}
	step := mat.NewVecDense(k, nil)
	if err := chol.SolveVecTo(step, g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return step.RawVector().Data, nil
}

// covariance inverts the undamped normal matrix at the final parameters.
func covariance(p Problem, params []float64) (*mat.SymDense, error) {
	jac := jacobian(p, params)
	a, _ := normalEquations(p, params, jac)
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("%w: normal matrix not positive definite", ErrSingular)
	}
	k, _ := a.Dims()
	cov := mat.NewSymDense(k, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return cov, nil
}

func maxRelStep(step, params []float64) float64 {
	var m float64
	for j := range step {
		rel := math.Abs(step[j]) / math.Max(math.Abs(params[j]), 1.0)
		if rel > m {
			m = rel
		}
	}
	return m
}
