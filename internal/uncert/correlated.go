package uncert

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Correlated is a small set of quantities that share an upstream covariance,
// typically the parameters of one least-squares fit. Derived quantities that
// consume more than one member must be propagated through Propagate so cross
// terms are kept; collapsing members to independent Values first is a known
// source of underestimated downstream uncertainty.
type Correlated struct {
	names  []string
	values []float64
	cov    *mat.SymDense
}

// NewCorrelated builds a correlated set from parameter values and their
// covariance matrix. The names give each member a label for lookup.
func NewCorrelated(names []string, values []float64, cov *mat.SymDense) (*Correlated, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("correlated set: %d names for %d values", len(names), len(values))
	}
	if r, c := cov.Dims(); r != len(values) || c != len(values) {
		return nil, fmt.Errorf("correlated set: covariance is %dx%d for %d values", r, c, len(values))
	}
	// Deep-copy so the fit that produced the inputs cannot mutate the set.
	covCopy := mat.NewSymDense(len(values), nil)
	covCopy.CopySym(cov)
	return &Correlated{
		names:  append([]string(nil), names...),
		values: append([]float64(nil), values...),
		cov:    covCopy,
	}, nil
}

// Len returns the number of members.
func (c *Correlated) Len() int { return len(c.values) }

// Index returns the position of the named member, or -1.
func (c *Correlated) Index(name string) int {
	for i, n := range c.names {
		if n == name {
			return i
		}
	}
	return -1
}

// At returns the named member as a standalone Value. The marginal deviation
// is the square root of the member's covariance diagonal.
func (c *Correlated) At(name string) (Value, error) {
	i := c.Index(name)
	if i < 0 {
		return Value{}, fmt.Errorf("correlated set has no member %q", name)
	}
	return Value{c.values[i], math.Sqrt(c.cov.At(i, i))}, nil
}

// Values returns a copy of the member nominal values in declaration order.
func (c *Correlated) Values() []float64 {
	return append([]float64(nil), c.values...)
}

// Propagate pushes the set through a vector of differentiable functions of
// all members and returns a new correlated set with covariance J·C·Jᵀ, where
// J is the Jacobian of the functions evaluated at the nominal values.
// Gradients are computed by central differences.
func (c *Correlated) Propagate(names []string, fns []func(x []float64) float64) (*Correlated, error) {
	if len(names) != len(fns) {
		return nil, fmt.Errorf("propagate: %d names for %d functions", len(names), len(fns))
	}
	m := len(fns)
	n := len(c.values)

	out := make([]float64, m)
	jac := mat.NewDense(m, n, nil)
	for i, f := range fns {
		out[i] = f(c.values)
		grad := Gradient(f, c.values)
		jac.SetRow(i, grad)
	}

	var jc mat.Dense
	jc.Mul(jac, c.cov)
	var outCov mat.Dense
	outCov.Mul(&jc, jac.T())

	sym := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			// Average the off-diagonal pair to absorb round-off asymmetry.
			sym.SetSym(i, j, 0.5*(outCov.At(i, j)+outCov.At(j, i)))
		}
	}
	res := &Correlated{
		names:  append([]string(nil), names...),
		values: out,
		cov:    sym,
	}
	return res, nil
}

// Gradient computes the central-difference gradient of f at x. Step sizes
// scale with the magnitude of each coordinate.
func Gradient(f func(x []float64) float64, x []float64) []float64 {
	grad := make([]float64, len(x))
	work := append([]float64(nil), x...)
	for i := range x {
		h := 1e-6 * math.Max(math.Abs(x[i]), 1.0)
		work[i] = x[i] + h
		fp := f(work)
		work[i] = x[i] - h
		fm := f(work)
		work[i] = x[i]
		grad[i] = (fp - fm) / (2 * h)
	}
	return grad
}
