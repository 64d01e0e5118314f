// Package uncert implements first-order (delta-method) uncertainty
// propagation. Every quantity flowing through the inversion engine is a
// (nominal, standard-deviation) pair; quantities that share an upstream fit
// are carried jointly as a Correlated set so downstream formulas see the
// full covariance rather than treating them as independent.
package uncert

import "math"

// Value is a nominal value with a one-sigma standard deviation.
// The zero value is an exact zero.
type Value struct {
	Nominal float64
	StdDev  float64
}

// V builds a Value. The standard deviation is stored as its magnitude so a
// Value never carries negative spread.
func V(nominal, stdDev float64) Value {
	return Value{Nominal: nominal, StdDev: math.Abs(stdDev)}
}

// Exact wraps a float with zero uncertainty.
func Exact(nominal float64) Value {
	return Value{Nominal: nominal}
}

// Add returns v + w assuming v and w are independent.
func (v Value) Add(w Value) Value {
	return Value{v.Nominal + w.Nominal, math.Hypot(v.StdDev, w.StdDev)}
}

// Sub returns v - w assuming v and w are independent.
func (v Value) Sub(w Value) Value {
	return Value{v.Nominal - w.Nominal, math.Hypot(v.StdDev, w.StdDev)}
}

// Mul returns v * w assuming v and w are independent.
func (v Value) Mul(w Value) Value {
	return Value{
		v.Nominal * w.Nominal,
		math.Hypot(w.Nominal*v.StdDev, v.Nominal*w.StdDev),
	}
}

// Div returns v / w assuming v and w are independent.
func (v Value) Div(w Value) Value {
	n := v.Nominal / w.Nominal
	return Value{
		n,
		math.Hypot(v.StdDev/w.Nominal, v.Nominal*w.StdDev/(w.Nominal*w.Nominal)),
	}
}

// Scale returns c * v. For a pure scaling the propagated deviation is
// exactly |c| times the input deviation.
func (v Value) Scale(c float64) Value {
	return Value{c * v.Nominal, math.Abs(c) * v.StdDev}
}

// AddConst returns v + c; an exact shift does not change the spread.
func (v Value) AddConst(c float64) Value {
	return Value{v.Nominal + c, v.StdDev}
}

// Pow returns v**p for a real exponent p.
func (v Value) Pow(p float64) Value {
	n := math.Pow(v.Nominal, p)
	return Value{n, math.Abs(p*math.Pow(v.Nominal, p-1)) * v.StdDev}
}

// Apply composes v with an arbitrary differentiable single-argument
// function: f(v) carries |f'(v)|·σ.
func (v Value) Apply(f, dfdx func(float64) float64) Value {
	return Value{f(v.Nominal), math.Abs(dfdx(v.Nominal)) * v.StdDev}
}

// Sqrt returns the square root of v.
func (v Value) Sqrt() Value {
	n := math.Sqrt(v.Nominal)
	return Value{n, v.StdDev / (2 * n)}
}

// Log returns the natural logarithm of v.
func (v Value) Log() Value {
	return Value{math.Log(v.Nominal), v.StdDev / math.Abs(v.Nominal)}
}

// Exp returns e**v.
func (v Value) Exp() Value {
	n := math.Exp(v.Nominal)
	return Value{n, n * v.StdDev}
}

// Sin returns sin(v) for v in radians.
func (v Value) Sin() Value {
	return Value{math.Sin(v.Nominal), math.Abs(math.Cos(v.Nominal)) * v.StdDev}
}

// Cos returns cos(v) for v in radians.
func (v Value) Cos() Value {
	return Value{math.Cos(v.Nominal), math.Abs(math.Sin(v.Nominal)) * v.StdDev}
}

// Atan2 returns atan2(y, x) in radians for independent y and x.
func Atan2(y, x Value) Value {
	r2 := x.Nominal*x.Nominal + y.Nominal*y.Nominal
	return Value{
		math.Atan2(y.Nominal, x.Nominal),
		math.Hypot(x.Nominal*y.StdDev, y.Nominal*x.StdDev) / r2,
	}
}

// UArray zips parallel nominal and deviation slices into Values.
// The slices must be the same length; that is validated by the callers that
// accept external arrays.
func UArray(nominals, stdDevs []float64) []Value {
	out := make([]Value, len(nominals))
	for i := range nominals {
		out[i] = V(nominals[i], stdDevs[i])
	}
	return out
}

// Nominals extracts the nominal values of a slice.
func Nominals(vs []Value) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v.Nominal
	}
	return out
}

// StdDevs extracts the standard deviations of a slice.
func StdDevs(vs []Value) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v.StdDev
	}
	return out
}
