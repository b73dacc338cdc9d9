// Package solver provides the scalar root searches used by the nozzle and
// flux-balance solves. Both searches are bounded by Options.MaxIter; hitting
// the cap is reported as a NonConvergentError, never as a best-effort value.
package solver

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoBracket indicates f(lo) and f(hi) share a sign.
	ErrNoBracket = errors.New("solver: root not bracketed")

	// ErrNonConvergent indicates the search hit its iteration cap or produced a non-finite iterate.
	ErrNonConvergent = errors.New("solver: search did not converge")
)

type Options struct {
	Tol     float64
	MaxIter int
}

func DefaultOptions() Options {
	return Options{Tol: 1e-10, MaxIter: 100}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tol <= 0 {
		o.Tol = d.Tol
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	return o
}

// NonConvergentError carries the attempted bracket (or seeds), the last
// iterate and its residual.
type NonConvergentError struct {
	Method     string
	Lo, Hi     float64
	X          float64
	Residual   float64
	Iterations int
	Wrapped    error
}

func (e *NonConvergentError) Error() string {
	return fmt.Sprintf("%s: %v on [%g, %g] after %d iterations (x=%g, residual=%g)",
		e.Method, e.Wrapped, e.Lo, e.Hi, e.Iterations, e.X, e.Residual)
}

func (e *NonConvergentError) Unwrap() error {
	return e.Wrapped
}

// Brent finds a root of f in [lo, hi] by Brent's method.
func Brent(f func(float64) float64, lo, hi float64, opts Options) (float64, error) {
	opts = opts.withDefaults()

	a, b := lo, hi
	fa, fb := f(a), f(b)
	fail := func(err error, x, fx float64, iter int) error {
		return &NonConvergentError{Method: "brent", Lo: lo, Hi: hi, X: x, Residual: fx, Iterations: iter, Wrapped: err}
	}
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return 0, fail(ErrNonConvergent, b, fb, 0)
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		return 0, fail(ErrNoBracket, b, fb, 0)
	}

	c, fc := a, fa
	d := b - a
	e := d
	for iter := 1; iter <= opts.MaxIter; iter++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*eps*math.Abs(b) + 0.5*opts.Tol
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			// inverse quadratic interpolation, or secant when a == c
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * m * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*m*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, m)
		}
		fb = f(b)
		if math.IsNaN(fb) || math.IsInf(fb, 0) {
			return 0, fail(ErrNonConvergent, b, fb, iter)
		}
	}
	return 0, fail(ErrNonConvergent, b, fb, opts.MaxIter)
}

// Secant finds a root of f starting from the seeds x0 and x1. Convergence is
// declared when both the step and the residual scaled by |x| fall under Tol.
func Secant(f func(float64) float64, x0, x1 float64, opts Options) (float64, error) {
	opts = opts.withDefaults()

	seed0, seed1 := x0, x1
	f0, f1 := f(x0), f(x1)
	fail := func(err error, x, fx float64, iter int) error {
		return &NonConvergentError{Method: "secant", Lo: seed0, Hi: seed1, X: x, Residual: fx, Iterations: iter, Wrapped: err}
	}
	for iter := 1; iter <= opts.MaxIter; iter++ {
		if math.IsNaN(f1) || math.IsInf(f1, 0) {
			return 0, fail(ErrNonConvergent, x1, f1, iter)
		}
		if f1 == 0 {
			return x1, nil
		}
		if f1 == f0 {
			if math.Abs(f1) <= opts.Tol*math.Max(1, math.Abs(x1)) {
				return x1, nil
			}
			return 0, fail(ErrNonConvergent, x1, f1, iter)
		}
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		if math.IsNaN(x2) || math.IsInf(x2, 0) {
			return 0, fail(ErrNonConvergent, x2, f1, iter)
		}
		x0, f0 = x1, f1
		x1, f1 = x2, f(x2)

		scale := math.Max(1, math.Abs(x1))
		if math.Abs(x1-x0) <= opts.Tol*scale && math.Abs(f1) <= math.Sqrt(opts.Tol)*scale {
			return x1, nil
		}
	}
	return 0, fail(ErrNonConvergent, x1, f1, opts.MaxIter)
}

const eps = 2.220446049250313e-16
