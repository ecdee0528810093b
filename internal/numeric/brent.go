// Package numeric provides the scalar numerical routines that the
// distribution layer builds on: bracketed root-finding and grid scanning.
// Gonum carries multidimensional minimizers and quadrature rules but no
// scalar root solver, so Brent's method is implemented here.
package numeric

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoBracket is returned when f(a) and f(b) share a sign, so no root
	// is guaranteed inside [a, b].
	ErrNoBracket = errors.New("numeric: root is not bracketed by the interval")

	// ErrMaxIterations is returned when the solver hits its iteration cap
	// before reaching tolerance.
	ErrMaxIterations = errors.New("numeric: iteration limit reached before convergence")
)

const (
	// brentMaxIter bounds the solver so pathological inputs cannot hang.
	brentMaxIter = 100

	// brentXTol is the absolute convergence tolerance on the root.
	brentXTol = 2e-12
)

// Brent finds a root of f in the bracketing interval [a, b] using Brent's
// method (inverse quadratic interpolation with bisection fallback). f(a) and
// f(b) must have opposite signs.
func Brent(f func(float64) float64, a, b float64) (float64, error) {
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		return 0, fmt.Errorf("%w: f(%g)=%g, f(%g)=%g", ErrNoBracket, a, fa, b, fb)
	}

	c, fc := a, fa
	d := b - a
	e := d

	for i := 0; i < brentMaxIter; i++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*math.SmallestNonzeroFloat64*math.Abs(b) + brentXTol/2
		m := (c - b) / 2

		if math.Abs(m) <= tol || fb == 0 {
			return b, nil
		}

		if math.Abs(e) < tol || math.Abs(fa) <= math.Abs(fb) {
			// Bisection
			d = m
			e = m
		} else {
			s := fb / fa
			var p, q float64
			if a == c {
				// Secant step
				p = 2 * m * s
				q = 1 - s
			} else {
				// Inverse quadratic interpolation
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
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else if m > 0 {
			b += tol
		} else {
			b -= tol
		}
		fb = f(b)
	}
	return b, ErrMaxIterations
}

// GridMax scans f on n evenly spaced points across [a, b] and returns the
// location and value of the largest sample. It is the fallback used to split
// a bracket when the constraint equation has zero or two roots inside it.
func GridMax(f func(float64) float64, a, b float64, n int) (xmax, ymax float64) {
	if n < 2 {
		n = 2
	}
	step := (b - a) / float64(n-1)
	xmax = a
	ymax = math.Inf(-1)
	for i := 0; i < n; i++ {
		x := a + float64(i)*step
		if y := f(x); y > ymax {
			xmax, ymax = x, y
		}
	}
	return xmax, ymax
}
