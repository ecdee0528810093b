// Package sad implements species-abundance distribution (SAD) models: PMF
// evaluators and maximum-likelihood estimators for the log-series family
// (Fisher and the METE-constrained variants), the negative binomial, and the
// Poisson log-normal (untruncated, zero-truncated, and the grouped Bulmer
// likelihood path).
//
// All functions are stateless: given the same shape arguments, parameters,
// and abundance vector they return the same result and hold nothing between
// calls, so they are safe to invoke from concurrent goroutines.
package sad

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"macrosad/domain/core"
)

// ProbFloor is the probability assigned to a query point when distribution
// parameters are degenerate (reachable while an optimizer explores invalid
// regions). It is small enough to dominate any plausible likelihood yet large
// enough that its log (~ -276.3) stays finite in float64, so the optimizer
// can evaluate a very bad objective and keep searching.
const ProbFloor = 1e-120

// validateShape checks the S/N ordering shared by the shape-parameterized
// families: more than one species and more individuals than species.
func validateShape(s, n int) error {
	if n <= 0 || s <= 1 || s >= n {
		return core.NewOrderingError(s, n)
	}
	return nil
}

// queryValues returns the abundance classes a PMF call evaluates: the
// supplied vector when one is given, otherwise the full range 1..n.
func queryValues(n int, ab core.AbundanceVector) []float64 {
	if ab != nil {
		return ab.Float64s()
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	return vals
}

// negLogLik is the fitting objective shared by the MLE routines.
func negLogLik(pmf []float64) float64 {
	var nll float64
	for _, p := range pmf {
		nll -= math.Log(p)
	}
	return nll
}

// simplexConverged reports whether a simplex search ended by meeting its
// convergence criteria. Minimize returns a nil error when the iteration cap
// cuts the search short; the cap shows up only in the result status.
func simplexConverged(res *optimize.Result, err error) bool {
	return err == nil && res.Status != optimize.IterationLimit
}
