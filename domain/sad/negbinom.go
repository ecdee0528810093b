package sad

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"macrosad/domain/core"
)

// NegBinomPMF returns the negative binomial probability mass with aggregation
// parameter k for a community of S species and N individuals. The mean is
// mu = N/S and the success probability p = k/(mu+k). When ab is nil the PMF
// covers 1..N, otherwise the supplied abundance values. A non-positive k is a
// degenerate region reachable mid-optimization and yields the probability
// floor instead of an error.
func NegBinomPMF(s, n int, k float64, ab core.AbundanceVector) ([]float64, error) {
	if err := validateShape(s, n); err != nil {
		return nil, err
	}
	if ab != nil {
		if err := ab.ValidateAgainst(s, n); err != nil {
			return nil, err
		}
	}
	vals := queryValues(n, ab)
	pmf := make([]float64, len(vals))
	if k <= 0 {
		for i := range pmf {
			pmf[i] = ProbFloor
		}
		return pmf, nil
	}
	mu := float64(n) / float64(s)
	p := k / (mu + k)
	lgK, _ := math.Lgamma(k)
	logP := math.Log(p)
	logQ := math.Log(1 - p)
	for i, v := range vals {
		lgVK, _ := math.Lgamma(v + k)
		lgV1, _ := math.Lgamma(v + 1)
		pmf[i] = math.Exp(lgVK - lgK - lgV1 + k*logP + v*logQ)
	}
	return pmf, nil
}

// NegBinomFit holds the maximum-likelihood aggregation parameter for a sample
// together with optimizer diagnostics. No closed-form MLE exists for k, so K
// is a local optimum of a Nelder-Mead search and Converged reports whether the
// simplex contracted before the iteration cap.
type NegBinomFit struct {
	K          float64
	NLL        float64
	Converged  bool
	Iterations int
}

// FitNegBinom numerically minimizes the negative log-likelihood of the
// negative binomial over k, starting from guessK.
func FitNegBinom(ab core.AbundanceVector, guessK float64) (NegBinomFit, error) {
	ab = ab.Positive()
	if err := ab.Validate(); err != nil {
		return NegBinomFit{}, err
	}
	s, n := ab.Richness(), ab.Individuals()
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			pmf, err := NegBinomPMF(s, n, x[0], ab)
			if err != nil {
				return math.Inf(1)
			}
			return negLogLik(pmf)
		},
	}
	settings := &optimize.Settings{MajorIterations: maxMLEIterations}
	res, err := optimize.Minimize(problem, []float64{guessK}, settings, &optimize.NelderMead{})
	if res == nil {
		return NegBinomFit{}, fmt.Errorf("negative binomial MLE: %w", err)
	}
	return NegBinomFit{
		K:          res.X[0],
		NLL:        res.F,
		Converged:  simplexConverged(res, err),
		Iterations: res.Stats.MajorIterations,
	}, nil
}

// maxMLEIterations caps every simplex search so a pathological sample cannot
// hang the process.
const maxMLEIterations = 2000
