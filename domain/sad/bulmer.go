package sad

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/optimize"

	"macrosad/domain/core"
)

// DefaultApproxCutoff is the abundance above which BulmerLikelihood switches
// from the exact integral (Bulmer eq 2) to the asymptotic expansion (Bulmer
// eq 7). The two agree to roughly six significant digits for intermediate
// abundances; the integral loses accuracy above the cutoff and the expansion
// below it.
const DefaultApproxCutoff = 10

// BulmerLikelihood is the second, independent evaluation path for the
// Poisson log-normal likelihood, parameterized by the log-scale mean and
// standard deviation. It exists alongside PoissonLogNormalPMF as an
// accuracy/performance trade-off across abundance magnitudes, and the two
// paths are cross-checked in tests. A cutoff of zero or less selects
// DefaultApproxCutoff. Non-positive sigma yields the probability floor.
func BulmerLikelihood(mu, sigma float64, values []int, approxCutoff int) []float64 {
	if approxCutoff <= 0 {
		approxCutoff = DefaultApproxCutoff
	}
	out := make([]float64, len(values))
	if sigma <= 0 {
		for i := range out {
			out[i] = ProbFloor
		}
		return out
	}
	for i, ab := range values {
		var p float64
		if ab > approxCutoff {
			p = bulmerEq7(mu, sigma, float64(ab))
		} else {
			p = bulmerEq2(mu, sigma, float64(ab))
		}
		if p <= 0 || math.IsNaN(p) {
			p = ProbFloor
		}
		out[i] = p
	}
	return out
}

// bulmerEq7 is the asymptotic approximation for large abundances.
func bulmerEq7(mu, sigma, ab float64) float64 {
	v := sigma * sigma
	la := math.Log(ab)
	d := la - mu
	return 1 / math.Sqrt(2*math.Pi*v) / ab *
		math.Exp(-d*d/(2*v)) *
		(1 + 1/(2*ab*v)*(d*d/v+la-mu-1))
}

// bulmerEq2 evaluates the exact mixing integral
//
//	(2*pi*sigma^2)^(-1/2) / ab! * integral_0^inf x^(ab-1) e^-x exp(-(ln x - mu)^2/(2 sigma^2)) dx
//
// split at the integrand's peak for numerical stability: the low part covers
// the peak with Gauss-Legendre nodes, and the tail is folded onto (0, 1] by
// the substitution x = ub - ln(u), which absorbs the e^-x decay exactly.
func bulmerEq2(mu, sigma, ab float64) float64 {
	// The peak sits just below ab; for very small abundances it works
	// better to keep the whole peak in the low integral.
	ub := ab
	if ab < 10 {
		ub = 10
	}
	twoVar := 2 * sigma * sigma
	term1 := math.Pow(2*math.Pi*sigma*sigma, -0.5) / math.Gamma(ab+1)

	integrand := func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		lx := math.Log(x)
		d := lx - mu
		return math.Pow(x, ab-1) * math.Exp(-x) * math.Exp(-d*d/twoVar)
	}
	head := quad.Fixed(integrand, 0, ub, 200, nil, 0)

	// Tail: x = ub - ln(u) maps (ub, inf) to (0, 1) and cancels e^-x down
	// to e^-ub, leaving a smooth integrand for Legendre nodes.
	expUB := math.Exp(-ub)
	tailIntegrand := func(u float64) float64 {
		if u <= 0 || u >= 1 {
			return 0
		}
		x := ub - math.Log(u)
		lx := math.Log(x)
		d := lx - mu
		return math.Pow(x, ab-1) * expUB * math.Exp(-d*d/twoVar)
	}
	tail := quad.Fixed(tailIntegrand, 0, 1, 150, nil, 0)

	return term1 * (head + tail)
}

// BulmerLogLikelihood computes the zero-truncated grouped log-likelihood of a
// sample: identical abundance values are aggregated by count before summing,
// so the per-class likelihood is evaluated once per unique value. Zeros are
// dropped from the sample and re-enter only through the truncation constant.
func BulmerLogLikelihood(mu, sigma float64, ab core.AbundanceVector) float64 {
	pos := ab.Positive()
	if len(pos) == 0 {
		return math.Inf(-1)
	}
	uniq, counts := groupCounts(pos)
	lik := BulmerLikelihood(mu, sigma, uniq, 0)

	var ll float64
	for i, c := range counts {
		ll += float64(c) * math.Log(lik[i])
	}
	p0 := BulmerLikelihood(mu, sigma, []int{0}, 0)[0]
	ll -= float64(len(pos)) * math.Log(1-p0)
	return ll
}

// BulmerFit holds maximum-likelihood estimates on the (mu, sigma)
// parameterization used by the grouped path.
type BulmerFit struct {
	Mu         float64
	Sigma      float64
	LogLik     float64
	Converged  bool
	Iterations int
}

// FitBulmer maximizes the grouped zero-truncated log-likelihood over
// (mu, sigma), seeded from the sample mean and standard deviation of the
// log-abundances.
func FitBulmer(ab core.AbundanceVector) (BulmerFit, error) {
	pos := ab.Positive()
	if len(pos) == 0 {
		return BulmerFit{}, core.ErrEmptyAbundances
	}
	logs := pos.Logs()
	mu0, err := stats.Mean(logs)
	if err != nil {
		return BulmerFit{}, fmt.Errorf("bulmer seed: %w", err)
	}
	sig0, err := stats.StandardDeviation(logs)
	if err != nil {
		return BulmerFit{}, fmt.Errorf("bulmer seed: %w", err)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -BulmerLogLikelihood(x[0], x[1], pos)
		},
	}
	settings := &optimize.Settings{MajorIterations: maxMLEIterations}
	res, minErr := optimize.Minimize(problem, []float64{mu0, sig0}, settings, &optimize.NelderMead{})
	if res == nil {
		return BulmerFit{}, fmt.Errorf("bulmer MLE: %w", minErr)
	}
	return BulmerFit{
		Mu:         res.X[0],
		Sigma:      res.X[1],
		LogLik:     -res.F,
		Converged:  simplexConverged(res, minErr),
		Iterations: res.Stats.MajorIterations,
	}, nil
}

// groupCounts returns the sorted unique values of a positive abundance
// vector and the number of occurrences of each.
func groupCounts(ab core.AbundanceVector) ([]int, []int) {
	sorted := make([]int, len(ab))
	for i, v := range ab {
		sorted[i] = v
	}
	sort.Ints(sorted)
	var uniq, counts []int
	for _, v := range sorted {
		if len(uniq) > 0 && uniq[len(uniq)-1] == v {
			counts[len(counts)-1]++
			continue
		}
		uniq = append(uniq, v)
		counts = append(counts, 1)
	}
	return uniq, counts
}
