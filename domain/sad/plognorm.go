package sad

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/optimize"

	"macrosad/domain/core"
)

const (
	// plnExactCutoff is the largest abundance evaluated with the exact
	// integral. Above it the integrand magnitude approaches the float64
	// overflow boundary (n*ln(n)-n exceeds ~709 just past 170), so the
	// closed-form asymptotic expansion takes over.
	plnExactCutoff = 170

	// plnQuadNodes is the Gauss-Hermite node count for the exact integral.
	plnQuadNodes = 80
)

// PoissonLogNormalPMF returns the Poisson log-normal probability mass
// (Bulmer 1974) with the given log-scale mean and variance. When full is
// true the PMF covers the range 1..sum(ab), otherwise each value of ab
// (zeros permitted; the truncation constant is computed through a zero
// query). Degenerate parameters (mean <= 0 or variance <= 0, reachable while
// an optimizer explores) yield the probability floor per query point rather
// than an error.
func PoissonLogNormalPMF(mean, variance float64, ab core.AbundanceVector, full bool) ([]float64, error) {
	if len(ab) == 0 {
		return nil, core.ErrEmptyAbundances
	}
	var query []int
	if full {
		total := ab.Individuals()
		query = make([]int, total)
		for i := range query {
			query[i] = i + 1
		}
	} else {
		query = ab
	}

	pmf := make([]float64, len(query))
	if variance <= 0 || mean <= 0 {
		for i := range pmf {
			pmf[i] = ProbFloor
		}
		return pmf, nil
	}

	sd := math.Sqrt(variance)
	for i, n := range query {
		var p float64
		if n <= plnExactCutoff {
			logNorm := -0.5*math.Log(2*math.Pi*variance) - lgamma(float64(n)+1)
			p = math.Exp(logNorm + plnLogIntegral(float64(n), mean, sd, variance))
		} else {
			p = plnAsymptotic(float64(n), mean, sd)
		}
		if p <= 0 || math.IsNaN(p) {
			p = ProbFloor
		}
		pmf[i] = p
	}
	return pmf, nil
}

// plnLogIntegral evaluates the log of the integral over t of
// exp(t*n - e^t - (t-mean)^2/(2*var)) with mode-centered Gauss-Hermite
// quadrature. The log-integrand
//
//	h(t) = t*n - e^t - (t-mean)^2 / (2*var)
//
// is strictly concave, so Newton's method finds its unique mode; the nodes
// are then centered there and scaled by the local curvature. quad.Fixed with
// the Hermite rule estimates the exp(-u^2)-weighted integral of the supplied
// function, so the weight is divided back out via an exp(u^2) factor, and the
// integrand is shifted by h(mode) to keep that factor inside float64 range.
func plnLogIntegral(n, mean, sd, variance float64) float64 {
	h := func(t float64) float64 {
		d := t - mean
		return t*n - math.Exp(t) - d*d/(2*variance)
	}

	// Newton iteration on h'(t) = n - e^t - (t-mean)/var.
	t := mean
	if n > 0 {
		t = math.Min(math.Log(n), mean+3*sd)
	}
	for i := 0; i < 60; i++ {
		et := math.Exp(t)
		grad := n - et - (t-mean)/variance
		curv := -et - 1/variance
		step := grad / curv
		t -= step
		if math.Abs(step) < 1e-12*(1+math.Abs(t)) {
			break
		}
	}

	scale := math.Sqrt2 / math.Sqrt(math.Exp(t)+1/variance)
	mode := t
	hMode := h(mode)
	f := func(u float64) float64 {
		return scale * math.Exp(h(mode+scale*u)-hMode+u*u)
	}
	return hMode + math.Log(quad.Fixed(f, math.Inf(-1), math.Inf(1), plnQuadNodes, quad.Hermite{}, 0))
}

// plnAsymptotic is the large-abundance expansion (a first-order correction
// around the log-normal peak) used where the exact integral would overflow.
func plnAsymptotic(n, mean, sd float64) float64 {
	ln := math.Log(n)
	z := (ln - mean) / sd
	correction := 1 + (z*z+ln-mean-1)/(2*n*sd*sd)
	return correction * math.Exp(-0.5*z*z) / (math.Sqrt(2*math.Pi) * sd * n)
}

// TruncatedPoissonLogNormalPMF returns the zero-truncated Poisson log-normal
// probability mass: the untruncated PMF divided by 1 - PMF(0) (Bulmer 1974
// eq A1). Zero never appears in the visible support; it is queried only to
// compute the truncation constant.
func TruncatedPoissonLogNormalPMF(mean, variance float64, ab core.AbundanceVector, full bool) ([]float64, error) {
	untr, err := PoissonLogNormalPMF(mean, variance, ab, full)
	if err != nil {
		return nil, err
	}
	p0, err := PoissonLogNormalPMF(mean, variance, core.AbundanceVector{0}, false)
	if err != nil {
		return nil, err
	}
	scale := 1 - p0[0]
	for i := range untr {
		untr[i] /= scale
	}
	return untr, nil
}

// PoissonLogNormalFit holds maximum-likelihood estimates of the log-scale
// mean and variance with optimizer diagnostics.
type PoissonLogNormalFit struct {
	Mean       float64
	Variance   float64
	NLL        float64
	Converged  bool
	Iterations int
}

// FitPoissonLogNormal numerically minimizes the negative log-likelihood of
// the (optionally zero-truncated) Poisson log-normal over (mean, variance),
// seeded from the sample mean and variance of the log-abundances.
func FitPoissonLogNormal(ab core.AbundanceVector, truncated bool) (PoissonLogNormalFit, error) {
	pos := ab.Positive()
	if len(pos) == 0 {
		return PoissonLogNormalFit{}, core.ErrEmptyAbundances
	}
	logs := pos.Logs()
	mu0, err := stats.Mean(logs)
	if err != nil {
		return PoissonLogNormalFit{}, fmt.Errorf("poisson log-normal seed: %w", err)
	}
	var0, err := stats.SampleVariance(logs)
	if err != nil {
		return PoissonLogNormalFit{}, fmt.Errorf("poisson log-normal seed: %w", err)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			var pmf []float64
			var perr error
			if truncated {
				pmf, perr = TruncatedPoissonLogNormalPMF(x[0], x[1], pos, false)
			} else {
				pmf, perr = PoissonLogNormalPMF(x[0], x[1], pos, false)
			}
			if perr != nil {
				return math.Inf(1)
			}
			return negLogLik(pmf)
		},
	}
	settings := &optimize.Settings{MajorIterations: maxMLEIterations}
	res, minErr := optimize.Minimize(problem, []float64{mu0, var0}, settings, &optimize.NelderMead{})
	if res == nil {
		return PoissonLogNormalFit{}, fmt.Errorf("poisson log-normal MLE: %w", minErr)
	}
	return PoissonLogNormalFit{
		Mean:       res.X[0],
		Variance:   res.X[1],
		NLL:        res.F,
		Converged:  simplexConverged(res, minErr),
		Iterations: res.Stats.MajorIterations,
	}, nil
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
