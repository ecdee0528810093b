package sad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrosad/domain/core"
	"macrosad/internal/testkit"
)

func TestPoissonLogNormalPMF_DegenerateParams(t *testing.T) {
	pmf, err := PoissonLogNormalPMF(-1, -1, core.AbundanceVector{1, 2, 3}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{ProbFloor, ProbFloor, ProbFloor}, pmf)
}

func TestPoissonLogNormalPMF_MassSumsToOne(t *testing.T) {
	query := make(core.AbundanceVector, 401)
	for i := range query {
		query[i] = i
	}
	pmf, err := PoissonLogNormalPMF(1, 1, query, false)
	require.NoError(t, err)

	var sum float64
	for _, p := range pmf {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 2e-3)
}

func TestTruncatedPoissonLogNormalPMF(t *testing.T) {
	ab := core.AbundanceVector{1, 2, 5, 20}
	untr, err := PoissonLogNormalPMF(1.5, 1.2, ab, false)
	require.NoError(t, err)
	trun, err := TruncatedPoissonLogNormalPMF(1.5, 1.2, ab, false)
	require.NoError(t, err)

	p0, err := PoissonLogNormalPMF(1.5, 1.2, core.AbundanceVector{0}, false)
	require.NoError(t, err)

	for i := range ab {
		assert.InEpsilon(t, untr[i]/(1-p0[0]), trun[i], 1e-12)
		assert.Greater(t, trun[i], untr[i], "truncation renormalizes mass upward")
	}
}

// plnReference computes the mixing integral by brute force: a fine trapezoid
// sum of exp(h(t)) with the peak value factored out so large abundances stay
// inside float64 range. Deliberately independent of both production paths.
func plnReference(mean, variance float64, n int) float64 {
	nf := float64(n)
	h := func(t float64) float64 {
		d := t - mean
		return t*nf - math.Exp(t) - d*d/(2*variance)
	}

	lo, hi := mean-50*math.Sqrt(variance), math.Max(math.Log(nf+1), mean)+30.0
	const steps = 400000
	dt := (hi - lo) / steps

	hMax := math.Inf(-1)
	for i := 0; i <= steps; i++ {
		if v := h(lo + float64(i)*dt); v > hMax {
			hMax = v
		}
	}
	var sum float64
	for i := 0; i <= steps; i++ {
		w := 1.0
		if i == 0 || i == steps {
			w = 0.5
		}
		sum += w * math.Exp(h(lo+float64(i)*dt)-hMax)
	}
	logNorm := -0.5*math.Log(2*math.Pi*variance) - lgamma(nf+1)
	return math.Exp(logNorm + hMax + math.Log(sum*dt))
}

func TestPoissonLogNormalPMF_MatchesDirectIntegration(t *testing.T) {
	mean, variance := 2.0, 1.5
	ab := core.AbundanceVector{1, 3, 10, 50, 170}

	pmf, err := PoissonLogNormalPMF(mean, variance, ab, false)
	require.NoError(t, err)

	for i, n := range ab {
		want := plnReference(mean, variance, n)
		assert.InEpsilon(t, want, pmf[i], 1e-4, "abundance %d", n)
	}
}

// The quadrature path and the Bulmer split-integral path evaluate the same
// likelihood and must agree where both use their exact form.
func TestPoissonLogNormal_PathsAgreeExact(t *testing.T) {
	mu, sigma := 1.0, 1.0
	ab := core.AbundanceVector{1, 2, 3, 5, 8, 10}

	quadPath, err := PoissonLogNormalPMF(mu, sigma*sigma, ab, false)
	require.NoError(t, err)
	bulmerPath := BulmerLikelihood(mu, sigma, []int(ab), 0)

	for i := range ab {
		assert.InEpsilon(t, quadPath[i], bulmerPath[i], 1e-5, "abundance %d", ab[i])
	}
}

// Above the cutoff the Bulmer path switches to its asymptotic expansion,
// which tracks the exact integral closely for intermediate abundances.
func TestPoissonLogNormal_PathsAgreeAsymptotic(t *testing.T) {
	mu, sigma := 1.0, 1.0
	ab := core.AbundanceVector{15, 25, 50}

	quadPath, err := PoissonLogNormalPMF(mu, sigma*sigma, ab, false)
	require.NoError(t, err)
	bulmerPath := BulmerLikelihood(mu, sigma, []int(ab), 0)

	for i := range ab {
		assert.InEpsilon(t, quadPath[i], bulmerPath[i], 1e-3, "abundance %d", ab[i])
	}
}

func TestBulmerLogLikelihood_MatchesUngrouped(t *testing.T) {
	ab := core.AbundanceVector{1, 1, 1, 2, 2, 4, 9, 9, 30}
	mu, sigma := 1.2, 0.8

	grouped := BulmerLogLikelihood(mu, sigma, ab)

	var ll float64
	for _, v := range ab {
		ll += math.Log(BulmerLikelihood(mu, sigma, []int{v}, 0)[0])
	}
	p0 := BulmerLikelihood(mu, sigma, []int{0}, 0)[0]
	ll -= float64(len(ab)) * math.Log(1-p0)

	assert.InDelta(t, ll, grouped, 1e-9)
}

func TestBulmerLikelihood_DegenerateSigma(t *testing.T) {
	out := BulmerLikelihood(1, -0.5, []int{1, 2, 3}, 0)
	assert.Equal(t, []float64{ProbFloor, ProbFloor, ProbFloor}, out)
}

func TestFitPoissonLogNormal_RecoversParams(t *testing.T) {
	gen := testkit.New(11)
	sample := gen.PoissonLogNormal(60, 1.5, 1.0)
	require.NoError(t, sample.Validate())

	fit, err := FitPoissonLogNormal(sample, true)
	require.NoError(t, err)

	assert.True(t, fit.Converged)
	assert.Greater(t, fit.Mean, 0.5)
	assert.Less(t, fit.Mean, 2.5)
	assert.Greater(t, fit.Variance, 0.2)
	assert.Less(t, fit.Variance, 3.0)
}

func TestFitBulmer_AgreesWithQuadraturePath(t *testing.T) {
	gen := testkit.New(11)
	sample := gen.PoissonLogNormal(60, 1.5, 1.0)

	quadFit, err := FitPoissonLogNormal(sample, true)
	require.NoError(t, err)
	bulmerFit, err := FitBulmer(sample)
	require.NoError(t, err)

	// Same likelihood, different evaluation and parameterization; the
	// optima should land close together.
	assert.InDelta(t, quadFit.Mean, bulmerFit.Mu, 0.5)
	assert.InDelta(t, math.Sqrt(quadFit.Variance), bulmerFit.Sigma, 0.5)
}
