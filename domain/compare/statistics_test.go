package compare

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrosad/domain/core"
)

func TestAIC(t *testing.T) {
	assert.InDelta(t, 104.0, AIC(50, 2), 1e-12)
}

func TestAICc(t *testing.T) {
	got, err := AICc(50, 2, 10)
	require.NoError(t, err)
	// 104 + 2*2*3/(10-3)
	assert.InDelta(t, 104.0+12.0/7.0, got, 1e-12)
}

func TestAICc_SingularCorrection(t *testing.T) {
	_, err := AICc(50, 2, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAICcSingular))
}

func TestAICWeights(t *testing.T) {
	w := AICWeights([]float64{100, 102, 110})
	require.Len(t, w, 3)

	var sum float64
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Greater(t, w[0], w[1], "lower AIC earns more weight")
	assert.Greater(t, w[1], w[2])

	// Shift invariance.
	shifted := AICWeights([]float64{1100, 1102, 1110})
	for i := range w {
		assert.InDelta(t, w[i], shifted[i], 1e-12)
	}
}

func TestAICWeights_Empty(t *testing.T) {
	assert.Nil(t, AICWeights(nil))
}

func TestLikelihoodRatioTest(t *testing.T) {
	lrt := LikelihoodRatioTest(50, 45, 1)
	assert.InDelta(t, 10.0, lrt.Statistic, 1e-12)
	assert.Equal(t, 1, lrt.DF)
	// Chi-squared survival at 10 with one degree of freedom.
	assert.InDelta(t, 0.001565, lrt.PValue, 1e-4)
}

func TestLikelihoodRatioTest_ZeroDF(t *testing.T) {
	lrt := LikelihoodRatioTest(50, 45, 0)
	assert.Equal(t, 1.0, lrt.PValue)
}

func TestEmpiricalCDF(t *testing.T) {
	got := EmpiricalCDF([]int{1, 1, 2, 5})
	assert.Equal(t, []float64{0.5, 0.5, 0.75, 1.0}, got)
}

func TestKSTwoSample_IdenticalSamples(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	ks := KSTwoSample(a, a)
	assert.Equal(t, 0.0, ks.D)
	assert.Equal(t, 1.0, ks.PValue)
}

func TestKSTwoSample_DisjointSamples(t *testing.T) {
	ks := KSTwoSample([]float64{1, 2, 3}, []float64{10, 11, 12})
	assert.InDelta(t, 1.0, ks.D, 1e-12)
	assert.Less(t, ks.PValue, 0.1)
}

func TestKSTwoSample_ShiftedSamples(t *testing.T) {
	a := make([]float64, 50)
	b := make([]float64, 50)
	for i := range a {
		a[i] = float64(i)
		b[i] = float64(i) + 25
	}
	ks := KSTwoSample(a, b)
	assert.InDelta(t, 0.5, ks.D, 1e-12)
	assert.Less(t, ks.PValue, 0.01)
}

func TestNLL(t *testing.T) {
	// -ln(0.5)*2 = 2 ln 2
	assert.InDelta(t, 1.3862943611198906, NLL([]float64{0.5, 0.5}), 1e-12)
}
