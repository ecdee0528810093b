package sad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankAbundance_UniformPMF(t *testing.T) {
	pmf := []float64{0.25, 0.25, 0.25, 0.25}
	got := RankAbundance(pmf, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestRankAbundance_PointMass(t *testing.T) {
	// All mass on abundance 1: every species is predicted a singleton.
	got := RankAbundance([]float64{1.0}, 3)
	assert.Equal(t, []int{1, 1, 1}, got)
}

func TestRankAbundance_OrderedRarestFirst(t *testing.T) {
	pmf, err := LogSeriesPMF(10, 100, nil)
	require.NoError(t, err)

	rad := RankAbundance(pmf, 10)
	require.Len(t, rad, 10)
	for i := 1; i < len(rad); i++ {
		assert.GreaterOrEqual(t, rad[i], rad[i-1])
	}
	assert.GreaterOrEqual(t, rad[0], 1)
	assert.LessOrEqual(t, rad[9], 100)
}

func TestRankAbundance_ClampsToSupport(t *testing.T) {
	// A truncated PMF summing below the top quantile must not report an
	// abundance outside 1..len(pmf).
	got := RankAbundance([]float64{0.3, 0.2}, 2)
	assert.Equal(t, []int{1, 2}, got)
}

func TestPMFCumulative(t *testing.T) {
	cum := PMFCumulative([]float64{0.1, 0.2, 0.3, 0.4})
	require.Len(t, cum, 4)
	assert.InDelta(t, 0.1, cum[0], 1e-15)
	assert.InDelta(t, 0.3, cum[1], 1e-15)
	assert.InDelta(t, 0.6, cum[2], 1e-15)
	assert.InDelta(t, 1.0, cum[3], 1e-15)
}
