package sad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrosad/domain/core"
)

// sad10 is a 10-species sample summing to 100 individuals.
var sad10 = core.AbundanceVector{40, 20, 10, 8, 7, 5, 4, 3, 2, 1}

func TestSolveLogSeriesX(t *testing.T) {
	x, err := SolveLogSeriesX(10, 100)
	require.NoError(t, err)

	assert.Greater(t, x, 0.0)
	assert.Less(t, x, 1.0)

	// The root satisfies the constraint equation.
	residual := (100/x-100)*(-math.Log(1-x)) - 10
	assert.InDelta(t, 0.0, residual, 1e-8)
}

func TestLogSeriesPMF_FullRange(t *testing.T) {
	pmf, err := LogSeriesPMF(10, 100, nil)
	require.NoError(t, err)
	require.Len(t, pmf, 100)

	var sum float64
	for i, p := range pmf {
		assert.Greater(t, p, 0.0, "pmf[%d]", i)
		if i > 0 {
			assert.LessOrEqual(t, p, pmf[i-1], "log-series mass decreases in abundance")
		}
		sum += p
	}
	// Truncation at N leaves a small tail outside the support.
	assert.InDelta(t, 1.0, sum, 0.05)
	assert.LessOrEqual(t, sum, 1.0+1e-9)
}

func TestLogSeriesPMF_VectorMatchesRange(t *testing.T) {
	full, err := LogSeriesPMF(10, 100, nil)
	require.NoError(t, err)

	atVals, err := LogSeriesPMF(10, 100, sad10)
	require.NoError(t, err)
	require.Len(t, atVals, len(sad10))

	for i, v := range sad10 {
		assert.InEpsilon(t, full[v-1], atVals[i], 1e-12)
	}
}

func TestLogSeriesPMF_Preconditions(t *testing.T) {
	cases := []struct {
		name string
		s, n int
		ab   core.AbundanceVector
	}{
		{"S greater than N", 100, 10, nil},
		{"S equals N", 10, 10, nil},
		{"single species", 1, 100, nil},
		{"zero individuals", 5, 0, nil},
		{"length mismatch", 10, 100, core.AbundanceVector{50, 50}},
		{"zero count in vector", 3, 10, core.AbundanceVector{5, 0, 5}},
		{"sum mismatch", 10, 100, core.AbundanceVector{40, 20, 10, 8, 7, 5, 4, 3, 2, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LogSeriesPMF(tc.s, tc.n, tc.ab)
			assert.True(t, core.IsPreconditionError(err), "expected precondition error, got %v", err)
		})
	}
}
