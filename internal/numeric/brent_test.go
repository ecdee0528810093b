package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrent_FindsSimpleRoot(t *testing.T) {
	// x^2 - 2 on [0, 2] has its root at sqrt(2)
	f := func(x float64) float64 { return x*x - 2 }

	root, err := Brent(f, 0, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, root, 1e-10)
}

func TestBrent_TranscendentalRoot(t *testing.T) {
	// cos(x) = x near 0.739085
	f := func(x float64) float64 { return math.Cos(x) - x }

	root, err := Brent(f, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.7390851332151607, root, 1e-10)
}

func TestBrent_EndpointRoot(t *testing.T) {
	f := func(x float64) float64 { return x }

	root, err := Brent(f, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, root)
}

func TestBrent_NoBracket(t *testing.T) {
	// Positive on the whole interval
	f := func(x float64) float64 { return x*x + 1 }

	_, err := Brent(f, -1, 1)
	assert.ErrorIs(t, err, ErrNoBracket)
}

func TestGridMax_LocatesMaximum(t *testing.T) {
	// -u*ln(u) on (0, 1.2] peaks at u = 1/e with value 1/e
	f := func(u float64) float64 {
		if u <= 0 {
			return math.Inf(-1)
		}
		return -u * math.Log(u)
	}

	xmax, ymax := GridMax(f, 1e-6, 1.2, 1000)
	assert.InDelta(t, 1/math.E, xmax, 2e-3)
	assert.InDelta(t, 1/math.E, ymax, 1e-5)
}
