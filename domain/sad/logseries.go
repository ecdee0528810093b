package sad

import (
	"fmt"
	"math"

	"macrosad/domain/core"
	"macrosad/internal/numeric"
)

// SolveLogSeriesX solves Fisher's log-series constraint
//
//	(N/x - N) * (-ln(1 - x)) - S = 0
//
// for x on the bracket (-2, 1-1e-10). For valid shapes (1 < S < N) the
// constraint has a single root in (0, 1).
func SolveLogSeriesX(s, n int) (float64, error) {
	if err := validateShape(s, n); err != nil {
		return 0, err
	}
	sf, nf := float64(s), float64(n)
	eq := func(x float64) float64 {
		if x == 0 {
			// Removable singularity: (N/x - N)(-ln(1-x)) -> N as x -> 0.
			return nf - sf
		}
		return (nf/x-nf)*(-math.Log(1-x)) - sf
	}
	x, err := numeric.Brent(eq, -2, 1-1e-10)
	if err != nil {
		return 0, fmt.Errorf("log-series constraint (S=%d, N=%d): %w", s, n, err)
	}
	return x, nil
}

// LogSeriesPMF returns Fisher's log-series probability mass for the given
// shape. When ab is nil the PMF is evaluated over the full range 1..N,
// otherwise at each supplied abundance value (ab must then have length S and
// sum N).
func LogSeriesPMF(s, n int, ab core.AbundanceVector) ([]float64, error) {
	if err := validateShape(s, n); err != nil {
		return nil, err
	}
	if ab != nil {
		if err := ab.ValidateAgainst(s, n); err != nil {
			return nil, err
		}
	}
	x, err := SolveLogSeriesX(s, n)
	if err != nil {
		return nil, err
	}
	vals := queryValues(n, ab)
	denom := -math.Log(1 - x)
	pmf := make([]float64, len(vals))
	for i, k := range vals {
		pmf[i] = math.Pow(x, k) / (k * denom)
	}
	return pmf, nil
}
