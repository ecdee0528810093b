package sad

import (
	"errors"
	"fmt"
	"log"
	"math"

	"macrosad/domain/core"
	"macrosad/internal/numeric"
)

// Root selects which root of the METE large-N constraint to use when the
// equation has two solutions in the search bracket.
type Root int

const (
	// RootDefault defers to the documented default, the upper root.
	RootDefault Root = 0
	// RootLower selects the smaller solution.
	RootLower Root = 1
	// RootUpper selects the larger solution.
	RootUpper Root = 2
)

// meteBracketStart is the lower edge of the root search. Realistic values of
// x = e^-beta lie in (1/e, 1), occasionally slightly above 1, so the search
// starts just below 1/e.
const meteBracketStart = 0.3

// SolveMETEX solves the exact METE constraint (Harte 2011 eq 7.27)
//
//	sum_{j=1..N} x^j * S/N  =  sum_{j=1..N} x^j / j
//
// for x on (0.3, min((MaxFloat64/S)^(1/N), 2)). The upper bound keeps x^N
// representable for the shapes being fit.
func SolveMETEX(s, n int) (float64, error) {
	if err := validateShape(s, n); err != nil {
		return 0, err
	}
	ratio := float64(s) / float64(n)
	eq := func(x float64) float64 {
		// Accumulate the difference term by term so the two sums never
		// produce Inf - Inf for x above 1.
		var total float64
		xj := 1.0
		for j := 1; j <= n; j++ {
			xj *= x
			total += xj * (ratio - 1/float64(j))
		}
		return total
	}
	stop := math.Min(math.Pow(math.MaxFloat64/float64(s), 1/float64(n)), 2)
	x, err := numeric.Brent(eq, meteBracketStart, stop)
	if err != nil {
		return 0, fmt.Errorf("METE constraint (S=%d, N=%d): %w", s, n, err)
	}
	return x, nil
}

// METELogSeriesPMF returns the METE-constrained (upper-truncated) log-series
// probability mass, normalized over the support 1..N. When ab is nil the PMF
// covers the full range, otherwise the supplied abundance values.
func METELogSeriesPMF(s, n int, ab core.AbundanceVector) ([]float64, error) {
	if err := validateShape(s, n); err != nil {
		return nil, err
	}
	if ab != nil {
		if err := ab.ValidateAgainst(s, n); err != nil {
			return nil, err
		}
	}
	x, err := SolveMETEX(s, n)
	if err != nil {
		return nil, err
	}
	var norm float64
	xj := 1.0
	for j := 1; j <= n; j++ {
		xj *= x
		norm += xj / float64(j)
	}
	vals := queryValues(n, ab)
	pmf := make([]float64, len(vals))
	for i, k := range vals {
		pmf[i] = math.Pow(x, k) / (k * norm)
	}
	return pmf, nil
}

// SolveMETEApproxX solves the large-N METE approximation (Harte 2011 eq 7.30)
//
//	(-ln x) * ln(-1/ln x) = S/N
//
// on (0.3, 1-1e-10). The left-hand side peaks at 1/e, so when a solution
// exists there are two roots in the bracket and a direct bracketed search
// fails. The fallback scans a 1000-point grid for the maximum: a negative
// maximum means no parameterization exists for the given S and N; a positive
// one splits the bracket at the maximum and solves the side the root selector
// names.
func SolveMETEApproxX(s, n int, root Root) (float64, error) {
	if err := validateShape(s, n); err != nil {
		return 0, err
	}
	ratio := float64(s) / float64(n)
	eq := func(x float64) float64 {
		lx := math.Log(x)
		return -lx*math.Log(-1/lx) - ratio
	}
	start, stop := meteBracketStart, 1-1e-10

	x, err := numeric.Brent(eq, start, stop)
	if err == nil {
		return x, nil
	}
	if !errors.Is(err, numeric.ErrNoBracket) {
		return 0, fmt.Errorf("METE approximation (S=%d, N=%d): %w", s, n, err)
	}

	xmax, ymax := numeric.GridMax(eq, start, stop, 1000)
	if ymax < 0 {
		return 0, core.NewNoRootError(s, n)
	}
	log.Printf("[METE] constraint has two roots for S=%d, N=%d", s, n)
	switch root {
	case RootLower:
		x, err = numeric.Brent(eq, start, xmax)
	case RootUpper, RootDefault:
		x, err = numeric.Brent(eq, xmax, stop)
	default:
		return 0, fmt.Errorf("%w (selector %d)", core.ErrAmbiguousRoot, root)
	}
	if err != nil {
		return 0, fmt.Errorf("METE approximation root %d (S=%d, N=%d): %w", root, s, n, err)
	}
	return x, nil
}

// METELogSeriesApproxPMF returns the large-N approximation of the METE
// log-series PMF: (1/ln g) * x^k / k with g = -1/ln x.
func METELogSeriesApproxPMF(s, n int, ab core.AbundanceVector, root Root) ([]float64, error) {
	if err := validateShape(s, n); err != nil {
		return nil, err
	}
	if ab != nil {
		if err := ab.ValidateAgainst(s, n); err != nil {
			return nil, err
		}
	}
	x, err := SolveMETEApproxX(s, n, root)
	if err != nil {
		return nil, err
	}
	g := -1 / math.Log(x)
	scale := 1 / math.Log(g)
	vals := queryValues(n, ab)
	pmf := make([]float64, len(vals))
	for i, k := range vals {
		pmf[i] = scale * math.Pow(x, k) / k
	}
	return pmf, nil
}

// CDFPoint pairs an abundance class with its cumulative probability.
type CDFPoint struct {
	N   int     `json:"n"`
	CDF float64 `json:"cdf"`
}

// METELogSeriesCDF returns the cumulative distribution of the exact METE
// log-series over abundance classes 1..N.
func METELogSeriesCDF(s, n int) ([]CDFPoint, error) {
	pmf, err := METELogSeriesPMF(s, n, nil)
	if err != nil {
		return nil, err
	}
	points := make([]CDFPoint, len(pmf))
	var cum float64
	for i, p := range pmf {
		cum += p
		points[i] = CDFPoint{N: i + 1, CDF: cum}
	}
	return points, nil
}
