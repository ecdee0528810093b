// Package compare implements likelihood-based model comparison over fitted
// species-abundance distributions: negative log-likelihoods, AIC/AICc and
// Akaike weights, likelihood-ratio tests between nested models, empirical
// CDFs, and the Kolmogorov-Smirnov two-sample statistic.
package compare

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"macrosad/domain/core"
)

// NLL returns the negative log-likelihood -sum(ln p) of a PMF evaluated at
// observed data.
func NLL(pmf []float64) float64 {
	var nll float64
	for _, p := range pmf {
		nll -= math.Log(p)
	}
	return nll
}

// AIC is the Akaike Information Criterion for a model with negative
// log-likelihood nll and k free parameters.
func AIC(nll float64, k int) float64 {
	return 2*nll + 2*float64(k)
}

// AICc is the small-sample corrected AIC. The correction term is singular
// when the observation count n does not exceed k+1, which is reported as an
// error rather than returning an unusable value.
func AICc(nll float64, k, n int) (float64, error) {
	if n <= k+1 {
		return 0, fmt.Errorf("%w (n=%d, k=%d)", core.ErrAICcSingular, n, k)
	}
	kf := float64(k)
	return AIC(nll, k) + (2*kf*(kf+1))/(float64(n)-kf-1), nil
}

// AICWeights converts a set of AIC values from competing models into relative
// support probabilities: subtract the minimum, exponentiate -delta/2, and
// normalize to sum to one. The weights are invariant to adding a constant to
// every AIC value.
func AICWeights(aics []float64) []float64 {
	if len(aics) == 0 {
		return nil
	}
	min := aics[0]
	for _, a := range aics[1:] {
		if a < min {
			min = a
		}
	}
	weights := make([]float64, len(aics))
	var total float64
	for i, a := range aics {
		weights[i] = math.Exp(-(a - min) / 2)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// LRTResult holds a likelihood-ratio test outcome.
type LRTResult struct {
	Statistic float64 `json:"statistic"`
	DF        int     `json:"df"`
	PValue    float64 `json:"p_value"`
}

// LikelihoodRatioTest compares two nested models: the statistic is
// 2*nllNull - 2*nllAlt with df the difference in free-parameter counts, and
// the p-value comes from the chi-squared survival function. Nesting is a
// caller responsibility; the test is meaningless for non-nested models and is
// not verified here.
func LikelihoodRatioTest(nllNull, nllAlt float64, df int) LRTResult {
	stat := 2*nllNull - 2*nllAlt
	p := 1.0
	if df > 0 {
		p = distuv.ChiSquared{K: float64(df)}.Survival(stat)
	}
	return LRTResult{Statistic: stat, DF: df, PValue: p}
}

// EmpiricalCDF assigns each observation the cumulative fraction of
// observations less than or equal to its value. Tied observations share one
// CDF value, computed once per unique value.
func EmpiricalCDF(data []int) []float64 {
	uniq := make(map[int]int, len(data))
	for _, v := range data {
		uniq[v]++
	}
	vals := make([]int, 0, len(uniq))
	for v := range uniq {
		vals = append(vals, v)
	}
	sort.Ints(vals)

	cdfByValue := make(map[int]float64, len(vals))
	total := float64(len(data))
	running := 0
	for _, v := range vals {
		running += uniq[v]
		cdfByValue[v] = float64(running) / total
	}

	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = cdfByValue[v]
	}
	return out
}

// KSResult holds a Kolmogorov-Smirnov two-sample test outcome.
type KSResult struct {
	D      float64 `json:"d"`
	PValue float64 `json:"p_value"`
}

// KSTwoSample computes the two-sample Kolmogorov-Smirnov statistic, the
// maximum distance between the two empirical CDFs, with the asymptotic
// two-sided p-value. The test assumes continuous distributions; on discrete
// abundance data ties make it conservative.
func KSTwoSample(a, b []float64) KSResult {
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	n1, n2 := float64(len(x)), float64(len(y))
	var d float64
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		v := math.Min(x[i], y[j])
		for i < len(x) && x[i] <= v {
			i++
		}
		for j < len(y) && y[j] <= v {
			j++
		}
		gap := math.Abs(float64(i)/n1 - float64(j)/n2)
		if gap > d {
			d = gap
		}
	}

	en := math.Sqrt(n1 * n2 / (n1 + n2))
	p := kolmogorovSurvival((en + 0.12 + 0.11/en) * d)
	return KSResult{D: d, PValue: p}
}

// kolmogorovSurvival evaluates the asymptotic Kolmogorov distribution
// survival function Q(lambda) = 2 * sum_j (-1)^(j-1) exp(-2 j^2 lambda^2).
func kolmogorovSurvival(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := math.Exp(-2 * float64(j*j) * lambda * lambda)
		sum += sign * term
		if term < 1e-16 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
