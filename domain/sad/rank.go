package sad

// RankAbundance converts a PMF over abundance classes 1..len(pmf) into the
// predicted rank-abundance curve for s species by inverting the cumulative
// distribution at the quantiles (i - 1/2)/s for i = 1..s. This is a step
// quantile-function inversion, not literal order statistics. The result is
// ordered rarest first.
func RankAbundance(pmf []float64, s int) []int {
	cum := make([]float64, len(pmf)+1)
	for i, p := range pmf {
		cum[i+1] = cum[i] + p
	}
	abunds := make([]int, s)
	j := 0
	for i := 0; i < s; i++ {
		point := (float64(i) + 0.5) / float64(s)
		for j < len(cum) && cum[j] <= point {
			j++
		}
		// A truncated PMF can sum to less than the top quantile; clamp to
		// the support instead of reporting abundance N+1.
		if j > len(pmf) {
			j = len(pmf)
		}
		abunds[i] = j
	}
	return abunds
}

// PMFCumulative returns the running sum of a PMF over 1..len(pmf), the
// model's CDF on that support.
func PMFCumulative(pmf []float64) []float64 {
	cum := make([]float64, len(pmf))
	var total float64
	for i, p := range pmf {
		total += p
		cum[i] = total
	}
	return cum
}
