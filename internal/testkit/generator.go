// Package testkit generates synthetic species-abundance samples with known
// parameters so estimator tests can check parameter recovery. All sampling is
// seeded and deterministic.
package testkit

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"macrosad/domain/core"
)

// Generator draws abundance vectors from parametric community models.
type Generator struct {
	src rand.Source
}

// New returns a generator with a fixed seed.
func New(seed uint64) *Generator {
	return &Generator{src: rand.NewPCG(seed, seed+1)}
}

// NegBinom draws s zero-truncated negative binomial abundances with
// aggregation k and mean mu, via the gamma-Poisson mixture: a per-species
// rate lambda ~ Gamma(k, k/mu), then a Poisson count. Zero counts are
// redrawn, matching the support of an observed abundance vector.
func (g *Generator) NegBinom(s int, k, mu float64) core.AbundanceVector {
	gamma := distuv.Gamma{Alpha: k, Beta: k / mu, Src: g.src}
	out := make(core.AbundanceVector, s)
	for i := range out {
		for {
			lambda := gamma.Rand()
			n := int(distuv.Poisson{Lambda: lambda, Src: g.src}.Rand())
			if n > 0 {
				out[i] = n
				break
			}
		}
	}
	return out
}

// PoissonLogNormal draws s zero-truncated Poisson log-normal abundances with
// log-scale mean mu and standard deviation sigma.
func (g *Generator) PoissonLogNormal(s int, mu, sigma float64) core.AbundanceVector {
	normal := distuv.Normal{Mu: mu, Sigma: sigma, Src: g.src}
	out := make(core.AbundanceVector, s)
	for i := range out {
		for {
			lambda := math.Exp(normal.Rand())
			n := int(distuv.Poisson{Lambda: lambda, Src: g.src}.Rand())
			if n > 0 {
				out[i] = n
				break
			}
		}
	}
	return out
}

// LogSeries draws s abundances from a log series with parameter x in (0, 1)
// by inverting the cumulative distribution.
func (g *Generator) LogSeries(s int, x float64) core.AbundanceVector {
	rng := rand.New(g.src)
	norm := -math.Log(1 - x)
	out := make(core.AbundanceVector, s)
	for i := range out {
		u := rng.Float64()
		cum := 0.0
		xk := 1.0
		k := 0
		for cum < u {
			k++
			xk *= x
			cum += xk / (float64(k) * norm)
			if k >= 1<<20 {
				break
			}
		}
		if k == 0 {
			k = 1
		}
		out[i] = k
	}
	return out
}
