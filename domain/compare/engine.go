package compare

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"macrosad/domain/core"
	"macrosad/domain/sad"
)

// Dataset pairs one empirical abundance vector with a caller-facing name.
type Dataset struct {
	Name       string               `json:"name"`
	Abundances core.AbundanceVector `json:"abundances"`
}

// Options controls one comparison run.
type Options struct {
	// Corrected selects AICc instead of AIC for the weights. Every
	// dataset must then satisfy n > k+1 for every model.
	Corrected bool
	// NullModel, when set, is fitted alongside the candidates and each of
	// them is tested against it with a likelihood-ratio test. The caller
	// is responsible for the null actually being nested in the
	// alternatives.
	NullModel sad.Model
	// Workers bounds concurrent fits. Zero means GOMAXPROCS.
	Workers int
}

// ModelResult is the comparison record for one (dataset, model) pair.
type ModelResult struct {
	Model         string             `json:"model"`
	Params        map[string]float64 `json:"params"`
	NumParams     int                `json:"num_params"`
	NLL           float64            `json:"nll"`
	AIC           float64            `json:"aic"`
	AICc          *float64           `json:"aicc,omitempty"`
	Weight        float64            `json:"weight"`
	LRT           *LRTResult         `json:"lrt,omitempty"`
	RankAbundance []int              `json:"rank_abundance"`
	CDF           []float64          `json:"cdf"`
	KS            *KSResult          `json:"ks,omitempty"`
	Diagnostics   sad.FitDiagnostics `json:"diagnostics"`
}

// DatasetResult aggregates the records for one dataset across all models.
type DatasetResult struct {
	Name         string        `json:"name"`
	S            int           `json:"s"`
	N            int           `json:"n"`
	Observed     []int         `json:"observed"`
	EmpiricalCDF []float64     `json:"empirical_cdf"`
	NullModel    string        `json:"null_model,omitempty"`
	Models       []ModelResult `json:"models"`
}

// Result is the full output of a comparison run.
type Result struct {
	Corrected bool            `json:"corrected"`
	Datasets  []DatasetResult `json:"datasets"`
}

// Comparator fits a list of candidate models to a list of datasets and
// derives the comparison statistics for every pair. It holds only the inputs
// for the duration of one Run call; nothing persists between runs.
type Comparator struct {
	datasets []Dataset
	models   []sad.Model
}

// NewComparator validates the inputs and returns a comparator. Zero counts
// mark absent species and are dropped from each dataset, so S, the observed
// vector, and every derived statistic cover present species only. Model
// prototypes are unfitted; Fit produces an independent fitted copy per
// dataset, so the same prototype list can serve many comparators.
func NewComparator(datasets []Dataset, models []sad.Model) (*Comparator, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: no datasets supplied", core.ErrPrecondition)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no models supplied", core.ErrPrecondition)
	}
	normalized := make([]Dataset, len(datasets))
	for i, d := range datasets {
		if err := d.Abundances.Validate(); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", d.Name, err)
		}
		pos := d.Abundances.Positive()
		if err := pos.Validate(); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", d.Name, err)
		}
		normalized[i] = Dataset{Name: d.Name, Abundances: pos}
	}
	return &Comparator{datasets: normalized, models: models}, nil
}

// Run fits every model to every dataset and assembles the comparison
// records. Pairs are independent, so the fits run concurrently under a
// weighted semaphore; the Akaike weight normalization and LRT pairing wait
// until all fits for a dataset have been collected. Any fit failure aborts
// the run: no partial results are returned alongside an error.
func (c *Comparator) Run(ctx context.Context, opts Options) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	nModels := len(c.models)
	fitted := make([][]sad.Model, len(c.datasets))
	nulls := make([]sad.Model, len(c.datasets))
	for i := range fitted {
		fitted[i] = make([]sad.Model, nModels)
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	fitJob := func(ds Dataset, proto sad.Model, slot *sad.Model) {
		defer wg.Done()
		if err := sem.Acquire(ctx, 1); err != nil {
			fail(err)
			return
		}
		defer sem.Release(1)
		m, err := proto.Fit(ds.Abundances)
		if err != nil {
			fail(fmt.Errorf("fit %s to dataset %q: %w", proto.Name(), ds.Name, err))
			return
		}
		mu.Lock()
		*slot = m
		mu.Unlock()
	}

	for di, ds := range c.datasets {
		for mi, proto := range c.models {
			wg.Add(1)
			go fitJob(ds, proto, &fitted[di][mi])
		}
		if opts.NullModel != nil {
			wg.Add(1)
			go fitJob(ds, opts.NullModel, &nulls[di])
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	log.Printf("[Comparator] fitted %d models across %d datasets", nModels, len(c.datasets))

	result := &Result{Corrected: opts.Corrected, Datasets: make([]DatasetResult, len(c.datasets))}
	for di, ds := range c.datasets {
		dr, err := c.assemble(ds, fitted[di], nulls[di], opts)
		if err != nil {
			return nil, err
		}
		result.Datasets[di] = *dr
	}
	return result, nil
}

// assemble builds the per-dataset records once every fit is available.
func (c *Comparator) assemble(ds Dataset, fitted []sad.Model, null sad.Model, opts Options) (*DatasetResult, error) {
	n := len(ds.Abundances)
	dr := &DatasetResult{
		Name:         ds.Name,
		S:            ds.Abundances.Richness(),
		N:            ds.Abundances.Individuals(),
		Observed:     append([]int(nil), ds.Abundances...),
		EmpiricalCDF: EmpiricalCDF(ds.Abundances),
		Models:       make([]ModelResult, len(fitted)),
	}

	var nullNLL float64
	var nullParams int
	if null != nil {
		pmf, err := null.PMF()
		if err != nil {
			return nil, fmt.Errorf("null model %s on dataset %q: %w", null.Name(), ds.Name, err)
		}
		nullNLL = NLL(pmf)
		nullParams = null.NumParams()
		dr.NullModel = null.Name()
	}

	criteria := make([]float64, len(fitted))
	for mi, m := range fitted {
		pmf, err := m.PMF()
		if err != nil {
			return nil, fmt.Errorf("model %s on dataset %q: %w", m.Name(), ds.Name, err)
		}
		nll := NLL(pmf)
		k := m.NumParams()
		aic := AIC(nll, k)

		mr := ModelResult{
			Model:       m.Name(),
			Params:      m.Params(),
			NumParams:   k,
			NLL:         nll,
			AIC:         aic,
			Diagnostics: m.Diagnostics(),
		}

		if aicc, err := AICc(nll, k, n); err == nil {
			mr.AICc = &aicc
		} else if opts.Corrected {
			return nil, fmt.Errorf("dataset %q, model %s: %w", ds.Name, m.Name(), err)
		}

		criteria[mi] = aic
		if opts.Corrected {
			criteria[mi] = *mr.AICc
		}

		if null != nil {
			lrt := LikelihoodRatioTest(nullNLL, nll, k-nullParams)
			mr.LRT = &lrt
		}

		rad, err := m.RankAbundance()
		if err != nil {
			return nil, fmt.Errorf("model %s on dataset %q: %w", m.Name(), ds.Name, err)
		}
		mr.RankAbundance = rad

		cdf, err := m.CDF()
		if err != nil {
			return nil, fmt.Errorf("model %s on dataset %q: %w", m.Name(), ds.Name, err)
		}
		mr.CDF = cdf

		obs := ds.Abundances.Float64s()
		pred := make([]float64, len(rad))
		for i, v := range rad {
			pred[i] = float64(v)
		}
		ks := KSTwoSample(obs, pred)
		mr.KS = &ks

		dr.Models[mi] = mr
	}

	for mi, w := range AICWeights(criteria) {
		dr.Models[mi].Weight = w
	}
	return dr, nil
}
