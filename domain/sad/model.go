package sad

import (
	"fmt"

	"macrosad/domain/core"
)

// Model is the capability set the comparison engine relies on: an explicit
// identifier, a free-parameter count, a fit that returns a parameterized
// copy, and PMF/CDF/rank-abundance evaluation on the fitted sample. Fit does
// not mutate the receiver; every call returns an independent fitted model, so
// one unfitted prototype can serve concurrent fits.
type Model interface {
	Name() string
	NumParams() int
	Fit(ab core.AbundanceVector) (Model, error)
	// PMF evaluates the fitted model at the fitted abundance values.
	PMF() ([]float64, error)
	// PMFRange evaluates the fitted model over the full support 1..N.
	PMFRange() ([]float64, error)
	// CDF returns the model CDF at each fitted abundance value.
	CDF() ([]float64, error)
	// RankAbundance returns the predicted abundance of each species,
	// rarest first.
	RankAbundance() ([]int, error)
	Params() map[string]float64
	Diagnostics() FitDiagnostics
}

// FitDiagnostics reports whether a numerical fit converged and how many
// optimizer iterations it used. Closed-form fits are always converged with
// zero iterations.
type FitDiagnostics struct {
	Converged  bool `json:"converged"`
	Iterations int  `json:"iterations"`
}

// Model identifiers.
const (
	NameLogSeries       = "logseries"
	NameMETE            = "mete"
	NameMETEApprox      = "mete_approx"
	NameNegBinom        = "neg_binom"
	NamePoissonLogNorm  = "plognorm"
	NameTruncPoissonLog = "trun_plognorm"
)

// New returns an unfitted model for the given identifier.
func New(name string) (Model, error) {
	switch name {
	case NameLogSeries:
		return &LogSeries{}, nil
	case NameMETE:
		return &METELogSeries{}, nil
	case NameMETEApprox:
		return &METELogSeriesApprox{Root: RootUpper}, nil
	case NameNegBinom:
		return &NegativeBinomial{GuessK: 1}, nil
	case NamePoissonLogNorm:
		return &PoissonLogNormal{}, nil
	case NameTruncPoissonLog:
		return &PoissonLogNormal{Truncated: true}, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownModel, name)
}

// Names lists every model identifier New accepts.
func Names() []string {
	return []string{
		NameLogSeries,
		NameMETE,
		NameMETEApprox,
		NameNegBinom,
		NamePoissonLogNorm,
		NameTruncPoissonLog,
	}
}

// fitState carries the sample a model was fitted to.
type fitState struct {
	ab core.AbundanceVector
	s  int
	n  int
}

// newFitState validates a sample and drops zero counts: a zero marks an
// absent species, and every PMF here is supported on positive abundances.
func newFitState(ab core.AbundanceVector) (fitState, error) {
	if err := ab.Validate(); err != nil {
		return fitState{}, err
	}
	pos := ab.Positive()
	if err := pos.Validate(); err != nil {
		return fitState{}, err
	}
	return fitState{ab: pos, s: pos.Richness(), n: pos.Individuals()}, nil
}

func (f fitState) fitted() bool {
	return f.ab != nil
}

// rankFromRange is the shared rank-abundance derivation over a full-range PMF.
func rankFromRange(pmfRange func() ([]float64, error), s int) ([]int, error) {
	pmf, err := pmfRange()
	if err != nil {
		return nil, err
	}
	return RankAbundance(pmf, s), nil
}

// cdfAt indexes the cumulative full-range PMF at the fitted values.
func cdfAt(pmfRange func() ([]float64, error), ab core.AbundanceVector) ([]float64, error) {
	pmf, err := pmfRange()
	if err != nil {
		return nil, err
	}
	cum := PMFCumulative(pmf)
	out := make([]float64, len(ab))
	for i, v := range ab {
		out[i] = cum[v-1]
	}
	return out, nil
}

// LogSeries is Fisher's log series, parameterized by the root x of the
// (S, N) constraint equation.
type LogSeries struct {
	state fitState
	x     float64
}

func (m *LogSeries) Name() string   { return NameLogSeries }
func (m *LogSeries) NumParams() int { return 1 }

func (m *LogSeries) Fit(ab core.AbundanceVector) (Model, error) {
	state, err := newFitState(ab)
	if err != nil {
		return nil, err
	}
	x, err := SolveLogSeriesX(state.s, state.n)
	if err != nil {
		return nil, err
	}
	return &LogSeries{state: state, x: x}, nil
}

func (m *LogSeries) PMF() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return LogSeriesPMF(m.state.s, m.state.n, m.state.ab)
}

func (m *LogSeries) PMFRange() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return LogSeriesPMF(m.state.s, m.state.n, nil)
}

func (m *LogSeries) CDF() ([]float64, error) {
	return cdfAt(m.PMFRange, m.state.ab)
}

func (m *LogSeries) RankAbundance() ([]int, error) {
	return rankFromRange(m.PMFRange, m.state.s)
}

func (m *LogSeries) Params() map[string]float64 {
	return map[string]float64{"x": m.x}
}

func (m *LogSeries) Diagnostics() FitDiagnostics {
	return FitDiagnostics{Converged: true}
}

// METELogSeries is the exact METE-constrained log series.
type METELogSeries struct {
	state fitState
	x     float64
}

func (m *METELogSeries) Name() string   { return NameMETE }
func (m *METELogSeries) NumParams() int { return 1 }

func (m *METELogSeries) Fit(ab core.AbundanceVector) (Model, error) {
	state, err := newFitState(ab)
	if err != nil {
		return nil, err
	}
	x, err := SolveMETEX(state.s, state.n)
	if err != nil {
		return nil, err
	}
	return &METELogSeries{state: state, x: x}, nil
}

func (m *METELogSeries) PMF() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return METELogSeriesPMF(m.state.s, m.state.n, m.state.ab)
}

func (m *METELogSeries) PMFRange() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return METELogSeriesPMF(m.state.s, m.state.n, nil)
}

func (m *METELogSeries) CDF() ([]float64, error) {
	return cdfAt(m.PMFRange, m.state.ab)
}

func (m *METELogSeries) RankAbundance() ([]int, error) {
	return rankFromRange(m.PMFRange, m.state.s)
}

func (m *METELogSeries) Params() map[string]float64 {
	return map[string]float64{"x": m.x}
}

func (m *METELogSeries) Diagnostics() FitDiagnostics {
	return FitDiagnostics{Converged: true}
}

// METELogSeriesApprox is the large-N approximation of the METE log series.
// Root picks the constraint root when two exist; the zero value defers to the
// documented default (upper).
type METELogSeriesApprox struct {
	Root  Root
	state fitState
	x     float64
}

func (m *METELogSeriesApprox) Name() string   { return NameMETEApprox }
func (m *METELogSeriesApprox) NumParams() int { return 1 }

func (m *METELogSeriesApprox) Fit(ab core.AbundanceVector) (Model, error) {
	state, err := newFitState(ab)
	if err != nil {
		return nil, err
	}
	x, err := SolveMETEApproxX(state.s, state.n, m.Root)
	if err != nil {
		return nil, err
	}
	return &METELogSeriesApprox{Root: m.Root, state: state, x: x}, nil
}

func (m *METELogSeriesApprox) PMF() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return METELogSeriesApproxPMF(m.state.s, m.state.n, m.state.ab, m.Root)
}

func (m *METELogSeriesApprox) PMFRange() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return METELogSeriesApproxPMF(m.state.s, m.state.n, nil, m.Root)
}

func (m *METELogSeriesApprox) CDF() ([]float64, error) {
	return cdfAt(m.PMFRange, m.state.ab)
}

func (m *METELogSeriesApprox) RankAbundance() ([]int, error) {
	return rankFromRange(m.PMFRange, m.state.s)
}

func (m *METELogSeriesApprox) Params() map[string]float64 {
	return map[string]float64{"x": m.x}
}

func (m *METELogSeriesApprox) Diagnostics() FitDiagnostics {
	return FitDiagnostics{Converged: true}
}

// NegativeBinomial fits the aggregation parameter k by maximum likelihood,
// starting the simplex search at GuessK.
type NegativeBinomial struct {
	GuessK float64
	state  fitState
	fit    NegBinomFit
}

func (m *NegativeBinomial) Name() string   { return NameNegBinom }
func (m *NegativeBinomial) NumParams() int { return 1 }

func (m *NegativeBinomial) Fit(ab core.AbundanceVector) (Model, error) {
	state, err := newFitState(ab)
	if err != nil {
		return nil, err
	}
	guess := m.GuessK
	if guess == 0 {
		guess = 1
	}
	fit, err := FitNegBinom(state.ab, guess)
	if err != nil {
		return nil, err
	}
	return &NegativeBinomial{GuessK: guess, state: state, fit: fit}, nil
}

func (m *NegativeBinomial) PMF() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return NegBinomPMF(m.state.s, m.state.n, m.fit.K, m.state.ab)
}

func (m *NegativeBinomial) PMFRange() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return NegBinomPMF(m.state.s, m.state.n, m.fit.K, nil)
}

func (m *NegativeBinomial) CDF() ([]float64, error) {
	return cdfAt(m.PMFRange, m.state.ab)
}

func (m *NegativeBinomial) RankAbundance() ([]int, error) {
	return rankFromRange(m.PMFRange, m.state.s)
}

func (m *NegativeBinomial) Params() map[string]float64 {
	return map[string]float64{"k": m.fit.K}
}

func (m *NegativeBinomial) Diagnostics() FitDiagnostics {
	return FitDiagnostics{Converged: m.fit.Converged, Iterations: m.fit.Iterations}
}

// PoissonLogNormal fits (mean, variance) by maximum likelihood over the
// untruncated or zero-truncated family.
type PoissonLogNormal struct {
	Truncated bool
	state     fitState
	fit       PoissonLogNormalFit
}

func (m *PoissonLogNormal) Name() string {
	if m.Truncated {
		return NameTruncPoissonLog
	}
	return NamePoissonLogNorm
}

func (m *PoissonLogNormal) NumParams() int { return 2 }

func (m *PoissonLogNormal) Fit(ab core.AbundanceVector) (Model, error) {
	state, err := newFitState(ab)
	if err != nil {
		return nil, err
	}
	fit, err := FitPoissonLogNormal(state.ab, m.Truncated)
	if err != nil {
		return nil, err
	}
	return &PoissonLogNormal{Truncated: m.Truncated, state: state, fit: fit}, nil
}

func (m *PoissonLogNormal) pmf(ab core.AbundanceVector, full bool) ([]float64, error) {
	if m.Truncated {
		return TruncatedPoissonLogNormalPMF(m.fit.Mean, m.fit.Variance, ab, full)
	}
	return PoissonLogNormalPMF(m.fit.Mean, m.fit.Variance, ab, full)
}

func (m *PoissonLogNormal) PMF() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return m.pmf(m.state.ab, false)
}

func (m *PoissonLogNormal) PMFRange() ([]float64, error) {
	if !m.state.fitted() {
		return nil, core.ErrNotFitted
	}
	return m.pmf(m.state.ab, true)
}

func (m *PoissonLogNormal) CDF() ([]float64, error) {
	return cdfAt(m.PMFRange, m.state.ab)
}

func (m *PoissonLogNormal) RankAbundance() ([]int, error) {
	return rankFromRange(m.PMFRange, m.state.s)
}

func (m *PoissonLogNormal) Params() map[string]float64 {
	return map[string]float64{"mean": m.fit.Mean, "var": m.fit.Variance}
}

func (m *PoissonLogNormal) Diagnostics() FitDiagnostics {
	return FitDiagnostics{Converged: m.fit.Converged, Iterations: m.fit.Iterations}
}
