package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"macrosad/domain/compare"
	"macrosad/domain/sad"
)

func sampleResult() *compare.Result {
	aicc := 106.5
	return &compare.Result{
		Datasets: []compare.DatasetResult{
			{
				Name:     "north",
				S:        3,
				N:        9,
				Observed: []int{5, 3, 1},
				Models: []compare.ModelResult{
					{
						Model:         "logseries",
						Params:        map[string]float64{"x": 0.92},
						NumParams:     1,
						NLL:           51.2,
						AIC:           104.4,
						AICc:          &aicc,
						Weight:        0.75,
						LRT:           &compare.LRTResult{Statistic: 4.2, DF: 1, PValue: 0.04},
						RankAbundance: []int{1, 3, 6},
						CDF:           []float64{0.4, 0.7, 0.95},
						KS:            &compare.KSResult{D: 0.33, PValue: 0.81},
						Diagnostics:   sad.FitDiagnostics{Converged: true},
					},
					{
						Model:         "neg_binom",
						Params:        map[string]float64{"k": 1.4},
						NumParams:     1,
						NLL:           52.8,
						AIC:           107.6,
						Weight:        0.25,
						RankAbundance: []int{1, 2, 6},
						CDF:           []float64{0.35, 0.6, 0.9},
						Diagnostics:   sad.FitDiagnostics{Converged: true, Iterations: 40},
					},
				},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(summaryHeader, ","), lines[0])
	assert.Contains(t, lines[1], "north,logseries,x=0.92")
	assert.Contains(t, lines[2], "north,neg_binom,k=1.4")
}

func TestMarkdown(t *testing.T) {
	md := string(Markdown(sampleResult()))
	assert.Contains(t, md, "# Species-abundance model comparison")
	assert.Contains(t, md, "Weights computed from AIC.")
	assert.Contains(t, md, "## north (S=3, N=9)")
	assert.Contains(t, md, "| logseries |")
	assert.Contains(t, md, "| neg_binom |")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleResult()))
	out := buf.String()
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "logseries")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, sampleResult()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "logseries", rows[1][1])

	rank, err := f.GetRows("north")
	require.NoError(t, err)
	require.Len(t, rank, 4)
	// Observed sorted ascending beside each model's prediction.
	assert.Equal(t, []string{"1", "1", "1", "1"}, rank[1][:4])
}
