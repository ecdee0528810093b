// Package report renders comparison results as CSV, XLSX, Markdown, and HTML.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/xuri/excelize/v2"

	"macrosad/domain/compare"
)

var summaryHeader = []string{
	"dataset", "model", "params", "num_params", "nll", "aic", "aicc",
	"weight", "lrt_statistic", "lrt_p", "ks_d", "ks_p", "converged",
}

// WriteCSV writes one summary row per (dataset, model) pair.
func WriteCSV(w io.Writer, res *compare.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, dr := range res.Datasets {
		for _, mr := range dr.Models {
			if err := cw.Write(summaryRow(dr.Name, mr)); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with a summary sheet and one rank-abundance
// sheet per dataset (observed next to each model's prediction).
func WriteXLSX(path string, res *compare.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(summary, "A1", &header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	rowIdx := 2
	for _, dr := range res.Datasets {
		for _, mr := range dr.Models {
			row := summaryRow(dr.Name, mr)
			cells := make([]interface{}, len(row))
			for i, c := range row {
				cells[i] = c
			}
			cell, err := excelize.CoordinatesToCellName(1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(summary, cell, &cells); err != nil {
				return fmt.Errorf("write summary row: %w", err)
			}
			rowIdx++
		}
	}

	for _, dr := range res.Datasets {
		if err := writeRankSheet(f, dr); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRankSheet(f *excelize.File, dr compare.DatasetResult) error {
	name := sheetName(dr.Name)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("sheet %q: %w", name, err)
	}

	header := []interface{}{"rank", "observed"}
	for _, mr := range dr.Models {
		header = append(header, mr.Model)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	observed := append([]int(nil), dr.Observed...)
	sort.Ints(observed)

	for i := range observed {
		row := []interface{}{i + 1, observed[i]}
		for _, mr := range dr.Models {
			row = append(row, mr.RankAbundance[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Markdown renders the result as a Markdown document with one table per
// dataset.
func Markdown(res *compare.Result) []byte {
	var b strings.Builder
	b.WriteString("# Species-abundance model comparison\n\n")
	criterion := "AIC"
	if res.Corrected {
		criterion = "AICc"
	}
	fmt.Fprintf(&b, "Weights computed from %s.\n\n", criterion)

	for _, dr := range res.Datasets {
		fmt.Fprintf(&b, "## %s (S=%d, N=%d)\n\n", dr.Name, dr.S, dr.N)
		b.WriteString("| model | nll | aic | aicc | weight | lrt p | ks d |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, mr := range dr.Models {
			aicc := ""
			if mr.AICc != nil {
				aicc = formatFloat(*mr.AICc)
			}
			lrtP := ""
			if mr.LRT != nil {
				lrtP = formatFloat(mr.LRT.PValue)
			}
			ksD := ""
			if mr.KS != nil {
				ksD = formatFloat(mr.KS.D)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				mr.Model, formatFloat(mr.NLL), formatFloat(mr.AIC), aicc,
				formatFloat(mr.Weight), lrtP, ksD)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// WriteHTML renders the Markdown report to a standalone HTML page.
func WriteHTML(w io.Writer, res *compare.Result) error {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	out := markdown.ToHTML(Markdown(res), p, renderer)
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

func summaryRow(dataset string, mr compare.ModelResult) []string {
	params := make([]string, 0, len(mr.Params))
	for k := range mr.Params {
		params = append(params, k)
	}
	sort.Strings(params)
	for i, k := range params {
		params[i] = k + "=" + formatFloat(mr.Params[k])
	}

	aicc, lrtStat, lrtP, ksD, ksP := "", "", "", "", ""
	if mr.AICc != nil {
		aicc = formatFloat(*mr.AICc)
	}
	if mr.LRT != nil {
		lrtStat = formatFloat(mr.LRT.Statistic)
		lrtP = formatFloat(mr.LRT.PValue)
	}
	if mr.KS != nil {
		ksD = formatFloat(mr.KS.D)
		ksP = formatFloat(mr.KS.PValue)
	}
	return []string{
		dataset, mr.Model, strings.Join(params, " "),
		strconv.Itoa(mr.NumParams), formatFloat(mr.NLL), formatFloat(mr.AIC),
		aicc, formatFloat(mr.Weight), lrtStat, lrtP, ksD, ksP,
		strconv.FormatBool(mr.Diagnostics.Converged),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// sheetName clips a dataset name to the 31-character XLSX sheet limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
