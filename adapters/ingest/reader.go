// Package ingest reads site-by-species abundance tables from CSV and XLSX
// files into comparison datasets. Tables are column-per-site: the header row
// names the sites, each later row is one species, and an optional leading
// label column is detected and skipped. Zero counts are dropped, since the
// models operate on observed (zero-truncated) abundances.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"macrosad/domain/compare"
	"macrosad/domain/core"
)

// ReadFile loads datasets from a CSV or XLSX file, dispatching on extension.
func ReadFile(path string) ([]compare.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	}
	return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
}

// ReadCSV parses a site-by-species table from CSV.
func ReadCSV(r io.Reader) ([]compare.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRows(rows)
}

// ReadXLSX parses a site-by-species table from the first sheet of an XLSX
// workbook.
func ReadXLSX(path string) ([]compare.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// fromRows converts a header-plus-data string matrix into datasets, one per
// site column.
func fromRows(rows [][]string) ([]compare.Dataset, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("table needs a header row and at least one species row")
	}
	header := rows[0]
	skip := labelColumn(rows)
	if skip >= len(header) {
		return nil, fmt.Errorf("table has no site columns")
	}

	sites := header[skip:]
	counts := make([][]int, len(sites))

	for ri, row := range rows[1:] {
		for ci := skip; ci < len(header); ci++ {
			cell := ""
			if ci < len(row) {
				cell = strings.TrimSpace(row[ci])
			}
			if cell == "" {
				cell = "0"
			}
			v, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", ri+2, header[ci], err)
			}
			if v < 0 {
				return nil, fmt.Errorf("row %d, column %q: %w", ri+2, header[ci], core.ErrNegativeAbundance)
			}
			if v > 0 {
				counts[ci-skip] = append(counts[ci-skip], v)
			}
		}
	}

	datasets := make([]compare.Dataset, len(sites))
	for i, name := range sites {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("site-%d", i+1)
		}
		datasets[i] = compare.Dataset{Name: name, Abundances: core.AbundanceVector(counts[i])}
	}
	return datasets, nil
}

// labelColumn returns 1 when the first column holds species labels rather
// than counts, judged by whether any data cell in it fails to parse as an
// integer.
func labelColumn(rows [][]string) int {
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSpace(row[0])); err != nil {
			return 1
		}
	}
	return 0
}
