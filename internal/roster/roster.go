// Package roster turns typed text and uploaded spreadsheets into an ordered name list.
package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned by Load for file extensions it cannot read.
var ErrUnsupportedFormat = errors.New("unsupported name list format")

// Clean trims every entry and drops the blank ones. Order and duplicates are kept.
func Clean(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// FromText splits typed input into one name per line.
func FromText(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return Clean(strings.Split(s, "\n"))
}

// FromCSV reads the first non-empty column of a CSV file, skipping the header row.
func FromCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return firstColumn(rows), nil
}

// FromXLSX reads the first non-empty column of the first sheet, skipping the header row.
func FromXLSX(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return firstColumn(rows), nil
}

// Load picks a reader by the file extension of filename. Any failure is a *models.LoadError.
func Load(filename string, r io.Reader) ([]string, error) {
	var (
		names []string
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		names, err = FromXLSX(r)
	case ".csv":
		names, err = FromCSV(r)
	case ".txt", "":
		var buf bytes.Buffer
		if _, err = buf.ReadFrom(r); err == nil {
			names = FromText(buf.String())
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, &models.LoadError{Input: filename, Err: err}
	}
	return names, nil
}

// firstColumn picks the leftmost column that holds any value below the header and
// returns its cleaned cells.
func firstColumn(rows [][]string) []string {
	if len(rows) < 2 {
		return nil
	}
	body := rows[1:]
	col := -1
	for _, row := range body {
		for i, cell := range row {
			if strings.TrimSpace(cell) != "" && (col < 0 || i < col) {
				col = i
				break
			}
		}
	}
	if col < 0 {
		return nil
	}
	names := make([]string, 0, len(body))
	for _, row := range body {
		if col < len(row) {
			names = append(names, row[col])
		}
	}
	return Clean(names)
}
