// Package report exports the per-name password records of a protected batch.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/xuri/excelize/v2"
)

// Columns is the header row of every password report.
var Columns = []string{"Student Name", "Password", "Status"}

const (
	// SheetName is the worksheet the XLSX report is written to.
	SheetName = "Passwords"

	// Filename is the default download name of the XLSX report.
	Filename = "password_report.xlsx"
)

// WriteXLSX writes records as a single-sheet workbook, one row per record in order.
func WriteXLSX(w io.Writer, records []models.PasswordRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "C1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	for i, rec := range records {
		row := []any{rec.Name, rec.Password, rec.Status}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "B", 30); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes records as CSV with the same header and order as WriteXLSX.
func WriteCSV(w io.Writer, records []models.PasswordRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write([]string{rec.Name, rec.Password, rec.Status}); err != nil {
			return fmt.Errorf("failed to write record for %q: %w", rec.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
