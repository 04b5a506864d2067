package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"notepipe/internal/domain"
)

const (
	filesSheet   = "Files"
	summarySheet = "Summary"
)

// WriteXLSX writes report as an Excel workbook with a per-file sheet and a
// summary sheet.
func WriteXLSX(out io.Writer, report *domain.RunReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", filesSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	header := toCells(columns)
	if err := f.SetSheetRow(filesSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range reportRows(report) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := toCells(row)
		if err := f.SetSheetRow(filesSheet, cell, &cells); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Run ID", report.RunID.String()},
		{"Started At", report.StartedAt},
		{"Finished At", report.FinishedAt},
		{"Dry Run", report.DryRun},
		{"Succeeded", report.Succeeded()},
		{"Failed", report.Failed()},
		{"Skipped", report.Skipped()},
		{"Not Attempted", len(report.NotAttempted)},
		{"Aborted", report.Aborted},
		{"Abort Reason", report.AbortReason},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
