package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	inProgressSheet = "In Progress Items"
	completedSheet  = "Completed PRs"
)

// FileName returns the download name for a report.
func (r *Report) FileName() string {
	return fmt.Sprintf("PR_Status_Report_%s_to_%s.xlsx", r.From, r.To)
}

// WriteXLSX writes the report as a workbook with an "In Progress Items" sheet listing
// every pending item and a "Completed PRs" sheet.
func (r *Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inProgressSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(completedSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	var rows [][]any
	for _, pr := range r.InProgress {
		for _, line := range pr.Pending {
			rows = append(rows, []any{pr.Name, line.Description, line.Original, line.Received, line.Pending, line.Comment})
		}
	}
	if err := writeSheet(f, inProgressSheet, bold,
		[]string{"PR Name", "Item Description", "Original Qty", "Received Qty", "Pending Qty", "Comment"},
		[]float64{40, 50, 15, 15, 15, 40}, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, pr := range r.Completed {
		rows = append(rows, []any{pr.Name, pr.IssueDate, pr.RequisitionBy, pr.ApprovedBy, pr.Items})
	}
	if err := writeSheet(f, completedSheet, bold,
		[]string{"PR Name", "Issue Date", "Requisition By", "Approved By", "Items"},
		[]float64{40, 15, 25, 25, 10}, rows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, headers []string, widths []float64, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %q: %w", h, err)
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	return nil
}
