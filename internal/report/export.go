package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"spendsheet/internal/core"
)

const (
	expensesSheet = "Expenses"
	summarySheet  = "Summary"

	// builtin number format "#,##0.00"
	numFmtAmount = 4
)

// ExportXLSX writes a workbook with every expense of year and a monthly summary.
func (s *Service) ExportXLSX(ctx context.Context, year int, w io.Writer) error {
	es, err := s.src.ListByYear(ctx, year)
	if err != nil {
		return err
	}
	sum := Summarize(year, es, s.loc)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", expensesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRow(f, expensesSheet, 1, []any{"ID", "Date", "Description", "Category", "Amount", "Paid"}); err != nil {
		return err
	}
	for i, e := range es {
		var paid any = ""
		if e.Paid != nil {
			paid = *e.Paid
		}
		row := []any{e.ID, core.FormatStoredDate(e.Date, s.loc), e.Description, e.Category, e.Amount.InexactFloat64(), paid}
		if err := writeRow(f, expensesSheet, i+2, row); err != nil {
			return err
		}
	}
	last := len(es) + 1
	_ = f.SetCellStyle(expensesSheet, "A1", "F1", bold)
	if last > 1 {
		_ = f.SetCellStyle(expensesSheet, "E2", fmt.Sprintf("E%d", last), amountStyle)
	}
	_ = f.SetColWidth(expensesSheet, "B", "B", 12)
	_ = f.SetColWidth(expensesSheet, "C", "C", 40)
	_ = f.SetColWidth(expensesSheet, "D", "D", 16)
	_ = f.SetColWidth(expensesSheet, "E", "E", 14)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	// Column D repeats the amount as display text (currency code, Indian grouping).
	if err := writeRow(f, summarySheet, 1, []any{"Month", "Amount", "Count", "Display"}); err != nil {
		return err
	}
	for i, m := range sum.Months {
		if err := writeRow(f, summarySheet, i+2, []any{monthLabels[i], m.Amount.InexactFloat64(), m.Count, s.FormatMoney(m.Amount)}); err != nil {
			return err
		}
	}
	if err := writeRow(f, summarySheet, 14, []any{"Total", sum.Total.InexactFloat64(), sum.Count, s.FormatMoney(sum.Total)}); err != nil {
		return err
	}
	row := 16
	if err := writeRow(f, summarySheet, row, []any{"Category", "Amount", "Count", "Display"}); err != nil {
		return err
	}
	for _, c := range sum.ByCategory {
		row++
		if err := writeRow(f, summarySheet, row, []any{c.Name, c.Amount.InexactFloat64(), c.Count, s.FormatMoney(c.Amount)}); err != nil {
			return err
		}
	}
	_ = f.SetCellStyle(summarySheet, "A1", "D1", bold)
	_ = f.SetCellStyle(summarySheet, "A14", "D14", bold)
	_ = f.SetCellStyle(summarySheet, "A16", "D16", bold)
	_ = f.SetCellStyle(summarySheet, "B2", fmt.Sprintf("B%d", row), amountStyle)
	_ = f.SetColWidth(summarySheet, "A", "A", 16)
	_ = f.SetColWidth(summarySheet, "D", "D", 20)

	if idx, err := f.GetSheetIndex(expensesSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
