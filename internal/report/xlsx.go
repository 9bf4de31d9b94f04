package report

import (
	"fmt"
	"io"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/dvloznov/vaultmind/internal/domain"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	LedgerSheet   = "Ledger"
	CategorySheet = "Categories"
	AlertsSheet   = "Alerts"
)

// WriteWorkbook exports the ledger, per-category totals and alerts as an
// XLSX workbook.
func WriteWorkbook(w io.Writer, l domain.Ledger, found []alerts.Alert) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return fmt.Errorf("WriteWorkbook: rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("WriteWorkbook: create style: %w", err)
	}

	ledgerRows := make([][]interface{}, 0, len(l))
	for _, tx := range l {
		ledgerRows = append(ledgerRows, []interface{}{
			tx.Timestamp.Format(ledger.TimestampLayout),
			tx.Merchant,
			tx.Category,
			tx.Amount.InexactFloat64(),
			tx.PaymentMethod,
			tx.AccountBalance.InexactFloat64(),
		})
	}
	if err := writeSheet(f, LedgerSheet, domain.Columns, ledgerRows, bold); err != nil {
		return fmt.Errorf("WriteWorkbook: %w", err)
	}

	buckets := CategorySpend(l)
	categoryRows := make([][]interface{}, 0, len(buckets))
	for _, b := range buckets {
		categoryRows = append(categoryRows, []interface{}{b.Label, b.Count, b.Total.InexactFloat64()})
	}
	if _, err := f.NewSheet(CategorySheet); err != nil {
		return fmt.Errorf("WriteWorkbook: create sheet: %w", err)
	}
	if err := writeSheet(f, CategorySheet, []string{"Category", "Transactions", "Total"}, categoryRows, bold); err != nil {
		return fmt.Errorf("WriteWorkbook: %w", err)
	}

	alertRows := make([][]interface{}, 0, len(found))
	for _, a := range found {
		alertRows = append(alertRows, []interface{}{string(a.Kind), a.Message, a.Amount.InexactFloat64()})
	}
	if _, err := f.NewSheet(AlertsSheet); err != nil {
		return fmt.Errorf("WriteWorkbook: create sheet: %w", err)
	}
	if err := writeSheet(f, AlertsSheet, []string{"Kind", "Message", "Amount"}, alertRows, bold); err != nil {
		return fmt.Errorf("WriteWorkbook: %w", err)
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("WriteWorkbook: write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
