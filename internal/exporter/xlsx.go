// Package exporter renders metrics as an XLSX workbook.
package exporter

import (
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tech17x/fizzyadmin-sub000/internal/models"
)

const (
	SheetSummary    = "Summary"
	SheetItems      = "Top Items"
	SheetCategories = "Top Categories"
	SheetStaff      = "Staff"
	SheetOutlets    = "Outlets"
	SheetPayments   = "Payments"
	SheetHourly     = "Hourly"
	SheetDaily      = "Daily"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Money rounds an amount to cents for display. Metrics keep full precision.
func Money(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// WriteMetrics writes m as a workbook to w.
func WriteMetrics(w io.Writer, m models.Metrics) error {
	f, err := Build(m)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build assembles the metrics workbook.
func Build(m models.Metrics) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summaryRows(m)},
		{SheetItems, salesRows(m.TopItems)},
		{SheetCategories, salesRows(m.TopCategories)},
		{SheetStaff, staffRows(m.StaffPerformance)},
		{SheetOutlets, outletRows(m.OutletPerformance)},
		{SheetPayments, paymentRows(m.PaymentMethods)},
		{SheetHourly, hourlyRows(m.HourlyRevenue)},
		{SheetDaily, dailyRows(m.DailyRevenue)},
	}

	for _, s := range sheets {
		if s.name != SheetSummary {
			if _, err := f.NewSheet(s.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
			}
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(m models.Metrics) [][]any {
	return [][]any{
		{"Metric", "Value"},
		{"Total orders", m.TotalOrders},
		{"Total revenue", Money(m.TotalRevenue)},
		{"Total tax", Money(m.TotalTax)},
		{"Total tips", Money(m.TotalTips)},
		{"Total discounts", Money(m.TotalDiscounts)},
		{"Total refunds", Money(m.TotalRefunds)},
		{"Refund count", m.RefundCount},
		{"Net revenue", Money(m.NetRevenue)},
		{"Average order value", Money(m.AverageOrderValue)},
		{"Unique customers", m.UniqueCustomers},
		{"Items sold", m.TotalItemsSold},
		{"Orders without timestamp", m.UntimedOrders},
	}
}

func salesRows(rows []models.ItemSales) [][]any {
	out := [][]any{{"Name", "Quantity", "Revenue"}}
	for _, r := range rows {
		out = append(out, []any{r.Name, r.Quantity, Money(r.Revenue)})
	}
	return out
}

func staffRows(rows []models.StaffSales) [][]any {
	out := [][]any{{"Staff", "Orders", "Revenue"}}
	for _, r := range rows {
		out = append(out, []any{r.Name, r.Orders, Money(r.Revenue)})
	}
	return out
}

func outletRows(outlets map[string]models.OutletPerformance) [][]any {
	out := [][]any{{"Outlet", "Orders", "Revenue", "Customers"}}
	for _, name := range sortedKeys(outlets) {
		p := outlets[name]
		out = append(out, []any{name, p.Orders, Money(p.Revenue), p.Customers})
	}
	return out
}

func paymentRows(methods map[string]float64) [][]any {
	out := [][]any{{"Payment method", "Amount"}}
	for _, name := range sortedKeys(methods) {
		out = append(out, []any{name, Money(methods[name])})
	}
	return out
}

func hourlyRows(hours [24]float64) [][]any {
	out := [][]any{{"Hour", "Revenue"}}
	for h, v := range hours {
		out = append(out, []any{fmt.Sprintf("%02d:00", h), Money(v)})
	}
	return out
}

func dailyRows(days map[string]float64) [][]any {
	out := [][]any{{"Date", "Revenue"}}
	for _, day := range sortedKeys(days) {
		out = append(out, []any{day, Money(days[day])})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
