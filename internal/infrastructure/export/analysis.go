// Package export renders cached reports as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tradeflow/internal/domain/reports"
)

// ContentType is the MIME type of an xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SummarySheet = "Summary"
	DetailSheet  = "Detail"
)

// AnalysisWorkbook builds a two-sheet workbook: the query parameters and
// figures of result, then one row per detail group.
func AnalysisWorkbook(result *reports.AnalysisResult, detail []reports.DetailItem) (*excelize.File, error) {
	if result == nil {
		return nil, fmt.Errorf("analysis result is required")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, result); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeDetail(f, detail); err != nil {
		f.Close()
		return nil, fmt.Errorf("detail sheet: %w", err)
	}
	return f, nil
}

// WriteAnalysis streams the analysis workbook to w.
func WriteAnalysis(w io.Writer, result *reports.AnalysisResult, detail []reports.DetailItem) error {
	f, err := AnalysisWorkbook(result, detail)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// FileName suggests an attachment name for the analysis.
func FileName(result *reports.AnalysisResult) string {
	q := result.QueryParams
	return fmt.Sprintf("analysis_%s_%s_%s.xlsx", q.Type, q.StartDate, q.EndDate)
}

func writeSummary(f *excelize.File, result *reports.AnalysisResult) error {
	q := result.QueryParams
	rows := [][]any{
		{"Start date", q.StartDate},
		{"End date", q.EndDate},
		{"Partner", q.PartnerCode},
		{"Product", q.ProductModel},
		{"Type", string(q.Type)},
		{"Last updated", result.LastUpdated.Format("2006-01-02 15:04:05")},
		{},
	}

	if s := result.SalesFigures; s != nil {
		rows = append(rows,
			[]any{"Sales amount", s.SalesAmount},
			[]any{"Special expense", s.SpecialExpense},
			[]any{"Net sales amount", s.NetSalesAmount},
			[]any{"Cost amount", s.CostAmount},
			[]any{"Profit amount", s.ProfitAmount},
			[]any{"Profit rate (%)", s.ProfitRate},
		)
	}
	if p := result.PurchaseFigures; p != nil {
		rows = append(rows,
			[]any{"Purchase amount", p.PurchaseAmount},
			[]any{"Special income", p.SpecialIncome},
			[]any{"Net purchase amount", p.NetPurchaseAmount},
		)
	}

	if err := writeRows(f, SummarySheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "A", 22)
}

var detailHeader = []any{"Group", "Code", "Name", "Amount", "Cost", "Profit", "Profit rate (%)"}

func writeDetail(f *excelize.File, detail []reports.DetailItem) error {
	rows := make([][]any, 0, len(detail)+1)
	rows = append(rows, detailHeader)
	for _, d := range detail {
		rows = append(rows, []any{d.GroupBy, d.Code, d.Name, d.Amount, d.CostAmount, d.ProfitAmount, d.ProfitRate})
	}
	if err := writeRows(f, DetailSheet, rows); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	return f.SetRowStyle(DetailSheet, 1, 1, style)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
