package saf

import (
	"fmt"
	"os"

	"github.com/uai-repositorio/saf-api/pkg/export"
)

// ReportRow is one processed record in the validation report.
type ReportRow struct {
	Nro    string
	Status string
	Detail string
}

var reportHeaders = []string{"NRO", "STATUS", "DETAIL"}

// utf8BOM lets spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func reportDataset(rows []ReportRow) export.Dataset {
	data := export.Dataset{Headers: reportHeaders}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"NRO":    row.Nro,
			"STATUS": row.Status,
			"DETAIL": row.Detail,
		})
	}
	return data
}

// WriteValidationReport writes the per-item summary as CSV with a UTF-8 BOM.
func WriteValidationReport(path string, rows []ReportRow) error {
	rendered, err := export.NewCSVExporter().Render(reportDataset(rows))
	if err != nil {
		return fmt.Errorf("render validation report: %w", err)
	}
	data := append(append([]byte{}, utf8BOM...), rendered...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write validation report: %w", err)
	}
	return nil
}

// WriteSummaryPDF renders the same summary as a tabular PDF for operators
// who review batches outside a spreadsheet.
func WriteSummaryPDF(path, title string, rows []ReportRow) error {
	rendered, err := export.NewPDFExporter().Render(reportDataset(rows), title)
	if err != nil {
		return fmt.Errorf("render summary pdf: %w", err)
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return fmt.Errorf("write summary pdf: %w", err)
	}
	return nil
}
