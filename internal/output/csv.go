package output

import (
	"encoding/csv"
	"io"

	"github.com/yugasec/yuga-bench/internal/models"
)

// csvHeader is the column layout of the CSV export.
var csvHeader = []string{
	"control_id", "title", "section", "status", "severity",
	"message", "expected", "actual", "remediation",
}

// RenderCSV writes one row per result in report order.
func RenderCSV(w io.Writer, report *models.BenchmarkReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range report.Results {
		row := []string{
			r.ControlID,
			r.Title,
			r.Section,
			string(r.Status),
			string(r.Severity),
			r.Message,
			r.Expected,
			r.Actual,
			r.Remediation,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
