package output

import (
	"encoding/json"
	"io"

	"github.com/yugasec/yuga-bench/internal/models"
)

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, report *models.BenchmarkReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
