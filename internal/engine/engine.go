// Package engine orchestrates a benchmark run: loading the catalog,
// filtering controls, dispatching them to the rule tables, and aggregating
// the results into a report.
package engine

import (
	"context"

	"github.com/yugasec/yuga-bench/internal/models"
)

// RunOptions narrows a benchmark run.
type RunOptions struct {
	// ProfileLevel restricts the run to controls applicable to the given
	// profile (e.g. "Level 1"). Empty runs everything.
	ProfileLevel string

	// Sections restricts the run to sections matching any of the given
	// names. Matching is case-insensitive and substring-based, with spaces
	// and underscores interchangeable. Empty runs all sections.
	Sections []string
}

// Engine runs a benchmark and produces a report.
type Engine interface {
	Run(ctx context.Context, opts RunOptions) (*models.BenchmarkReport, error)
}
