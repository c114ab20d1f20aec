package models

import "time"

// SectionSummary aggregates the results of one benchmark section.
// AutomatedTotal counts only controls the engine could decide (pass, fail,
// skip); manual and informational results do not affect the pass percentage.
type SectionSummary struct {
	SectionName    string  `json:"section_name"`
	TotalControls  int     `json:"total_controls"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Warnings       int     `json:"warnings"`
	Skipped        int     `json:"skipped"`
	Manual         int     `json:"manual"`
	Info           int     `json:"info"`
	AutomatedTotal int     `json:"automated_total"`
	PassPercentage float64 `json:"pass_percentage"`
}

// BenchmarkReport is the complete outcome of one benchmark run.
type BenchmarkReport struct {
	ClusterInfo      map[string]string `json:"cluster_info"`
	ScanTime         time.Time         `json:"scan_time"`
	ProfileLevel     string            `json:"profile_level"`
	TotalControls    int               `json:"total_controls"`
	Passed           int               `json:"passed"`
	Failed           int               `json:"failed"`
	Warnings         int               `json:"warnings"`
	Skipped          int               `json:"skipped"`
	Manual           int               `json:"manual"`
	Info             int               `json:"info"`
	AutomatedTotal   int               `json:"automated_total"`
	PassPercentage   float64           `json:"pass_percentage"`
	Results          []Result          `json:"results"`
	SectionSummaries []SectionSummary  `json:"section_summaries"`
}

// ResultsByStatus returns the report's results with the given status, in
// report order.
func (r *BenchmarkReport) ResultsByStatus(status Status) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}

// SectionResults returns the report's results belonging to the named section,
// in report order.
func (r *BenchmarkReport) SectionResults(section string) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Section == section {
			out = append(out, res)
		}
	}
	return out
}
