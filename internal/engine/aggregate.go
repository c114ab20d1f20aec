package engine

import "github.com/yugasec/yuga-bench/internal/models"

// aggregate folds the result list into a report. Section summaries follow
// canonicalSections order; sections outside the canonical list are appended
// in first-seen order so the per-section counts always sum to the totals.
// The automated total counts only decidable outcomes (pass, fail, skip);
// manual, informational, and warning results never move the pass percentage.
func aggregate(results []models.Result, canonicalSections []string) *models.BenchmarkReport {
	report := &models.BenchmarkReport{
		TotalControls: len(results),
		Results:       results,
	}

	bySection := make(map[string]*models.SectionSummary)
	var order []string
	for _, name := range canonicalSections {
		bySection[name] = &models.SectionSummary{SectionName: name}
		order = append(order, name)
	}

	for _, r := range results {
		s, ok := bySection[r.Section]
		if !ok {
			s = &models.SectionSummary{SectionName: r.Section}
			bySection[r.Section] = s
			order = append(order, r.Section)
		}
		s.TotalControls++

		switch r.Status {
		case models.StatusPass:
			report.Passed++
			s.Passed++
		case models.StatusFail:
			report.Failed++
			s.Failed++
		case models.StatusWarn:
			report.Warnings++
			s.Warnings++
		case models.StatusSkip:
			report.Skipped++
			s.Skipped++
		case models.StatusManual:
			report.Manual++
			s.Manual++
		case models.StatusInfo:
			report.Info++
			s.Info++
		}
	}

	for _, name := range order {
		s := bySection[name]
		if s.TotalControls == 0 {
			continue
		}
		s.AutomatedTotal = s.Passed + s.Failed + s.Skipped
		s.PassPercentage = passPercentage(s.Passed, s.AutomatedTotal)
		report.SectionSummaries = append(report.SectionSummaries, *s)
	}

	report.AutomatedTotal = report.Passed + report.Failed + report.Skipped
	report.PassPercentage = passPercentage(report.Passed, report.AutomatedTotal)
	return report
}

func passPercentage(passed, automatedTotal int) float64 {
	if automatedTotal == 0 {
		return 0
	}
	return float64(passed) / float64(automatedTotal) * 100
}
