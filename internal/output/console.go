// Package output renders benchmark reports: a console table for humans and
// JSON, CSV, and HTML documents for machines and archives.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// ANSI color codes for status output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiGreen   = "\033[0;32m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
	ansiCyan    = "\033[0;36m"
)

// ConsoleOptions controls the console rendering.
type ConsoleOptions struct {
	// Colored wraps status labels with ANSI codes. Default false (CI-safe).
	Colored bool
}

// statusColor returns the ANSI code for a status, or "" for plain rendering.
func statusColor(s models.Status) string {
	switch s {
	case models.StatusFail:
		return ansiBoldRed
	case models.StatusWarn:
		return ansiYellow
	case models.StatusPass:
		return ansiGreen
	case models.StatusManual:
		return ansiCyan
	case models.StatusSkip:
		return ansiBlue
	case models.StatusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// statusCell returns the status padded to width characters. When colored,
// ANSI codes wrap only the text; trailing padding spaces are plain so
// subsequent columns stay aligned regardless of terminal ANSI support.
func statusCell(s models.Status, width int, colored bool) string {
	text := string(s)
	code := statusColor(s)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// ShortenMessage truncates msg to at most max runes, appending "..." when
// truncated. max is treated as at least 4 to guarantee space for the
// ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "~"
}

// RenderConsole writes the full report to w: cluster header, the result
// table ordered most-urgent-first, and the per-section summary.
func RenderConsole(w io.Writer, report *models.BenchmarkReport, opts ConsoleOptions) {
	renderClusterInfo(w, report)
	renderResults(w, report, opts)
	renderSummary(w, report)
}

func renderClusterInfo(w io.Writer, report *models.BenchmarkReport) {
	fmt.Fprintln(w, "YugabyteDB CIS Benchmark")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Scan time:     %s\n", report.ScanTime.Format("2006-01-02 15:04:05 MST"))
	if report.ProfileLevel != "" {
		fmt.Fprintf(w, "Profile level: %s\n", report.ProfileLevel)
	}

	keys := make([]string, 0, len(report.ClusterInfo))
	for k := range report.ClusterInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-14s %s\n", strings.ReplaceAll(k, "_", " ")+":", report.ClusterInfo[k])
	}
	fmt.Fprintln(w)
}

func renderResults(w io.Writer, report *models.BenchmarkReport, opts ConsoleOptions) {
	if len(report.Results) == 0 {
		fmt.Fprintln(w, "No controls evaluated.")
		return
	}

	// Fixed column display widths.
	const (
		wID      = 8
		wStatus  = 8
		wSection = 38
		wMessage = 70
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s",
		wID, "ID", wStatus, "STATUS", wSection, "SECTION", wMessage, "MESSAGE")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	// Most urgent first, stable within a status so catalog order survives.
	ordered := make([]models.Result, len(report.Results))
	copy(ordered, report.Results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Status.Priority() < ordered[j].Status.Priority()
	})

	for _, r := range ordered {
		fmt.Fprintf(w, "%-*s  %s  %-*s  %-*s\n",
			wID, truncateField(r.ControlID, wID),
			statusCell(r.Status, wStatus, opts.Colored),
			wSection, truncateField(r.Section, wSection),
			wMessage, ShortenMessage(r.Message, wMessage))
	}
	fmt.Fprintln(w)
}

func renderSummary(w io.Writer, report *models.BenchmarkReport) {
	fmt.Fprintln(w, "Section summary")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, s := range report.SectionSummaries {
		fmt.Fprintf(w, "%-45s pass %3d  fail %3d  warn %3d  skip %3d  manual %3d  info %3d  (%.1f%%)\n",
			truncateField(s.SectionName, 45),
			s.Passed, s.Failed, s.Warnings, s.Skipped, s.Manual, s.Info, s.PassPercentage)
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Total: %d controls, %d passed, %d failed, %d warnings, %d skipped, %d manual, %d info\n",
		report.TotalControls, report.Passed, report.Failed, report.Warnings,
		report.Skipped, report.Manual, report.Info)
	fmt.Fprintf(w, "Pass percentage (automated controls): %.1f%%\n", report.PassPercentage)
}
