package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yugasec/yuga-bench/internal/catalog"
	"github.com/yugasec/yuga-bench/internal/models"
	"github.com/yugasec/yuga-bench/internal/policy"
	"github.com/yugasec/yuga-bench/internal/rules"
	"github.com/yugasec/yuga-bench/internal/source"
)

// BenchmarkEngine is the default Engine implementation.
type BenchmarkEngine struct {
	loader   *catalog.Loader
	source   source.SettingsSource
	registry *rules.Registry
	policy   *policy.Config
	logger   *slog.Logger
}

// New assembles a BenchmarkEngine. A nil registry selects the default section
// tables; a nil policy selects the permissive default; a nil logger uses
// slog.Default().
func New(loader *catalog.Loader, src source.SettingsSource, registry *rules.Registry, pol *policy.Config, logger *slog.Logger) *BenchmarkEngine {
	if registry == nil {
		registry = rules.DefaultRegistry()
	}
	if pol == nil {
		pol = policy.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BenchmarkEngine{
		loader:   loader,
		source:   src,
		registry: registry,
		policy:   pol,
		logger:   logger,
	}
}

// Run executes the benchmark. Only an unreadable catalog aborts the run;
// every selected control yields exactly one result.
func (e *BenchmarkEngine) Run(ctx context.Context, opts RunOptions) (*models.BenchmarkReport, error) {
	controls, err := e.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	issues := e.loader.Validate()
	for _, msg := range issues.Errors {
		e.logger.Error("catalog validation", "issue", msg)
	}
	for _, msg := range issues.Warnings {
		e.logger.Warn("catalog validation", "issue", msg)
	}

	selected := e.selectControls(controls, opts)
	e.logger.Info("starting benchmark run",
		"controls", len(selected),
		"profile_level", opts.ProfileLevel,
		"sections", strings.Join(opts.Sections, ","))

	cc := rules.CheckContext{Source: e.source}
	results := make([]models.Result, 0, len(selected))
	for _, control := range selected {
		results = append(results, e.evaluate(ctx, cc, control))
	}

	e.policy.ApplySeverity(results)

	report := aggregate(results, e.registry.Sections())
	report.ScanTime = time.Now().UTC()
	report.ProfileLevel = opts.ProfileLevel
	report.ClusterInfo = e.source.ClusterInfo(ctx)
	return report, nil
}

// evaluate runs one control. Manual controls are never dispatched to a check;
// a panicking check becomes a FAIL result rather than killing the run.
func (e *BenchmarkEngine) evaluate(ctx context.Context, cc rules.CheckContext, control models.Control) (res models.Result) {
	if control.Kind == models.CheckManual {
		return manualResult(control)
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("check panicked", "control", control.ID, "panic", r)
			res = models.Result{
				ControlID:    control.ID,
				Title:        control.Title,
				Section:      control.Section,
				ProfileLevel: control.ProfileLevel(),
				Status:       models.StatusFail,
				Message:      fmt.Sprintf("control execution error: %v", r),
				Severity:     models.SeverityMedium,
				Remediation:  control.Remediation,
				AuditCommand: control.Audit,
				Impact:       control.Impact,
			}
		}
	}()

	return e.registry.Evaluate(ctx, cc, control)
}

func manualResult(c models.Control) models.Result {
	return models.Result{
		ControlID:    c.ID,
		Title:        c.Title,
		Section:      c.Section,
		ProfileLevel: c.ProfileLevel(),
		Status:       models.StatusManual,
		Message:      "Manual control - requires human verification",
		AuditCommand: c.Audit,
	}
}

// selectControls applies the policy enable switch, the profile filter, and
// the section filter.
func (e *BenchmarkEngine) selectControls(controls []models.Control, opts RunOptions) []models.Control {
	var out []models.Control
	for _, c := range controls {
		if !e.policy.Enabled(c.ID) {
			e.logger.Debug("control disabled by policy", "control", c.ID)
			continue
		}
		if !matchesProfile(c, opts.ProfileLevel) {
			continue
		}
		if !matchesSections(c.Section, opts.Sections) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// matchesProfile reports whether the control applies to the requested
// profile. A control with no declared applicability applies to every
// profile; a declared profile matches when it equals the request or contains
// it, case-insensitively.
func matchesProfile(c models.Control, requested string) bool {
	if requested == "" || len(c.ProfileApplicability) == 0 {
		return true
	}
	want := strings.ToLower(requested)
	for _, declared := range c.ProfileApplicability {
		got := strings.ToLower(declared)
		if got == want || strings.Contains(got, want) {
			return true
		}
	}
	return false
}

// matchesSections reports whether the section matches any requested filter.
func matchesSections(section string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	normalized := normalizeSectionName(section)
	for _, f := range filters {
		if strings.Contains(normalized, normalizeSectionName(f)) {
			return true
		}
	}
	return false
}

func normalizeSectionName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
