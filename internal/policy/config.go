// Package policy applies operator-supplied tuning to a benchmark run:
// disabling controls, overriding severities, and deciding the process exit
// outcome from the aggregated report.
package policy

import "github.com/yugasec/yuga-bench/internal/models"

// Config is the on-disk policy document.
type Config struct {
	Version     int                      `yaml:"version"`
	Controls    map[string]ControlConfig `yaml:"controls"`
	Enforcement EnforcementConfig        `yaml:"enforcement"`
}

// ControlConfig tunes a single control, keyed by control ID.
type ControlConfig struct {
	// Enabled disables the control entirely when set to false. Nil means
	// enabled.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Severity overrides the severity attached to FAIL and WARN results for
	// this control.
	Severity string `yaml:"severity,omitempty"`
}

// EnforcementConfig decides when a run is treated as a failure.
type EnforcementConfig struct {
	// FailOnSeverity fails the run when any FAIL result carries this
	// severity or higher.
	FailOnSeverity string `yaml:"fail_on_severity,omitempty"`

	// MinPassPercentage fails the run when the overall pass percentage
	// drops below it. Zero disables the threshold.
	MinPassPercentage float64 `yaml:"min_pass_percentage,omitempty"`
}

// Enabled reports whether the policy leaves the given control enabled.
func (c *Config) Enabled(controlID string) bool {
	cc, ok := c.Controls[controlID]
	if !ok || cc.Enabled == nil {
		return true
	}
	return *cc.Enabled
}

// SeverityOverride returns the severity override for the control, or "" when
// none is configured.
func (c *Config) SeverityOverride(controlID string) models.Severity {
	cc, ok := c.Controls[controlID]
	if !ok || cc.Severity == "" {
		return ""
	}
	return models.Severity(normalizeSeverity(cc.Severity))
}
