package policy

import "github.com/yugasec/yuga-bench/internal/models"

// ApplySeverity rewrites result severities according to the policy's
// per-control overrides. Only FAIL and WARN results carry a severity.
func (c *Config) ApplySeverity(results []models.Result) {
	for i := range results {
		if results[i].Status != models.StatusFail && results[i].Status != models.StatusWarn {
			continue
		}
		if override := c.SeverityOverride(results[i].ControlID); override != "" {
			results[i].Severity = override
		}
	}
}

// ShouldFail reports whether the finished run violates the policy's
// enforcement thresholds, with a human-readable reason.
func (c *Config) ShouldFail(report *models.BenchmarkReport) (bool, string) {
	if fos := c.Enforcement.FailOnSeverity; fos != "" {
		threshold := models.SeverityRank(models.Severity(normalizeSeverity(fos)))
		for _, r := range report.Results {
			if r.Status != models.StatusFail {
				continue
			}
			if models.SeverityRank(r.Severity) >= threshold {
				return true, "control " + r.ControlID + " failed at or above severity " + normalizeSeverity(fos)
			}
		}
	}

	if min := c.Enforcement.MinPassPercentage; min > 0 && report.PassPercentage < min {
		return true, "overall pass percentage below enforcement threshold"
	}
	return false, ""
}
