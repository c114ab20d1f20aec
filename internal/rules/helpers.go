package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// actualNull marks a setting value that could not be retrieved.
const actualNull = "NULL"

func baseResult(c models.Control, status models.Status, message string) models.Result {
	return models.Result{
		ControlID:    c.ID,
		Title:        c.Title,
		Section:      c.Section,
		ProfileLevel: c.ProfileLevel(),
		Status:       status,
		Message:      message,
		AuditCommand: c.Audit,
	}
}

func passResult(c models.Control, message, expected, actual string) models.Result {
	r := baseResult(c, models.StatusPass, message)
	r.Expected = expected
	r.Actual = actual
	return r
}

func failResult(c models.Control, message, expected, actual string) models.Result {
	r := baseResult(c, models.StatusFail, message)
	r.Expected = expected
	r.Actual = actual
	r.Severity = models.SeverityMedium
	r.Remediation = c.Remediation
	r.Impact = c.Impact
	return r
}

func warnResult(c models.Control, message, expected, actual string) models.Result {
	r := baseResult(c, models.StatusWarn, message)
	r.Expected = expected
	r.Actual = actual
	r.Severity = models.SeverityMedium
	r.Remediation = c.Remediation
	return r
}

func infoResult(c models.Control, message, actual string) models.Result {
	r := baseResult(c, models.StatusInfo, message)
	r.Actual = actual
	return r
}

func skipResult(c models.Control, message string) models.Result {
	return baseResult(c, models.StatusSkip, message)
}

// extractSettingName pulls the parameter name out of a "SHOW <name>;" audit
// procedure. Returns "" when the procedure is not a SHOW command.
func extractSettingName(audit string) string {
	upper := strings.ToUpper(audit)
	i := strings.Index(upper, "SHOW ")
	if i < 0 {
		return ""
	}
	rest := audit[i+len("SHOW "):]
	if j := strings.Index(rest, ";"); j >= 0 {
		rest = rest[:j]
	}
	return strings.ToLower(strings.TrimSpace(rest))
}

// truthy reports whether a server boolean setting reads as enabled.
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// formatMillis renders a millisecond count as seconds, e.g. 30000 -> "30.0s".
func formatMillis(ms int64) string {
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// requireSetting fetches a named setting and converts retrieval problems into
// a FAIL result. ok is true only when a value was obtained.
func requireSetting(ctx context.Context, cc CheckContext, c models.Control, name, expected string) (string, models.Result, bool) {
	v, found, err := cc.Source.Setting(ctx, name)
	if err != nil {
		return "", failResult(c, fmt.Sprintf("Error checking %s: %v", name, err), expected, ""), false
	}
	if !found || v == "" {
		return "", failResult(c, fmt.Sprintf("Could not retrieve %s setting", name), expected, actualNull), false
	}
	return v, models.Result{}, true
}

// checkSettingIn passes when the named setting's value is one of the expected
// values (exact match).
func checkSettingIn(ctx context.Context, cc CheckContext, c models.Control, name string, expected []string) models.Result {
	want := strings.Join(expected, ", ")
	v, res, ok := requireSetting(ctx, cc, c, name, want)
	if !ok {
		return res
	}
	for _, e := range expected {
		if v == e {
			return passResult(c, fmt.Sprintf("%s is properly configured: %s", name, v), want, v)
		}
	}
	return failResult(c, fmt.Sprintf("%s is not properly configured: %s", name, v), want, v)
}

// checkBoolSetting passes when the named boolean setting reads as want.
func checkBoolSetting(ctx context.Context, cc CheckContext, c models.Control, name string, want bool) models.Result {
	expected := "off"
	if want {
		expected = "on"
	}
	v, res, ok := requireSetting(ctx, cc, c, name, expected)
	if !ok {
		return res
	}
	if truthy(v) == want {
		return passResult(c, fmt.Sprintf("%s is properly configured: %s", name, v), expected, v)
	}
	return failResult(c, fmt.Sprintf("%s is not properly configured: %s", name, v), expected, v)
}

// expectSetting builds a check requiring the named setting to equal want,
// case-insensitively, with tailored messages. failFmt receives the observed
// value.
func expectSetting(name, want, passMsg, failFmt string) CheckFunc {
	return func(ctx context.Context, cc CheckContext, c models.Control) models.Result {
		v, res, ok := requireSetting(ctx, cc, c, name, want)
		if !ok {
			return res
		}
		if strings.EqualFold(v, want) {
			return passResult(c, passMsg, want, v)
		}
		return failResult(c, fmt.Sprintf(failFmt, v), want, v)
	}
}

// genericSettingCheck is the shared fallback: extract the parameter from the
// audit procedure and report its value informationally, or skip when the
// audit is not a SHOW command. label prefixes the informational message.
func genericSettingCheck(label string) CheckFunc {
	return func(ctx context.Context, cc CheckContext, c models.Control) models.Result {
		name := extractSettingName(c.Audit)
		if name == "" {
			return skipResult(c, fmt.Sprintf("Generic %s check - manual verification required", strings.ToLower(label)))
		}
		v, found, err := cc.Source.Setting(ctx, name)
		if err != nil {
			return failResult(c, fmt.Sprintf("Error checking %s: %v", name, err), "", "")
		}
		if !found {
			v = actualNull
		}
		return infoResult(c, fmt.Sprintf("%s %s: %s", label, name, v), v)
	}
}
