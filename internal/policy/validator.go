package policy

import (
	"fmt"
	"strings"
)

// validSeverities is the set of allowed severity strings (upper-case
// canonical form).
var validSeverities = map[string]struct{}{
	"CRITICAL": {},
	"HIGH":     {},
	"MEDIUM":   {},
	"LOW":      {},
}

func normalizeSeverity(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Validate checks cfg for semantic correctness and returns all validation
// errors found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - control IDs must appear in availableControlIDs
//   - control severity overrides must be valid severity values if set
//   - enforcement fail_on_severity must be a valid severity value if set
//   - enforcement min_pass_percentage must be within [0, 100]
//
// All errors are collected before returning; Validate never stops at the
// first error.
func Validate(cfg *Config, availableControlIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableControlIDs))
	for _, id := range availableControlIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for controlID, ccfg := range cfg.Controls {
		if _, ok := knownIDs[controlID]; !ok {
			errs = append(errs, fmt.Errorf("controls.%s: unknown control ID", controlID))
		}
		if ccfg.Severity != "" {
			if _, ok := validSeverities[normalizeSeverity(ccfg.Severity)]; !ok {
				errs = append(errs, fmt.Errorf("controls.%s.severity: invalid value %q; valid values: CRITICAL, HIGH, MEDIUM, LOW", controlID, ccfg.Severity))
			}
		}
	}

	if fos := cfg.Enforcement.FailOnSeverity; fos != "" {
		if _, ok := validSeverities[normalizeSeverity(fos)]; !ok {
			errs = append(errs, fmt.Errorf("enforcement.fail_on_severity: invalid value %q; valid values: CRITICAL, HIGH, MEDIUM, LOW", fos))
		}
	}
	if p := cfg.Enforcement.MinPassPercentage; p < 0 || p > 100 {
		errs = append(errs, fmt.Errorf("enforcement.min_pass_percentage: invalid value %.1f; must be within [0, 100]", p))
	}

	return errs
}
