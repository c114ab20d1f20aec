package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// LoggingTable covers the Logging Monitoring and Auditing section. Controls
// 3.1.x map one-to-one onto server logging parameters; the 3.2 family covers
// the pgAudit extension.
func LoggingTable() *Table {
	return &Table{
		Section: "Logging Monitoring and Auditing",
		Entries: []Entry{
			{ID: "3.1.1", Check: func(ctx context.Context, cc CheckContext, c models.Control) models.Result {
				return skipResult(c, "Logging monitoring and auditing rationale - manual verification required")
			}},
			{ID: "3.1.2", Check: func(ctx context.Context, cc CheckContext, c models.Control) models.Result {
				return checkSettingIn(ctx, cc, c, "log_destination", []string{"stderr", "csvlog", "syslog"})
			}},
			{ID: "3.1.3", Check: checkLogFilenamePattern},
			{ID: "3.1.4", Check: checkLogFileMode},
			{ID: "3.1.5", Check: checkLogTruncateOnRotation},
			{ID: "3.1.6", Check: checkLogRotationAge},
			{ID: "3.1.7", Check: checkLogRotationSize},
			{ID: "3.1.8", Check: func(ctx context.Context, cc CheckContext, c models.Control) models.Result {
				return checkSettingIn(ctx, cc, c, "syslog_facility", []string{
					"local0", "local1", "local2", "local3", "local4", "local5", "local6", "local7",
				})
			}},
			{ID: "3.1.9", Check: expectSetting("syslog_sequence_numbers", "on",
				"Syslog sequence numbers are enabled - messages will not be suppressed",
				"Syslog sequence numbers are disabled - messages may be suppressed: %s")},
			{ID: "3.1.10", Check: expectSetting("syslog_split_messages", "on",
				"Syslog message splitting is enabled - long messages will not be lost",
				"Syslog message splitting is disabled - long messages may be truncated: %s")},
			{ID: "3.1.11", Check: checkSyslogIdent},
			{ID: "3.1.12", Check: checkLogMinMessages},
			{ID: "3.1.13", Check: checkLogMinErrorStatement},
			{ID: "3.1.14", Check: expectSetting("debug_print_parse", "off",
				"Debug print parse correctly disabled",
				"Debug print parse is enabled - security risk: %s")},
			{ID: "3.1.15", Check: expectSetting("debug_print_rewritten", "off",
				"Debug print rewritten correctly disabled",
				"Debug print rewritten is enabled - security risk: %s")},
			{ID: "3.1.16", Check: expectSetting("debug_print_plan", "off",
				"Debug print plan correctly disabled",
				"Debug print plan is enabled - security risk: %s")},
			{ID: "3.1.17", Check: expectSetting("debug_pretty_print", "on",
				"Debug pretty print correctly enabled",
				"Debug pretty print is not enabled: %s")},
			{ID: "3.1.18", Check: expectSetting("log_connections", "on",
				"Connection logging is properly enabled",
				"Connection logging is not enabled: %s")},
			{ID: "3.1.19", Check: expectSetting("log_disconnections", "on",
				"Disconnection logging is properly enabled",
				"Disconnection logging is not enabled: %s")},
			{ID: "3.1.20", Check: checkLogErrorVerbosity},
			{ID: "3.1.21", Check: expectSetting("log_hostname", "off",
				"Log hostname correctly disabled",
				"Log hostname should be disabled: %s")},
			{ID: "3.1.22", Check: checkLogLinePrefix},
			{ID: "3.1.23", Check: checkLogStatement},
			{ID: "3.1.24", Check: checkLogTimezone},
			{Prefix: "3.2", Check: checkAuditExtension},
		},
		Fallback: genericSettingCheck("Logging setting"),
	}
}

// checkLogFilenamePattern requires the log filename to carry a strftime
// component so rotated files get distinct names.
func checkLogFilenamePattern(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "log_filename", "Time-based rotation pattern")
	if !ok {
		return res
	}
	timePatterns := []string{"%Y", "%m", "%d", "%H", "%M", "%S", "%a"}
	for _, p := range timePatterns {
		if strings.Contains(v, p) {
			return passResult(c,
				fmt.Sprintf("Log filename pattern includes time-based rotation: %s", v),
				"Time-based rotation pattern", v)
		}
	}
	return failResult(c,
		fmt.Sprintf("Log filename pattern lacks time-based rotation: %s", v),
		"Time-based rotation pattern", v)
}

func checkLogFileMode(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "0600"
	v, res, ok := requireSetting(ctx, cc, c, "log_file_mode", expected)
	if !ok {
		return res
	}
	switch v {
	case expected:
		return passResult(c, fmt.Sprintf("Log file permissions are correctly set: %s", v), expected, v)
	case "0400":
		return passResult(c, fmt.Sprintf("Log file permissions are restrictive (read-only): %s", v), expected, v)
	case "0644", "0666", "0755", "0777":
		return failResult(c, fmt.Sprintf("Log file permissions are too permissive: %s", v), expected, v)
	default:
		return warnResult(c, fmt.Sprintf("Log file permissions set to non-standard value: %s", v), expected, v)
	}
}

func checkLogTruncateOnRotation(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "log_truncate_on_rotation", "on")
	if !ok {
		return res
	}
	if v == "off" {
		return failResult(c, fmt.Sprintf("Log truncate on rotation is disabled: %s", v), "on", v)
	}
	return passResult(c, fmt.Sprintf("Log truncate on rotation is configured: %s", v), "on", v)
}

func checkLogRotationAge(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "Non-zero rotation age"
	v, res, ok := requireSetting(ctx, cc, c, "log_rotation_age", expected)
	if !ok {
		return res
	}
	if v == "0" {
		return failResult(c, fmt.Sprintf("Log rotation age is disabled: %s", v), expected, v)
	}
	return passResult(c, fmt.Sprintf("Log rotation age is configured: %s", v), expected, v)
}

func checkLogRotationSize(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "Non-zero rotation size"
	v, res, ok := requireSetting(ctx, cc, c, "log_rotation_size", expected)
	if !ok {
		return res
	}
	if v == "0" {
		return failResult(c, fmt.Sprintf("Log rotation size is disabled: %s", v), expected, v)
	}
	return passResult(c, fmt.Sprintf("Log rotation size is configured: %s", v), expected, v)
}

// checkSyslogIdent grades the syslog program identifier: known database
// identifiers pass, generic or environment-revealing names fail or warn.
func checkSyslogIdent(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "syslog_ident", "Descriptive identifier (e.g., yugabyte, postgres)")
	if !ok {
		return res
	}
	lower := strings.ToLower(v)

	for _, ident := range []string{"yugabyte", "postgres", "postgresql", "ybdb"} {
		if lower == ident {
			return passResult(c,
				fmt.Sprintf("Syslog identifier is properly set: %s", v),
				"Descriptive database identifier", v)
		}
	}

	for _, ident := range []string{"app", "service", "daemon", "server", "db", "test"} {
		if lower == ident {
			return failResult(c,
				fmt.Sprintf("Syslog identifier is too generic or unclear: %s", v),
				"Descriptive database identifier", v)
		}
	}

	for _, pattern := range []string{"prod", "dev", "test", "staging", "v1", "v2", "server", "host"} {
		if strings.Contains(lower, pattern) {
			return warnResult(c,
				fmt.Sprintf("Syslog identifier may contain environment/version info: %s", v),
				"Generic database identifier without environment details", v)
		}
	}

	if len(v) >= 3 && isIdentAlnum(v) {
		return passResult(c,
			fmt.Sprintf("Custom syslog identifier appears appropriate: %s", v),
			"Descriptive database identifier", v)
	}
	return warnResult(c,
		fmt.Sprintf("Syslog identifier format should be reviewed: %s", v),
		"Alphanumeric identifier (3+ characters)", v)
}

// isIdentAlnum reports whether s is alphanumeric once dashes and underscores
// are ignored.
func isIdentAlnum(s string) bool {
	stripped := strings.NewReplacer("-", "", "_", "").Replace(s)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func checkLogMinMessages(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "log_min_messages", "warning")
	if !ok {
		return res
	}
	if strings.EqualFold(v, "warning") {
		return passResult(c, fmt.Sprintf("Log minimum messages correctly set: %s", v), "warning", v)
	}
	return failResult(c, fmt.Sprintf("Log minimum messages not set to recommended level: %s", v), "warning", v)
}

func checkLogMinErrorStatement(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "log_min_error_statement", "error")
	if !ok {
		return res
	}
	switch strings.ToLower(v) {
	case "error", "fatal", "panic":
		return passResult(c,
			fmt.Sprintf("Error statement logging properly configured: %s", v),
			"error or higher", v)
	}
	return failResult(c,
		fmt.Sprintf("Error statement logging not configured to at least ERROR: %s", v),
		"error", v)
}

func checkLogErrorVerbosity(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "log_error_verbosity", "verbose")
	if !ok {
		return res
	}
	switch strings.ToLower(v) {
	case "terse", "default", "verbose":
		return passResult(c, "Log error verbosity correctly set to verbose", "verbose", v)
	}
	return failResult(c, fmt.Sprintf("Log error verbosity not set to verbose: %s", v), "verbose", v)
}

// logLinePrefixComponents are the escapes a log_line_prefix must carry to tie
// every log line back to a session and client.
var logLinePrefixComponents = []struct {
	escape      string
	description string
}{
	{"%m", "timestamp with milliseconds"},
	{"%p", "process ID"},
	{"%l", "session line number"},
	{"%d", "database name"},
	{"%u", "user name"},
	{"%a", "application name"},
	{"%h", "remote host"},
}

func checkLogLinePrefix(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const reference = "%m [%p]: [%l-1] db=%d,user=%u,app=%a,client=%h"
	v, res, ok := requireSetting(ctx, cc, c, "log_line_prefix", reference)
	if !ok {
		return res
	}

	var missing, present []string
	for _, comp := range logLinePrefixComponents {
		label := fmt.Sprintf("%s (%s)", comp.escape, comp.description)
		if strings.Contains(v, comp.escape) {
			present = append(present, label)
		} else {
			missing = append(missing, label)
		}
	}

	if len(missing) > 0 {
		return failResult(c,
			fmt.Sprintf("log_line_prefix missing required components: %s", strings.Join(missing, ", ")),
			reference+" (minimum)", v)
	}
	return passResult(c,
		fmt.Sprintf("log_line_prefix includes all required components: %s", strings.Join(present, ", ")),
		"Includes %m, %p, %l, %d, %u, %a, %h", v)
}

func checkLogStatement(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "ddl, mod, or all"
	v, res, ok := requireSetting(ctx, cc, c, "log_statement", expected)
	if !ok {
		return res
	}
	switch strings.ToLower(v) {
	case "none":
		return failResult(c, "Statement logging is disabled - security risk", expected, v)
	case "ddl", "mod", "all":
		return passResult(c, fmt.Sprintf("Statement logging properly configured: %s", v), expected, v)
	default:
		return warnResult(c, fmt.Sprintf("Statement logging set to non-standard value: %s", v), expected, v)
	}
}

func checkLogTimezone(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "UTC or GMT"
	v, res, ok := requireSetting(ctx, cc, c, "log_timezone", expected)
	if !ok {
		return res
	}
	switch strings.ToLower(v) {
	case "utc", "gmt", "universal":
		return passResult(c, fmt.Sprintf("Log timezone properly set: %s", v), expected, v)
	}
	return failResult(c, fmt.Sprintf("Log timezone not set to UTC/GMT: %s", v), expected, v)
}

// checkAuditExtension verifies pgAudit is preloaded and logging at least one
// statement class.
func checkAuditExtension(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	libs, res, ok := requireSetting(ctx, cc, c, "shared_preload_libraries", "Contains pgaudit")
	if !ok {
		return res
	}

	loaded := false
	for _, lib := range strings.Split(libs, ",") {
		if strings.EqualFold(strings.TrimSpace(lib), "pgaudit") {
			loaded = true
			break
		}
	}
	if !loaded {
		return failResult(c,
			fmt.Sprintf("pgAudit extension not found in shared_preload_libraries: %s", libs),
			"pgaudit in shared_preload_libraries", libs)
	}

	auditLog, found, err := cc.Source.Setting(ctx, "pgaudit.log")
	if err != nil || !found || auditLog == "" {
		return warnResult(c,
			"pgAudit loaded but pgaudit.log setting not accessible",
			"Configured audit components", "pgaudit.log not readable")
	}
	if strings.EqualFold(auditLog, "none") {
		return failResult(c,
			"pgAudit is loaded but no audit components are enabled",
			"Audit components enabled (READ,WRITE,FUNCTION,ROLE,DDL,MISC)",
			"pgaudit.log = "+auditLog)
	}
	return passResult(c,
		fmt.Sprintf("pgAudit properly configured with components: %s", auditLog),
		"Audit components enabled",
		"pgaudit.log = "+auditLog)
}
