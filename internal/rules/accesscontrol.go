package rules

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// AccessControlTable covers the Access Control and Password Policies section.
func AccessControlTable() *Table {
	return &Table{
		Section: "Access Control and Password Policies",
		Entries: []Entry{
			{Prefix: "5.1", Check: checkPasswordPolicies},
			{Prefix: "5.2", Check: checkAccountLockout},
			{Prefix: "5.3", Check: routeSessionManagementCheck},
			{Prefix: "5.4", Check: checkPrivilegeEscalation},
		},
		Fallback: genericSettingCheck("Access control setting"),
	}
}

func checkPasswordPolicies(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "password_encryption", "scram-sha-256")
	if !ok {
		return res
	}
	switch v {
	case "scram-sha-256":
		return passResult(c, "Strong password encryption enabled: SCRAM-SHA-256", "scram-sha-256", v)
	case "md5":
		return warnResult(c,
			"Password encryption using MD5 - consider upgrading to SCRAM-SHA-256",
			"scram-sha-256", v)
	default:
		return failResult(c, fmt.Sprintf("Weak password encryption method: %s", v), "scram-sha-256", v)
	}
}

func checkAccountLockout(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	return skipResult(c, "Account lockout policies not natively supported in YugabyteDB - implement at application level")
}

// routeSessionManagementCheck keys the 5.3 family on the audit procedure
// text: the controls differ only in which session parameter they cover.
func routeSessionManagementCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	audit := strings.ToLower(c.Audit)
	switch {
	case strings.Contains(audit, "idle_in_transaction_session_timeout"):
		return checkIdleSessionTimeout(ctx, cc, c)
	case strings.Contains(audit, "statement_timeout"):
		return checkStatementTimeout(ctx, cc, c)
	case strings.Contains(audit, "tcp_keepalives"):
		return checkTCPKeepalives(ctx, cc, c)
	default:
		return genericSettingCheck("Session setting")(ctx, cc, c)
	}
}

func checkIdleSessionTimeout(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "idle_in_transaction_session_timeout", "Non-zero timeout (e.g., 30000ms = 30s)")
	if !ok {
		return res
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return failResult(c, fmt.Sprintf("Invalid timeout value: %s", v), "", v)
	}
	switch {
	case ms == 0:
		return warnResult(c,
			"Idle transaction session timeout is disabled",
			"Non-zero timeout (e.g., 30000ms = 30s)", "0 (disabled)")
	case ms > 0:
		secs := formatMillis(ms)
		return passResult(c,
			fmt.Sprintf("Idle transaction session timeout configured: %s", secs),
			"Reasonable timeout value", secs)
	default:
		return failResult(c,
			fmt.Sprintf("Invalid idle transaction session timeout: %d", ms),
			"Positive timeout value", v)
	}
}

func checkStatementTimeout(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "statement_timeout", "Non-zero timeout for production systems")
	if !ok {
		return res
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return failResult(c, fmt.Sprintf("Invalid statement timeout value: %s", v), "", v)
	}
	if ms == 0 {
		return warnResult(c,
			"Statement timeout is disabled - long-running queries may impact system",
			"Non-zero timeout for production systems", "0 (disabled)")
	}
	secs := formatMillis(ms)
	return passResult(c,
		fmt.Sprintf("Statement timeout configured: %s", secs),
		"Reasonable timeout value", secs)
}

func checkTCPKeepalives(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	names := []string{"tcp_keepalives_idle", "tcp_keepalives_interval", "tcp_keepalives_count"}

	var configured []string
	for _, name := range names {
		v, found, err := cc.Source.Setting(ctx, name)
		if err != nil || !found {
			continue
		}
		if v != "" && v != "0" {
			configured = append(configured, fmt.Sprintf("%s=%s", name, v))
		}
	}

	if len(configured) > 0 {
		settings := strings.Join(configured, ", ")
		return passResult(c,
			fmt.Sprintf("TCP keepalive settings configured: %s", settings),
			"TCP keepalives enabled", settings)
	}
	return warnResult(c,
		"TCP keepalive settings not configured - may affect connection management",
		"TCP keepalives enabled", "All keepalive settings disabled or default")
}

func checkPrivilegeEscalation(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	rows, err := cc.Source.Query(ctx,
		"SELECT rolname FROM pg_roles WHERE rolcreaterole = true AND rolsuper = false;")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking privilege escalation: %v", err), "", "")
	}

	if len(rows) > 0 {
		names := make([]string, 0, len(rows))
		for _, row := range rows {
			names = append(names, row["rolname"])
		}
		return warnResult(c,
			fmt.Sprintf("Non-superuser accounts with CREATEROLE privilege: %s", strings.Join(names, ", ")),
			"Limited CREATEROLE privileges",
			fmt.Sprintf("%d accounts with CREATEROLE", len(names)))
	}
	return passResult(c,
		"No non-superuser accounts have CREATEROLE privilege",
		"Limited CREATEROLE privileges",
		"No privilege escalation risks identified")
}
