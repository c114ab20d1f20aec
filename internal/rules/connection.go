package rules

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// ConnectionTable covers the Connection and Login section.
func ConnectionTable() *Table {
	return &Table{
		Section: "Connection and Login",
		Entries: []Entry{
			{Prefix: "6.1", Check: routeSSLConfigurationCheck},
			{Prefix: "6.2", Check: routeConnectionLimitCheck},
			{Prefix: "6.3", Check: routeNetworkSecurityCheck},
			{Prefix: "6.4", Check: routeAuthenticationMethodCheck},
		},
		Fallback: genericSettingCheck("Connection setting"),
	}
}

func routeSSLConfigurationCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	if !strings.Contains(strings.ToLower(c.Audit), "ssl") {
		return genericSettingCheck("Connection setting")(ctx, cc, c)
	}

	v, res, ok := requireSetting(ctx, cc, c, "ssl", "SSL enabled")
	if !ok {
		return res
	}
	if v != "on" {
		return failResult(c, fmt.Sprintf("SSL is not enabled: %s", v), "SSL enabled", "SSL: "+v)
	}

	var details []string
	for _, probe := range []struct{ name, label string }{
		{"ssl_cert_file", "cert"},
		{"ssl_key_file", "key"},
		{"ssl_ca_file", "ca"},
	} {
		if file, found, err := cc.Source.Setting(ctx, probe.name); err == nil && found && file != "" {
			details = append(details, fmt.Sprintf("%s: %s", probe.label, file))
		}
	}
	suffix := ""
	if len(details) > 0 {
		suffix = fmt.Sprintf(" (%s)", strings.Join(details, ", "))
	}
	return passResult(c,
		fmt.Sprintf("SSL is enabled%s", suffix),
		"SSL enabled",
		fmt.Sprintf("SSL: %s%s", v, suffix))
}

func routeConnectionLimitCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	audit := strings.ToLower(c.Audit)
	switch {
	case strings.Contains(audit, "max_connections"):
		return checkMaxConnections(ctx, cc, c)
	case strings.Contains(audit, "superuser_reserved_connections"):
		return checkSuperuserReservedConnections(ctx, cc, c)
	default:
		return genericSettingCheck("Connection setting")(ctx, cc, c)
	}
}

func checkMaxConnections(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "max_connections", "Reasonable connection limit")
	if !ok {
		return res
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return failResult(c, fmt.Sprintf("Invalid max_connections value: %s", v), "", v)
	}
	switch {
	case n < 10:
		return warnResult(c,
			fmt.Sprintf("Very low max_connections setting: %s", v),
			"Reasonable connection limit (>=10)", v)
	case n > 1000:
		return warnResult(c,
			fmt.Sprintf("Very high max_connections setting: %s - may impact performance", v),
			"Reasonable connection limit (<=1000)", v)
	default:
		return passResult(c,
			fmt.Sprintf("Reasonable max_connections setting: %s", v),
			"Reasonable connection limit", v)
	}
}

func checkSuperuserReservedConnections(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "superuser_reserved_connections", ">=3 reserved connections")
	if !ok {
		return res
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return failResult(c, fmt.Sprintf("Invalid superuser_reserved_connections value: %s", v), "", v)
	}
	if n < 3 {
		return failResult(c,
			fmt.Sprintf("Insufficient superuser reserved connections: %s (should be >=3)", v),
			">=3 reserved connections", v)
	}
	return passResult(c,
		fmt.Sprintf("Adequate superuser reserved connections: %s", v),
		">=3 reserved connections", v)
}

func routeNetworkSecurityCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	audit := strings.ToLower(c.Audit)
	switch {
	case strings.Contains(audit, "listen_addresses"):
		return checkListenAddresses(ctx, cc, c)
	case strings.Contains(audit, "port"):
		return checkPortConfiguration(ctx, cc, c)
	default:
		return genericSettingCheck("Connection setting")(ctx, cc, c)
	}
}

func checkListenAddresses(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "listen_addresses", "Specific IP addresses")
	if !ok {
		return res
	}

	addresses := strings.Split(v, ",")
	for i := range addresses {
		addresses[i] = strings.TrimSpace(addresses[i])
	}
	contains := func(target string) bool {
		for _, a := range addresses {
			if a == target {
				return true
			}
		}
		return false
	}

	switch {
	case contains("*") || contains("0.0.0.0"):
		return warnResult(c,
			fmt.Sprintf("Database listening on all addresses: %s", v),
			"Specific IP addresses", v)
	case contains("localhost") || contains("127.0.0.1"):
		if len(addresses) == 1 {
			return passResult(c,
				"Database listening only on localhost (secure for single-machine setup)",
				"Restricted listen addresses", v)
		}
		return infoResult(c,
			fmt.Sprintf("Database listening on multiple addresses including localhost: %s", v), v)
	default:
		return passResult(c,
			fmt.Sprintf("Database listening on specific addresses: %s", v),
			"Specific IP addresses", v)
	}
}

func checkPortConfiguration(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "port", "Non-default port")
	if !ok {
		return res
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return failResult(c, fmt.Sprintf("Invalid port value: %s", v), "", v)
	}
	if port == 5432 || port == 5433 {
		r := infoResult(c, fmt.Sprintf("Using default PostgreSQL/YugabyteDB port: %s", v), v)
		r.Expected = "Consider non-default port for security"
		return r
	}
	return passResult(c, fmt.Sprintf("Using non-default port: %s", v), "Non-default port", v)
}

func routeAuthenticationMethodCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	if strings.Contains(strings.ToLower(c.Audit), "password_encryption") {
		return checkPasswordEncryptionMethod(ctx, cc, c)
	}
	return skipResult(c, "Authentication methods require manual verification of pg_hba.conf")
}

func checkPasswordEncryptionMethod(ctx context.Context, cc CheckContext, c models.Control) models.Result {
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
		return failResult(c,
			fmt.Sprintf("Weak or unknown password encryption method: %s", v),
			"scram-sha-256", v)
	}
}
