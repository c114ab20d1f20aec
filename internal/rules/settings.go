package rules

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// SettingsTable covers the YugabyteDB Settings section: preload libraries,
// backend runtime parameters, memory and maintenance tuning, and the TLS and
// pgcrypto recommendations.
func SettingsTable() *Table {
	return &Table{
		Section: "YugabyteDB Settings",
		Entries: []Entry{
			{Prefix: "7.1", Check: checkSharedPreloadLibraries},
			{Prefix: "7.2", Check: checkBackendRuntimeParameters},
			{Prefix: "7.3", Check: routeMemorySettingCheck},
			{Prefix: "7.4", Check: routeMaintenanceSettingCheck},
			{Prefix: "7.7", Check: checkServerTLS},
			{Prefix: "7.8", Check: checkClientTLS},
			{Prefix: "7.9", Check: checkPgcryptoInstalled},
		},
		Fallback: genericSettingCheck("YugabyteDB setting"),
	}
}

var (
	riskyPreloadLibraries    = []string{"dblink", "file_fdw", "plpython3u", "plperlu", "plpgsql"}
	securityPreloadLibraries = []string{"pg_audit", "passwordcheck", "auth_delay"}
)

func checkSharedPreloadLibraries(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, found, err := cc.Source.Setting(ctx, "shared_preload_libraries")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking shared preload libraries: %v", err), "", "")
	}
	if !found || strings.TrimSpace(v) == "" {
		r := infoResult(c, "No shared preload libraries configured", "None")
		r.Expected = "Security-relevant extensions only"
		return r
	}

	libraries := strings.Split(v, ",")
	var foundRisky, foundSecurity []string
	for _, lib := range libraries {
		lib = strings.TrimSpace(lib)
		lower := strings.ToLower(lib)
		for _, risky := range riskyPreloadLibraries {
			if strings.Contains(lower, risky) {
				foundRisky = append(foundRisky, lib)
				break
			}
		}
		for _, sec := range securityPreloadLibraries {
			if strings.Contains(lower, sec) {
				foundSecurity = append(foundSecurity, lib)
				break
			}
		}
	}

	switch {
	case len(foundRisky) > 0:
		return failResult(c,
			fmt.Sprintf("Potentially risky libraries loaded: %s", strings.Join(foundRisky, ", ")),
			"Security-relevant extensions only", v)
	case len(foundSecurity) > 0:
		return passResult(c,
			fmt.Sprintf("Security-related libraries configured: %s", strings.Join(foundSecurity, ", ")),
			"Security-relevant extensions", v)
	default:
		return infoResult(c, fmt.Sprintf("Shared preload libraries: %s", v), v)
	}
}

// backendSecureSettings are the backend-context parameters with a single
// secure value, checked in this order.
var backendSecureSettings = []struct {
	name string
	want string
	kind string // "off", "on", or "zero"
}{
	{"ignore_system_indexes", "off", "off"},
	{"jit_debugging_support", "off", "off"},
	{"jit_profiling_support", "off", "off"},
	{"log_connections", "on", "on"},
	{"log_disconnections", "on", "on"},
	{"post_auth_delay", "0", "zero"},
}

var riskyParameterKeywords = []string{"debug", "trace", "dump", "test", "unsafe"}

// checkBackendRuntimeParameters scans every backend-context parameter and
// grades it against the secure baseline.
func checkBackendRuntimeParameters(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "All backend parameters configured securely"

	rows, err := cc.Source.Query(ctx,
		"SELECT name, setting FROM pg_settings WHERE context IN ('backend','superuser-backend') ORDER BY name;")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking runtime parameters: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c, "Could not retrieve backend runtime parameters", "Secure parameter settings", "Query failed")
	}

	current := make(map[string]string, len(rows))
	for _, row := range rows {
		current[row["name"]] = row["setting"]
	}

	var issues, warnings, secure []string
	for _, s := range backendSecureSettings {
		v, present := current[s.name]
		if !present {
			warnings = append(warnings, fmt.Sprintf("%s: not found", s.name))
			continue
		}
		switch s.kind {
		case "off":
			if strings.ToLower(v) != "off" {
				issues = append(issues, fmt.Sprintf("%s: %s (should be off)", s.name, v))
			} else {
				secure = append(secure, fmt.Sprintf("%s: %s", s.name, v))
			}
		case "on":
			if strings.ToLower(v) != "on" {
				issues = append(issues, fmt.Sprintf("%s: %s (should be on for auditing)", s.name, v))
			} else {
				secure = append(secure, fmt.Sprintf("%s: %s", s.name, v))
			}
		case "zero":
			if v != "0" {
				warnings = append(warnings, fmt.Sprintf("%s: %s (non-zero delay)", s.name, v))
			} else {
				secure = append(secure, fmt.Sprintf("%s: %s", s.name, v))
			}
		}
	}

	known := make(map[string]bool, len(backendSecureSettings))
	for _, s := range backendSecureSettings {
		known[s.name] = true
	}
	var risky []string
	for _, row := range rows {
		name := row["name"]
		if known[name] {
			continue
		}
		lower := strings.ToLower(name)
		for _, keyword := range riskyParameterKeywords {
			if strings.Contains(lower, keyword) {
				risky = append(risky, fmt.Sprintf("%s: %s", name, row["setting"]))
				break
			}
		}
	}

	all := make([]string, 0, len(rows))
	for _, row := range rows {
		all = append(all, fmt.Sprintf("%s: %s", row["name"], row["setting"]))
	}
	shown := all
	if len(shown) > 6 {
		shown = shown[:6]
	}
	actual := fmt.Sprintf("%d parameters found: %s", len(rows), strings.Join(shown, ", "))
	if len(all) > 6 {
		actual += fmt.Sprintf(" ... and %d more", len(all)-6)
	}

	switch {
	case len(issues) > 0:
		return failResult(c,
			fmt.Sprintf("Insecure runtime parameter settings found: %s", strings.Join(issues, "; ")),
			expected, actual)
	case len(warnings) > 0 || len(risky) > 0:
		msgs := append([]string{}, warnings...)
		if len(risky) > 0 {
			msgs = append(msgs, fmt.Sprintf("Potentially risky parameters: %s", strings.Join(risky, "; ")))
		}
		return warnResult(c,
			fmt.Sprintf("Runtime parameters need review: %s", strings.Join(msgs, "; ")),
			expected, actual)
	default:
		return passResult(c,
			fmt.Sprintf("Backend runtime parameters are securely configured: %s", strings.Join(secure, "; ")),
			expected, actual)
	}
}

func routeMemorySettingCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	audit := strings.ToLower(c.Audit)
	switch {
	case strings.Contains(audit, "maintenance_work_mem"):
		return reportMemorySetting(ctx, cc, c, "maintenance_work_mem",
			"Maintenance work memory configured", "Appropriate for maintenance operations")
	case strings.Contains(audit, "shared_buffers"):
		return reportMemorySetting(ctx, cc, c, "shared_buffers",
			"Shared buffers configured", "Appropriate for system memory")
	case strings.Contains(audit, "work_mem"):
		return reportMemorySetting(ctx, cc, c, "work_mem",
			"Work memory configured", "Appropriate for workload")
	default:
		return genericSettingCheck("Memory setting")(ctx, cc, c)
	}
}

func reportMemorySetting(ctx context.Context, cc CheckContext, c models.Control, name, label, expected string) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, name, expected)
	if !ok {
		return res
	}
	r := infoResult(c, fmt.Sprintf("%s: %s", label, v), v)
	r.Expected = expected
	return r
}

func routeMaintenanceSettingCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	audit := strings.ToLower(c.Audit)
	switch {
	case strings.Contains(audit, "autovacuum"):
		return checkAutovacuum(ctx, cc, c)
	case strings.Contains(audit, "checkpoint"):
		return checkCheckpointSettings(ctx, cc, c)
	default:
		return genericSettingCheck("Maintenance setting")(ctx, cc, c)
	}
}

func checkAutovacuum(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "autovacuum", "on")
	if !ok {
		return res
	}
	if v == "off" {
		return failResult(c, "Autovacuum is disabled - may cause performance degradation", "on", v)
	}
	return passResult(c, fmt.Sprintf("Autovacuum is enabled: %s", v), "on", v)
}

func checkCheckpointSettings(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	if !strings.Contains(strings.ToLower(c.Audit), "checkpoint_completion_target") {
		return genericSettingCheck("YugabyteDB setting")(ctx, cc, c)
	}
	v, res, ok := requireSetting(ctx, cc, c, "checkpoint_completion_target", "0.5-0.9")
	if !ok {
		return res
	}
	target, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return failResult(c, fmt.Sprintf("Invalid checkpoint completion target: %s", v), "", v)
	}
	if target >= 0.5 && target <= 0.9 {
		return passResult(c,
			fmt.Sprintf("Checkpoint completion target properly configured: %s", v),
			"0.5-0.9", v)
	}
	return failResult(c,
		fmt.Sprintf("Checkpoint completion target outside recommended range: %s", v),
		"0.5-0.9", v)
}

// sslFileSettings fetches every ssl*file parameter from pg_settings.
func sslFileSettings(ctx context.Context, cc CheckContext) (map[string]string, error) {
	rows, err := cc.Source.Query(ctx,
		"SELECT name, setting FROM pg_settings WHERE name LIKE 'ssl%file' ORDER BY name;")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	files := make(map[string]string, len(rows))
	for _, row := range rows {
		files[row["name"]] = row["setting"]
	}
	return files, nil
}

// checkServerTLS verifies TLS is enabled with complete certificate
// configuration for node-to-node traffic.
func checkServerTLS(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "ssl", "on")
	if !ok {
		return res
	}
	if strings.ToLower(v) != "on" {
		return failResult(c, fmt.Sprintf("SSL/TLS is not enabled: %s", v), "on", v)
	}

	files, err := sslFileSettings(ctx, cc)
	if err != nil || files == nil {
		return warnResult(c,
			"SSL is enabled but could not verify SSL file configuration",
			"SSL enabled with proper certificate files",
			fmt.Sprintf("ssl = %s, SSL files check failed", v))
	}

	certFile := files["ssl_cert_file"]
	keyFile := files["ssl_key_file"]
	caFile := files["ssl_ca_file"]

	var details, issues []string
	if certFile != "" {
		details = append(details, "cert_file: "+certFile)
	} else {
		issues = append(issues, "ssl_cert_file not configured")
	}
	if keyFile != "" {
		details = append(details, "key_file: "+keyFile)
	} else {
		issues = append(issues, "ssl_key_file not configured")
	}
	if caFile != "" {
		details = append(details, "ca_file: "+caFile)
	} else {
		details = append(details, "ca_file: not set")
	}
	for _, name := range []string{"ssl_crl_file", "ssl_dh_params_file"} {
		if files[name] != "" {
			details = append(details, fmt.Sprintf("%s: %s", name, files[name]))
		}
	}

	summary := fmt.Sprintf("ssl = %s; %s", v, strings.Join(details, "; "))

	if len(issues) > 0 {
		return failResult(c,
			fmt.Sprintf("SSL enabled but incomplete configuration: %s", strings.Join(issues, "; ")),
			"SSL enabled with certificate and key files configured", summary)
	}
	if certFile == "server.crt" && keyFile == "server.key" {
		return warnResult(c,
			"SSL properly enabled but using default certificate filenames",
			"SSL enabled with custom certificate filenames", summary)
	}
	return passResult(c,
		"SSL/TLS properly configured for server-to-server communication",
		"SSL enabled with proper certificate configuration", summary)
}

// checkClientTLS verifies TLS is enabled for client sessions, with CA and
// filename recommendations surfaced as warnings.
func checkClientTLS(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "ssl", "on")
	if !ok {
		return res
	}
	if strings.ToLower(v) != "on" {
		return failResult(c,
			fmt.Sprintf("SSL/TLS is not enabled for client connections: %s", v), "on", v)
	}

	files, err := sslFileSettings(ctx, cc)
	if err != nil || files == nil {
		return warnResult(c,
			"SSL is enabled but could not verify SSL certificate configuration",
			"SSL enabled with proper certificate files",
			fmt.Sprintf("ssl = %s, SSL files check failed", v))
	}

	certFile := files["ssl_cert_file"]
	keyFile := files["ssl_key_file"]
	caFile := files["ssl_ca_file"]

	var details, critical, warnings []string
	if certFile != "" {
		details = append(details, "cert_file: "+certFile)
	} else {
		critical = append(critical, "ssl_cert_file not configured")
	}
	if keyFile != "" {
		details = append(details, "key_file: "+keyFile)
	} else {
		critical = append(critical, "ssl_key_file not configured")
	}
	if caFile != "" {
		details = append(details, "ca_file: "+caFile)
	} else {
		warnings = append(warnings, "ssl_ca_file not configured (recommended for client certificate verification)")
	}
	if files["ssl_crl_file"] != "" {
		details = append(details, "crl_file: "+files["ssl_crl_file"])
	}
	if files["ssl_dh_params_file"] != "" {
		details = append(details, "dh_params_file: "+files["ssl_dh_params_file"])
	}

	summary := fmt.Sprintf("ssl = %s; %s", v, strings.Join(details, "; "))

	if len(critical) > 0 {
		return failResult(c,
			fmt.Sprintf("SSL enabled but missing required files: %s", strings.Join(critical, "; ")),
			"SSL enabled with certificate and key files configured", summary)
	}

	if certFile == "server.crt" {
		warnings = append(warnings, "using default certificate filename")
	}
	if keyFile == "server.key" {
		warnings = append(warnings, "using default key filename")
	}
	if len(warnings) > 0 {
		return warnResult(c,
			fmt.Sprintf("SSL enabled for client connections with recommendations: %s", strings.Join(warnings, "; ")),
			"SSL enabled with custom certificate names and CA file", summary)
	}
	return passResult(c,
		"SSL/TLS properly configured for client-to-server communication",
		"SSL enabled with proper certificate configuration", summary)
}

func checkPgcryptoInstalled(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	rows, err := cc.Source.Query(ctx, "SELECT * FROM pg_available_extensions WHERE name='pgcrypto';")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking pgcrypto extension: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c,
			"pgcrypto extension is not available in this YugabyteDB installation",
			"pgcrypto available and installed", "pgcrypto not available")
	}

	ext := rows[0]
	availability := fmt.Sprintf("name: %s, default_version: %s, comment: %s",
		ext["name"], ext["default_version"], ext["comment"])

	installed := strings.TrimSpace(ext["installed_version"])
	if installed != "" {
		return passResult(c,
			fmt.Sprintf("pgcrypto extension is available and installed (version %s)", installed),
			"pgcrypto available and installed",
			fmt.Sprintf("installed_version: %s, %s", installed, availability))
	}
	return failResult(c,
		fmt.Sprintf("pgcrypto extension is available but not installed. %s", availability),
		"pgcrypto installed for data encryption",
		"installed_version: NULL, "+availability)
}
