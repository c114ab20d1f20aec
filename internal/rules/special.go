package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// SpecialConfigurationTable covers the Special Configuration Considerations
// section: backups, and keeping configuration files and subdirectories
// outside the data cluster.
func SpecialConfigurationTable() *Table {
	return &Table{
		Section: "Special Configuration Considerations",
		Entries: []Entry{
			{Prefix: "8.1", Check: checkBackupConfigured},
			{Prefix: "8.2", Check: checkConfigFilesOutsideDataCluster},
			{Prefix: "8.3", Check: checkSubdirectoriesOutsideDataCluster},
			{Prefix: "8.4", Check: checkSensitiveConfigSettings},
		},
		Fallback: func(ctx context.Context, cc CheckContext, c models.Control) models.Result {
			return skipResult(c, "Generic extension configuration - manual verification required")
		},
	}
}

func checkBackupConfigured(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	return skipResult(c, "Backup configuration and restore drills require manual verification")
}

// checkConfigFilesOutsideDataCluster flags absolute *_file settings that
// resolve inside the data directory.
func checkConfigFilesOutsideDataCluster(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "Configuration files outside data cluster directory"

	rows, err := cc.Source.Query(ctx,
		"SELECT name, setting FROM pg_settings WHERE name ~ '.*_file$';")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking configuration file locations: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c, "Could not retrieve configuration file settings",
			"Config files outside data directory", "Query failed")
	}

	dataDirectory, found, err := cc.Source.Setting(ctx, "data_directory")
	if err != nil || !found || dataDirectory == "" {
		return warnResult(c, "Could not determine data_directory for comparison",
			"Config files outside data directory", "data_directory not available")
	}

	var inside, outside []string
	for _, row := range rows {
		setting := strings.TrimSpace(row["setting"])
		if setting == "" {
			continue
		}
		// Relative paths like server.crt live in the data dir by definition
		// and are covered by the TLS checks.
		if !strings.HasPrefix(setting, "/") {
			continue
		}
		entry := fmt.Sprintf("%s: %s", row["name"], setting)
		if strings.HasPrefix(setting, dataDirectory) {
			inside = append(inside, entry)
		} else {
			outside = append(outside, entry)
		}
	}

	var summaryParts []string
	if len(outside) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Outside data dir: %d", len(outside)))
	}
	if len(inside) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Inside data dir: %d", len(inside)))
	}
	actual := fmt.Sprintf("data_directory: %s; %s", dataDirectory, strings.Join(summaryParts, "; "))

	if len(inside) > 0 {
		criticalFiles := []string{"config_file", "hba_file", "ident_file"}
		var criticalInside []string
		for _, entry := range inside {
			for _, cf := range criticalFiles {
				if strings.Contains(entry, cf) {
					criticalInside = append(criticalInside, entry)
					break
				}
			}
		}
		if len(criticalInside) > 0 {
			return failResult(c,
				fmt.Sprintf("Critical configuration files are inside data directory: %s", strings.Join(criticalInside, "; ")),
				expected, actual)
		}
		return warnResult(c,
			fmt.Sprintf("Some configuration files are inside data directory: %s", strings.Join(inside, "; ")),
			"All configuration files outside data cluster directory", actual)
	}

	if len(outside) > 0 {
		return passResult(c,
			fmt.Sprintf("Configuration files are properly located outside data directory: %s", strings.Join(outside, "; ")),
			expected, actual)
	}
	return warnResult(c,
		"No absolute paths found for configuration files - manual verification required",
		expected,
		fmt.Sprintf("data_directory: %s; Only relative paths or empty settings found", dataDirectory))
}

// checkSubdirectoriesOutsideDataCluster flags *_directory settings that
// resolve inside the data cluster.
func checkSubdirectoriesOutsideDataCluster(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "Subdirectories outside data cluster with restrictive permissions"

	rows, err := cc.Source.Query(ctx,
		"SELECT name, setting FROM pg_settings WHERE name ~ '_directory$';")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking subdirectory locations: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c, "Could not retrieve directory settings", expected, "Query failed")
	}

	dataDirectory := ""
	for _, row := range rows {
		if row["name"] == "data_directory" {
			dataDirectory = row["setting"]
		}
	}
	if dataDirectory == "" {
		return failResult(c, "Could not determine data_directory location",
			"Subdirectories outside data cluster", "data_directory not found")
	}

	var inside, outside, relativeOrEmpty []string
	for _, row := range rows {
		name := row["name"]
		if name == "data_directory" {
			continue
		}
		setting := strings.TrimSpace(row["setting"])
		switch {
		case setting == "":
			relativeOrEmpty = append(relativeOrEmpty, name+": empty")
		case !strings.HasPrefix(setting, "/"):
			relativeOrEmpty = append(relativeOrEmpty, fmt.Sprintf("%s: %s (relative)", name, setting))
		case strings.HasPrefix(setting, dataDirectory):
			inside = append(inside, fmt.Sprintf("%s: %s", name, setting))
		default:
			outside = append(outside, fmt.Sprintf("%s: %s", name, setting))
		}
	}

	summaryParts := []string{"data_directory: " + dataDirectory}
	if len(outside) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Outside: %d dirs", len(outside)))
	}
	if len(inside) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Inside: %d dirs", len(inside)))
	}
	if len(relativeOrEmpty) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Relative/Empty: %d", len(relativeOrEmpty)))
	}
	actual := strings.Join(summaryParts, "; ")

	var criticalInside []string
	for _, entry := range inside {
		if strings.Contains(entry, "log_directory") {
			criticalInside = append(criticalInside, entry)
		}
	}

	switch {
	case len(criticalInside) > 0:
		return failResult(c,
			fmt.Sprintf("Critical subdirectories are inside data cluster: %s. "+
				"Manual verification of file permissions required (should be restrictive to superusers only).",
				strings.Join(criticalInside, "; ")),
			expected, actual)
	case len(inside) > 0:
		return warnResult(c,
			fmt.Sprintf("Some subdirectories are inside data cluster: %s. "+
				"Manual verification of file permissions required (should be restrictive to superusers only).",
				strings.Join(inside, "; ")),
			"All subdirectories outside data cluster with restrictive permissions", actual)
	case len(outside) > 0:
		return passResult(c,
			fmt.Sprintf("Subdirectories are located outside data cluster: %s. "+
				"NOTE: Manual verification of file/directory permissions still required (only superusers should have access).",
				strings.Join(outside, "; ")),
			expected, actual)
	default:
		r := infoResult(c,
			fmt.Sprintf("No absolute subdirectory paths found. Directories: %s. "+
				"Manual verification of locations and permissions required.",
				strings.Join(relativeOrEmpty, "; ")),
			actual)
		r.Expected = expected
		return r
	}
}

// knownSafePreloadLibraries are libraries that need no further review when
// they appear in a preload list.
var knownSafePreloadLibraries = map[string]bool{
	"pg_stat_statements": true,
	"yb_pg_metrics":      true,
	"pgaudit":            true,
	"pg_hint_plan":       true,
}

// checkSensitiveConfigSettings grades the small set of parameters that point
// the server at external files, sockets, and libraries.
func checkSensitiveConfigSettings(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	const expected = "Secure configuration with restrictive permissions"

	rows, err := cc.Source.Query(ctx,
		"SELECT name, setting FROM pg_settings WHERE name IN ("+
			"'external_pid_file', 'unix_socket_directories', 'shared_preload_libraries', "+
			"'dynamic_library_path', 'local_preload_libraries', 'session_preload_libraries'"+
			") ORDER BY name;")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking configuration settings: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c, "Could not retrieve configuration settings", expected, "Query failed")
	}

	var concerns, reviews, secure, detailed []string
	for _, row := range rows {
		name := row["name"]
		value := row["setting"]
		detailed = append(detailed, fmt.Sprintf("%s=%s", name, value))

		switch name {
		case "dynamic_library_path":
			if value == "$libdir" {
				secure = append(secure, fmt.Sprintf("%s: %s (default, secure)", name, value))
			} else {
				concerns = append(concerns, fmt.Sprintf("%s: %s (non-default, verify security)", name, value))
			}
		case "unix_socket_directories":
			if strings.TrimSpace(value) == "" {
				secure = append(secure, name+": empty (no unix sockets)")
			} else if strings.Contains(value, "/tmp") || strings.Contains(value, "/var/tmp") {
				concerns = append(concerns,
					fmt.Sprintf("%s: %s (world-writable directory - potential security risk)", name, value))
			} else {
				reviews = append(reviews, fmt.Sprintf("%s: %s (verify restrictive permissions)", name, value))
			}
		case "external_pid_file":
			if strings.TrimSpace(value) == "" {
				secure = append(secure, name+": not set (default)")
			} else {
				reviews = append(reviews, fmt.Sprintf("%s: %s (verify file permissions are restrictive)", name, value))
			}
		case "shared_preload_libraries", "local_preload_libraries", "session_preload_libraries":
			if strings.TrimSpace(value) == "" {
				secure = append(secure, name+": not set (default)")
				continue
			}
			libraries := strings.Split(value, ",")
			var foundRisky []string
			allSafe := true
			for _, lib := range libraries {
				lib = strings.TrimSpace(lib)
				lower := strings.ToLower(lib)
				for _, risky := range []string{"dblink", "file_fdw", "plperlu", "plpython3u"} {
					if strings.Contains(lower, risky) {
						foundRisky = append(foundRisky, lib)
						break
					}
				}
				if !knownSafePreloadLibraries[lib] {
					allSafe = false
				}
			}
			switch {
			case len(foundRisky) > 0:
				concerns = append(concerns,
					fmt.Sprintf("%s: %s (contains potentially risky libraries: %s)",
						name, value, strings.Join(foundRisky, ", ")))
			case allSafe:
				secure = append(secure, fmt.Sprintf("%s: %s (known safe libraries)", name, value))
			default:
				reviews = append(reviews, fmt.Sprintf("%s: %s (verify library security)", name, value))
			}
		}
	}

	var summaryParts []string
	if len(secure) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Secure: %d settings", len(secure)))
	}
	if len(reviews) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Review: %d settings", len(reviews)))
	}
	if len(concerns) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Concerns: %d settings", len(concerns)))
	}
	actual := fmt.Sprintf("%s; Settings: %s", strings.Join(summaryParts, "; "), strings.Join(detailed, "; "))

	switch {
	case len(concerns) > 0:
		return failResult(c,
			fmt.Sprintf("Security concerns found: %s. "+
				"Manual verification of file/directory permissions required (only superusers should have access).",
				strings.Join(concerns, "; ")),
			expected, actual)
	case len(reviews) > 0:
		return warnResult(c,
			fmt.Sprintf("Configuration requires manual verification: %s. "+
				"Ensure file/directory permissions are highly restrictive (superusers only). "+
				"Secure settings: %s", strings.Join(reviews, "; "), strings.Join(secure, "; ")),
			"All settings secure with restrictive permissions", actual)
	default:
		return passResult(c,
			fmt.Sprintf("Configuration settings appear secure: %s. "+
				"NOTE: Manual verification of file/directory permissions still required.",
				strings.Join(secure, "; ")),
			expected, actual)
	}
}
