package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

var versionNumberPattern = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// InstallationTable covers the Installation and Patches section.
func InstallationTable() *Table {
	return &Table{
		Section: "Installation and Patches",
		Entries: []Entry{
			{Prefix: "1.1", Check: checkInstallationVersion},
			{Prefix: "1.2", Check: checkSystemdServiceEnabled},
			{Prefix: "1.3", Check: checkInstallationIntegrity},
		},
		Fallback: genericSettingCheck("Installation setting"),
	}
}

// checkInstallationVersion verifies the server identifies itself as
// YugabyteDB and reports the detected version.
func checkInstallationVersion(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	rows, err := cc.Source.Query(ctx, "SELECT version();")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking installation: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c, "Could not retrieve version information", "", "")
	}
	version := rows[0]["version"]

	if !strings.Contains(strings.ToLower(version), "yugabyte") {
		return failResult(c, "Not running YugabyteDB", "YugabyteDB", version)
	}

	number := "Unknown"
	if m := versionNumberPattern.FindString(version); m != "" {
		number = m
	}
	return passResult(c,
		fmt.Sprintf("YugabyteDB version %s detected", number),
		"YugabyteDB installation",
		"YugabyteDB "+number)
}

// checkSystemdServiceEnabled covers node service state, which is not visible
// over a SQL session.
func checkSystemdServiceEnabled(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	return skipResult(c, "Service unit state requires manual verification on each node")
}

// checkInstallationIntegrity probes the system catalogs and basic session
// facilities to confirm the data cluster initialized correctly.
func checkInstallationIntegrity(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	systemTables := []string{"pg_class", "pg_database", "pg_user", "pg_settings"}

	var missing []string
	for _, table := range systemTables {
		rows, err := cc.Source.Query(ctx,
			fmt.Sprintf("SELECT to_regclass('pg_catalog.%s') AS oid;", table))
		if err != nil {
			return failResult(c, fmt.Sprintf("Error checking installation integrity: %v", err), "", "")
		}
		if len(rows) == 0 || rows[0]["oid"] == "" {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return failResult(c,
			fmt.Sprintf("Missing system tables: %s", strings.Join(missing, ", ")),
			"All system tables present",
			"Missing: "+strings.Join(missing, ", "))
	}

	basicChecks := []string{
		"SELECT current_database();",
		"SELECT current_user;",
		"SELECT count(*) FROM pg_settings;",
	}
	for _, q := range basicChecks {
		rows, err := cc.Source.Query(ctx, q)
		if err != nil || len(rows) == 0 {
			return failResult(c, fmt.Sprintf("Failed basic system check: %s", q), "", "")
		}
	}

	return passResult(c,
		"Installation integrity checks passed",
		"All system components accessible",
		"All basic checks passed")
}
