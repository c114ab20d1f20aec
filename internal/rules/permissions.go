package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// DirectoryPermissionsTable covers the Directory and File Permissions
// section. OS-level permission bits are not visible over a SQL session, so
// these checks surface the relevant paths for manual verification.
func DirectoryPermissionsTable() *Table {
	return &Table{
		Section: "Directory and File Permissions",
		Entries: []Entry{
			{Prefix: "2.1", Check: checkDataDirectoryPermissions},
			{Prefix: "2.2", Check: checkLogFileLocation},
			{Prefix: "2.3", Check: checkConfigFilePermissions},
			{Prefix: "2.4", Check: checkBackupDirectoryPermissions},
		},
		Fallback: routeDirectoryPermissionCheck,
	}
}

func checkDataDirectoryPermissions(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	dataDir, found, err := cc.Source.Setting(ctx, "data_directory")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking data directory permissions: %v", err), "", "")
	}
	if !found || dataDir == "" {
		return failResult(c, "Could not determine data directory location", "", "")
	}
	r := infoResult(c,
		fmt.Sprintf("Data directory: %s. Manual verification required for permissions (should be 0700).", dataDir),
		"Directory path: "+dataDir)
	r.Expected = "Directory permissions: 0700 (owner only)"
	return r
}

func checkLogFileLocation(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	logDestination, found, err := cc.Source.Setting(ctx, "log_destination")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking log file permissions: %v", err), "", "")
	}
	if !found || logDestination == "" {
		return failResult(c, "Could not determine log destination", "", "")
	}

	logDirectory := settingOrUnknown(ctx, cc, "log_directory")
	logFilename := settingOrUnknown(ctx, cc, "log_filename")

	logInfo := fmt.Sprintf("Log destination: %s, Directory: %s, Filename pattern: %s",
		logDestination, logDirectory, logFilename)
	r := infoResult(c,
		logInfo+". Manual verification required for log file permissions (should be 0640).",
		logInfo)
	r.Expected = "Log file permissions: 0640"
	return r
}

func checkConfigFilePermissions(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	configFile, found, err := cc.Source.Setting(ctx, "config_file")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking config file permissions: %v", err), "", "")
	}
	if !found || configFile == "" {
		return failResult(c, "Could not determine configuration file location", "", "")
	}
	r := infoResult(c,
		fmt.Sprintf("Configuration file: %s. Manual verification required for permissions (should be 0600).", configFile),
		"Config file path: "+configFile)
	r.Expected = "Config file permissions: 0600 (owner read/write only)"
	return r
}

func checkBackupDirectoryPermissions(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	return skipResult(c, "Backup directory permissions require manual verification of backup tooling configuration")
}

// routeDirectoryPermissionCheck handles unnumbered controls by keying on the
// audit procedure text.
func routeDirectoryPermissionCheck(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	audit := strings.ToLower(c.Audit)
	switch {
	case strings.Contains(audit, "data_directory"):
		return checkDataDirectoryPermissions(ctx, cc, c)
	case strings.Contains(audit, "log"):
		return checkLogFileLocation(ctx, cc, c)
	case strings.Contains(audit, "config"):
		return checkConfigFilePermissions(ctx, cc, c)
	default:
		return skipResult(c, "Generic directory permissions check - manual OS-level verification required")
	}
}

func settingOrUnknown(ctx context.Context, cc CheckContext, name string) string {
	if v, found, err := cc.Source.Setting(ctx, name); err == nil && found && v != "" {
		return v
	}
	return "Unknown"
}
