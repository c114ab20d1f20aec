package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
)

// UserAccessTable covers the User Access and Authorization section. These
// checks read the role catalog rather than individual settings.
func UserAccessTable() *Table {
	return &Table{
		Section: "User Access and Authorization",
		Entries: []Entry{
			{Prefix: "4.1", Check: checkSuperuserAccounts},
			{Prefix: "4.2", Check: checkUserPrivileges},
			{Prefix: "4.3", Check: checkRoleManagement},
			{Prefix: "4.4", Check: checkUserAuthentication},
		},
		Fallback: genericSettingCheck("User access setting"),
	}
}

func checkSuperuserAccounts(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	rows, err := cc.Source.Query(ctx, "SELECT rolname FROM pg_roles WHERE rolsuper = true;")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking superuser accounts: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c, "Could not retrieve superuser information", "", "")
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row["rolname"])
	}

	if len(names) > 3 {
		return warnResult(c,
			fmt.Sprintf("Many superuser accounts found: %s", strings.Join(names, ", ")),
			"Limited number of superusers",
			fmt.Sprintf("%d superusers", len(names)))
	}
	return passResult(c,
		fmt.Sprintf("Reasonable number of superuser accounts: %s", strings.Join(names, ", ")),
		"Limited number of superusers",
		fmt.Sprintf("%d superusers", len(names)))
}

// checkUserPrivileges flags login roles that hold CREATEROLE, CREATEDB, or
// REPLICATION without being superusers.
func checkUserPrivileges(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	rows, err := cc.Source.Query(ctx,
		"SELECT rolname, rolsuper, rolcreaterole, rolcreatedb, rolcanlogin, rolreplication "+
			"FROM pg_roles WHERE rolcanlogin = true;")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking user privileges: %v", err), "", "")
	}
	if len(rows) == 0 {
		return failResult(c, "Could not retrieve user privilege information", "", "")
	}

	var issues []string
	for _, row := range rows {
		if truthy(row["rolsuper"]) {
			continue
		}
		var privs []string
		if truthy(row["rolcreaterole"]) {
			privs = append(privs, "CREATEROLE")
		}
		if truthy(row["rolcreatedb"]) {
			privs = append(privs, "CREATEDB")
		}
		if truthy(row["rolreplication"]) {
			privs = append(privs, "REPLICATION")
		}
		if len(privs) > 0 {
			issues = append(issues, fmt.Sprintf("%s: %s", row["rolname"], strings.Join(privs, ", ")))
		}
	}

	if len(issues) > 0 {
		return warnResult(c,
			fmt.Sprintf("Users with elevated privileges: %s", strings.Join(issues, "; ")),
			"Minimal privileges for non-superusers",
			fmt.Sprintf("%d users with elevated privileges", len(issues)))
	}
	return passResult(c,
		"No non-superuser accounts have dangerous privileges",
		"Minimal privileges for non-superusers",
		"All non-superusers have appropriate privileges")
}

func checkRoleManagement(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	roleRows, err := cc.Source.Query(ctx, "SELECT count(*) AS role_count FROM pg_roles WHERE NOT rolcanlogin;")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking role management: %v", err), "", "")
	}
	userRows, err := cc.Source.Query(ctx, "SELECT count(*) AS user_count FROM pg_roles WHERE rolcanlogin;")
	if err != nil {
		return failResult(c, fmt.Sprintf("Error checking role management: %v", err), "", "")
	}
	if len(roleRows) == 0 || len(userRows) == 0 {
		return failResult(c, "Could not retrieve role/user counts", "", "")
	}

	roleCount := roleRows[0]["role_count"]
	userCount := userRows[0]["user_count"]
	counts := fmt.Sprintf("%s roles, %s users", roleCount, userCount)

	if roleCount == "0" {
		return warnResult(c,
			"No roles defined - consider using roles for privilege management",
			"Use of roles for privilege management", counts)
	}
	return passResult(c,
		fmt.Sprintf("Roles are being used for privilege management: %s", counts),
		"Use of roles for privilege management", counts)
}

func checkUserAuthentication(ctx context.Context, cc CheckContext, c models.Control) models.Result {
	v, res, ok := requireSetting(ctx, cc, c, "password_encryption", "Secure password encryption")
	if !ok {
		return res
	}
	if v == "scram-sha-256" || v == "md5" {
		return passResult(c,
			fmt.Sprintf("Password encryption is properly configured: %s", v),
			"Secure password encryption", v)
	}
	return failResult(c,
		fmt.Sprintf("Insecure password encryption method: %s", v),
		"scram-sha-256 or md5", v)
}
