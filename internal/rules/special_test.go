package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/yugasec/yuga-bench/internal/models"
	"github.com/yugasec/yuga-bench/internal/source"
)

func evalSpecial(t *testing.T, id string, src *fakeSource) models.Result {
	t.Helper()
	c := models.Control{
		ID:          id,
		Title:       "special configuration control " + id,
		Section:     "Special Configuration Considerations",
		Remediation: "fix it",
	}
	return SpecialConfigurationTable().Evaluate(context.Background(), CheckContext{Source: src}, c)
}

func TestCheckConfigFilesOutsideDataCluster(t *testing.T) {
	const query = "SELECT name, setting FROM pg_settings WHERE name ~ '.*_file$';"

	t.Run("all files outside data directory", func(t *testing.T) {
		src := &fakeSource{
			settings: map[string]string{"data_directory": "/var/lib/yugabyte/data"},
			rows: map[string][]source.Row{query: {
				{"name": "config_file", "setting": "/etc/yugabyte/ysql.conf"},
				{"name": "hba_file", "setting": "/etc/yugabyte/ysql_hba.conf"},
				{"name": "ssl_cert_file", "setting": "server.crt"},
			}},
		}
		r := evalSpecial(t, "8.2", src)
		if r.Status != models.StatusPass {
			t.Fatalf("status = %s, want PASS (message %q)", r.Status, r.Message)
		}
	})

	t.Run("critical file inside data directory fails", func(t *testing.T) {
		src := &fakeSource{
			settings: map[string]string{"data_directory": "/var/lib/yugabyte/data"},
			rows: map[string][]source.Row{query: {
				{"name": "hba_file", "setting": "/var/lib/yugabyte/data/ysql_hba.conf"},
				{"name": "external_pid_file", "setting": "/run/yugabyte.pid"},
			}},
		}
		r := evalSpecial(t, "8.2", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
		if !strings.Contains(r.Message, "hba_file") {
			t.Errorf("message = %q", r.Message)
		}
	})

	t.Run("non-critical file inside data directory warns", func(t *testing.T) {
		src := &fakeSource{
			settings: map[string]string{"data_directory": "/var/lib/yugabyte/data"},
			rows: map[string][]source.Row{query: {
				{"name": "ssl_dh_params_file", "setting": "/var/lib/yugabyte/data/dh.pem"},
			}},
		}
		r := evalSpecial(t, "8.2", src)
		if r.Status != models.StatusWarn {
			t.Fatalf("status = %s, want WARN", r.Status)
		}
	})

	t.Run("only relative paths warns", func(t *testing.T) {
		src := &fakeSource{
			settings: map[string]string{"data_directory": "/var/lib/yugabyte/data"},
			rows: map[string][]source.Row{query: {
				{"name": "ssl_cert_file", "setting": "server.crt"},
				{"name": "external_pid_file", "setting": ""},
			}},
		}
		r := evalSpecial(t, "8.2", src)
		if r.Status != models.StatusWarn {
			t.Fatalf("status = %s, want WARN", r.Status)
		}
	})
}

func TestCheckSubdirectoriesOutsideDataCluster(t *testing.T) {
	const query = "SELECT name, setting FROM pg_settings WHERE name ~ '_directory$';"

	t.Run("log directory inside data cluster fails", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: {
			{"name": "data_directory", "setting": "/var/lib/yugabyte/data"},
			{"name": "log_directory", "setting": "/var/lib/yugabyte/data/log"},
		}}}
		r := evalSpecial(t, "8.3", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
	})

	t.Run("directories outside data cluster pass", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: {
			{"name": "data_directory", "setting": "/var/lib/yugabyte/data"},
			{"name": "log_directory", "setting": "/var/log/yugabyte"},
		}}}
		r := evalSpecial(t, "8.3", src)
		if r.Status != models.StatusPass {
			t.Fatalf("status = %s, want PASS (message %q)", r.Status, r.Message)
		}
	})

	t.Run("relative log directory reported as info", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: {
			{"name": "data_directory", "setting": "/var/lib/yugabyte/data"},
			{"name": "log_directory", "setting": "log"},
		}}}
		r := evalSpecial(t, "8.3", src)
		if r.Status != models.StatusInfo {
			t.Fatalf("status = %s, want INFO", r.Status)
		}
	})

	t.Run("missing data_directory fails", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: {
			{"name": "log_directory", "setting": "/var/log/yugabyte"},
		}}}
		r := evalSpecial(t, "8.3", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
	})
}

func TestCheckSensitiveConfigSettings(t *testing.T) {
	const query = "SELECT name, setting FROM pg_settings WHERE name IN (" +
		"'external_pid_file', 'unix_socket_directories', 'shared_preload_libraries', " +
		"'dynamic_library_path', 'local_preload_libraries', 'session_preload_libraries'" +
		") ORDER BY name;"

	secureRows := []source.Row{
		{"name": "dynamic_library_path", "setting": "$libdir"},
		{"name": "external_pid_file", "setting": ""},
		{"name": "local_preload_libraries", "setting": ""},
		{"name": "session_preload_libraries", "setting": ""},
		{"name": "shared_preload_libraries", "setting": "pg_stat_statements, yb_pg_metrics"},
		{"name": "unix_socket_directories", "setting": ""},
	}

	t.Run("secure defaults pass", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: secureRows}}
		r := evalSpecial(t, "8.4", src)
		if r.Status != models.StatusPass {
			t.Fatalf("status = %s, want PASS (message %q)", r.Status, r.Message)
		}
	})

	t.Run("world-writable socket directory fails", func(t *testing.T) {
		rows := make([]source.Row, len(secureRows))
		copy(rows, secureRows)
		rows[5] = source.Row{"name": "unix_socket_directories", "setting": "/tmp"}

		src := &fakeSource{rows: map[string][]source.Row{query: rows}}
		r := evalSpecial(t, "8.4", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
		if !strings.Contains(r.Message, "unix_socket_directories") {
			t.Errorf("message = %q", r.Message)
		}
	})

	t.Run("risky preload library fails", func(t *testing.T) {
		rows := make([]source.Row, len(secureRows))
		copy(rows, secureRows)
		rows[4] = source.Row{"name": "shared_preload_libraries", "setting": "dblink"}

		src := &fakeSource{rows: map[string][]source.Row{query: rows}}
		r := evalSpecial(t, "8.4", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
	})

	t.Run("unknown preload library needs review", func(t *testing.T) {
		rows := make([]source.Row, len(secureRows))
		copy(rows, secureRows)
		rows[4] = source.Row{"name": "shared_preload_libraries", "setting": "my_custom_ext"}

		src := &fakeSource{rows: map[string][]source.Row{query: rows}}
		r := evalSpecial(t, "8.4", src)
		if r.Status != models.StatusWarn {
			t.Fatalf("status = %s, want WARN", r.Status)
		}
	})

	t.Run("unmatched control skips", func(t *testing.T) {
		r := evalSpecial(t, "8.9", &fakeSource{})
		if r.Status != models.StatusSkip {
			t.Fatalf("status = %s, want SKIP", r.Status)
		}
	})
}
