package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/yugasec/yuga-bench/internal/models"
	"github.com/yugasec/yuga-bench/internal/source"
)

func evalSettings(t *testing.T, id, audit string, src *fakeSource) models.Result {
	t.Helper()
	c := models.Control{
		ID:          id,
		Title:       "settings control " + id,
		Section:     "YugabyteDB Settings",
		Audit:       audit,
		Remediation: "fix it",
	}
	return SettingsTable().Evaluate(context.Background(), CheckContext{Source: src}, c)
}

func TestCheckSharedPreloadLibraries(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  models.Status
	}{
		{"security library", "pg_audit, pg_stat_statements", models.StatusPass},
		{"risky library", "dblink", models.StatusFail},
		{"neutral libraries", "pg_stat_statements", models.StatusInfo},
		{"empty", "", models.StatusInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{settings: map[string]string{"shared_preload_libraries": tt.value}}
			r := evalSettings(t, "7.1.1", "SHOW shared_preload_libraries;", src)
			if r.Status != tt.want {
				t.Errorf("status = %s, want %s (message %q)", r.Status, tt.want, r.Message)
			}
		})
	}
}

func TestCheckBackendRuntimeParameters(t *testing.T) {
	const query = "SELECT name, setting FROM pg_settings WHERE context IN ('backend','superuser-backend') ORDER BY name;"

	secureRows := []source.Row{
		{"name": "ignore_system_indexes", "setting": "off"},
		{"name": "jit_debugging_support", "setting": "off"},
		{"name": "jit_profiling_support", "setting": "off"},
		{"name": "log_connections", "setting": "on"},
		{"name": "log_disconnections", "setting": "on"},
		{"name": "post_auth_delay", "setting": "0"},
	}

	t.Run("secure baseline passes", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: secureRows}}
		r := evalSettings(t, "7.2.1", "", src)
		if r.Status != models.StatusPass {
			t.Fatalf("status = %s, want PASS (message %q)", r.Status, r.Message)
		}
	})

	t.Run("insecure value fails", func(t *testing.T) {
		rows := make([]source.Row, len(secureRows))
		copy(rows, secureRows)
		rows[0] = source.Row{"name": "ignore_system_indexes", "setting": "on"}

		src := &fakeSource{rows: map[string][]source.Row{query: rows}}
		r := evalSettings(t, "7.2.1", "", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
		if !strings.Contains(r.Message, "ignore_system_indexes") {
			t.Errorf("message does not name the parameter: %q", r.Message)
		}
	})

	t.Run("risky extra parameter warns", func(t *testing.T) {
		rows := append(append([]source.Row{}, secureRows...),
			source.Row{"name": "trace_notify", "setting": "on"})

		src := &fakeSource{rows: map[string][]source.Row{query: rows}}
		r := evalSettings(t, "7.2.1", "", src)
		if r.Status != models.StatusWarn {
			t.Fatalf("status = %s, want WARN", r.Status)
		}
		if !strings.Contains(r.Message, "trace_notify") {
			t.Errorf("message does not name the risky parameter: %q", r.Message)
		}
	})

	t.Run("non-zero auth delay warns", func(t *testing.T) {
		rows := make([]source.Row, len(secureRows))
		copy(rows, secureRows)
		rows[5] = source.Row{"name": "post_auth_delay", "setting": "5"}

		src := &fakeSource{rows: map[string][]source.Row{query: rows}}
		r := evalSettings(t, "7.2.1", "", src)
		if r.Status != models.StatusWarn {
			t.Fatalf("status = %s, want WARN", r.Status)
		}
	})
}

func TestMemorySettingRouting(t *testing.T) {
	src := &fakeSource{settings: map[string]string{
		"work_mem":             "4MB",
		"maintenance_work_mem": "64MB",
	}}

	// maintenance_work_mem contains work_mem, so the router must pick the
	// longer name first.
	r := evalSettings(t, "7.3.1", "SHOW maintenance_work_mem;", src)
	if r.Status != models.StatusInfo {
		t.Fatalf("status = %s, want INFO", r.Status)
	}
	if r.Actual != "64MB" {
		t.Errorf("actual = %q, want 64MB", r.Actual)
	}

	r = evalSettings(t, "7.3.2", "SHOW work_mem;", src)
	if r.Actual != "4MB" {
		t.Errorf("actual = %q, want 4MB", r.Actual)
	}
}

func TestCheckServerTLS(t *testing.T) {
	const query = "SELECT name, setting FROM pg_settings WHERE name LIKE 'ssl%file' ORDER BY name;"

	t.Run("ssl off fails", func(t *testing.T) {
		src := &fakeSource{settings: map[string]string{"ssl": "off"}}
		r := evalSettings(t, "7.7", "SHOW ssl;", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
	})

	t.Run("custom certificates pass", func(t *testing.T) {
		src := &fakeSource{
			settings: map[string]string{"ssl": "on"},
			rows: map[string][]source.Row{query: {
				{"name": "ssl_ca_file", "setting": "/opt/yb/certs/ca.crt"},
				{"name": "ssl_cert_file", "setting": "/opt/yb/certs/node.crt"},
				{"name": "ssl_key_file", "setting": "/opt/yb/certs/node.key"},
			}},
		}
		r := evalSettings(t, "7.7", "SHOW ssl;", src)
		if r.Status != models.StatusPass {
			t.Fatalf("status = %s, want PASS (message %q)", r.Status, r.Message)
		}
	})

	t.Run("default filenames warn", func(t *testing.T) {
		src := &fakeSource{
			settings: map[string]string{"ssl": "on"},
			rows: map[string][]source.Row{query: {
				{"name": "ssl_cert_file", "setting": "server.crt"},
				{"name": "ssl_key_file", "setting": "server.key"},
			}},
		}
		r := evalSettings(t, "7.7", "SHOW ssl;", src)
		if r.Status != models.StatusWarn {
			t.Fatalf("status = %s, want WARN", r.Status)
		}
	})

	t.Run("missing key file fails", func(t *testing.T) {
		src := &fakeSource{
			settings: map[string]string{"ssl": "on"},
			rows: map[string][]source.Row{query: {
				{"name": "ssl_cert_file", "setting": "/opt/yb/certs/node.crt"},
				{"name": "ssl_key_file", "setting": ""},
			}},
		}
		r := evalSettings(t, "7.7", "SHOW ssl;", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
		if !strings.Contains(r.Message, "ssl_key_file") {
			t.Errorf("message = %q", r.Message)
		}
	})
}

func TestCheckPgcryptoInstalled(t *testing.T) {
	const query = "SELECT * FROM pg_available_extensions WHERE name='pgcrypto';"

	t.Run("installed", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: {{
			"name": "pgcrypto", "default_version": "1.3",
			"installed_version": "1.3", "comment": "cryptographic functions",
		}}}}
		r := evalSettings(t, "7.9", "", src)
		if r.Status != models.StatusPass {
			t.Fatalf("status = %s, want PASS", r.Status)
		}
	})

	t.Run("available but not installed", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: {{
			"name": "pgcrypto", "default_version": "1.3",
			"installed_version": "", "comment": "cryptographic functions",
		}}}}
		r := evalSettings(t, "7.9", "", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
	})

	t.Run("not available", func(t *testing.T) {
		src := &fakeSource{rows: map[string][]source.Row{query: {}}}
		r := evalSettings(t, "7.9", "", src)
		if r.Status != models.StatusFail {
			t.Fatalf("status = %s, want FAIL", r.Status)
		}
	})
}
