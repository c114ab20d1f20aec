package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yugasec/yuga-bench/internal/catalog"
	"github.com/yugasec/yuga-bench/internal/models"
	"github.com/yugasec/yuga-bench/internal/policy"
	"github.com/yugasec/yuga-bench/internal/rules"
	"github.com/yugasec/yuga-bench/internal/source"
)

// stubSource is an in-memory SettingsSource that records every call so tests
// can assert which controls actually touched the cluster.
type stubSource struct {
	settings     map[string]string
	settingCalls []string
	queryCalls   []string
}

func (s *stubSource) Setting(ctx context.Context, name string) (string, bool, error) {
	s.settingCalls = append(s.settingCalls, name)
	v, ok := s.settings[name]
	return v, ok, nil
}

func (s *stubSource) Query(ctx context.Context, query string) ([]source.Row, error) {
	s.queryCalls = append(s.queryCalls, query)
	return nil, nil
}

func (s *stubSource) ClusterInfo(ctx context.Context) map[string]string {
	return map[string]string{"host": "stub", "port": "5433"}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newTestLoader(t *testing.T, dirs map[string]string) *catalog.Loader {
	t.Helper()
	root := t.TempDir()
	for dir, doc := range dirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, dir, "controls.yaml"), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return catalog.NewLoader(root, quietLogger())
}

func resultByID(t *testing.T, report *models.BenchmarkReport, id string) models.Result {
	t.Helper()
	for _, r := range report.Results {
		if r.ControlID == id {
			return r
		}
	}
	t.Fatalf("no result for control %s", id)
	return models.Result{}
}

func TestRunManualControlNeverDispatched(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"C-Logging Monitoring and Auditing": `
controls:
  - id: "3.1.1"
    title: Review syslog destinations on every node
    audit: SHOW log_destination;
    type: manual
`,
	})
	src := &stubSource{settings: map[string]string{"log_destination": "stderr"}}

	eng := New(loader, src, nil, nil, quietLogger())
	report, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := resultByID(t, report, "3.1.1")
	if r.Status != models.StatusManual {
		t.Fatalf("status = %s, want MANUAL", r.Status)
	}
	if r.Message != "Manual control - requires human verification" {
		t.Errorf("message = %q", r.Message)
	}
	if len(src.settingCalls) != 0 || len(src.queryCalls) != 0 {
		t.Errorf("manual control reached the cluster: settings=%v queries=%v",
			src.settingCalls, src.queryCalls)
	}
	if report.Manual != 1 || report.AutomatedTotal != 0 {
		t.Errorf("manual=%d automated=%d, want 1 and 0", report.Manual, report.AutomatedTotal)
	}
}

func TestRunUnknownSectionSkips(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"Z-Mystery Section": `
controls:
  - id: "99.1"
    title: Something unmapped
    audit: SHOW ssl;
`,
	})
	src := &stubSource{settings: map[string]string{"ssl": "on"}}

	eng := New(loader, src, nil, nil, quietLogger())
	report, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := resultByID(t, report, "99.1")
	if r.Status != models.StatusSkip {
		t.Fatalf("status = %s, want SKIP", r.Status)
	}
	if !strings.Contains(r.Message, "Unknown section") {
		t.Errorf("message = %q", r.Message)
	}
}

func TestRunRecoversFromPanickingCheck(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"F-Connection and Login": `
controls:
  - id: "6.1"
    title: Ensure TLS is configured
    audit: SHOW ssl;
    remediation: Enable ssl in the server configuration.
`,
	})

	registry := rules.NewRegistry()
	registry.Register(&rules.Table{
		Section: "Connection and Login",
		Fallback: func(ctx context.Context, cc rules.CheckContext, c models.Control) models.Result {
			panic("boom")
		},
	})

	eng := New(loader, &stubSource{}, registry, nil, quietLogger())
	report, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := resultByID(t, report, "6.1")
	if r.Status != models.StatusFail {
		t.Fatalf("status = %s, want FAIL", r.Status)
	}
	if !strings.Contains(r.Message, "control execution error") {
		t.Errorf("message = %q", r.Message)
	}
	if r.Remediation == "" {
		t.Error("panic result should carry the control remediation")
	}
}

func TestRunProfileFilter(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"C-Logging Monitoring and Auditing": `
controls:
  - id: "3.1.18"
    title: Level one control
    profile_applicability:
      - Level 1 - YugabyteDB
    audit: SHOW log_connections;
  - id: "3.1.19"
    title: Level two control
    profile_applicability:
      - Level 2 - YugabyteDB
    audit: SHOW log_disconnections;
  - id: "3.1.20"
    title: Undeclared control applies everywhere
    audit: SHOW log_error_verbosity;
`,
	})
	src := &stubSource{settings: map[string]string{
		"log_connections":     "on",
		"log_disconnections":  "on",
		"log_error_verbosity": "default",
	}}

	eng := New(loader, src, nil, nil, quietLogger())
	report, err := eng.Run(context.Background(), RunOptions{ProfileLevel: "Level 1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.TotalControls != 2 {
		t.Fatalf("selected %d controls, want 2", report.TotalControls)
	}
	for _, r := range report.Results {
		if r.ControlID == "3.1.19" {
			t.Error("Level 2 control selected under Level 1 profile")
		}
	}
	if report.ProfileLevel != "Level 1" {
		t.Errorf("report profile = %q", report.ProfileLevel)
	}
}

func TestRunSectionFilter(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"C-Logging Monitoring and Auditing": `
controls:
  - id: "3.1.18"
    title: In scope
    audit: SHOW log_connections;
`,
		"F-Connection and Login": `
controls:
  - id: "6.1"
    title: Out of scope
    audit: SHOW ssl;
`,
	})
	src := &stubSource{settings: map[string]string{"log_connections": "on", "ssl": "on"}}

	eng := New(loader, src, nil, nil, quietLogger())
	report, err := eng.Run(context.Background(), RunOptions{Sections: []string{"logging_monitoring"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.TotalControls != 1 {
		t.Fatalf("selected %d controls, want 1", report.TotalControls)
	}
	if report.Results[0].ControlID != "3.1.18" {
		t.Errorf("selected %s, want 3.1.18", report.Results[0].ControlID)
	}
}

func TestRunPolicyDisablesControls(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"C-Logging Monitoring and Auditing": `
controls:
  - id: "3.1.18"
    title: Enabled control
    audit: SHOW log_connections;
  - id: "3.1.19"
    title: Disabled control
    audit: SHOW log_disconnections;
`,
	})
	src := &stubSource{settings: map[string]string{
		"log_connections":    "on",
		"log_disconnections": "on",
	}}

	off := false
	pol := policy.Default()
	pol.Controls = map[string]policy.ControlConfig{
		"3.1.19": {Enabled: &off},
	}

	eng := New(loader, src, nil, pol, quietLogger())
	report, err := eng.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.TotalControls != 1 {
		t.Fatalf("selected %d controls, want 1", report.TotalControls)
	}
	if report.Results[0].ControlID != "3.1.18" {
		t.Errorf("selected %s, want 3.1.18", report.Results[0].ControlID)
	}
}

func TestMatchesProfile(t *testing.T) {
	tests := []struct {
		name      string
		declared  []string
		requested string
		want      bool
	}{
		{"no request matches all", []string{"Level 2"}, "", true},
		{"no declaration matches all", nil, "Level 1", true},
		{"exact match", []string{"Level 1"}, "Level 1", true},
		{"case insensitive", []string{"LEVEL 1"}, "level 1", true},
		{"declared contains request", []string{"Level 1 - YugabyteDB"}, "Level 1", true},
		{"mismatch", []string{"Level 2 - YugabyteDB"}, "Level 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := models.Control{ProfileApplicability: tt.declared}
			if got := matchesProfile(c, tt.requested); got != tt.want {
				t.Errorf("matchesProfile(%v, %q) = %v, want %v", tt.declared, tt.requested, got, tt.want)
			}
		})
	}
}

func TestMatchesSections(t *testing.T) {
	section := "Logging Monitoring and Auditing"
	if !matchesSections(section, nil) {
		t.Error("empty filter must match")
	}
	if !matchesSections(section, []string{"logging_monitoring"}) {
		t.Error("normalized substring must match")
	}
	if !matchesSections(section, []string{"Connection", "Auditing"}) {
		t.Error("any-of filter must match")
	}
	if matchesSections(section, []string{"installation"}) {
		t.Error("unrelated filter must not match")
	}
}
