package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yugasec/yuga-bench/internal/models"
)

func writeSection(t *testing.T, root, dir, doc string) {
	t.Helper()
	path := filepath.Join(root, dir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, controlsFileName), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestLoaderLoad(t *testing.T) {
	root := t.TempDir()
	writeSection(t, root, "A-Installation and Patches", `
section:
  benchmark: CIS YugabyteDB
controls:
  - id: "1.1"
    title: Ensure a supported version is installed
    audit: SELECT version();
    remediation: Upgrade to a supported release.
  - id: "1.2"
    title: Ensure the service unit is enabled
    type: manual
`)
	writeSection(t, root, "C-Logging Monitoring and Auditing", `
controls:
  - id: 3.10
    title: Unquoted numeric identifier survives
    audit: SHOW log_statement;
`)

	loader := NewLoader(root, quietLogger())
	controls, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(controls) != 3 {
		t.Fatalf("loaded %d controls, want 3", len(controls))
	}

	t.Run("ordering prefix is stripped", func(t *testing.T) {
		sections := loader.Sections()
		if len(sections) != 2 {
			t.Fatalf("got %d sections, want 2", len(sections))
		}
		if sections[0].Name != "Installation and Patches" {
			t.Errorf("section name = %q", sections[0].Name)
		}
		if sections[0].Directory != "A-Installation and Patches" {
			t.Errorf("directory = %q", sections[0].Directory)
		}
	})

	t.Run("unquoted version-like IDs keep their text", func(t *testing.T) {
		c, err := loader.ControlByID("3.10")
		if err != nil {
			t.Fatalf("ControlByID: %v", err)
		}
		if c.Section != "Logging Monitoring and Auditing" {
			t.Errorf("section = %q", c.Section)
		}
	})

	t.Run("type field drives check kind", func(t *testing.T) {
		c, err := loader.ControlByID("1.2")
		if err != nil {
			t.Fatalf("ControlByID: %v", err)
		}
		if c.Kind != models.CheckManual {
			t.Errorf("kind = %v, want manual", c.Kind)
		}
		auto, _ := loader.ControlByID("1.1")
		if auto.Kind != models.CheckAutomated {
			t.Errorf("kind = %v, want automated", auto.Kind)
		}
	})

	t.Run("controls by section", func(t *testing.T) {
		got := loader.ControlsBySection("Installation and Patches")
		if len(got) != 2 {
			t.Fatalf("got %d controls, want 2", len(got))
		}
	})
}

func TestLoaderMissingRootIsFatal(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope"), quietLogger())
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected error for missing catalog root")
	}
}

func TestLoaderSkipsBrokenSections(t *testing.T) {
	root := t.TempDir()
	writeSection(t, root, "A-Good", `
controls:
  - id: "1.1"
    title: fine
`)
	writeSection(t, root, "B-Malformed", "controls: [:\n")
	// Section directory without a controls document.
	if err := os.MkdirAll(filepath.Join(root, "C-Empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(root, quietLogger())
	controls, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(controls) != 1 {
		t.Fatalf("loaded %d controls, want 1", len(controls))
	}
	if len(loader.Sections()) != 1 {
		t.Fatalf("got %d sections, want 1", len(loader.Sections()))
	}
}

func TestLoaderRejectsIncompleteRecords(t *testing.T) {
	root := t.TempDir()
	writeSection(t, root, "A-Section", `
controls:
  - id: "1.1"
    title: has everything
  - title: no id
  - id: "1.3"
`)

	loader := NewLoader(root, quietLogger())
	controls, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(controls) != 1 {
		t.Fatalf("loaded %d controls, want 1 (records missing id or title must be rejected)", len(controls))
	}
	if controls[0].ID != "1.1" {
		t.Errorf("kept control %q, want 1.1", controls[0].ID)
	}
}

func TestLoaderValidate(t *testing.T) {
	root := t.TempDir()
	writeSection(t, root, "A-First", `
controls:
  - id: "1.1"
    title: duplicated in another section
    audit: SHOW ssl;
    remediation: set ssl
  - id: "1.1"
    title: duplicated locally
    audit: SHOW ssl;
    remediation: set ssl
`)
	writeSection(t, root, "B-Second", `
controls:
  - id: "1.1"
    title: duplicated across sections
    audit: SHOW ssl;
    remediation: set ssl
  - id: "2.1"
    title: incomplete record
`)

	loader := NewLoader(root, quietLogger())
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	issues := loader.Validate()

	if len(issues.Errors) != 1 {
		t.Fatalf("got %d errors, want exactly 1: %v", len(issues.Errors), issues.Errors)
	}
	if issues.Errors[0] != "duplicate control ID: 1.1" {
		t.Errorf("error = %q", issues.Errors[0])
	}

	var auditWarn, remWarn bool
	for _, w := range issues.Warnings {
		if strings.Contains(w, "2.1") && strings.Contains(w, "audit") {
			auditWarn = true
		}
		if strings.Contains(w, "2.1") && strings.Contains(w, "remediation") {
			remWarn = true
		}
	}
	if !auditWarn || !remWarn {
		t.Errorf("missing warnings for control 2.1: %v", issues.Warnings)
	}
}

func TestCleanSectionName(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"A-Installation and Patches", "Installation and Patches"},
		{"H-Special Configuration Considerations", "Special Configuration Considerations"},
		{"No Prefix Here", "No Prefix Here"},
		{"9-Not Alphabetic", "9-Not Alphabetic"},
		{"A-", "A-"},
	}
	for _, tt := range tests {
		if got := cleanSectionName(tt.dir); got != tt.want {
			t.Errorf("cleanSectionName(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}
