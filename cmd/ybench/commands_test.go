package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yugasec/yuga-bench/internal/models"
)

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ybench version", "commit:", "built:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReportFormats(t *testing.T) {
	report := &models.BenchmarkReport{
		ScanTime:      time.Now().UTC(),
		TotalControls: 1,
		Passed:        1,
		Results: []models.Result{
			{ControlID: "1.1", Section: "Installation and Patches", Status: models.StatusPass, Message: "ok"},
		},
	}

	for _, format := range []string{"console", "", "json", "csv", "html"} {
		var buf bytes.Buffer
		if err := renderReport(&buf, format, report, false); err != nil {
			t.Errorf("format %q: %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("format %q produced no output", format)
		}
	}

	var buf bytes.Buffer
	err := renderReport(&buf, "xml", report, false)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "xml") {
		t.Errorf("error does not name the bad format: %v", err)
	}
}

func TestRenderDoctorTable(t *testing.T) {
	var result DoctorResult
	result.Cluster.Host = "db1:5433"
	result.Cluster.Reachable = true
	result.Cluster.Version = "PostgreSQL 11.2-YB"
	result.Catalog.Directory = "specs"
	result.Catalog.Loadable = true
	result.Catalog.Sections = 8
	result.Catalog.Controls = 64
	result.Policy.Present = true
	result.Policy.Valid = false
	result.Policy.Errors = []string{"controls.9.9: unknown control ID"}

	var buf bytes.Buffer
	renderDoctorTable(result, &buf)
	out := buf.String()

	for _, want := range []string{
		"Cluster (db1:5433)",
		"Connection: OK",
		"8 sections, 64 controls",
		"Policy valid: FAIL (controls.9.9: unknown control ID)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDoctorTableUnreachable(t *testing.T) {
	var result DoctorResult
	result.Cluster.Host = "db1:5433"
	result.Cluster.Error = "connection refused"

	var buf bytes.Buffer
	renderDoctorTable(result, &buf)
	out := buf.String()

	if !strings.Contains(out, "Connection: FAIL (connection refused)") {
		t.Errorf("unreachable cluster not reported:\n%s", out)
	}
	if !strings.Contains(out, "Policy file: Not found (optional)") {
		t.Errorf("absent policy not reported as optional:\n%s", out)
	}
}
