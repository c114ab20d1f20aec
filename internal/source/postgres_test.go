package source

import (
	"strings"
	"testing"
	"time"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		Host:     "db1.internal",
		Port:     5433,
		Database: "yugabyte",
		User:     "auditor",
		Password: "s3cret",
		SSLMode:  "verify-full",
	}

	dsn := cfg.DSN()
	for _, want := range []string{
		"host='db1.internal'",
		"port=5433",
		"dbname='yugabyte'",
		"user='auditor'",
		"password='s3cret'",
		"sslmode='verify-full'",
		"connect_timeout=10",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN missing %q: %s", want, dsn)
		}
	}
}

func TestConfigDSNOmitsEmptyFields(t *testing.T) {
	dsn := Config{Host: "localhost", Port: 5433, Database: "yugabyte", User: "yugabyte"}.DSN()
	if strings.Contains(dsn, "password=") {
		t.Errorf("empty password must be omitted: %s", dsn)
	}
	if strings.Contains(dsn, "sslmode=") {
		t.Errorf("empty sslmode must be omitted: %s", dsn)
	}
}

func TestConfigDSNTimeout(t *testing.T) {
	cfg := Config{Host: "h", Port: 1, Database: "d", User: "u", ConnectTimeout: 30 * time.Second}
	if !strings.Contains(cfg.DSN(), "connect_timeout=30") {
		t.Errorf("timeout not applied: %s", cfg.DSN())
	}
}

func TestQuoteDSNValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"with space", "'with space'"},
		{`pa'ss`, `'pa\'ss'`},
		{`back\slash`, `'back\\slash'`},
	}
	for _, tt := range tests {
		if got := quoteDSNValue(tt.in); got != tt.want {
			t.Errorf("quoteDSNValue(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSettingNamePattern(t *testing.T) {
	valid := []string{"ssl", "log_connections", "pgaudit.log", "Work_Mem"}
	for _, name := range valid {
		if !settingNamePattern.MatchString(name) {
			t.Errorf("%q should be a valid setting name", name)
		}
	}
	invalid := []string{"", "1abc", "name; DROP TABLE x", "a b", "pg-audit"}
	for _, name := range invalid {
		if settingNamePattern.MatchString(name) {
			t.Errorf("%q should be rejected", name)
		}
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{[]byte("bytes"), "bytes"},
		{true, "true"},
		{false, "false"},
		{int64(42), "42"},
		{ts, "2026-08-23T10:00:00Z"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
