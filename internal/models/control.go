// Package models defines the core data types shared across the benchmark
// engine: controls, results, and report aggregates.
package models

import "strings"

// CheckKind distinguishes controls the engine evaluates automatically from
// those that require human verification.
type CheckKind string

const (
	CheckAutomated CheckKind = "Automated"
	CheckManual    CheckKind = "Manual"
)

// ParseCheckKind maps the free-form "type" field of a control record to a
// CheckKind. Anything other than "manual" is treated as automated.
func ParseCheckKind(s string) CheckKind {
	if strings.EqualFold(strings.TrimSpace(s), "manual") {
		return CheckManual
	}
	return CheckAutomated
}

// Control is one benchmark recommendation loaded from the catalog. Controls
// are immutable once loaded.
type Control struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description,omitempty"`
	Rationale            string    `json:"rationale,omitempty"`
	Audit                string    `json:"audit,omitempty"`
	Remediation          string    `json:"remediation,omitempty"`
	Impact               string    `json:"impact,omitempty"`
	DefaultValue         string    `json:"default_value,omitempty"`
	ProfileApplicability []string  `json:"profile_applicability,omitempty"`
	References           []string  `json:"references,omitempty"`
	CISControls          []string  `json:"cis_controls,omitempty"`
	Kind                 CheckKind `json:"type"`
	Section              string    `json:"section"`
}

// ProfileLevel returns the control's first declared profile, or "" when the
// control applies to every profile.
func (c Control) ProfileLevel() string {
	if len(c.ProfileApplicability) == 0 {
		return ""
	}
	return c.ProfileApplicability[0]
}
