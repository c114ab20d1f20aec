// Package catalog loads benchmark control definitions from a directory of
// YAML section documents into immutable in-memory Control values.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yugasec/yuga-bench/internal/models"
)

// controlsFileName is the per-section document each section directory must
// contain.
const controlsFileName = "controls.yaml"

// literalString decodes a YAML scalar using its literal source text, so an
// unquoted control ID like 3.10 stays "3.10" instead of collapsing through a
// float to "3.1".
type literalString string

func (s *literalString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected scalar, got %v", node.Kind)
	}
	*s = literalString(node.Value)
	return nil
}

// sectionDoc is the on-disk shape of one section document.
type sectionDoc struct {
	Section  map[string]string `yaml:"section"`
	Controls []controlRecord   `yaml:"controls"`
}

// controlRecord is the on-disk shape of one control entry. Only id and title
// are required; everything else defaults to empty / Automated.
type controlRecord struct {
	ID                   literalString `yaml:"id"`
	Title                string        `yaml:"title"`
	ProfileApplicability []string      `yaml:"profile_applicability"`
	Description          string        `yaml:"description"`
	Rationale            string        `yaml:"rationale"`
	Audit                string        `yaml:"audit"`
	Remediation          string        `yaml:"remediation"`
	Impact               string        `yaml:"impact"`
	DefaultValue         string        `yaml:"default_value"`
	References           []string      `yaml:"references"`
	CISControls          []string      `yaml:"cis_controls"`
	Type                 string        `yaml:"type"`
}

// SectionInfo describes one loaded section.
type SectionInfo struct {
	// Name is the section name with its ordering prefix stripped.
	Name string
	// Directory is the original directory name (e.g. "C-Logging ...").
	Directory string
	// Metadata is the free-form "section" mapping from the document.
	Metadata map[string]string
	// Controls is the number of control records loaded for the section.
	Controls int
}

// Issues holds the outcome of the post-load validation pass. Errors indicate
// catalog defects (duplicate IDs); Warnings flag incomplete records.
type Issues struct {
	Errors   []string
	Warnings []string
}

// Loader reads a catalog directory tree: one subdirectory per section, each
// holding a controls.yaml document. Malformed records and unreadable section
// documents are logged and skipped; only a missing root directory is fatal.
type Loader struct {
	root   string
	logger *slog.Logger

	controls []models.Control
	sections []SectionInfo
}

// NewLoader creates a Loader for the given catalog root. A nil logger uses
// slog.Default().
func NewLoader(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, logger: logger}
}

// Load parses every section directory and returns the full control list in
// directory order. It fails only when the root directory cannot be read.
func (l *Loader) Load() ([]models.Control, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("catalog directory %q: %w", l.root, err)
	}

	l.controls = nil
	l.sections = nil

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		section := cleanSectionName(dir)
		l.loadSection(dir, section)
	}
	return l.controls, nil
}

// loadSection reads one section document. Failures are logged and the
// section is skipped so the rest of the catalog still loads.
func (l *Loader) loadSection(dir, section string) {
	path := filepath.Join(l.root, dir, controlsFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("no controls document for section", "section", section, "path", path, "err", err)
		return
	}

	var doc sectionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		l.logger.Error("malformed section document, skipping section", "section", section, "path", path, "err", err)
		return
	}
	if len(doc.Controls) == 0 {
		l.logger.Warn("section document declares no controls", "section", section, "path", path)
		return
	}

	loaded := 0
	for i, rec := range doc.Controls {
		ctrl, err := rec.toControl(section)
		if err != nil {
			l.logger.Error("rejecting control record", "section", section, "index", i, "err", err)
			continue
		}
		l.controls = append(l.controls, ctrl)
		loaded++
	}

	l.sections = append(l.sections, SectionInfo{
		Name:      section,
		Directory: dir,
		Metadata:  doc.Section,
		Controls:  loaded,
	})
	l.logger.Info("loaded section", "section", section, "controls", loaded)
}

// toControl validates required fields and builds the immutable Control.
func (r controlRecord) toControl(section string) (models.Control, error) {
	id := strings.TrimSpace(string(r.ID))
	if id == "" {
		return models.Control{}, fmt.Errorf("missing required field %q", "id")
	}
	if strings.TrimSpace(r.Title) == "" {
		return models.Control{}, fmt.Errorf("missing required field %q", "title")
	}
	return models.Control{
		ID:                   id,
		Title:                r.Title,
		ProfileApplicability: r.ProfileApplicability,
		Description:          r.Description,
		Rationale:            r.Rationale,
		Audit:                r.Audit,
		Remediation:          r.Remediation,
		Impact:               r.Impact,
		DefaultValue:         r.DefaultValue,
		References:           r.References,
		CISControls:          r.CISControls,
		Kind:                 models.ParseCheckKind(r.Type),
		Section:              section,
	}, nil
}

// cleanSectionName strips the alphabetic ordering prefix ("A-", "B-", ...)
// from a section directory name.
func cleanSectionName(dir string) string {
	if len(dir) > 2 && dir[1] == '-' && isAlpha(dir[0]) {
		return dir[2:]
	}
	return dir
}

func isAlpha(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// Validate runs the post-load validation pass over the loaded controls.
// Duplicate control IDs are errors; missing audit or remediation text are
// warnings. Each duplicated ID is reported exactly once.
func (l *Loader) Validate() Issues {
	var issues Issues

	seen := make(map[string]int, len(l.controls))
	for _, c := range l.controls {
		seen[c.ID]++
	}
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	for _, id := range dups {
		issues.Errors = append(issues.Errors, fmt.Sprintf("duplicate control ID: %s", id))
	}

	for _, c := range l.controls {
		if strings.TrimSpace(c.Audit) == "" {
			issues.Warnings = append(issues.Warnings, fmt.Sprintf("control %s has no audit command", c.ID))
		}
		if strings.TrimSpace(c.Remediation) == "" {
			issues.Warnings = append(issues.Warnings, fmt.Sprintf("control %s has no remediation", c.ID))
		}
	}
	return issues
}

// Controls returns the full loaded control list in catalog order.
func (l *Loader) Controls() []models.Control {
	return l.controls
}

// Sections returns information about every loaded section in catalog order.
func (l *Loader) Sections() []SectionInfo {
	return l.sections
}

// ControlsBySection returns the loaded controls belonging to the named
// section, in catalog order.
func (l *Loader) ControlsBySection(name string) []models.Control {
	var out []models.Control
	for _, c := range l.controls {
		if c.Section == name {
			out = append(out, c)
		}
	}
	return out
}

// ControlByID returns the control with the given ID, or an error when the
// catalog does not contain it.
func (l *Loader) ControlByID(id string) (models.Control, error) {
	for _, c := range l.controls {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Control{}, fmt.Errorf("control with ID %q not found", id)
}
