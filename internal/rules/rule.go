// Package rules implements the per-section check tables that evaluate
// benchmark controls against live cluster settings.
//
// Each section owns one Table: an ordered list of entries keyed by exact
// control ID, ID prefix, or predicate, mapping to a CheckFunc. The first
// matching entry wins; unmatched controls fall through to the table's
// fallback (by default the generic SHOW-extraction check). Evaluation is
// total: every control yields exactly one Result and no error ever crosses
// the table boundary.
package rules

import (
	"context"
	"strings"

	"github.com/yugasec/yuga-bench/internal/models"
	"github.com/yugasec/yuga-bench/internal/source"
)

// CheckContext carries the collaborators a check may consult. Checks must be
// stateless and read-only against the target.
type CheckContext struct {
	// Source is the live-configuration accessor for the audited cluster.
	Source source.SettingsSource
}

// CheckFunc evaluates one control and returns its verdict. Implementations
// convert every internal failure into a FAIL result rather than returning an
// error; the engine treats a CheckFunc as infallible.
type CheckFunc func(ctx context.Context, cc CheckContext, control models.Control) models.Result

// Entry routes a subset of a section's controls to a check. Exactly one of
// ID, Prefix, or Match should be set; they are tested in that order.
type Entry struct {
	// ID matches a single control by exact identifier (e.g. "3.1.9").
	ID string

	// Prefix matches any control whose identifier starts with it (e.g.
	// "3.2" covers "3.2", "3.2.1", ...).
	Prefix string

	// Match is an arbitrary predicate for routing that an ID or prefix
	// cannot express (e.g. keying on the audit procedure text).
	Match func(models.Control) bool

	Check CheckFunc
}

func (e Entry) matches(c models.Control) bool {
	switch {
	case e.ID != "":
		return c.ID == e.ID
	case e.Prefix != "":
		return strings.HasPrefix(c.ID, e.Prefix)
	case e.Match != nil:
		return e.Match(c)
	default:
		return false
	}
}

// Table holds all checks for one benchmark section.
type Table struct {
	// Section is the exact section name the table serves.
	Section string

	// Entries are tried in order; the first match wins.
	Entries []Entry

	// Fallback handles controls no entry matched. Nil selects the generic
	// SHOW-extraction check with the section name as its label.
	Fallback CheckFunc
}

// Evaluate routes the control through the table. It never returns an error;
// a control nothing matches is handled by the fallback.
func (t *Table) Evaluate(ctx context.Context, cc CheckContext, control models.Control) models.Result {
	for _, e := range t.Entries {
		if e.matches(control) {
			return e.Check(ctx, cc, control)
		}
	}
	if t.Fallback != nil {
		return t.Fallback(ctx, cc, control)
	}
	return genericSettingCheck(t.Section+" setting")(ctx, cc, control)
}
