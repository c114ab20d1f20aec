package rules

import (
	"context"
	"fmt"

	"github.com/yugasec/yuga-bench/internal/models"
)

// Registry maps section names to their check tables. Tables are kept in
// registration order, which doubles as the canonical section order for
// report aggregation. Register panics on a duplicate section to catch wiring
// mistakes at startup.
type Registry struct {
	tables []*Table
	index  map[string]*Table
}

// NewRegistry returns an empty registry ready for table registration.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Table)}
}

// Register adds a section table. Panics if the section is already registered.
func (r *Registry) Register(t *Table) {
	if _, exists := r.index[t.Section]; exists {
		panic(fmt.Sprintf("duplicate section table: %q", t.Section))
	}
	r.tables = append(r.tables, t)
	r.index[t.Section] = t
}

// Sections returns the registered section names in canonical order.
func (r *Registry) Sections() []string {
	out := make([]string, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t.Section)
	}
	return out
}

// Evaluate dispatches the control to its section table. A control from an
// unmapped section yields a SKIP result; evaluation never raises.
func (r *Registry) Evaluate(ctx context.Context, cc CheckContext, control models.Control) models.Result {
	t, ok := r.index[control.Section]
	if !ok {
		return skipResult(control, "Unknown section - manual verification recommended")
	}
	return t.Evaluate(ctx, cc, control)
}

// DefaultRegistry returns a registry with all eight benchmark section tables
// registered in canonical report order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(InstallationTable())
	r.Register(DirectoryPermissionsTable())
	r.Register(LoggingTable())
	r.Register(UserAccessTable())
	r.Register(AccessControlTable())
	r.Register(ConnectionTable())
	r.Register(SettingsTable())
	r.Register(SpecialConfigurationTable())
	return r
}
