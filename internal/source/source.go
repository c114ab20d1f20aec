// Package source provides read-only access to the live configuration of the
// audited cluster. Checks consume the SettingsSource interface and never open
// connections themselves.
package source

import "context"

// Row is one query result row keyed by lower-case column name. All values are
// rendered as strings; NULL becomes the empty string.
type Row map[string]string

// SettingsSource is the read-only view of the target cluster consumed by the
// check tables and the engine.
type SettingsSource interface {
	// Setting returns the current value of a named server setting.
	// ok is false when the parameter does not exist or has no value; err is
	// reserved for transport or protocol failures.
	Setting(ctx context.Context, name string) (value string, ok bool, err error)

	// Query runs an arbitrary read-only statement and returns all rows.
	// It is the escape hatch for checks that inspect row sets (role lists,
	// pg_settings scans) rather than a single setting.
	Query(ctx context.Context, query string) ([]Row, error)

	// ClusterInfo returns identification metadata for the audited cluster.
	// Best effort: fields that cannot be gathered are simply absent.
	ClusterInfo(ctx context.Context) map[string]string
}
