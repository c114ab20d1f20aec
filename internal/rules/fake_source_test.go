package rules

import (
	"context"
	"errors"

	"github.com/yugasec/yuga-bench/internal/source"
)

// fakeSource is an in-memory SettingsSource for check tests. Queries are
// keyed by exact statement text.
type fakeSource struct {
	settings map[string]string
	rows     map[string][]source.Row

	settingErr error
	queryErr   error

	settingCalls []string
	queryCalls   []string
}

func (f *fakeSource) Setting(ctx context.Context, name string) (string, bool, error) {
	f.settingCalls = append(f.settingCalls, name)
	if f.settingErr != nil {
		return "", false, f.settingErr
	}
	v, ok := f.settings[name]
	return v, ok, nil
}

func (f *fakeSource) Query(ctx context.Context, query string) ([]source.Row, error) {
	f.queryCalls = append(f.queryCalls, query)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	rows, ok := f.rows[query]
	if !ok {
		return nil, errors.New("unexpected query: " + query)
	}
	return rows, nil
}

func (f *fakeSource) ClusterInfo(ctx context.Context) map[string]string {
	return map[string]string{"host": "test-host"}
}
