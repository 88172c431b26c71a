package templates

import (
	"context"

	"github.com/cognicore/noema/pkg/noema/store"
)

// Manager derives concrete assignments for a pattern from candidate argument
// values. A run may pin a fixed argument set at construction; those are used
// whenever DeriveParams is called without explicit values.
type Manager struct {
	store     store.Store
	arguments []store.ElementID
}

// New creates a template manager over the given store.
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

// SetArguments pins the run's fixed argument elements.
func (m *Manager) SetArguments(args []store.ElementID) {
	m.arguments = append([]store.ElementID(nil), args...)
}

// DeriveParams derives candidate assignments for the pattern. With explicit
// values, each pattern variable is paired with each value, producing partial
// single-variable assignments the search completes. Without values the fixed
// run arguments are used; if none are configured a single unconstrained
// assignment is returned so searches run match-any.
func (m *Manager) DeriveParams(ctx context.Context, pattern string, values ...store.ElementID) ([]store.Params, error) {
	if len(values) == 0 {
		values = m.arguments
	}
	if len(values) == 0 {
		return []store.Params{{}}, nil
	}

	vars, err := m.store.VariableNames(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return []store.Params{{}}, nil
	}

	var out []store.Params
	for _, name := range vars {
		for _, value := range values {
			out = append(out, store.Params{name: value})
		}
	}
	return out, nil
}
