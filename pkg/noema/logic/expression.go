package logic

import (
	"context"

	"github.com/cognicore/noema/pkg/noema/store"
)

// Result is the outcome of evaluating a logic expression. Holds is true iff
// at least one assignment satisfies the expression against the store, before
// or after generation. Generated is true iff the call wrote new facts.
type Result struct {
	Holds     bool
	Generated bool
	Bindings  store.Replacements
	Formula   string
}

// Expression is the contract shared by every logic formula variant: the
// atomic pattern node and the connectives composed over it.
type Expression interface {
	// Check searches the expression under one concrete assignment. Pure.
	Check(ctx context.Context, params store.Params) (Result, error)

	// Compute evaluates the expression; with argument values, assignments
	// are derived from them, otherwise the search is unconstrained. Pure.
	Compute(ctx context.Context, args []store.ElementID) (Result, error)

	// Find searches the expression under every assignment a replacements
	// map yields, unioning the results. Pure.
	Find(ctx context.Context, reps store.Replacements) (Result, error)

	// Generate materializes the expression for assignments that do not yet
	// hold, writing new graph elements into the output structure.
	Generate(ctx context.Context, reps store.Replacements) (Result, error)
}
