package logic

import (
	"context"
	"fmt"

	"github.com/cognicore/noema/pkg/noema/bindings"
	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/observe"
	"github.com/cognicore/noema/pkg/noema/store"
	"github.com/cognicore/noema/pkg/noema/templates"
)

// Atom evaluates a single graph pattern. It is the leaf variant of the
// expression tree; all collaborators are injected at construction and owned
// by the run.
type Atom struct {
	store   store.Store
	manager *templates.Manager
	pattern string
	output  *store.Output
	obs     observe.Observer

	// GenerateOnlyFirst stops Generate after the first successful
	// instantiation even when further unsatisfied assignments remain.
	GenerateOnlyFirst bool
}

// NewAtom creates an atomic expression node for the pattern.
func NewAtom(s store.Store, m *templates.Manager, pattern string, output *store.Output, obs observe.Observer) *Atom {
	if obs == nil {
		obs = observe.Nop{}
	}
	return &Atom{store: s, manager: m, pattern: pattern, output: output, obs: obs}
}

// Check searches the pattern under one concrete assignment.
func (a *Atom) Check(ctx context.Context, params store.Params) (Result, error) {
	reps, err := a.store.SearchTemplate(ctx, a.pattern, params)
	if err != nil {
		return Result{}, err
	}
	holds := bindings.Rows(reps) > 0
	a.obs.FormulaComputed(a.pattern, holds)
	return Result{Holds: holds, Bindings: reps, Formula: a.pattern}, nil
}

// Compute searches the pattern under assignments derived from the argument
// values, or unconstrained when none are given.
func (a *Atom) Compute(ctx context.Context, args []store.ElementID) (Result, error) {
	var reps store.Replacements
	var err error
	if len(args) > 0 {
		var paramsList []store.Params
		paramsList, err = a.manager.DeriveParams(ctx, a.pattern, args...)
		if err != nil {
			return Result{}, err
		}
		reps, err = a.store.SearchTemplate(ctx, a.pattern, paramsList...)
	} else {
		reps, err = a.store.SearchTemplate(ctx, a.pattern)
	}
	if err != nil {
		return Result{}, err
	}
	holds := bindings.Rows(reps) > 0
	a.obs.FormulaComputed(a.pattern, holds)
	return Result{Holds: holds, Bindings: reps, Formula: a.pattern}, nil
}

// Find searches the pattern under every assignment the replacements yield.
func (a *Atom) Find(ctx context.Context, reps store.Replacements) (Result, error) {
	paramsList := bindings.ToParams(reps)
	found, err := a.store.SearchTemplate(ctx, a.pattern, paramsList...)
	if err != nil {
		return Result{}, err
	}
	holds := bindings.Rows(found) > 0
	a.obs.FormulaComputed(a.pattern, holds)
	return Result{Holds: holds, Bindings: found, Formula: a.pattern}, nil
}

// Generate instantiates the pattern for every derivable assignment that does
// not already hold. Already-satisfied assignments contribute their matches to
// the result without inserting duplicate facts. With no derivable assignment
// it falls back to Compute and reports nothing generated.
func (a *Atom) Generate(ctx context.Context, reps store.Replacements) (Result, error) {
	paramsList := bindings.ToParams(reps)
	if len(paramsList) == 0 {
		return a.Compute(ctx, nil)
	}

	varNames, err := a.store.VariableNames(ctx, a.pattern)
	if err != nil {
		return Result{}, err
	}
	names := make(map[string]struct{}, len(varNames))
	for _, name := range varNames {
		names[name] = struct{}{}
	}
	for _, name := range bindings.Keys(reps) {
		names[name] = struct{}{}
	}

	result := Result{Formula: a.pattern, Bindings: store.Replacements{}}
	count := 0
	for _, params := range paramsList {
		if a.GenerateOnlyFirst && result.Generated {
			break
		}

		found, err := a.store.SearchTemplate(ctx, a.pattern, params)
		if err != nil {
			return Result{}, err
		}
		if bindings.Rows(found) > 0 {
			// Already satisfied for this assignment; fold the matches in
			// without inserting anything.
			result.Holds = true
			for _, match := range bindings.ToParams(found) {
				row, err := reconcile(names, match, params)
				if err != nil {
					return Result{}, err
				}
				result.Bindings = bindings.Union(result.Bindings, bindings.FromParams([]store.Params{row}))
			}
			continue
		}

		generated, ok, err := a.store.Instantiate(ctx, a.pattern, params)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		count++
		result.Generated = true
		result.Holds = true

		row, err := reconcile(names, generated, params)
		if err != nil {
			return Result{}, err
		}
		result.Bindings = bindings.Union(result.Bindings, bindings.FromParams([]store.Params{row}))

		if err := a.recordOutput(ctx, generated); err != nil {
			return Result{}, err
		}
	}

	a.obs.FormulaGenerated(a.pattern, count)
	return result, nil
}

// reconcile builds one complete binding row over names, preferring the
// primary assignment and falling back to the secondary.
func reconcile(names map[string]struct{}, primary, secondary store.Params) (store.Params, error) {
	row := make(store.Params, len(names))
	for name := range names {
		if id, has := primary[name]; has {
			row[name] = id
		} else if id, has := secondary[name]; has {
			row[name] = id
		} else {
			return nil, fmt.Errorf(
				"generation result and assignment have no value for %q: %w",
				name, internalerr.ErrInvalidState)
		}
	}
	return row, nil
}

// recordOutput adds the instantiated construction to the output structure.
func (a *Atom) recordOutput(ctx context.Context, full store.Params) error {
	if a.output == nil {
		return nil
	}
	p, err := a.store.Pattern(ctx, a.pattern)
	if err != nil {
		return err
	}
	for _, tr := range p.Triples {
		f := store.Fact{
			Subject:   resolve(tr.Subject, full),
			Predicate: resolve(tr.Predicate, full),
			Object:    resolve(tr.Object, full),
		}
		a.output.AddFact(f)
		a.output.AddElement(f.Subject)
		a.output.AddElement(f.Predicate)
		a.output.AddElement(f.Object)
	}
	return nil
}

func resolve(t store.Term, params store.Params) store.ElementID {
	if t.IsVariable() {
		return params[t.Var]
	}
	return t.Const
}
