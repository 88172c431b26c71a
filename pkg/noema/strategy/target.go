package strategy

import (
	"context"
	"fmt"

	"github.com/cognicore/noema/pkg/noema/bindings"
	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/logic"
	"github.com/cognicore/noema/pkg/noema/observe"
	"github.com/cognicore/noema/pkg/noema/solution"
	"github.com/cognicore/noema/pkg/noema/store"
	"github.com/cognicore/noema/pkg/noema/templates"
)

// DefaultMaxRounds bounds the restart-on-progress sweep. Without a bound a
// rule whose generation keeps re-enabling further generations would loop
// forever.
const DefaultMaxRounds = 100

// Tier is an ordered queue of formula identifiers attempted before any tier
// of lower priority.
type Tier []string

// RuleSet is an ordered sequence of tiers; tier 0 has the highest priority.
type RuleSet struct {
	Tiers []Tier
}

// Outcome reports how an inference run ended.
type Outcome int

const (
	// OutcomeNotAchieved means every tier was exhausted across a full pass
	// without progress, or the round budget ran out.
	OutcomeNotAchieved Outcome = iota
	// OutcomeAchieved means a rule application made the target satisfiable.
	OutcomeAchieved
	// OutcomeAlreadyAchieved means the target held at entry; nothing was
	// mutated.
	OutcomeAlreadyAchieved
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeAchieved:
		return "achieved"
	case OutcomeAlreadyAchieved:
		return "already achieved"
	default:
		return "not achieved"
	}
}

// Target repeatedly applies rules from a prioritized rule set until the
// target pattern becomes satisfiable, recording provenance for every
// successful application.
type Target struct {
	store   store.Store
	manager *templates.Manager
	factory *logic.Factory
	obs     observe.Observer
	target  string

	// Tree, when non-nil, receives a provenance node for every successful
	// rule application.
	Tree *solution.Tree

	// MaxRounds bounds how many times the sweep may restart after progress.
	MaxRounds int
}

// NewTarget creates a target-directed iteration strategy. The factory must
// share the store and output structure the strategy's rules generate into.
func NewTarget(s store.Store, m *templates.Manager, f *logic.Factory, target string, obs observe.Observer) *Target {
	if obs == nil {
		obs = observe.Nop{}
	}
	return &Target{
		store:     s,
		manager:   m,
		factory:   f,
		obs:       obs,
		target:    target,
		MaxRounds: DefaultMaxRounds,
	}
}

// Apply drives the rule set until the target holds or no progress is
// possible. Facts generated along the way are never rolled back, even when
// the target is ultimately not reached.
func (t *Target) Apply(ctx context.Context, set RuleSet) (Outcome, error) {
	if len(set.Tiers) == 0 {
		return OutcomeNotAchieved, fmt.Errorf("no rule sets found: %w", internalerr.ErrNotFound)
	}

	targetParams, err := t.manager.DeriveParams(ctx, t.target)
	if err != nil {
		return OutcomeNotAchieved, err
	}

	achieved, err := t.achieved(ctx, targetParams)
	if err != nil {
		return OutcomeNotAchieved, err
	}
	if achieved {
		return OutcomeAlreadyAchieved, nil
	}

	for round := 0; round < t.MaxRounds; round++ {
		progressed, achieved, err := t.sweep(ctx, set)
		if err != nil {
			return OutcomeNotAchieved, err
		}
		if achieved {
			t.obs.TargetAchieved(t.target)
			return OutcomeAchieved, nil
		}
		if !progressed {
			return OutcomeNotAchieved, nil
		}
		t.obs.SweepRestarted(round + 1)
	}
	return OutcomeNotAchieved, fmt.Errorf("%d rounds without convergence: %w", t.MaxRounds, internalerr.ErrBudgetExceeded)
}

// sweep walks the tiers in priority order and stops at the first successful
// generation, because new facts may unblock higher-priority rules that were
// inapplicable before. Returns whether any rule generated and whether the
// target now holds.
func (t *Target) sweep(ctx context.Context, set RuleSet) (progressed, achieved bool, err error) {
	targetParams, err := t.manager.DeriveParams(ctx, t.target)
	if err != nil {
		return false, false, err
	}

	for _, tier := range set.Tiers {
		for _, formula := range tier {
			t.obs.RuleAttempted(formula)
			res, err := t.useFormula(ctx, formula)
			if err != nil {
				return false, false, err
			}
			if !res.Generated {
				continue
			}

			t.record(res)

			achieved, err = t.achieved(ctx, targetParams)
			if err != nil {
				return true, false, err
			}
			return true, achieved, nil
		}
	}
	return false, false, nil
}

// useFormula builds the formula's expression node and asks it to generate
// against the current knowledge state.
func (t *Target) useFormula(ctx context.Context, formula string) (logic.Result, error) {
	expr, err := t.factory.Build(ctx, formula)
	if err != nil {
		return logic.Result{}, err
	}
	return expr.Generate(ctx, store.Replacements{})
}

func (t *Target) record(res logic.Result) {
	if t.Tree == nil {
		return
	}
	t.Tree.AddNode(res.Formula, bindings.ToParams(res.Bindings), bindings.Keys(res.Bindings))
}

// achieved reports whether any derived assignment's search over the target
// pattern yields a non-empty binding set.
func (t *Target) achieved(ctx context.Context, paramsList []store.Params) (bool, error) {
	for _, params := range paramsList {
		reps, err := t.store.SearchTemplate(ctx, t.target, params)
		if err != nil {
			return false, err
		}
		if bindings.Rows(reps) > 0 {
			return true, nil
		}
	}
	return false, nil
}
