package noema

import (
	"context"

	"github.com/cognicore/noema/pkg/noema/config"
	"github.com/cognicore/noema/pkg/noema/logic"
	"github.com/cognicore/noema/pkg/noema/observe"
	"github.com/cognicore/noema/pkg/noema/solution"
	"github.com/cognicore/noema/pkg/noema/store"
	"github.com/cognicore/noema/pkg/noema/strategy"
	"github.com/cognicore/noema/pkg/noema/templates"
)

// Solver is the main inference engine facade.
type Solver struct {
	store             store.Store
	manager           *templates.Manager
	obs               observe.Observer
	maxRounds         int
	generateOnlyFirst bool
	recordSolutions   bool
}

// Options configures a Solver instance.
type Options struct {
	Store    store.Store
	Manager  *templates.Manager
	Observer observe.Observer

	// MaxRounds bounds the strategy's restart-on-progress sweep; zero means
	// the strategy default.
	MaxRounds int

	// GenerateOnlyFirst stops rule generation after the first successful
	// instantiation per application.
	GenerateOnlyFirst bool

	// RecordSolutions enables provenance recording.
	RecordSolutions bool
}

// New creates a Solver with the given dependencies.
func New(opts Options) *Solver {
	obs := opts.Observer
	if obs == nil {
		obs = observe.Nop{}
	}
	manager := opts.Manager
	if manager == nil {
		manager = templates.New(opts.Store)
	}
	return &Solver{
		store:             opts.Store,
		manager:           manager,
		obs:               obs,
		maxRounds:         opts.MaxRounds,
		generateOnlyFirst: opts.GenerateOnlyFirst,
		recordSolutions:   opts.RecordSolutions,
	}
}

// FromComponents creates a Solver from loaded configuration components.
func FromComponents(c *config.Components, obs observe.Observer) *Solver {
	return New(Options{
		Store:             c.Store,
		Manager:           c.Manager,
		Observer:          obs,
		MaxRounds:         c.MaxRounds,
		GenerateOnlyFirst: c.GenerateOnlyFirst,
		RecordSolutions:   c.RecordSolutions,
	})
}

// Close cleanly shuts down the Solver's store.
func (s *Solver) Close() error {
	return s.store.Close()
}

// Request describes one inference run: the target pattern to drive toward
// and the prioritized rule set to drive it with.
type Request struct {
	Target string
	Rules  strategy.RuleSet
}

// Result reports a finished run. Output holds everything generation wrote;
// Solutions holds the provenance nodes in application order.
type Result struct {
	Outcome   strategy.Outcome
	Output    *store.Output
	Solutions []solution.Node
}

// Solve runs the target-directed strategy. Generated facts and provenance
// accumulate monotonically and are not rolled back when the run fails, so a
// not-achieved result may still have mutated the store and output structure.
func (s *Solver) Solve(ctx context.Context, req Request) (Result, error) {
	output := &store.Output{}

	factory := logic.NewFactory(s.store, s.manager, output, s.obs)
	factory.GenerateOnlyFirst = s.generateOnlyFirst

	target := strategy.NewTarget(s.store, s.manager, factory, req.Target, s.obs)
	if s.maxRounds > 0 {
		target.MaxRounds = s.maxRounds
	}

	var tree *solution.Tree
	if s.recordSolutions {
		tree = solution.New()
		target.Tree = tree
	}

	outcome, err := target.Apply(ctx, req.Rules)
	result := Result{Outcome: outcome, Output: output}
	if tree != nil {
		result.Solutions = tree.Nodes()
	}
	return result, err
}
