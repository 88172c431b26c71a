package config

import (
	"context"
	"fmt"

	"github.com/cognicore/noema/pkg/noema/store"
	"github.com/cognicore/noema/pkg/noema/store/memstore"
	"github.com/cognicore/noema/pkg/noema/strategy"
	"github.com/cognicore/noema/pkg/noema/templates"
)

// Loader turns a run configuration into ready-to-use collaborators. When
// Store is nil an in-memory store is created.
type Loader struct {
	Path  string
	Store store.Store
}

// Components holds everything a solver needs for the configured run.
type Components struct {
	Store             store.Store
	Manager           *templates.Manager
	RuleSet           strategy.RuleSet
	Target            string
	MaxRounds         int
	GenerateOnlyFirst bool
	RecordSolutions   bool
}

// Load reads the configuration file and populates the store with its
// elements, facts, patterns and formulas.
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	cfg, err := Load(l.Path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return l.Build(ctx, cfg)
}

// Build populates the store from an already-parsed configuration.
func (l *Loader) Build(ctx context.Context, cfg *Config) (*Components, error) {
	s := l.Store
	if s == nil {
		s = memstore.New()
	}

	for _, name := range cfg.Elements {
		if _, err := s.EnsureElement(ctx, name); err != nil {
			return nil, fmt.Errorf("element %q: %w", name, err)
		}
	}

	for _, f := range cfg.Facts {
		fact, err := resolveFact(ctx, s, f)
		if err != nil {
			return nil, err
		}
		if err := s.AddFact(ctx, fact); err != nil {
			return nil, fmt.Errorf("fact %v: %w", f, err)
		}
	}

	for _, p := range cfg.Patterns {
		pattern, err := resolvePattern(ctx, s, p)
		if err != nil {
			return nil, err
		}
		if err := s.PutPattern(ctx, pattern); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.ID, err)
		}
	}

	for _, f := range cfg.Formulas {
		if err := s.PutFormula(ctx, f.Def()); err != nil {
			return nil, fmt.Errorf("formula %q: %w", f.ID, err)
		}
	}

	ruleSet := strategy.RuleSet{}
	for _, tier := range cfg.RuleSet {
		ruleSet.Tiers = append(ruleSet.Tiers, strategy.Tier(tier))
	}

	return &Components{
		Store:             s,
		Manager:           templates.New(s),
		RuleSet:           ruleSet,
		Target:            cfg.Target,
		MaxRounds:         cfg.MaxRounds,
		GenerateOnlyFirst: cfg.GenerateOnlyFirst,
		RecordSolutions:   cfg.RecordSolutions,
	}, nil
}

func resolveFact(ctx context.Context, s store.Store, f Fact) (store.Fact, error) {
	subj, err := s.EnsureElement(ctx, f.Subject)
	if err != nil {
		return store.Fact{}, err
	}
	pred, err := s.EnsureElement(ctx, f.Predicate)
	if err != nil {
		return store.Fact{}, err
	}
	obj, err := s.EnsureElement(ctx, f.Object)
	if err != nil {
		return store.Fact{}, err
	}
	return store.Fact{Subject: subj, Predicate: pred, Object: obj}, nil
}

func resolvePattern(ctx context.Context, s store.Store, p Pattern) (store.Pattern, error) {
	pattern := store.Pattern{ID: p.ID, Triples: make([]store.Triple, len(p.Triples))}
	for i, tr := range p.Triples {
		subj, err := resolveTerm(ctx, s, tr.Subject)
		if err != nil {
			return store.Pattern{}, err
		}
		pred, err := resolveTerm(ctx, s, tr.Predicate)
		if err != nil {
			return store.Pattern{}, err
		}
		obj, err := resolveTerm(ctx, s, tr.Object)
		if err != nil {
			return store.Pattern{}, err
		}
		pattern.Triples[i] = store.Triple{Subject: subj, Predicate: pred, Object: obj}
	}
	return pattern, nil
}

func resolveTerm(ctx context.Context, s store.Store, term string) (store.Term, error) {
	if IsVariable(term) {
		return store.Variable(VariableName(term)), nil
	}
	id, err := s.EnsureElement(ctx, term)
	if err != nil {
		return store.Term{}, err
	}
	return store.Constant(id), nil
}
