package logic

import (
	"context"
	"fmt"

	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/observe"
	"github.com/cognicore/noema/pkg/noema/store"
	"github.com/cognicore/noema/pkg/noema/templates"
)

// Factory builds expression trees from stored formula definitions. The store,
// template manager, output structure and observer it carries are shared by
// every node it constructs.
type Factory struct {
	store   store.Store
	manager *templates.Manager
	output  *store.Output
	obs     observe.Observer

	// GenerateOnlyFirst is applied to every atom the factory builds.
	GenerateOnlyFirst bool
}

// NewFactory creates an expression factory.
func NewFactory(s store.Store, m *templates.Manager, output *store.Output, obs observe.Observer) *Factory {
	if obs == nil {
		obs = observe.Nop{}
	}
	return &Factory{store: s, manager: m, output: output, obs: obs}
}

// Build resolves the formula definition and constructs its expression tree.
func (f *Factory) Build(ctx context.Context, formula string) (Expression, error) {
	def, err := f.store.Formula(ctx, formula)
	if err != nil {
		return nil, err
	}
	return f.build(ctx, def)
}

func (f *Factory) build(ctx context.Context, def store.FormulaDef) (Expression, error) {
	switch def.Kind {
	case store.FormulaAtom:
		atom := NewAtom(f.store, f.manager, def.Pattern, f.output, f.obs)
		atom.GenerateOnlyFirst = f.GenerateOnlyFirst
		return atom, nil

	case store.FormulaAnd, store.FormulaOr:
		if len(def.Children) == 0 {
			return nil, fmt.Errorf("formula %q has no operands: %w", def.ID, internalerr.ErrInvalidInput)
		}
		children := make([]Expression, len(def.Children))
		for idx, child := range def.Children {
			expr, err := f.build(ctx, child)
			if err != nil {
				return nil, err
			}
			children[idx] = expr
		}
		if def.Kind == store.FormulaAnd {
			return NewConjunction(def.ID, children), nil
		}
		return NewDisjunction(def.ID, children), nil

	case store.FormulaNot:
		if len(def.Children) != 1 {
			return nil, fmt.Errorf("formula %q needs exactly one operand: %w", def.ID, internalerr.ErrInvalidInput)
		}
		child, err := f.build(ctx, def.Children[0])
		if err != nil {
			return nil, err
		}
		return NewNegation(def.ID, child), nil

	case store.FormulaImplies:
		if len(def.Children) != 2 {
			return nil, fmt.Errorf("formula %q needs premise and conclusion: %w", def.ID, internalerr.ErrInvalidInput)
		}
		premise, err := f.build(ctx, def.Children[0])
		if err != nil {
			return nil, err
		}
		conclusion, err := f.build(ctx, def.Children[1])
		if err != nil {
			return nil, err
		}
		return NewImplication(def.ID, premise, conclusion), nil

	default:
		return nil, fmt.Errorf("formula %q has unknown kind %d: %w", def.ID, def.Kind, internalerr.ErrInvalidInput)
	}
}
