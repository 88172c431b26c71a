package logic

import (
	"context"

	"github.com/cognicore/noema/pkg/noema/bindings"
	"github.com/cognicore/noema/pkg/noema/store"
)

// Conjunction holds iff every child holds. Bindings of all children are
// unioned row-wise.
type Conjunction struct {
	name     string
	children []Expression
}

// NewConjunction creates a conjunction over the children.
func NewConjunction(name string, children []Expression) *Conjunction {
	return &Conjunction{name: name, children: children}
}

func (c *Conjunction) Check(ctx context.Context, params store.Params) (Result, error) {
	return c.each(ctx, func(child Expression) (Result, error) {
		return child.Check(ctx, params)
	})
}

func (c *Conjunction) Compute(ctx context.Context, args []store.ElementID) (Result, error) {
	return c.each(ctx, func(child Expression) (Result, error) {
		return child.Compute(ctx, args)
	})
}

func (c *Conjunction) Find(ctx context.Context, reps store.Replacements) (Result, error) {
	return c.each(ctx, func(child Expression) (Result, error) {
		return child.Find(ctx, reps)
	})
}

// Generate threads accumulated bindings left to right, so facts generated by
// an earlier conjunct constrain the later ones.
func (c *Conjunction) Generate(ctx context.Context, reps store.Replacements) (Result, error) {
	result := Result{Holds: true, Formula: c.name, Bindings: reps}
	for _, child := range c.children {
		res, err := child.Generate(ctx, result.Bindings)
		if err != nil {
			return Result{}, err
		}
		if !res.Holds {
			return Result{Formula: c.name, Generated: result.Generated}, nil
		}
		result.Generated = result.Generated || res.Generated
		result.Bindings = bindings.Union(result.Bindings, res.Bindings)
	}
	return result, nil
}

func (c *Conjunction) each(ctx context.Context, eval func(Expression) (Result, error)) (Result, error) {
	result := Result{Holds: true, Formula: c.name, Bindings: store.Replacements{}}
	for _, child := range c.children {
		res, err := eval(child)
		if err != nil {
			return Result{}, err
		}
		if !res.Holds {
			return Result{Formula: c.name}, nil
		}
		result.Bindings = bindings.Union(result.Bindings, res.Bindings)
	}
	return result, nil
}

// Disjunction holds iff any child holds. Bindings of the holding children
// are unioned.
type Disjunction struct {
	name     string
	children []Expression
}

// NewDisjunction creates a disjunction over the children.
func NewDisjunction(name string, children []Expression) *Disjunction {
	return &Disjunction{name: name, children: children}
}

func (d *Disjunction) Check(ctx context.Context, params store.Params) (Result, error) {
	return d.each(ctx, func(child Expression) (Result, error) {
		return child.Check(ctx, params)
	})
}

func (d *Disjunction) Compute(ctx context.Context, args []store.ElementID) (Result, error) {
	return d.each(ctx, func(child Expression) (Result, error) {
		return child.Compute(ctx, args)
	})
}

func (d *Disjunction) Find(ctx context.Context, reps store.Replacements) (Result, error) {
	return d.each(ctx, func(child Expression) (Result, error) {
		return child.Find(ctx, reps)
	})
}

func (d *Disjunction) Generate(ctx context.Context, reps store.Replacements) (Result, error) {
	result := Result{Formula: d.name, Bindings: store.Replacements{}}
	for _, child := range d.children {
		res, err := child.Generate(ctx, reps)
		if err != nil {
			return Result{}, err
		}
		if res.Holds {
			result.Holds = true
			result.Bindings = bindings.Union(result.Bindings, res.Bindings)
		}
		result.Generated = result.Generated || res.Generated
	}
	return result, nil
}

func (d *Disjunction) each(ctx context.Context, eval func(Expression) (Result, error)) (Result, error) {
	result := Result{Formula: d.name, Bindings: store.Replacements{}}
	for _, child := range d.children {
		res, err := eval(child)
		if err != nil {
			return Result{}, err
		}
		if res.Holds {
			result.Holds = true
			result.Bindings = bindings.Union(result.Bindings, res.Bindings)
		}
	}
	return result, nil
}

// Negation inverts its child and carries no bindings; a negated formula
// cannot be materialized, so Generate degrades to Compute.
type Negation struct {
	name  string
	child Expression
}

// NewNegation creates a negation over the child.
func NewNegation(name string, child Expression) *Negation {
	return &Negation{name: name, child: child}
}

func (n *Negation) Check(ctx context.Context, params store.Params) (Result, error) {
	res, err := n.child.Check(ctx, params)
	if err != nil {
		return Result{}, err
	}
	return Result{Holds: !res.Holds, Formula: n.name}, nil
}

func (n *Negation) Compute(ctx context.Context, args []store.ElementID) (Result, error) {
	res, err := n.child.Compute(ctx, args)
	if err != nil {
		return Result{}, err
	}
	return Result{Holds: !res.Holds, Formula: n.name}, nil
}

func (n *Negation) Find(ctx context.Context, reps store.Replacements) (Result, error) {
	res, err := n.child.Find(ctx, reps)
	if err != nil {
		return Result{}, err
	}
	return Result{Holds: !res.Holds, Formula: n.name}, nil
}

func (n *Negation) Generate(ctx context.Context, reps store.Replacements) (Result, error) {
	return n.Compute(ctx, nil)
}

// Implication is the rule form: when the premise holds, the conclusion is
// generated under the premise's bindings.
type Implication struct {
	name       string
	premise    Expression
	conclusion Expression
}

// NewImplication creates a premise-conclusion rule.
func NewImplication(name string, premise, conclusion Expression) *Implication {
	return &Implication{name: name, premise: premise, conclusion: conclusion}
}

func (i *Implication) Check(ctx context.Context, params store.Params) (Result, error) {
	return i.truth(ctx, func(child Expression) (Result, error) {
		return child.Check(ctx, params)
	})
}

func (i *Implication) Compute(ctx context.Context, args []store.ElementID) (Result, error) {
	return i.truth(ctx, func(child Expression) (Result, error) {
		return child.Compute(ctx, args)
	})
}

func (i *Implication) Find(ctx context.Context, reps store.Replacements) (Result, error) {
	return i.truth(ctx, func(child Expression) (Result, error) {
		return child.Find(ctx, reps)
	})
}

// Generate evaluates the premise against the current knowledge state and, if
// it holds, asks the conclusion to generate under the premise's bindings
// merged with the supplied ones.
func (i *Implication) Generate(ctx context.Context, reps store.Replacements) (Result, error) {
	var premiseRes Result
	var err error
	if bindings.Rows(reps) > 0 {
		premiseRes, err = i.premise.Find(ctx, reps)
	} else {
		premiseRes, err = i.premise.Compute(ctx, nil)
	}
	if err != nil {
		return Result{}, err
	}
	if !premiseRes.Holds {
		return Result{Holds: true, Formula: i.name}, nil
	}

	res, err := i.conclusion.Generate(ctx, premiseRes.Bindings)
	if err != nil {
		return Result{}, err
	}
	res.Formula = i.name
	return res, nil
}

func (i *Implication) truth(ctx context.Context, eval func(Expression) (Result, error)) (Result, error) {
	premiseRes, err := eval(i.premise)
	if err != nil {
		return Result{}, err
	}
	if !premiseRes.Holds {
		// Vacuously true.
		return Result{Holds: true, Formula: i.name}, nil
	}
	conclusionRes, err := eval(i.conclusion)
	if err != nil {
		return Result{}, err
	}
	return Result{Holds: conclusionRes.Holds, Bindings: conclusionRes.Bindings, Formula: i.name}, nil
}
