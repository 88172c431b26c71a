package store

import (
	"context"
	"sort"
)

// ElementID identifies a concrete graph element.
type ElementID int64

// Term is one position of a pattern triple: either a variable name or a
// constant element.
type Term struct {
	Var   string
	Const ElementID
}

// Variable returns a variable term.
func Variable(name string) Term { return Term{Var: name} }

// Constant returns a constant term.
func Constant(id ElementID) Term { return Term{Const: id} }

// IsVariable reports whether the term is a variable.
func (t Term) IsVariable() bool { return t.Var != "" }

// Triple is one edge of a pattern: subject, predicate, object.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Pattern is a named graph template. Patterns are immutable once registered.
type Pattern struct {
	ID      string
	Triples []Triple
}

// Variables returns the sorted set of variable names used by the pattern.
func (p Pattern) Variables() []string {
	set := make(map[string]struct{})
	for _, tr := range p.Triples {
		for _, t := range []Term{tr.Subject, tr.Predicate, tr.Object} {
			if t.IsVariable() {
				set[t.Var] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Params is a concrete assignment: exactly one element per variable.
type Params map[string]ElementID

// Clone returns a copy of the assignment.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Replacements maps a variable name to the column of values it took across
// solutions. Row i across all keys forms one solution; columns stay aligned.
type Replacements map[string][]ElementID

// Fact is one concrete edge of the knowledge graph.
type Fact struct {
	Subject   ElementID
	Predicate ElementID
	Object    ElementID
}

// FormulaKind tags the closed set of logic formula variants.
type FormulaKind int

const (
	FormulaAtom FormulaKind = iota
	FormulaAnd
	FormulaOr
	FormulaNot
	FormulaImplies
)

// FormulaDef is the stored definition of a logic formula. Atom formulas name
// a pattern; connectives hold child definitions (Implies has exactly two:
// premise then conclusion).
type FormulaDef struct {
	ID       string
	Kind     FormulaKind
	Pattern  string
	Children []FormulaDef
}

// Output is the externally supplied handle that generation writes into. It
// accumulates monotonically and is never rolled back, even when a run fails.
type Output struct {
	Elements []ElementID
	Facts    []Fact

	seen map[ElementID]struct{}
}

// AddElement records a generated element, ignoring duplicates.
func (o *Output) AddElement(id ElementID) {
	if o.seen == nil {
		o.seen = make(map[ElementID]struct{})
	}
	if _, ok := o.seen[id]; ok {
		return
	}
	o.seen[id] = struct{}{}
	o.Elements = append(o.Elements, id)
}

// AddFact records a generated fact.
func (o *Output) AddFact(f Fact) {
	o.Facts = append(o.Facts, f)
}

// Store is the knowledge-store capability the engine runs against.
type Store interface {
	Close() error

	// Elements & facts
	EnsureElement(ctx context.Context, name string) (ElementID, error)
	SystemIdentifier(ctx context.Context, id ElementID) (string, error)
	AddFact(ctx context.Context, f Fact) error
	Facts(ctx context.Context) ([]Fact, error)

	// Patterns & formulas
	PutPattern(ctx context.Context, p Pattern) error
	Pattern(ctx context.Context, id string) (Pattern, error)
	VariableNames(ctx context.Context, pattern string) ([]string, error)
	PutFormula(ctx context.Context, def FormulaDef) error
	Formula(ctx context.Context, id string) (FormulaDef, error)

	// SearchTemplate returns all matches of the pattern under each of the
	// supplied assignments, unioned; with no assignments the search is
	// unconstrained. Empty means no match.
	SearchTemplate(ctx context.Context, pattern string, params ...Params) (Replacements, error)

	// Instantiate materializes the pattern as concrete graph elements under
	// the assignment, minting fresh elements for unbound variables. Returns
	// the full concrete assignment and whether anything was written.
	Instantiate(ctx context.Context, pattern string, params Params) (Params, bool, error)
}
