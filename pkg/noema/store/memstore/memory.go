package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/store"
)

// Store is an in-memory implementation of store.Store. It backs tests and
// small self-contained runs where no database file is wanted.
type Store struct {
	mu        sync.RWMutex
	nextID    store.ElementID
	names     map[store.ElementID]string
	ids       map[string]store.ElementID
	facts     []store.Fact
	factIndex map[store.Fact]struct{}
	patterns  map[string]store.Pattern
	formulas  map[string]store.FormulaDef
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:    1,
		names:     make(map[store.ElementID]string),
		ids:       make(map[string]store.ElementID),
		factIndex: make(map[store.Fact]struct{}),
		patterns:  make(map[string]store.Pattern),
		formulas:  make(map[string]store.FormulaDef),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// EnsureElement returns the element named name, creating it if absent.
func (s *Store) EnsureElement(ctx context.Context, name string) (store.ElementID, error) {
	if name == "" {
		return 0, fmt.Errorf("element name: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[name]; ok {
		return id, nil
	}
	id := s.nextID
	s.nextID++
	s.ids[name] = id
	s.names[id] = name
	return id, nil
}

// SystemIdentifier returns the name an element was registered under.
func (s *Store) SystemIdentifier(ctx context.Context, id store.ElementID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[id]
	if !ok {
		return "", fmt.Errorf("element %d: %w", id, internalerr.ErrNotFound)
	}
	return name, nil
}

// AddFact inserts a fact, ignoring duplicates.
func (s *Store) AddFact(ctx context.Context, f store.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFactLocked(f)
	return nil
}

func (s *Store) addFactLocked(f store.Fact) {
	if _, ok := s.factIndex[f]; ok {
		return
	}
	s.factIndex[f] = struct{}{}
	s.facts = append(s.facts, f)
}

// Facts returns a copy of all known facts.
func (s *Store) Facts(ctx context.Context) ([]store.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Fact, len(s.facts))
	copy(out, s.facts)
	return out, nil
}

// PutPattern registers a pattern definition.
func (s *Store) PutPattern(ctx context.Context, p store.Pattern) error {
	if p.ID == "" || len(p.Triples) == 0 {
		return fmt.Errorf("pattern definition: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.ID] = p
	return nil
}

// Pattern returns a registered pattern definition.
func (s *Store) Pattern(ctx context.Context, id string) (store.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	if !ok {
		return store.Pattern{}, fmt.Errorf("pattern %q: %w", id, internalerr.ErrNotFound)
	}
	return p, nil
}

// VariableNames returns the variables used by a pattern.
func (s *Store) VariableNames(ctx context.Context, pattern string) ([]string, error) {
	p, err := s.Pattern(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return p.Variables(), nil
}

// PutFormula registers a formula definition.
func (s *Store) PutFormula(ctx context.Context, def store.FormulaDef) error {
	if def.ID == "" {
		return fmt.Errorf("formula definition: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formulas[def.ID] = def
	return nil
}

// Formula returns a registered formula definition.
func (s *Store) Formula(ctx context.Context, id string) (store.FormulaDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.formulas[id]
	if !ok {
		return store.FormulaDef{}, fmt.Errorf("formula %q: %w", id, internalerr.ErrNotFound)
	}
	return def, nil
}

// SearchTemplate finds all assignments satisfying the pattern under the
// supplied partial assignments, unioned into one aligned replacements map.
func (s *Store) SearchTemplate(ctx context.Context, pattern string, params ...store.Params) (store.Replacements, error) {
	p, err := s.Pattern(ctx, pattern)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(params) == 0 {
		params = []store.Params{{}}
	}

	vars := p.Variables()
	reps := make(store.Replacements)
	seen := make(map[string]struct{})
	for _, seed := range params {
		for _, solution := range s.matchLocked(p.Triples, seed.Clone()) {
			key := solutionKey(vars, solution)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			for _, name := range vars {
				reps[name] = append(reps[name], solution[name])
			}
		}
	}
	return reps, nil
}

// matchLocked backtracks over the pattern triples, extending the assignment
// one triple at a time against the fact list.
func (s *Store) matchLocked(triples []store.Triple, bound store.Params) []store.Params {
	if len(triples) == 0 {
		return []store.Params{bound}
	}

	tr := triples[0]
	var out []store.Params
	for _, f := range s.facts {
		next, ok := bindTriple(tr, f, bound)
		if !ok {
			continue
		}
		out = append(out, s.matchLocked(triples[1:], next)...)
	}
	return out
}

// bindTriple unifies one pattern triple with one fact under the current
// assignment, returning the extended assignment on success.
func bindTriple(tr store.Triple, f store.Fact, bound store.Params) (store.Params, bool) {
	next := bound
	copied := false
	bind := func(t store.Term, id store.ElementID) bool {
		if !t.IsVariable() {
			return t.Const == id
		}
		if existing, ok := next[t.Var]; ok {
			return existing == id
		}
		if !copied {
			next = next.Clone()
			copied = true
		}
		next[t.Var] = id
		return true
	}
	if !bind(tr.Subject, f.Subject) {
		return nil, false
	}
	if !bind(tr.Predicate, f.Predicate) {
		return nil, false
	}
	if !bind(tr.Object, f.Object) {
		return nil, false
	}
	return next, true
}

// Instantiate writes the pattern into the graph under the assignment. Unbound
// variables are minted as fresh elements. The returned assignment covers
// every pattern variable.
func (s *Store) Instantiate(ctx context.Context, pattern string, params store.Params) (store.Params, bool, error) {
	p, err := s.Pattern(ctx, pattern)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	full := params.Clone()
	if full == nil {
		full = make(store.Params)
	}
	for _, name := range p.Variables() {
		if _, ok := full[name]; ok {
			continue
		}
		id := s.nextID
		s.nextID++
		minted := fmt.Sprintf("%s_%s_%d", pattern, name, id)
		s.ids[minted] = id
		s.names[id] = minted
		full[name] = id
	}

	for _, tr := range p.Triples {
		f := store.Fact{
			Subject:   resolveTerm(tr.Subject, full),
			Predicate: resolveTerm(tr.Predicate, full),
			Object:    resolveTerm(tr.Object, full),
		}
		s.addFactLocked(f)
	}
	return full, true, nil
}

func resolveTerm(t store.Term, params store.Params) store.ElementID {
	if t.IsVariable() {
		return params[t.Var]
	}
	return t.Const
}

func solutionKey(vars []string, params store.Params) string {
	key := ""
	for _, name := range vars {
		key += fmt.Sprintf("%d|", params[name])
	}
	return key
}
