package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/store"
)

func seedStore(t *testing.T) (*Store, map[string]store.ElementID) {
	t.Helper()
	ctx := context.Background()
	s := New()

	ids := make(map[string]store.ElementID)
	for _, name := range []string{"alice", "bob", "knows", "likes", "tea"} {
		id, err := s.EnsureElement(ctx, name)
		if err != nil {
			t.Fatalf("ensure element %s: %v", name, err)
		}
		ids[name] = id
	}

	facts := []store.Fact{
		{Subject: ids["alice"], Predicate: ids["knows"], Object: ids["bob"]},
		{Subject: ids["alice"], Predicate: ids["likes"], Object: ids["tea"]},
		{Subject: ids["bob"], Predicate: ids["likes"], Object: ids["tea"]},
	}
	for _, f := range facts {
		if err := s.AddFact(ctx, f); err != nil {
			t.Fatalf("add fact: %v", err)
		}
	}
	return s, ids
}

func TestEnsureElementIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.EnsureElement(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := s.EnsureElement(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Errorf("expected stable id, got %d then %d", first, second)
	}

	name, err := s.SystemIdentifier(ctx, first)
	if err != nil || name != "alice" {
		t.Errorf("expected name alice, got %q (%v)", name, err)
	}
}

func TestSystemIdentifierUnknown(t *testing.T) {
	s := New()
	if _, err := s.SystemIdentifier(context.Background(), 42); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddFactDeduplicates(t *testing.T) {
	ctx := context.Background()
	s, ids := seedStore(t)

	before, _ := s.Facts(ctx)
	if err := s.AddFact(ctx, store.Fact{Subject: ids["alice"], Predicate: ids["knows"], Object: ids["bob"]}); err != nil {
		t.Fatalf("add duplicate: %v", err)
	}
	after, _ := s.Facts(ctx)
	if len(after) != len(before) {
		t.Errorf("duplicate fact changed count: %d -> %d", len(before), len(after))
	}
}

func TestSearchTemplateUnconstrained(t *testing.T) {
	ctx := context.Background()
	s, ids := seedStore(t)

	pattern := store.Pattern{
		ID: "likes_tea",
		Triples: []store.Triple{
			{Subject: store.Variable("x"), Predicate: store.Constant(ids["likes"]), Object: store.Constant(ids["tea"])},
		},
	}
	if err := s.PutPattern(ctx, pattern); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	reps, err := s.SearchTemplate(ctx, "likes_tea")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(reps["x"]) != 2 {
		t.Fatalf("expected both tea drinkers, got %v", reps["x"])
	}
}

func TestSearchTemplateWithParams(t *testing.T) {
	ctx := context.Background()
	s, ids := seedStore(t)

	pattern := store.Pattern{
		ID: "likes_tea",
		Triples: []store.Triple{
			{Subject: store.Variable("x"), Predicate: store.Constant(ids["likes"]), Object: store.Constant(ids["tea"])},
		},
	}
	if err := s.PutPattern(ctx, pattern); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	reps, err := s.SearchTemplate(ctx, "likes_tea", store.Params{"x": ids["bob"]})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(reps["x"]) != 1 || reps["x"][0] != ids["bob"] {
		t.Errorf("expected only bob, got %v", reps["x"])
	}
}

func TestSearchTemplateJoin(t *testing.T) {
	ctx := context.Background()
	s, ids := seedStore(t)

	// Who does alice know that likes tea?
	pattern := store.Pattern{
		ID: "friend_likes_tea",
		Triples: []store.Triple{
			{Subject: store.Constant(ids["alice"]), Predicate: store.Constant(ids["knows"]), Object: store.Variable("y")},
			{Subject: store.Variable("y"), Predicate: store.Constant(ids["likes"]), Object: store.Constant(ids["tea"])},
		},
	}
	if err := s.PutPattern(ctx, pattern); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	reps, err := s.SearchTemplate(ctx, "friend_likes_tea")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(reps["y"]) != 1 || reps["y"][0] != ids["bob"] {
		t.Errorf("expected bob, got %v", reps["y"])
	}
}

func TestSearchTemplateNoMatch(t *testing.T) {
	ctx := context.Background()
	s, ids := seedStore(t)

	pattern := store.Pattern{
		ID: "knows_alice",
		Triples: []store.Triple{
			{Subject: store.Variable("x"), Predicate: store.Constant(ids["knows"]), Object: store.Constant(ids["alice"])},
		},
	}
	if err := s.PutPattern(ctx, pattern); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	reps, err := s.SearchTemplate(ctx, "knows_alice")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(reps["x"]) != 0 {
		t.Errorf("expected no match, got %v", reps)
	}
}

func TestSearchTemplateUnknownPattern(t *testing.T) {
	s, _ := seedStore(t)
	if _, err := s.SearchTemplate(context.Background(), "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInstantiate(t *testing.T) {
	ctx := context.Background()
	s, ids := seedStore(t)

	pattern := store.Pattern{
		ID: "likes_tea",
		Triples: []store.Triple{
			{Subject: store.Variable("x"), Predicate: store.Constant(ids["likes"]), Object: store.Constant(ids["tea"])},
		},
	}
	if err := s.PutPattern(ctx, pattern); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	carol, err := s.EnsureElement(ctx, "carol")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	full, ok, err := s.Instantiate(ctx, "likes_tea", store.Params{"x": carol})
	if err != nil || !ok {
		t.Fatalf("instantiate: ok=%v err=%v", ok, err)
	}
	if full["x"] != carol {
		t.Errorf("expected assignment preserved, got %v", full)
	}

	reps, err := s.SearchTemplate(ctx, "likes_tea", store.Params{"x": carol})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(reps["x"]) != 1 {
		t.Errorf("generated fact not searchable: %v", reps)
	}
}

func TestInstantiateMintsUnboundVariables(t *testing.T) {
	ctx := context.Background()
	s, ids := seedStore(t)

	pattern := store.Pattern{
		ID: "likes_something",
		Triples: []store.Triple{
			{Subject: store.Constant(ids["alice"]), Predicate: store.Constant(ids["likes"]), Object: store.Variable("what")},
		},
	}
	if err := s.PutPattern(ctx, pattern); err != nil {
		t.Fatalf("put pattern: %v", err)
	}

	full, ok, err := s.Instantiate(ctx, "likes_something", store.Params{})
	if err != nil || !ok {
		t.Fatalf("instantiate: ok=%v err=%v", ok, err)
	}

	minted, has := full["what"]
	if !has {
		t.Fatal("expected a fresh element for the unbound variable")
	}
	if name, err := s.SystemIdentifier(ctx, minted); err != nil || name == "" {
		t.Errorf("minted element should have an identifier, got %q (%v)", name, err)
	}
}

func TestFormulaRegistry(t *testing.T) {
	ctx := context.Background()
	s := New()

	def := store.FormulaDef{
		ID:   "r1",
		Kind: store.FormulaImplies,
		Children: []store.FormulaDef{
			{Kind: store.FormulaAtom, Pattern: "q"},
			{Kind: store.FormulaAtom, Pattern: "p"},
		},
	}
	if err := s.PutFormula(ctx, def); err != nil {
		t.Fatalf("put formula: %v", err)
	}

	got, err := s.Formula(ctx, "r1")
	if err != nil {
		t.Fatalf("get formula: %v", err)
	}
	if got.Kind != store.FormulaImplies || len(got.Children) != 2 {
		t.Errorf("formula definition mangled: %+v", got)
	}

	if _, err := s.Formula(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
