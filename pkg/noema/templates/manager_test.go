package templates

import (
	"context"
	"testing"

	"github.com/cognicore/noema/pkg/noema/store"
	"github.com/cognicore/noema/pkg/noema/store/memstore"
)

func patternStore(t *testing.T) (*memstore.Store, store.ElementID) {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()

	likes, err := s.EnsureElement(ctx, "likes")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	tea, err := s.EnsureElement(ctx, "tea")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	pattern := store.Pattern{
		ID: "likes_tea",
		Triples: []store.Triple{
			{Subject: store.Variable("x"), Predicate: store.Constant(likes), Object: store.Constant(tea)},
		},
	}
	if err := s.PutPattern(ctx, pattern); err != nil {
		t.Fatalf("put pattern: %v", err)
	}
	return s, tea
}

func TestDeriveParamsWithValues(t *testing.T) {
	ctx := context.Background()
	s, _ := patternStore(t)
	m := New(s)

	paramsList, err := m.DeriveParams(ctx, "likes_tea", 7, 8)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(paramsList) != 2 {
		t.Fatalf("expected one assignment per variable-value pair, got %d", len(paramsList))
	}
	if paramsList[0]["x"] != 7 || paramsList[1]["x"] != 8 {
		t.Errorf("assignments wrong: %v", paramsList)
	}
}

func TestDeriveParamsUnconstrained(t *testing.T) {
	ctx := context.Background()
	s, _ := patternStore(t)
	m := New(s)

	paramsList, err := m.DeriveParams(ctx, "likes_tea")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(paramsList) != 1 || len(paramsList[0]) != 0 {
		t.Errorf("expected a single unconstrained assignment, got %v", paramsList)
	}
}

func TestDeriveParamsUsesRunArguments(t *testing.T) {
	ctx := context.Background()
	s, tea := patternStore(t)
	m := New(s)
	m.SetArguments([]store.ElementID{tea})

	paramsList, err := m.DeriveParams(ctx, "likes_tea")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(paramsList) != 1 || paramsList[0]["x"] != tea {
		t.Errorf("expected run arguments to seed assignments, got %v", paramsList)
	}
}

func TestDeriveParamsUnknownPattern(t *testing.T) {
	s, _ := patternStore(t)
	m := New(s)

	if _, err := m.DeriveParams(context.Background(), "missing", 1); err == nil {
		t.Error("expected error for unknown pattern")
	}
}
