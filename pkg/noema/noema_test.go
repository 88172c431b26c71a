package noema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/noema/pkg/noema/config"
	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/strategy"
)

const syllogismYAML = `
facts:
  - {subject: socrates, predicate: is, object: human}
patterns:
  - id: Human
    triples:
      - {subject: "?x", predicate: is, object: human}
  - id: Mortal
    triples:
      - {subject: "?x", predicate: is, object: mortal}
formulas:
  - id: mortality
    implies:
      - atom: Human
      - atom: Mortal
rule_set:
  - [mortality]
target: Mortal
record_solutions: true
`

func solverFromYAML(t *testing.T, body string) (*Solver, *config.Components) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := &config.Loader{Path: path}
	c, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := FromComponents(c, nil)
	t.Cleanup(func() { s.Close() })
	return s, c
}

func TestSolveSyllogism(t *testing.T) {
	ctx := context.Background()
	s, c := solverFromYAML(t, syllogismYAML)

	res, err := s.Solve(ctx, Request{Target: c.Target, Rules: c.RuleSet})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Outcome != strategy.OutcomeAchieved {
		t.Fatalf("outcome = %v, want achieved", res.Outcome)
	}

	if len(res.Output.Facts) == 0 {
		t.Error("expected the derived fact in the output")
	}
	if len(res.Solutions) != 1 {
		t.Fatalf("expected one solution node, got %d", len(res.Solutions))
	}
	if res.Solutions[0].Formula != "mortality" {
		t.Errorf("solution formula = %q", res.Solutions[0].Formula)
	}

	// The derived fact is queryable: socrates is now mortal.
	socrates, err := c.Store.EnsureElement(ctx, "socrates")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	reps, err := c.Store.SearchTemplate(ctx, "Mortal")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(reps["x"]) != 1 || reps["x"][0] != socrates {
		t.Errorf("Mortal matches = %v, want [socrates]", reps["x"])
	}
}

func TestSolveIdempotent(t *testing.T) {
	ctx := context.Background()
	s, c := solverFromYAML(t, syllogismYAML)

	if _, err := s.Solve(ctx, Request{Target: c.Target, Rules: c.RuleSet}); err != nil {
		t.Fatalf("first solve: %v", err)
	}

	res, err := s.Solve(ctx, Request{Target: c.Target, Rules: c.RuleSet})
	if err != nil {
		t.Fatalf("second solve: %v", err)
	}
	if res.Outcome != strategy.OutcomeAlreadyAchieved {
		t.Fatalf("outcome = %v, want already achieved", res.Outcome)
	}
	if len(res.Output.Facts) != 0 || len(res.Solutions) != 0 {
		t.Error("second run must not derive anything new")
	}
}

func TestSolveUnreachableTarget(t *testing.T) {
	ctx := context.Background()
	s, c := solverFromYAML(t, `
patterns:
  - id: Human
    triples:
      - {subject: "?x", predicate: is, object: human}
  - id: Mortal
    triples:
      - {subject: "?x", predicate: is, object: mortal}
formulas:
  - id: mortality
    implies:
      - atom: Human
      - atom: Mortal
rule_set:
  - [mortality]
target: Mortal
`)

	res, err := s.Solve(ctx, Request{Target: c.Target, Rules: c.RuleSet})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Outcome != strategy.OutcomeNotAchieved {
		t.Fatalf("outcome = %v, want not achieved", res.Outcome)
	}
	if len(res.Output.Facts) != 0 {
		t.Errorf("no rule applied, yet output holds %v", res.Output.Facts)
	}
}

func TestSolveNoRules(t *testing.T) {
	ctx := context.Background()
	s, c := solverFromYAML(t, syllogismYAML)

	_, err := s.Solve(ctx, Request{Target: c.Target, Rules: strategy.RuleSet{}})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
