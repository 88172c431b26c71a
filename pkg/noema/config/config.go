package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/store"
)

// Fact is one concrete edge of the seeded knowledge graph, element names in
// all three positions.
type Fact struct {
	Subject   string `yaml:"subject"`
	Predicate string `yaml:"predicate"`
	Object    string `yaml:"object"`
}

// Triple is one edge of a pattern definition. A term starting with '?' is a
// variable; anything else names a concrete element.
type Triple struct {
	Subject   string `yaml:"subject"`
	Predicate string `yaml:"predicate"`
	Object    string `yaml:"object"`
}

// Pattern is a named graph template definition.
type Pattern struct {
	ID      string   `yaml:"id"`
	Triples []Triple `yaml:"triples"`
}

// Formula is the recursive definition of a logic formula. Exactly one of
// the variant fields must be set.
type Formula struct {
	ID      string    `yaml:"id,omitempty"`
	Atom    string    `yaml:"atom,omitempty"`
	All     []Formula `yaml:"all,omitempty"`
	Any     []Formula `yaml:"any,omitempty"`
	Not     *Formula  `yaml:"not,omitempty"`
	Implies []Formula `yaml:"implies,omitempty"`
}

// Config is a complete declarative description of an inference run: the
// seeded knowledge graph, the pattern and formula definitions, the
// prioritized rule set and the target.
type Config struct {
	Elements          []string   `yaml:"elements"`
	Facts             []Fact     `yaml:"facts"`
	Patterns          []Pattern  `yaml:"patterns"`
	Formulas          []Formula  `yaml:"formulas"`
	RuleSet           [][]string `yaml:"rule_set"`
	Target            string     `yaml:"target"`
	MaxRounds         int        `yaml:"max_rounds"`
	GenerateOnlyFirst bool       `yaml:"generate_only_first"`
	RecordSolutions   bool       `yaml:"record_solutions"`
}

// Load reads a run configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural requirements that yaml decoding cannot express.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target pattern is required: %w", internalerr.ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Patterns))
	for _, p := range c.Patterns {
		if p.ID == "" || len(p.Triples) == 0 {
			return fmt.Errorf("pattern needs an id and at least one triple: %w", internalerr.ErrInvalidConfig)
		}
		seen[p.ID] = struct{}{}
	}
	if _, ok := seen[c.Target]; !ok {
		return fmt.Errorf("target %q is not a defined pattern: %w", c.Target, internalerr.ErrInvalidConfig)
	}
	for _, f := range c.Formulas {
		if f.ID == "" {
			return fmt.Errorf("top-level formulas need an id: %w", internalerr.ErrInvalidConfig)
		}
		if err := validateFormula(f); err != nil {
			return err
		}
	}
	return nil
}

func validateFormula(f Formula) error {
	variants := 0
	if f.Atom != "" {
		variants++
	}
	if len(f.All) > 0 {
		variants++
	}
	if len(f.Any) > 0 {
		variants++
	}
	if f.Not != nil {
		variants++
	}
	if len(f.Implies) > 0 {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("formula %q must set exactly one variant: %w", f.ID, internalerr.ErrInvalidConfig)
	}
	if len(f.Implies) > 0 && len(f.Implies) != 2 {
		return fmt.Errorf("formula %q implies needs premise and conclusion: %w", f.ID, internalerr.ErrInvalidConfig)
	}
	children := make([]Formula, 0, len(f.All)+len(f.Any)+len(f.Implies)+1)
	children = append(children, f.All...)
	children = append(children, f.Any...)
	children = append(children, f.Implies...)
	if f.Not != nil {
		children = append(children, *f.Not)
	}
	for _, child := range children {
		if err := validateFormula(child); err != nil {
			return err
		}
	}
	return nil
}

// Def converts the yaml formula into its stored definition.
func (f Formula) Def() store.FormulaDef {
	def := store.FormulaDef{ID: f.ID}
	switch {
	case f.Atom != "":
		def.Kind = store.FormulaAtom
		def.Pattern = f.Atom
	case len(f.All) > 0:
		def.Kind = store.FormulaAnd
		def.Children = defs(f.All)
	case len(f.Any) > 0:
		def.Kind = store.FormulaOr
		def.Children = defs(f.Any)
	case f.Not != nil:
		def.Kind = store.FormulaNot
		def.Children = []store.FormulaDef{f.Not.Def()}
	case len(f.Implies) > 0:
		def.Kind = store.FormulaImplies
		def.Children = defs(f.Implies)
	}
	return def
}

func defs(in []Formula) []store.FormulaDef {
	out := make([]store.FormulaDef, len(in))
	for i, f := range in {
		out[i] = f.Def()
	}
	return out
}

// IsVariable reports whether a pattern term names a variable.
func IsVariable(term string) bool {
	return strings.HasPrefix(term, "?")
}

// VariableName strips the variable marker.
func VariableName(term string) string {
	return strings.TrimPrefix(term, "?")
}
