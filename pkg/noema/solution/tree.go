package solution

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/noema/pkg/noema/store"
)

// Node records one successful rule application: the formula, the concrete
// assignments it was applied under and the variables involved. Nodes are
// never mutated after creation.
type Node struct {
	ID          string
	Formula     string
	Assignments []store.Params
	Variables   []string
}

// Tree is the append-only provenance record of an inference run. It only
// grows; a failed run keeps the nodes accumulated up to the failure.
type Tree struct {
	mu      sync.Mutex
	nodes   []Node
	entropy *ulid.MonotonicEntropy
}

// New creates an empty solution tree.
func New() *Tree {
	return &Tree{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// AddNode appends a provenance node and returns it.
func (t *Tree) AddNode(formula string, assignments []store.Params, variables []string) Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	copied := make([]store.Params, len(assignments))
	for i, p := range assignments {
		copied[i] = p.Clone()
	}
	vars := make([]string, len(variables))
	copy(vars, variables)

	node := Node{
		ID:          ulid.MustNew(ulid.Now(), t.entropy).String(),
		Formula:     formula,
		Assignments: copied,
		Variables:   vars,
	}
	t.nodes = append(t.nodes, node)
	return node
}

// Nodes returns a copy of the recorded nodes in application order.
func (t *Tree) Nodes() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Len returns the number of recorded nodes.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}
