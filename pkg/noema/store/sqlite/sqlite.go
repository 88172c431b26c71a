package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cognicore/noema/pkg/noema/internalerr"
	"github.com/cognicore/noema/pkg/noema/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite-backed knowledge store with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS elements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS facts (
	subject INTEGER NOT NULL,
	predicate INTEGER NOT NULL,
	object INTEGER NOT NULL,
	PRIMARY KEY(subject, predicate, object)
);

CREATE INDEX IF NOT EXISTS facts_predicate ON facts(predicate);

CREATE TABLE IF NOT EXISTS patterns (
	id TEXT PRIMARY KEY,
	triples TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS formulas (
	id TEXT PRIMARY KEY,
	def TEXT NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// EnsureElement returns the element named name, creating it if absent.
func (s *sqliteStore) EnsureElement(ctx context.Context, name string) (store.ElementID, error) {
	if name == "" {
		return 0, fmt.Errorf("element name: %w", internalerr.ErrInvalidInput)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO elements (name) VALUES (?)
ON CONFLICT(name) DO UPDATE SET name=excluded.name
RETURNING id;
`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return store.ElementID(id), nil
}

// SystemIdentifier returns the name an element was registered under.
func (s *sqliteStore) SystemIdentifier(ctx context.Context, id store.ElementID) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM elements WHERE id=?`, int64(id)).Scan(&name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("element %d: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// AddFact inserts a fact, ignoring duplicates.
func (s *sqliteStore) AddFact(ctx context.Context, f store.Fact) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO facts (subject, predicate, object) VALUES (?, ?, ?);
`, int64(f.Subject), int64(f.Predicate), int64(f.Object))
	return err
}

// Facts returns all known facts.
func (s *sqliteStore) Facts(ctx context.Context) ([]store.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject, predicate, object FROM facts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Fact
	for rows.Next() {
		var subj, pred, obj int64
		if err := rows.Scan(&subj, &pred, &obj); err != nil {
			return nil, err
		}
		out = append(out, store.Fact{
			Subject:   store.ElementID(subj),
			Predicate: store.ElementID(pred),
			Object:    store.ElementID(obj),
		})
	}
	return out, rows.Err()
}

// PutPattern registers a pattern definition.
func (s *sqliteStore) PutPattern(ctx context.Context, p store.Pattern) error {
	if p.ID == "" || len(p.Triples) == 0 {
		return fmt.Errorf("pattern definition: %w", internalerr.ErrInvalidInput)
	}
	triplesJSON, err := json.Marshal(p.Triples)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO patterns (id, triples) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET triples=excluded.triples;
`, p.ID, string(triplesJSON))
	return err
}

// Pattern returns a registered pattern definition.
func (s *sqliteStore) Pattern(ctx context.Context, id string) (store.Pattern, error) {
	var triplesJSON string
	err := s.db.QueryRowContext(ctx, `SELECT triples FROM patterns WHERE id=?`, id).Scan(&triplesJSON)
	if err == sql.ErrNoRows {
		return store.Pattern{}, fmt.Errorf("pattern %q: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Pattern{}, err
	}

	p := store.Pattern{ID: id}
	if err := json.Unmarshal([]byte(triplesJSON), &p.Triples); err != nil {
		return store.Pattern{}, err
	}
	return p, nil
}

// VariableNames returns the variables used by a pattern.
func (s *sqliteStore) VariableNames(ctx context.Context, pattern string) ([]string, error) {
	p, err := s.Pattern(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return p.Variables(), nil
}

// PutFormula registers a formula definition.
func (s *sqliteStore) PutFormula(ctx context.Context, def store.FormulaDef) error {
	if def.ID == "" {
		return fmt.Errorf("formula definition: %w", internalerr.ErrInvalidInput)
	}
	defJSON, err := json.Marshal(def)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO formulas (id, def) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET def=excluded.def;
`, def.ID, string(defJSON))
	return err
}

// Formula returns a registered formula definition.
func (s *sqliteStore) Formula(ctx context.Context, id string) (store.FormulaDef, error) {
	var defJSON string
	err := s.db.QueryRowContext(ctx, `SELECT def FROM formulas WHERE id=?`, id).Scan(&defJSON)
	if err == sql.ErrNoRows {
		return store.FormulaDef{}, fmt.Errorf("formula %q: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.FormulaDef{}, err
	}

	var def store.FormulaDef
	if err := json.Unmarshal([]byte(defJSON), &def); err != nil {
		return store.FormulaDef{}, err
	}
	return def, nil
}

// SearchTemplate finds all assignments satisfying the pattern under the
// supplied partial assignments. Candidate facts for each triple are fetched
// with the constraints already bound; the join itself runs in Go.
func (s *sqliteStore) SearchTemplate(ctx context.Context, pattern string, params ...store.Params) (store.Replacements, error) {
	p, err := s.Pattern(ctx, pattern)
	if err != nil {
		return nil, err
	}

	if len(params) == 0 {
		params = []store.Params{{}}
	}

	vars := p.Variables()
	reps := make(store.Replacements)
	seen := make(map[string]struct{})
	for _, seed := range params {
		solutions, err := s.match(ctx, p.Triples, seed.Clone())
		if err != nil {
			return nil, err
		}
		for _, solution := range solutions {
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

func (s *sqliteStore) match(ctx context.Context, triples []store.Triple, bound store.Params) ([]store.Params, error) {
	if len(triples) == 0 {
		return []store.Params{bound}, nil
	}

	tr := triples[0]
	candidates, err := s.candidates(ctx, tr, bound)
	if err != nil {
		return nil, err
	}

	var out []store.Params
	for _, f := range candidates {
		next, ok := bindTriple(tr, f, bound)
		if !ok {
			continue
		}
		rest, err := s.match(ctx, triples[1:], next)
		if err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

// candidates fetches the facts that can match the triple given the values
// already bound.
func (s *sqliteStore) candidates(ctx context.Context, tr store.Triple, bound store.Params) ([]store.Fact, error) {
	query := `SELECT subject, predicate, object FROM facts`
	var clauses []string
	var args []interface{}
	add := func(column string, t store.Term) {
		if !t.IsVariable() {
			clauses = append(clauses, column+" = ?")
			args = append(args, int64(t.Const))
			return
		}
		if id, ok := bound[t.Var]; ok {
			clauses = append(clauses, column+" = ?")
			args = append(args, int64(id))
		}
	}
	add("subject", tr.Subject)
	add("predicate", tr.Predicate)
	add("object", tr.Object)

	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Fact
	for rows.Next() {
		var subj, pred, obj int64
		if err := rows.Scan(&subj, &pred, &obj); err != nil {
			return nil, err
		}
		out = append(out, store.Fact{
			Subject:   store.ElementID(subj),
			Predicate: store.ElementID(pred),
			Object:    store.ElementID(obj),
		})
	}
	return out, rows.Err()
}

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

// Instantiate writes the pattern into the graph under the assignment in a
// single transaction, minting fresh elements for unbound variables.
func (s *sqliteStore) Instantiate(ctx context.Context, pattern string, params store.Params) (store.Params, bool, error) {
	p, err := s.Pattern(ctx, pattern)
	if err != nil {
		return nil, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	full := params.Clone()
	if full == nil {
		full = make(store.Params)
	}
	for _, name := range p.Variables() {
		if _, ok := full[name]; ok {
			continue
		}
		var next int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM elements`).Scan(&next); err != nil {
			return nil, false, err
		}
		var id int64
		err := tx.QueryRowContext(ctx, `
INSERT INTO elements (name) VALUES (?)
RETURNING id;
`, fmt.Sprintf("%s_%s_%d", pattern, name, next)).Scan(&id)
		if err != nil {
			return nil, false, err
		}
		full[name] = store.ElementID(id)
	}

	for _, tr := range p.Triples {
		f := store.Fact{
			Subject:   resolveTerm(tr.Subject, full),
			Predicate: resolveTerm(tr.Predicate, full),
			Object:    resolveTerm(tr.Object, full),
		}
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO facts (subject, predicate, object) VALUES (?, ?, ?);
`, int64(f.Subject), int64(f.Predicate), int64(f.Object)); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
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
