package bindings

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/noema/pkg/noema/store"
)

// Keys returns the sorted variable names of a replacements map.
func Keys(reps store.Replacements) []string {
	out := make([]string, 0, len(reps))
	for name := range reps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Rows returns the number of aligned solution rows. Columns are expected to
// be equal length; the shortest column bounds the count so a ragged map can
// never yield a partial assignment.
func Rows(reps store.Replacements) int {
	rows := -1
	for _, col := range reps {
		if rows < 0 || len(col) < rows {
			rows = len(col)
		}
	}
	if rows < 0 {
		return 0
	}
	return rows
}

// ToParams converts a replacements map into one concrete assignment per
// solution row.
func ToParams(reps store.Replacements) []store.Params {
	rows := Rows(reps)
	if rows == 0 {
		return nil
	}
	names := Keys(reps)
	out := make([]store.Params, rows)
	for i := 0; i < rows; i++ {
		params := make(store.Params, len(names))
		for _, name := range names {
			params[name] = reps[name][i]
		}
		out[i] = params
	}
	return out
}

// FromParams converts assignments back into an aligned replacements map.
// Assignments must share the same key set; those that do not are skipped.
func FromParams(paramsList []store.Params) store.Replacements {
	reps := make(store.Replacements)
	if len(paramsList) == 0 {
		return reps
	}
	names := make([]string, 0, len(paramsList[0]))
	for name := range paramsList[0] {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, params := range paramsList {
		if len(params) != len(names) {
			continue
		}
		complete := true
		for _, name := range names {
			if _, ok := params[name]; !ok {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for _, name := range names {
			reps[name] = append(reps[name], params[name])
		}
	}
	return reps
}

// Union merges two replacements maps row-wise, dropping duplicate rows. Both
// maps are expected to cover the same variables; when the key sets differ,
// rows missing any of the combined variables are dropped since they cannot
// form a complete assignment.
func Union(a, b store.Replacements) store.Replacements {
	if len(a) == 0 {
		return clone(b)
	}
	if len(b) == 0 {
		return clone(a)
	}

	names := Keys(a)
	for _, name := range Keys(b) {
		if _, ok := a[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make(store.Replacements, len(names))
	seen := make(map[string]struct{})
	appendRows := func(src store.Replacements) {
		for i := 0; i < Rows(src); i++ {
			row := make([]store.ElementID, len(names))
			ok := true
			for j, name := range names {
				col, has := src[name]
				if !has {
					ok = false
					break
				}
				row[j] = col[i]
			}
			if !ok {
				continue
			}
			key := rowKey(row)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			for j, name := range names {
				out[name] = append(out[name], row[j])
			}
		}
	}
	appendRows(a)
	appendRows(b)
	return out
}

func clone(reps store.Replacements) store.Replacements {
	out := make(store.Replacements, len(reps))
	for name, col := range reps {
		vals := make([]store.ElementID, len(col))
		copy(vals, col)
		out[name] = vals
	}
	return out
}

func rowKey(row []store.ElementID) string {
	var b strings.Builder
	for _, id := range row {
		b.WriteString(strconv.FormatInt(int64(id), 10))
		b.WriteByte('|')
	}
	return b.String()
}
