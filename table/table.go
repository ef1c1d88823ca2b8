// Package table holds the uniform tabular representation every dataset is loaded into.
package table

import (
	"encoding/json"
	"slices"
	"sort"

	"github.com/shiro46mt/jp-medicine-master/catalog"
)

// ProvenanceColumn holds the identifier of the file a row was loaded from.
const ProvenanceColumn = "file"

// Row maps a column name to its value. Missing columns read as null.
type Row map[string]Value

// Get returns the value of col, null when absent.
func (r Row) Get(col string) Value { return r[col] }

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Table is an ordered set of rows sharing one header.
type Table struct {
	Kind    catalog.Kind
	Source  string // resolved file identifier, empty for derived tables
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given header.
func New(kind catalog.Kind, source string, columns []string) *Table {
	return &Table{
		Kind:    kind,
		Source:  source,
		Columns: slices.Clone(columns),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether name is part of the header.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Append adds a row.
func (t *Table) Append(r Row) { t.Rows = append(t.Rows, r) }

// Rename renames a column in the header and in every row. It reports whether from existed.
// Renaming onto an existing column replaces it.
func (t *Table) Rename(from, to string) bool {
	i := slices.Index(t.Columns, from)
	if i < 0 {
		return false
	}
	if j := slices.Index(t.Columns, to); j >= 0 && j != i {
		t.Columns = slices.Delete(t.Columns, j, j+1)
		if j < i {
			i--
		}
	}
	t.Columns[i] = to

	for _, r := range t.Rows {
		if v, ok := r[from]; ok {
			delete(r, from)
			r[to] = v
		} else {
			delete(r, to)
		}
	}
	return true
}

// AddColumn appends a column computed from each row. An existing column of the same name
// is overwritten in place.
func (t *Table) AddColumn(name string, fn func(Row) Value) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
	for _, r := range t.Rows {
		r[name] = fn(r)
	}
}

// Filter returns a new table holding the rows for which keep is true. Rows are shared.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Kind, t.Source, t.Columns)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Select projects the table onto cols, in that order. Unknown columns come out null.
func (t *Table) Select(cols ...string) *Table {
	out := New(t.Kind, t.Source, cols)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// SortStableBy sorts rows by the string form of col, keeping the relative order of ties.
func (t *Table) SortStableBy(col string) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i][col].String() < t.Rows[j][col].String()
	})
}

// Records renders the header followed by every row as strings, in column order.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, slices.Clone(t.Columns))
	for _, r := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = r[c].String()
		}
		out = append(out, rec)
	}
	return out
}

type jsonTable struct {
	Kind    catalog.Kind `json:"kind"`
	Source  string       `json:"source,omitempty"`
	Columns []string     `json:"columns"`
	Rows    [][]Value    `json:"rows"`
}

// MarshalJSON writes rows as arrays aligned with columns so column order survives.
func (t *Table) MarshalJSON() ([]byte, error) {
	jt := jsonTable{
		Kind:    t.Kind,
		Source:  t.Source,
		Columns: t.Columns,
		Rows:    make([][]Value, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		vals := make([]Value, len(t.Columns))
		for i, c := range t.Columns {
			vals[i] = r[c]
		}
		jt.Rows = append(jt.Rows, vals)
	}
	return json.Marshal(jt)
}
