// Package table implements the column-oriented feature table shared by the
// feature builder and the model trainer. Rows are trials in epoch-store
// order; columns are named scalar features. Concatenation is strictly
// positional: inputs must already agree on row count and ordering, and a
// mismatch is an error rather than a silent misalignment.
package table

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Table is a column-major table of float64 scalars with ordered,
// unique column names.
type Table struct {
	columns []string
	values  [][]float64 // one slice per column, all equal length
	index   map[string]int
}

// New returns an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// NumRows returns the row count (0 for an empty table).
func (t *Table) NumRows() int {
	if len(t.values) == 0 {
		return 0
	}
	return len(t.values[0])
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column returns the values of a named column.
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("no such column %q", name)
	}
	return t.values[i], nil
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends a column. The name must be unique and, for a non-empty
// table, the value count must equal the existing row count.
func (t *Table) AddColumn(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("duplicate column %q", name)
	}
	if t.NumCols() > 0 && len(values) != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", name, len(values), t.NumRows())
	}

	col := make([]float64, len(values))
	copy(col, values)
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	t.values = append(t.values, col)
	return nil
}

// HConcat returns a new table holding the columns of t followed by the
// columns of other. Both inputs must have identical row counts; duplicate
// column names are rejected.
func HConcat(tables ...*Table) (*Table, error) {
	out := New()
	for _, t := range tables {
		if t == nil || t.NumCols() == 0 {
			continue
		}
		if out.NumCols() > 0 && t.NumRows() != out.NumRows() {
			return nil, fmt.Errorf("row count mismatch: %d vs %d", out.NumRows(), t.NumRows())
		}
		for i, name := range t.columns {
			if err := out.AddColumn(name, t.values[i]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Row materializes one row across the named columns.
func (t *Table) Row(i int, cols []string) ([]float64, error) {
	if i < 0 || i >= t.NumRows() {
		return nil, fmt.Errorf("row %d out of range [0, %d)", i, t.NumRows())
	}
	out := make([]float64, len(cols))
	for j, name := range cols {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out[j] = col[i]
	}
	return out, nil
}

// Without returns a copy of t excluding the named columns.
func (t *Table) Without(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := New()
	for i, name := range t.columns {
		if !skip[name] {
			_ = out.AddColumn(name, t.values[i])
		}
	}
	return out
}

// DropNaNColumns returns a copy of t without any column that contains a
// NaN or infinite value.
func (t *Table) DropNaNColumns() *Table {
	out := New()
	for i, name := range t.columns {
		clean := true
		for _, v := range t.values[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				clean = false
				break
			}
		}
		if clean {
			// AddColumn cannot fail here: names are already unique and
			// lengths already agree.
			_ = out.AddColumn(name, t.values[i])
		}
	}
	return out
}

// jsonTable is the persisted form. A map would lose column order, so the
// ordered slices are serialized directly.
type jsonTable struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// MarshalJSON implements json.Marshaler.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonTable{Columns: t.columns, Values: t.values})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Table) UnmarshalJSON(data []byte) error {
	var jt jsonTable
	if err := json.Unmarshal(data, &jt); err != nil {
		return err
	}
	if len(jt.Columns) != len(jt.Values) {
		return fmt.Errorf("corrupt table: %d column names, %d value columns", len(jt.Columns), len(jt.Values))
	}

	*t = *New()
	for i, name := range jt.Columns {
		if err := t.AddColumn(name, jt.Values[i]); err != nil {
			return fmt.Errorf("corrupt table: %w", err)
		}
	}
	return nil
}

// Save writes the table to a JSON file.
func (t *Table) Save(path string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write table %s: %w", path, err)
	}
	return nil
}

// Load reads a table previously written by Save.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	t := New()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", path, err)
	}
	return t, nil
}
