package community

import (
	"encoding/json"
	"os"
	"slices"
)

// Row is one community keyed by its primary key.
type Row struct {
	Key   string          `json:"key"`
	Cells map[string]Cell `json:"cells"`
}

func NewRow(key string) *Row {
	return &Row{Key: key, Cells: make(map[string]Cell)}
}

// Get returns the cell stored under the column header. Missing columns read as empty.
func (r *Row) Get(column string) Cell {
	if r.Cells == nil {
		return Cell{}
	}
	return r.Cells[column]
}

func (r *Row) Set(column string, c Cell) {
	if r.Cells == nil {
		r.Cells = make(map[string]Cell)
	}
	r.Cells[column] = c
}

func (r *Row) clone() *Row {
	cp := NewRow(r.Key)
	for k, v := range r.Cells {
		cp.Cells[k] = v
	}
	return cp
}

// Table is an ordered set of community rows sharing the same columns.
type Table struct {
	Key     string   `json:"key"`
	Columns []string `json:"columns"`
	Rows    []*Row   `json:"rows"`
}

func NewTable(key string, columns []string) *Table {
	return &Table{
		Key:     key,
		Columns: slices.Clone(columns),
	}
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) Append(rows ...*Row) {
	t.Rows = append(t.Rows, rows...)
}

// AddColumn registers a derived column header if it is not known yet.
func (t *Table) AddColumn(column string) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
}

func (t *Table) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}

func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		keys = append(keys, row.Key)
	}
	return keys
}

func (t *Table) Find(key string) *Row {
	for _, row := range t.Rows {
		if row.Key == key {
			return row
		}
	}
	return nil
}

// Column returns the cells of one column in row order.
func (t *Table) Column(column string) []Cell {
	cells := make([]Cell, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells = append(cells, row.Get(column))
	}
	return cells
}

// Max returns the largest numeric value in the column. ok is false when the
// column holds no numbers.
func (t *Table) Max(column string) (max float64, ok bool) {
	for _, row := range t.Rows {
		v, isNum := row.Get(column).Float()
		if !isNum {
			continue
		}
		if !ok || v > max {
			max = v
			ok = true
		}
	}
	return max, ok
}

// Clone deep-copies the table so derived columns can be attached without
// touching the caller's data.
func (t *Table) Clone() *Table {
	cp := NewTable(t.Key, t.Columns)
	cp.Rows = make([]*Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		cp.Rows = append(cp.Rows, row.clone())
	}
	return cp
}

// Keep retains rows accepted by fn, preserving order, and returns the keys of
// the dropped rows.
func (t *Table) Keep(fn func(*Row) bool) []string {
	var dropped []string
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if fn(row) {
			kept = append(kept, row)
			continue
		}
		dropped = append(dropped, row.Key)
	}
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept
	return dropped
}

// Exclude removes rows with the given keys and returns the keys actually removed.
func (t *Table) Exclude(keys []string) []string {
	return t.Keep(func(r *Row) bool {
		return !slices.Contains(keys, r.Key)
	})
}

// Join performs an inner join on the primary key. Row order follows t and
// cells of t win when both tables carry the same header.
func (t *Table) Join(other *Table) *Table {
	columns := slices.Clone(t.Columns)
	for _, c := range other.Columns {
		if !slices.Contains(columns, c) {
			columns = append(columns, c)
		}
	}

	index := make(map[string]*Row, len(other.Rows))
	for _, row := range other.Rows {
		index[row.Key] = row
	}

	joined := NewTable(t.Key, columns)
	for _, left := range t.Rows {
		right, ok := index[left.Key]
		if !ok {
			continue
		}
		row := right.clone()
		for k, v := range left.Cells {
			row.Cells[k] = v
		}
		joined.Append(row)
	}
	return joined
}

func (t *Table) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "communities_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return "", err
	}
	return file.Name(), nil
}
