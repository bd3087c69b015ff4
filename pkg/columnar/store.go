package columnar

import (
	"fmt"
)

// Table is an ordered set of equally long named columns. It is owned by one
// goroutine at a time and does no locking.
type Table struct {
	names   []string
	columns map[string]Column
	rows    int
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{
		columns: make(map[string]Column),
	}
}

// AddColumn appends a column; its length must match the existing columns
func (t *Table) AddColumn(name string, col Column) error {
	if _, exists := t.columns[name]; exists {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(t.names) > 0 && col.Len() != t.rows {
		return fmt.Errorf("column %q has %d rows, table has %d", name, col.Len(), t.rows)
	}

	t.names = append(t.names, name)
	t.columns[name] = col
	t.rows = col.Len()
	return nil
}

// Replace swaps the storage of an existing column. The row count must not change.
func (t *Table) Replace(name string, col Column) error {
	if _, exists := t.columns[name]; !exists {
		return fmt.Errorf("column %q does not exist", name)
	}
	if col.Len() != t.rows {
		return fmt.Errorf("column %q replacement has %d rows, table has %d", name, col.Len(), t.rows)
	}
	t.columns[name] = col
	return nil
}

// Column retrieves a column by name
func (t *Table) Column(name string) (Column, bool) {
	col, exists := t.columns[name]
	return col, exists
}

// NumRows returns the number of rows
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the number of columns
func (t *Table) NumColumns() int { return len(t.names) }

// ColumnNames returns the column names in table order
func (t *Table) ColumnNames() []string {
	return append([]string(nil), t.names...)
}

// MemoryUsage returns the deep size of all columns in bytes
func (t *Table) MemoryUsage() int64 {
	var total int64
	for _, name := range t.names {
		total += t.columns[name].MemoryUsage()
	}
	return total
}

// Project returns a table sharing storage with t holding only names, in that order
func (t *Table) Project(names []string) (*Table, error) {
	out := NewTable()
	for _, name := range names {
		col, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q does not exist", name)
		}
		if err := out.AddColumn(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Row formats row i in table order
func (t *Table) Row(i int) ([]string, error) {
	if i < 0 || i >= t.rows {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, t.rows)
	}

	row := make([]string, len(t.names))
	for j, name := range t.names {
		row[j] = t.columns[name].Format(i)
	}
	return row, nil
}

// Head returns up to n formatted leading rows
func (t *Table) Head(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row, _ := t.Row(i)
		rows = append(rows, row)
	}
	return rows
}
