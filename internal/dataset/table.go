package dataset

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the logical type of a table column. It drives both the parquet
// schema mapping and the normalization steps.
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindTimestamp
	KindDuration
)

type Column struct {
	Name string
	Kind Kind
}

// Table is an in-memory tabular result: ordered named columns plus row values
// aligned by index. It is created per query execution and consumed by the
// materializer.
type Table struct {
	Columns []Column
	Rows    [][]any
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// AppendConstant adds a column holding the same value in every row.
func (t *Table) AppendConstant(name string, kind Kind, value any) {
	t.Columns = append(t.Columns, Column{Name: name, Kind: kind})
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// AppendDerived adds a column computed from each row.
func (t *Table) AppendDerived(name string, kind Kind, derive func(row []any) any) {
	t.Columns = append(t.Columns, Column{Name: name, Kind: kind})
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], derive(t.Rows[i]))
	}
}

// CastToString rewrites the column at index to its text representation.
func (t *Table) CastToString(index int) {
	if index < 0 || index >= len(t.Columns) {
		return
	}
	t.Columns[index].Kind = KindString
	for i := range t.Rows {
		t.Rows[i][index] = Stringify(t.Rows[i][index])
	}
}

// RenameColumn renames the first column matching from. Missing columns are a
// no-op, matching the forgiving behavior of the per-dataset dictionaries.
func (t *Table) RenameColumn(from, to string) {
	if i := t.ColumnIndex(from); i >= 0 {
		t.Columns[i].Name = to
	}
}

// DropColumn removes the named column and its values from every row.
func (t *Table) DropColumn(name string) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return
	}
	t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r][:i], t.Rows[r][i+1:]...)
	}
}

// Stringify renders a cell value as text. Timestamps use the source-database
// text form so partition keys can be sliced out of them; nil renders empty.
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	case time.Time:
		return value.Format("2006-01-02 15:04:05")
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
