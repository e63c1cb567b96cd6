package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Record maps column names to text values for a single observation.
type Record map[string]string

// ErrMissingColumn is returned when an appended record omits a schema column.
var ErrMissingColumn = errors.New("record missing schema column")

// MissingColumnError names the columns a record failed to supply.
type MissingColumnError struct {
	Columns []string
}

func (e MissingColumnError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissingColumn, strings.Join(e.Columns, ", "))
}

// Is lets errors.Is match ErrMissingColumn.
func (e MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// Table is an ordered, immutable sequence of rows sharing one schema.
// Operations that change the row set return a new Table.
type Table struct {
	schema Schema
	rows   [][]string
}

// New returns an empty table with the given schema.
func New(schema Schema) Table {
	return Table{schema: schema}
}

// Clear returns an empty, schema-only table. Persisting it overwrites all
// prior rows.
func Clear(schema Schema) Table { return New(schema) }

// Schema returns the table's column schema.
func (t Table) Schema() Schema { return t.schema }

// Len reports the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Value returns the text value of column in row i.
func (t Table) Value(i int, column string) string {
	c, ok := t.schema.Index(column)
	if !ok || i < 0 || i >= len(t.rows) {
		return ""
	}
	return t.rows[i][c]
}

// Row returns row i as a Record.
func (t Table) Row(i int) Record {
	rec := make(Record, t.schema.Len())
	for c, name := range t.schema.Names() {
		rec[name] = t.rows[i][c]
	}
	return rec
}

// Rows returns all rows as Records in order.
func (t Table) Rows() []Record {
	out := make([]Record, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Values returns row i as a slice aligned with the schema column order.
func (t Table) Values(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// lineBreaks folds CRLF and lone CR to LF. The delimited reader reports every
// quoted line break as LF, so only LF values survive a round trip.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// FoldLineBreaks returns s with CRLF and CR line breaks replaced by LF.
func FoldLineBreaks(s string) string { return lineBreaks.Replace(s) }

// Append returns a new table with rec added after the existing rows. Every
// schema column must be present in rec, an empty string counts as present.
// Line breaks inside values are stored as LF. The receiver is left untouched.
func (t Table) Append(rec Record) (Table, error) {
	row := make([]string, t.schema.Len())
	var missing []string
	for i, name := range t.schema.Names() {
		v, ok := rec[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		row[i] = lineBreaks.Replace(v)
	}
	if len(missing) > 0 {
		return t, MissingColumnError{Columns: missing}
	}
	return Table{schema: t.schema, rows: append(slices.Clip(t.rows), row)}, nil
}

// appendRaw adds a row already aligned with the schema. Used by the decoder.
func (t *Table) appendRaw(row []string) {
	t.rows = append(t.rows, row)
}

// selectRows returns a table containing the rows at the given positions.
func (t Table) selectRows(keep []int) Table {
	rows := make([][]string, len(keep))
	for i, idx := range keep {
		rows[i] = t.rows[idx]
	}
	return Table{schema: t.schema, rows: rows}
}
