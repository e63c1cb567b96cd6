// Package table implements the append-only tabular store: a fixed column
// schema, an immutable row sequence, a delimited text codec and the
// load/append/persist/filter/clear operations built on top of them.
package table

import (
	"fmt"
	"strings"
)

// Kind describes how a column's text values are interpreted by callers.
// The store itself keeps every value as text.
type Kind string

const (
	KindText    Kind = "text"
	KindDate    Kind = "date"
	KindTime    Kind = "time"
	KindInteger Kind = "integer"
)

// NameColumn is the patient identifier column every schema must declare.
const NameColumn = "Name"

// Column declares one schema column.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Schema is the ordered column set a Table exposes.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema validates and constructs a schema. Column names must be unique,
// non-empty and include NameColumn.
func NewSchema(columns ...Column) (Schema, error) {
	if len(columns) == 0 {
		return Schema{}, fmt.Errorf("schema requires at least one column")
	}
	index := make(map[string]int, len(columns))
	cols := make([]Column, len(columns))
	for i, c := range columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return Schema{}, fmt.Errorf("column %d has empty name", i)
		}
		if _, dup := index[name]; dup {
			return Schema{}, fmt.Errorf("duplicate column %q", name)
		}
		if c.Kind == "" {
			c.Kind = KindText
		}
		c.Name = name
		cols[i] = c
		index[name] = i
	}
	if _, ok := index[NameColumn]; !ok {
		return Schema{}, fmt.Errorf("schema must declare %q column", NameColumn)
	}
	return Schema{columns: cols, index: index}, nil
}

// MustSchema is NewSchema for package-level schema declarations.
func MustSchema(columns ...Column) Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns a copy of the declared columns in order.
func (s Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// Names returns the column names in declared order.
func (s Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Len reports the number of columns.
func (s Schema) Len() int { return len(s.columns) }

// Index returns the position of the named column.
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Column returns the named column declaration.
func (s Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Has reports whether the schema declares name.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Equal reports whether both schemas declare the same columns in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.columns) != len(other.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != other.columns[i] {
			return false
		}
	}
	return true
}
