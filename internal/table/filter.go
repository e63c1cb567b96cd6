package table

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// MatchMode selects how Filter compares patient names.
type MatchMode string

const (
	// MatchExact keeps rows whose trimmed, case-folded Name equals the query.
	MatchExact MatchMode = "exact"
	// MatchContains keeps rows whose trimmed, case-folded Name contains the query.
	MatchContains MatchMode = "contains"
)

// ParseMatchMode maps a configuration string to a MatchMode. Empty selects MatchExact.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchContains:
		return MatchContains, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", s)
	}
}

// FoldName normalizes a patient name for comparison.
func FoldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Filter returns the rows whose Name matches name under mode. A blank name
// means no filter and returns t unchanged.
func (t Table) Filter(name string, mode MatchMode) Table {
	query := FoldName(name)
	if query == "" {
		return t
	}
	col, ok := t.schema.Index(NameColumn)
	if !ok {
		return New(t.schema)
	}
	caser := cases.Fold()
	keep := make([]int, 0, len(t.rows))
	for i, row := range t.rows {
		candidate := caser.String(strings.TrimSpace(row[col]))
		var match bool
		switch mode {
		case MatchContains:
			match = strings.Contains(candidate, query)
		default:
			match = candidate == query
		}
		if match {
			keep = append(keep, i)
		}
	}
	return t.selectRows(keep)
}

// FilterExact is Filter with MatchExact.
func FilterExact(t Table, name string) Table {
	return t.Filter(name, MatchExact)
}
