package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vburojevic/eruption-sensor/internal/domain"
)

// WhereClause represents a parsed --where condition
type WhereClause struct {
	Field    string
	Operator string
	Value    string
	regex    *regexp.Regexp // Compiled regex for ~ and !~ operators
}

// ParseWhereClause parses a where clause like "class=firefox" or "title~Mozilla"
// Supported operators: =, !=, ~, !~, ^, $
func ParseWhereClause(clause string) (*WhereClause, error) {
	// Try operators in order of length (longest first to avoid partial matches)
	operators := []string{"!~", "!=", "~", "=", "^", "$"}

	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx > 0 {
			field := strings.ToLower(strings.TrimSpace(clause[:idx]))
			value := strings.TrimSpace(clause[idx+len(op):])

			if field == "" || value == "" {
				return nil, fmt.Errorf("invalid where clause: %s", clause)
			}
			if !knownField(field) {
				return nil, fmt.Errorf("unknown field %q in where clause (use title, class)", field)
			}

			wc := &WhereClause{
				Field:    field,
				Operator: op,
				Value:    value,
			}

			// Pre-compile regex for ~ and !~ operators
			if op == "~" || op == "!~" {
				re, err := regexp.Compile(value)
				if err != nil {
					return nil, fmt.Errorf("invalid regex in where clause '%s': %w", clause, err)
				}
				wc.regex = re
			}

			return wc, nil
		}
	}

	return nil, fmt.Errorf("no valid operator found in where clause: %s (use =, !=, ~, !~, ^, $)", clause)
}

// Match checks if a focus event matches this where clause
func (wc *WhereClause) Match(event *domain.FocusEvent) bool {
	fieldValue := wc.getFieldValue(event)

	switch wc.Operator {
	case "=":
		return fieldValue == wc.Value
	case "!=":
		return fieldValue != wc.Value
	case "~":
		return wc.regex.MatchString(fieldValue)
	case "!~":
		return !wc.regex.MatchString(fieldValue)
	case "^":
		return strings.HasPrefix(fieldValue, wc.Value)
	case "$":
		return strings.HasSuffix(fieldValue, wc.Value)
	}

	return false
}

func knownField(field string) bool {
	switch field {
	case "title", "window_title", "class", "window_class":
		return true
	}
	return false
}

// getFieldValue extracts the field value from a focus event
func (wc *WhereClause) getFieldValue(event *domain.FocusEvent) string {
	switch wc.Field {
	case "title", "window_title":
		return event.WindowTitle
	case "class", "window_class":
		return event.WindowClass
	default:
		return ""
	}
}

// WhereFilter is a filter that applies multiple where clauses (AND logic)
type WhereFilter struct {
	clauses []*WhereClause
}

// NewWhereFilter creates a filter from multiple where clause strings.
// It returns nil when no clauses are given; a nil filter matches everything.
func NewWhereFilter(whereClauses []string) (*WhereFilter, error) {
	if len(whereClauses) == 0 {
		return nil, nil
	}

	filter := &WhereFilter{}
	for _, clause := range whereClauses {
		wc, err := ParseWhereClause(clause)
		if err != nil {
			return nil, err
		}
		filter.clauses = append(filter.clauses, wc)
	}

	return filter, nil
}

// Match returns true if the event matches ALL where clauses (AND logic)
func (f *WhereFilter) Match(event *domain.FocusEvent) bool {
	if f == nil {
		return true
	}
	for _, clause := range f.clauses {
		if !clause.Match(event) {
			return false
		}
	}
	return true
}
