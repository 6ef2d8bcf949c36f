package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vburojevic/buildtl/internal/layout"
)

// WhereClause represents a parsed --where condition
type WhereClause struct {
	Field    string
	Operator string
	Value    string
	regex    *regexp.Regexp // Compiled regex for ~ and !~ operators
}

// ParseWhereClause parses a where clause like "unit^Game" or "duration>=500ms"
// Supported operators: =, !=, ~, !~, >=, <=, ^, $
func ParseWhereClause(clause string) (*WhereClause, error) {
	// Try operators in order of length (longest first to avoid partial matches)
	operators := []string{"!~", ">=", "<=", "!=", "~", "=", "^", "$"}

	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx > 0 {
			field := strings.ToLower(strings.TrimSpace(clause[:idx]))
			value := strings.TrimSpace(clause[idx+len(op):])

			if field == "" || value == "" {
				return nil, fmt.Errorf("invalid where clause: %s", clause)
			}
			if !knownField(field) {
				return nil, fmt.Errorf("unknown field %q in where clause (use unit, iteration, slot, duration, offset, errors, warnings, running, synthesized)", field)
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
			if op == ">=" || op == "<=" {
				if _, err := wc.parseNumber(value); err != nil {
					return nil, fmt.Errorf("invalid value in where clause '%s': %w", clause, err)
				}
			}

			return wc, nil
		}
	}

	return nil, fmt.Errorf("no valid operator found in where clause: %s (use =, !=, ~, !~, >=, <=, ^, $)", clause)
}

func knownField(field string) bool {
	switch field {
	case "unit", "iteration", "slot", "duration", "offset", "errors", "warnings", "running", "synthesized":
		return true
	}
	return false
}

// Match checks if a row matches this where clause
func (wc *WhereClause) Match(row *layout.Row) bool {
	fieldValue := wc.getFieldValue(row)

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
	case ">=":
		return wc.compare(row, true)
	case "<=":
		return wc.compare(row, false)
	}

	return false
}

// getFieldValue renders the field as text for string operators
func (wc *WhereClause) getFieldValue(row *layout.Row) string {
	switch wc.Field {
	case "unit":
		return row.Unit
	case "iteration":
		return row.Iteration
	case "slot":
		return strconv.Itoa(row.Slot)
	case "duration":
		return row.Duration.String()
	case "offset":
		return row.Offset.String()
	case "errors":
		return strconv.Itoa(row.Errors)
	case "warnings":
		return strconv.Itoa(row.Warnings)
	case "running":
		return strconv.FormatBool(row.Running)
	case "synthesized":
		return strconv.FormatBool(row.Synthesized)
	default:
		return ""
	}
}

// numeric returns the field as a number: nanoseconds for durations
func (wc *WhereClause) numeric(row *layout.Row) (float64, bool) {
	switch wc.Field {
	case "slot":
		return float64(row.Slot), true
	case "duration":
		return float64(row.Duration), true
	case "offset":
		return float64(row.Offset), true
	case "errors":
		return float64(row.Errors), true
	case "warnings":
		return float64(row.Warnings), true
	default:
		return 0, false
	}
}

func (wc *WhereClause) parseNumber(value string) (float64, error) {
	switch wc.Field {
	case "duration", "offset":
		d, err := time.ParseDuration(value)
		return float64(d), err
	case "slot", "errors", "warnings":
		n, err := strconv.Atoi(value)
		return float64(n), err
	default:
		return 0, fmt.Errorf("field %s does not support >= or <=", wc.Field)
	}
}

// compare handles >= and <= for numeric and duration fields
func (wc *WhereClause) compare(row *layout.Row, greaterOrEqual bool) bool {
	got, ok := wc.numeric(row)
	if !ok {
		return false
	}
	target, err := wc.parseNumber(wc.Value)
	if err != nil {
		return false
	}
	if greaterOrEqual {
		return got >= target
	}
	return got <= target
}

// WhereFilter is a filter that applies multiple where clauses (AND logic)
type WhereFilter struct {
	clauses []*WhereClause
}

// NewWhereFilter creates a filter from multiple where clause strings
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

// Match returns true if the row matches ALL where clauses (AND logic)
func (f *WhereFilter) Match(row *layout.Row) bool {
	if f == nil {
		return true
	}
	for _, clause := range f.clauses {
		if !clause.Match(row) {
			return false
		}
	}
	return true
}
