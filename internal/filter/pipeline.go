package filter

import (
	"regexp"

	"github.com/samber/lo"

	"github.com/vburojevic/buildtl/internal/layout"
)

// Pipeline combines a unit pattern, unit excludes and where clauses
type Pipeline struct {
	pattern  *regexp.Regexp
	excludes []*regexp.Regexp
	where    *WhereFilter
}

// NewPipeline returns nil when no filters are given; a nil Pipeline matches everything
func NewPipeline(pattern *regexp.Regexp, excludes []*regexp.Regexp, where *WhereFilter) *Pipeline {
	if pattern == nil && len(excludes) == 0 && where == nil {
		return nil
	}
	return &Pipeline{pattern: pattern, excludes: excludes, where: where}
}

// Match applies pattern, then excludes, then where clauses
func (p *Pipeline) Match(row *layout.Row) bool {
	if p == nil {
		return true
	}
	if p.pattern != nil && !p.pattern.MatchString(row.Unit) {
		return false
	}
	for _, ex := range p.excludes {
		if ex.MatchString(row.Unit) {
			return false
		}
	}
	return p.where.Match(row)
}

// Apply returns the rows that match
func (p *Pipeline) Apply(rows []layout.Row) []layout.Row {
	if p == nil {
		return rows
	}
	return lo.Filter(rows, func(r layout.Row, _ int) bool { return p.Match(&r) })
}
