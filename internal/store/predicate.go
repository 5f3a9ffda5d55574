package store

import (
	"fmt"
	"strings"
)

// Cond is one predicate term. Either Column+Op compare against Value, or
// Template is a raw SQL fragment whose single ? placeholder binds Value.
// Values are always bound parameters, never interpolated.
type Cond struct {
	Column   string
	Op       string // =, !=, <, <=, >, >=, LIKE; defaults to =
	Value    any
	Template string
}

// Predicate is an AND-ed list of conditions, rendered per dialect.
type Predicate struct {
	Conds []Cond
}

// And appends an equality or comparison term.
func (p *Predicate) And(column, op string, value any) *Predicate {
	p.Conds = append(p.Conds, Cond{Column: column, Op: op, Value: value})
	return p
}

// AndTemplate appends a raw fragment with exactly one ? placeholder.
func (p *Predicate) AndTemplate(template string, value any) *Predicate {
	p.Conds = append(p.Conds, Cond{Template: template, Value: value})
	return p
}

// Empty reports whether the predicate has no terms.
func (p *Predicate) Empty() bool {
	return p == nil || len(p.Conds) == 0
}

// Render produces the WHERE fragment (without the WHERE keyword), adding one
// bound parameter per condition to pb.
func (p *Predicate) Render(d Dialect, pb ParamBuilder) string {
	parts := make([]string, 0, len(p.Conds))
	for _, c := range p.Conds {
		ph := pb.Add(c.Value)
		if c.Template != "" {
			parts = append(parts, strings.Replace(c.Template, "?", ph, 1))
			continue
		}
		op := c.Op
		if op == "" {
			op = "="
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", d.QuoteIdent(c.Column), op, ph))
	}
	return strings.Join(parts, " AND ")
}
