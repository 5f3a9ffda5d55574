package engine

import (
	"fmt"
	"sort"
	"strings"

	"forge-backend/internal/store"
)

// buildFilter constructs the update/delete predicate from the primary key
// plus declared filter rules. Returns ok=false when the type declares no
// filter rules, signaling the caller to use conventional key equality. When
// filters exist and the primary key is present in the value map it is
// consumed as an equality term rather than a written column.
func (e *Executor) buildFilter(ec *ExecContext, values map[string]any) (*store.Predicate, bool, error) {
	meta := ec.Meta
	if len(meta.Filters) == 0 {
		return nil, false, nil
	}

	pred := &store.Predicate{}
	pkCol := meta.Model.PrimaryKey.Field
	if pk, ok := values[pkCol]; ok {
		delete(values, pkCol)
		pred.And(pkCol, "=", pk)
	}

	env := baseEnv(ec.Request, values, "filter")
	for _, rule := range meta.Filters {
		val, err := e.eval.Evaluate(rule.Expr, env)
		if err != nil {
			return nil, false, fmt.Errorf("filter on %s: %w", rule.Field, err)
		}
		if rule.Template != "" {
			if strings.Count(rule.Template, "?") != 1 {
				return nil, false, UnsupportedOperationError(
					"filter template for %s must bind exactly one parameter", rule.Field)
			}
			pred.AndTemplate(rule.Template, val)
			continue
		}
		column := meta.Column(rule.Field)
		pred.And(column, rule.Op, val)
	}

	return pred, true, nil
}

// buildDeleteFilter produces the delete predicate. Without declared filters
// the full remaining value map becomes an equality match; an empty map is an
// unconstrained delete and is refused. With filters, leftover non-default
// values fold in as extra equality terms.
func (e *Executor) buildDeleteFilter(ec *ExecContext, values map[string]any) (*store.Predicate, error) {
	pred, ok, err := e.buildFilter(ec, values)
	if err != nil {
		return nil, err
	}

	if !ok {
		pred = &store.Predicate{}
	}
	for _, column := range sortedKeys(values) {
		v := values[column]
		if isZeroValue(v) {
			continue
		}
		pred.And(column, "=", v)
	}

	if pred.Empty() {
		return nil, UnsupportedOperationError("unconstrained delete on %s is not allowed", ec.Meta.Model.Table)
	}
	return pred, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
