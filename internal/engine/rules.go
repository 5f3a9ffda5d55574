package engine

import (
	"fmt"
	"regexp"

	"forge-backend/internal/metadata"
)

// checkRules runs the type's declarative validation rules against the
// resolved values. Field rules run first, then expression rules; a
// StopOnFail rule short-circuits the rest.
func (e *Executor) checkRules(ec *ExecContext, values map[string]any, action string) []ErrorDetail {
	rules := ec.Meta.Rules
	if len(rules) == 0 {
		return nil
	}

	env := baseEnv(ec.Request, values, action)

	var errs []ErrorDetail
	for _, r := range rules {
		if r.Type != "field" {
			continue
		}
		if detail := evaluateFieldRule(r, values); detail != nil {
			errs = append(errs, *detail)
			if r.StopOnFail {
				return errs
			}
		}
	}

	for _, r := range rules {
		if r.Type != "expression" {
			continue
		}
		if detail := e.evaluateExpressionRule(r, env); detail != nil {
			errs = append(errs, *detail)
			if r.StopOnFail {
				return errs
			}
		}
	}

	return errs
}

// evaluateFieldRule checks one field rule. Absent fields pass; required-ness
// is a schema concern, not a rule concern.
func evaluateFieldRule(rule metadata.Rule, record map[string]any) *ErrorDetail {
	val, exists := record[rule.Field]
	if !exists || val == nil {
		return nil
	}

	msg := rule.Message
	if msg == "" {
		msg = fmt.Sprintf("field %s failed %s validation", rule.Field, rule.Operator)
	}

	switch rule.Operator {
	case "min":
		num, ok := toFloat64(val)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if num < threshold {
			return &ErrorDetail{Field: rule.Field, Rule: "min", Message: msg}
		}

	case "max":
		num, ok := toFloat64(val)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if num > threshold {
			return &ErrorDetail{Field: rule.Field, Rule: "max", Message: msg}
		}

	case "min_length":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if len(s) < int(threshold) {
			return &ErrorDetail{Field: rule.Field, Rule: "min_length", Message: msg}
		}

	case "max_length":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if len(s) > int(threshold) {
			return &ErrorDetail{Field: rule.Field, Rule: "max_length", Message: msg}
		}

	case "pattern":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		pattern, ok := rule.Value.(string)
		if !ok {
			return nil
		}
		matched, err := regexp.MatchString(pattern, s)
		if err != nil || !matched {
			return &ErrorDetail{Field: rule.Field, Rule: "pattern", Message: msg}
		}
	}

	return nil
}

// evaluateExpressionRule runs an expression rule; the rule is violated when
// the expression evaluates true.
func (e *Executor) evaluateExpressionRule(rule metadata.Rule, env map[string]any) *ErrorDetail {
	result, err := e.eval.Evaluate(rule.Expression, env)
	if err != nil {
		return &ErrorDetail{Rule: "expression", Message: fmt.Sprintf("rule evaluation error: %v", err)}
	}

	violated, ok := result.(bool)
	if !ok || !violated {
		return nil
	}

	msg := rule.Message
	if msg == "" {
		msg = "Expression rule violated"
	}
	return &ErrorDetail{Rule: "expression", Message: msg}
}

// toFloat64 converts numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
