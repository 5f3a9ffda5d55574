package engine

import (
	"testing"

	"forge-backend/internal/metadata"
)

func TestEvaluateFieldRule_Min(t *testing.T) {
	rule := metadata.Rule{
		Type: "field", Field: "total", Operator: "min", Value: float64(0),
		Message: "total must be non-negative",
	}

	if detail := evaluateFieldRule(rule, map[string]any{"total": float64(-5)}); detail == nil {
		t.Fatal("expected violation for total=-5")
	} else if detail.Rule != "min" || detail.Field != "total" {
		t.Fatalf("detail = %+v", detail)
	}
	if detail := evaluateFieldRule(rule, map[string]any{"total": float64(0)}); detail != nil {
		t.Fatalf("expected pass for total=0, got %+v", detail)
	}
	// Absent fields pass; presence is a schema concern.
	if detail := evaluateFieldRule(rule, map[string]any{}); detail != nil {
		t.Fatalf("expected pass for absent field, got %+v", detail)
	}
}

func TestEvaluateFieldRule_Lengths(t *testing.T) {
	minRule := metadata.Rule{Type: "field", Field: "name", Operator: "min_length", Value: float64(3)}
	if detail := evaluateFieldRule(minRule, map[string]any{"name": "ab"}); detail == nil {
		t.Fatal("expected violation for short name")
	}
	if detail := evaluateFieldRule(minRule, map[string]any{"name": "abc"}); detail != nil {
		t.Fatalf("expected pass, got %+v", detail)
	}

	maxRule := metadata.Rule{Type: "field", Field: "code", Operator: "max_length", Value: float64(4)}
	if detail := evaluateFieldRule(maxRule, map[string]any{"code": "toolong"}); detail == nil {
		t.Fatal("expected violation for long code")
	}
}

func TestEvaluateFieldRule_Pattern(t *testing.T) {
	rule := metadata.Rule{
		Type: "field", Field: "email", Operator: "pattern", Value: `^[^@]+@[^@]+$`,
	}
	if detail := evaluateFieldRule(rule, map[string]any{"email": "not-an-email"}); detail == nil {
		t.Fatal("expected violation for malformed email")
	}
	if detail := evaluateFieldRule(rule, map[string]any{"email": "a@b.com"}); detail != nil {
		t.Fatalf("expected pass, got %+v", detail)
	}
}

func TestCheckRules_ExpressionAndStopOnFail(t *testing.T) {
	desc := &metadata.Descriptor{
		Name:  "task_request",
		Model: "task",
		Rules: []metadata.Rule{
			{Type: "field", Field: "priority", Operator: "max", Value: float64(5),
				StopOnFail: true, Message: "priority too high"},
			{Type: "expression", Expression: `record.status == "closed" and record.priority > 0`,
				Message: "closed tasks cannot carry priority"},
		},
	}
	e, ec := testExec(t, taskModel(), desc, nil)

	// StopOnFail short-circuits the expression rule.
	errs := e.checkRules(ec, map[string]any{"priority": float64(9), "status": "closed"}, "update")
	if len(errs) != 1 || errs[0].Message != "priority too high" {
		t.Fatalf("errs = %+v", errs)
	}

	// With the field rule passing, the expression rule fires.
	errs = e.checkRules(ec, map[string]any{"priority": float64(2), "status": "closed"}, "update")
	if len(errs) != 1 || errs[0].Rule != "expression" {
		t.Fatalf("errs = %+v", errs)
	}

	// Clean record passes everything.
	errs = e.checkRules(ec, map[string]any{"priority": float64(2), "status": "open"}, "update")
	if len(errs) != 0 {
		t.Fatalf("errs = %+v", errs)
	}
}
