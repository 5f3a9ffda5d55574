package engine

import (
	"errors"
	"testing"

	"forge-backend/internal/metadata"
)

func TestBuildFilter_NoRulesFallsBack(t *testing.T) {
	desc := &metadata.Descriptor{Name: "task_request", Model: "task"}
	e, ec := testExec(t, taskModel(), desc, nil)

	pred, ok, err := e.buildFilter(ec, map[string]any{"id": float64(7)})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	if ok || pred != nil {
		t.Fatal("types without filter rules should signal conventional key equality")
	}
}

func TestBuildFilter_ConsumesPrimaryKey(t *testing.T) {
	desc := &metadata.Descriptor{
		Name:  "task_request",
		Model: "task",
		Filters: []metadata.FilterRule{
			{Field: "version", Op: "=", Expr: "record.version"},
		},
	}
	e, ec := testExec(t, taskModel(), desc, nil)

	values := map[string]any{"id": float64(7), "version": float64(2), "title": "x"}
	pred, ok, err := e.buildFilter(ec, values)
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	if !ok {
		t.Fatal("expected declared filters to apply")
	}
	if _, present := values["id"]; present {
		t.Fatal("primary key should be consumed into the predicate, not written")
	}
	if len(pred.Conds) != 2 {
		t.Fatalf("conds = %d, want pk equality plus one rule", len(pred.Conds))
	}
	if pred.Conds[0].Column != "id" || pred.Conds[0].Value != float64(7) {
		t.Fatalf("first cond = %+v", pred.Conds[0])
	}
	if pred.Conds[1].Column != "version" || pred.Conds[1].Value != float64(2) {
		t.Fatalf("second cond = %+v", pred.Conds[1])
	}
}

func TestBuildFilter_TemplateBindsOneParam(t *testing.T) {
	desc := &metadata.Descriptor{
		Name:  "task_request",
		Model: "task",
		Filters: []metadata.FilterRule{
			{Field: "title", Expr: "record.title", Template: "lower(title) = lower(?)"},
		},
	}
	e, ec := testExec(t, taskModel(), desc, nil)

	pred, _, err := e.buildFilter(ec, map[string]any{"title": "Report"})
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	if len(pred.Conds) != 1 || pred.Conds[0].Template == "" {
		t.Fatalf("conds = %+v", pred.Conds)
	}
}

func TestBuildFilter_TemplateRejectsWrongArity(t *testing.T) {
	for _, template := range []string{"deleted_at IS NULL", "id IN (?, ?)"} {
		desc := &metadata.Descriptor{
			Name:  "task_request",
			Model: "task",
			Filters: []metadata.FilterRule{
				{Field: "title", Expr: "record.title", Template: template},
			},
		}
		e, ec := testExec(t, taskModel(), desc, nil)

		_, _, err := e.buildFilter(ec, map[string]any{"title": "x"})
		var appErr *AppError
		if !errors.As(err, &appErr) || appErr.Code != CodeUnsupportedOperation {
			t.Fatalf("template %q: err = %v, want %s", template, err, CodeUnsupportedOperation)
		}
	}
}

func TestBuildDeleteFilter_FoldsEqualityTerms(t *testing.T) {
	desc := &metadata.Descriptor{Name: "task_request", Model: "task"}
	e, ec := testExec(t, taskModel(), desc, nil)

	pred, err := e.buildDeleteFilter(ec, map[string]any{
		"status":   "open",
		"priority": float64(0), // default-valued, must not constrain
	})
	if err != nil {
		t.Fatalf("build delete filter: %v", err)
	}
	if len(pred.Conds) != 1 {
		t.Fatalf("conds = %+v, want only the non-default term", pred.Conds)
	}
	if pred.Conds[0].Column != "status" {
		t.Fatalf("cond = %+v", pred.Conds[0])
	}
}

func TestBuildDeleteFilter_RefusesUnconstrained(t *testing.T) {
	desc := &metadata.Descriptor{Name: "task_request", Model: "task"}
	e, ec := testExec(t, taskModel(), desc, nil)

	_, err := e.buildDeleteFilter(ec, map[string]any{})
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != CodeUnsupportedOperation {
		t.Fatalf("err = %v, want %s", err, CodeUnsupportedOperation)
	}
}
