package store

import "testing"

func TestPredicateRender_Postgres(t *testing.T) {
	d := NewDialect("postgres")
	pb := d.NewParamBuilder()

	pred := (&Predicate{}).And("name", "=", "alice").And("age", ">", 30)
	got := pred.Render(d, pb)

	want := `"name" = $1 AND "age" > $2`
	if got != want {
		t.Fatalf("render = %q, want %q", got, want)
	}
	params := pb.Params()
	if len(params) != 2 || params[0] != "alice" || params[1] != 30 {
		t.Fatalf("params = %v", params)
	}
}

func TestPredicateRender_SQLite(t *testing.T) {
	d := NewDialect("sqlite")
	pb := d.NewParamBuilder()

	pred := (&Predicate{}).And("status", "", "open")
	got := pred.Render(d, pb)

	want := `"status" = ?1`
	if got != want {
		t.Fatalf("render = %q, want %q", got, want)
	}
}

func TestPredicateRender_Template(t *testing.T) {
	d := NewDialect("postgres")
	pb := d.NewParamBuilder()

	pred := (&Predicate{}).
		And("id", "=", 7).
		AndTemplate("lower(email) = lower(?)", "A@B.COM")
	got := pred.Render(d, pb)

	want := `"id" = $1 AND lower(email) = lower($2)`
	if got != want {
		t.Fatalf("render = %q, want %q", got, want)
	}
	params := pb.Params()
	if len(params) != 2 || params[1] != "A@B.COM" {
		t.Fatalf("params = %v", params)
	}
}

func TestPredicateEmpty(t *testing.T) {
	var nilPred *Predicate
	if !nilPred.Empty() {
		t.Fatal("nil predicate should be empty")
	}
	if !(&Predicate{}).Empty() {
		t.Fatal("zero predicate should be empty")
	}
	if (&Predicate{}).And("a", "=", 1).Empty() {
		t.Fatal("predicate with a term should not be empty")
	}
}
