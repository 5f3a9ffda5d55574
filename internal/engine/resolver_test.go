package engine

import (
	"errors"
	"sync"
	"testing"

	"forge-backend/internal/metadata"
)

func TestResolve_UnknownType(t *testing.T) {
	r := NewResolver(metadata.NewRegistry())
	_, err := r.Resolve("nope")
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != CodeUnknownType {
		t.Fatalf("err = %v, want %s", err, CodeUnknownType)
	}
}

func TestResolve_BuildsLookupMaps(t *testing.T) {
	desc := &metadata.Descriptor{
		Name:  "task_request",
		Model: "task",
		Fields: []metadata.FieldRule{
			{Field: "taskTitle", Column: "title", Default: `"untitled"`},
			{Field: "note", Style: metadata.StyleNonDefault},
			{Field: "assignee", Nullable: true},
			{Field: "trace", Ignore: true},
		},
		Apply: []string{"audit"},
	}
	meta := resolveMeta(t, taskModel(), desc)

	if meta.Renames["taskTitle"] != "title" {
		t.Fatalf("renames = %v", meta.Renames)
	}
	if meta.Defaults["title"] != `"untitled"` {
		t.Fatalf("defaults = %v", meta.Defaults)
	}
	if meta.Style("note") != metadata.StyleNonDefault {
		t.Fatalf("style(note) = %v", meta.Style("note"))
	}
	if meta.Style("title") != metadata.StyleAll {
		t.Fatalf("style(title) = %v", meta.Style("title"))
	}
	if !meta.Nullable["assignee"] {
		t.Fatal("assignee should be nullable")
	}
	if !meta.Drop["trace"] {
		t.Fatal("trace should be dropped")
	}
	if !meta.Audit {
		t.Fatal("audit marker should set the Audit flag")
	}
	if meta.TokenField != "version" {
		t.Fatalf("token field = %q", meta.TokenField)
	}
}

func TestResolve_SoftDeletePopulate(t *testing.T) {
	model := taskModel()
	model.SoftDelete = true
	desc := &metadata.Descriptor{Name: "task_request", Model: "task"}
	meta := resolveMeta(t, model, desc)

	if !meta.SoftDelete {
		t.Fatal("model flag should mark the type soft-delete")
	}
	if len(meta.SoftDeletePopulate) != 2 {
		t.Fatalf("soft delete populate = %+v", meta.SoftDeletePopulate)
	}
	// The delete bookkeeping must not leak into the regular populate chain.
	if len(meta.Populate) != 0 {
		t.Fatalf("populate = %+v, want empty", meta.Populate)
	}
}

func TestResolve_CachesPerType(t *testing.T) {
	reg := metadata.NewRegistry()
	reg.LoadModels([]*metadata.Model{taskModel()})
	if err := reg.Register(&metadata.Descriptor{Name: "task_request", Model: "task"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r := NewResolver(reg, DefaultMetaFilters()...)

	first, err := r.Resolve("task_request")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := r.Resolve("task_request")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached instance on the second resolve")
	}

	r.Reset()
	third, err := r.Resolve("task_request")
	if err != nil {
		t.Fatalf("resolve after reset: %v", err)
	}
	if third == first {
		t.Fatal("reset should discard cached entries")
	}
}

func TestResolve_ConcurrentCallersAgree(t *testing.T) {
	reg := metadata.NewRegistry()
	reg.LoadModels([]*metadata.Model{taskModel()})
	if err := reg.Register(&metadata.Descriptor{Name: "task_request", Model: "task"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r := NewResolver(reg, DefaultMetaFilters()...)

	const n = 16
	results := make([]*TypeMeta, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meta, err := r.Resolve("task_request")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			results[i] = meta
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent callers should converge on one cached instance")
		}
	}
}
