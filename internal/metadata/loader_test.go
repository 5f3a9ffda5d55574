package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadModels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "order.json", `{
		"name": "order",
		"table": "orders",
		"primary_key": {"field": "id", "type": "bigint", "generated": true},
		"fields": [
			{"name": "id", "type": "bigint"},
			{"name": "number", "type": "string", "required": true, "unique": true},
			{"name": "total", "type": "decimal"}
		]
	}`)
	writeFile(t, dir, "notes.txt", "not a model")

	reg := NewRegistry()
	if err := LoadModels(dir, reg); err != nil {
		t.Fatalf("load models: %v", err)
	}

	m := reg.GetModel("order")
	if m == nil {
		t.Fatal("order model not registered")
	}
	if m.Table != "orders" {
		t.Fatalf("table = %q", m.Table)
	}
	if !m.PrimaryKey.Generated || m.PrimaryKey.Type != "bigint" {
		t.Fatalf("primary key = %+v", m.PrimaryKey)
	}
	if len(reg.AllModels()) != 1 {
		t.Fatalf("models = %d, want 1", len(reg.AllModels()))
	}
}

func TestLoadModels_InvalidModel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"name": "bad", "table": "bads", "fields": []}`)

	reg := NewRegistry()
	if err := LoadModels(dir, reg); err == nil {
		t.Fatal("expected error for model without primary key")
	}
}

func TestLoadDescriptors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "order_request.json", `{
		"name": "order_request",
		"model": "order",
		"style": "non-default",
		"apply": ["audit"],
		"response": {"id_field": "id"}
	}`)

	reg := NewRegistry()
	if err := LoadDescriptors(dir, reg); err != nil {
		t.Fatalf("load descriptors: %v", err)
	}

	d := reg.GetDescriptor("order_request")
	if d == nil {
		t.Fatal("descriptor not registered")
	}
	if d.Style != StyleNonDefault {
		t.Fatalf("style = %q", d.Style)
	}
	if !d.HasApply("audit") {
		t.Fatal("audit marker missing")
	}
}

func TestLoadDescriptors_MissingDirIsOK(t *testing.T) {
	reg := NewRegistry()
	if err := LoadDescriptors(filepath.Join(t.TempDir(), "absent"), reg); err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
}

func TestDefaultDescriptor(t *testing.T) {
	m := &Model{
		Name:       "customer",
		Table:      "customers",
		SoftDelete: true,
		PrimaryKey: PrimaryKey{Field: "id", Type: "uuid", Generated: true},
		Fields:     []Field{{Name: "id", Type: "uuid"}},
	}

	d := DefaultDescriptor(m)
	if d.Name != "customer" || d.Model != "customer" {
		t.Fatalf("descriptor = %+v", d)
	}
	if d.Response.IDField != "id" {
		t.Fatalf("id field = %q", d.Response.IDField)
	}
	if !d.HasApply("soft-delete") {
		t.Fatal("soft-delete marker missing")
	}
}
