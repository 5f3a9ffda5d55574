package store

import (
	"context"
	"testing"

	"forge-backend/internal/metadata"
)

func TestMigrateCreatesTable(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	exists, err := s.Dialect.TableExists(ctx, s.DB, "orders")
	if err != nil {
		t.Fatalf("table exists: %v", err)
	}
	if !exists {
		t.Fatal("orders table was not created")
	}

	cols, err := s.Dialect.GetColumns(ctx, s.DB, "orders")
	if err != nil {
		t.Fatalf("get columns: %v", err)
	}
	for _, want := range []string{"id", "number", "total", "status"} {
		if _, ok := cols[want]; !ok {
			t.Fatalf("missing column %s, have %v", want, cols)
		}
	}
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	model := ordersModel()
	model.Fields = append(model.Fields, metadata.Field{Name: "note", Type: "string"})
	if err := NewMigrator(s).Migrate(ctx, model); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	cols, err := s.Dialect.GetColumns(ctx, s.DB, "orders")
	if err != nil {
		t.Fatalf("get columns: %v", err)
	}
	if _, ok := cols["note"]; !ok {
		t.Fatalf("note column not added, have %v", cols)
	}
}

func TestMigrateSoftDeleteColumns(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	model := &metadata.Model{
		Name:       "document",
		Table:      "documents",
		SoftDelete: true,
		PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "uuid", Generated: true},
		Fields: []metadata.Field{
			{Name: "id", Type: "uuid"},
			{Name: "title", Type: "string"},
		},
	}
	if err := NewMigrator(s).Migrate(ctx, model); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cols, err := s.Dialect.GetColumns(ctx, s.DB, "documents")
	if err != nil {
		t.Fatalf("get columns: %v", err)
	}
	if _, ok := cols["deleted_at"]; !ok {
		t.Fatal("deleted_at column missing")
	}
	if _, ok := cols["deleted_by"]; !ok {
		t.Fatal("deleted_by column missing")
	}
}

func TestEnsureAuditTable(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	m := NewMigrator(s)
	if err := m.EnsureAuditTable(ctx); err != nil {
		t.Fatalf("ensure audit table: %v", err)
	}
	// Idempotent.
	if err := m.EnsureAuditTable(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	exists, err := s.Dialect.TableExists(ctx, s.DB, "_audit_log")
	if err != nil {
		t.Fatalf("table exists: %v", err)
	}
	if !exists {
		t.Fatal("_audit_log table was not created")
	}
}
