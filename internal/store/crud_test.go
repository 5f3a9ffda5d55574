package store

import (
	"context"
	"errors"
	"testing"

	"forge-backend/internal/config"
	"forge-backend/internal/metadata"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir(),
		Name:   "test",
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func ordersModel() *metadata.Model {
	return &metadata.Model{
		Name:       "order",
		Table:      "orders",
		PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "bigint", Generated: true},
		Fields: []metadata.Field{
			{Name: "id", Type: "bigint"},
			{Name: "number", Type: "string", Required: true, Unique: true},
			{Name: "total", Type: "decimal"},
			{Name: "status", Type: "string", Default: "open"},
		},
	}
}

func migrateOrders(t *testing.T, s *Store) {
	t.Helper()
	if err := NewMigrator(s).Migrate(context.Background(), ordersModel()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestInsertAndFetch(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	n, err := Insert(ctx, s.DB, s.Dialect, "orders", map[string]any{
		"number": "ORD-1", "total": 12.5, "status": "open",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("affected = %d, want 1", n)
	}

	row, err := QueryRow(ctx, s.DB, `SELECT * FROM orders WHERE number = ?1`, "ORD-1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if row["total"] != 12.5 {
		t.Fatalf("total = %v", row["total"])
	}
}

func TestInsertReturning_SQLiteFallback(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	id, err := InsertReturning(ctx, s.DB, s.Dialect, "orders", map[string]any{
		"number": "ORD-2", "total": 1.0, "status": "open",
	}, "id")
	if err != nil {
		t.Fatalf("insert returning: %v", err)
	}
	if id.(int64) <= 0 {
		t.Fatalf("id = %v, want positive", id)
	}
}

func TestInsertUniqueViolation(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	values := map[string]any{"number": "ORD-3", "total": 0.0, "status": "open"}
	if _, err := Insert(ctx, s.DB, s.Dialect, "orders", values); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := Insert(ctx, s.DB, s.Dialect, "orders", values)
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("err = %v, want ErrUniqueViolation", err)
	}
}

func TestUpdateWithPredicate(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	id, err := InsertReturning(ctx, s.DB, s.Dialect, "orders", map[string]any{
		"number": "ORD-4", "total": 10.0, "status": "open",
	}, "id")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	pred := (&Predicate{}).And("id", "=", id).And("status", "=", "open")
	n, err := Update(ctx, s.DB, s.Dialect, "orders", map[string]any{"status": "closed"}, pred)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 1 {
		t.Fatalf("affected = %d, want 1", n)
	}

	// A second run matches nothing: status moved on.
	n, err = Update(ctx, s.DB, s.Dialect, "orders", map[string]any{"status": "closed"}, pred)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if n != 0 {
		t.Fatalf("affected = %d, want 0", n)
	}
}

func TestDeleteRefusesEmptyPredicate(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	if _, err := Delete(ctx, s.DB, s.Dialect, "orders", &Predicate{}); err == nil {
		t.Fatal("expected error for empty predicate")
	}
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	values := map[string]any{"id": int64(42), "number": "ORD-5", "total": 5.0, "status": "open"}
	if _, err := Upsert(ctx, s.DB, s.Dialect, "orders", values, "id"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	values["status"] = "closed"
	if _, err := Upsert(ctx, s.DB, s.Dialect, "orders", values, "id"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	row, err := FetchByID(ctx, s.DB, s.Dialect, "orders", []string{"id", "status"}, "id", int64(42))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if row["status"] != "closed" {
		t.Fatalf("status = %v, want closed", row["status"])
	}

	count, err := QueryRow(ctx, s.DB, "SELECT COUNT(*) AS n FROM orders")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count["n"] != int64(1) {
		t.Fatalf("rows = %v, want 1", count["n"])
	}
}

func TestFetchByID_NotFound(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	migrateOrders(t, s)

	_, err := FetchByID(ctx, s.DB, s.Dialect, "orders", []string{"id"}, "id", int64(999))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
