package store

import (
	"context"
	"fmt"
	"strings"

	"forge-backend/internal/metadata"
)

type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// Migrate ensures the backing table matches the model metadata. Creates the
// table if it doesn't exist, or adds missing columns.
func (m *Migrator) Migrate(ctx context.Context, model *metadata.Model) error {
	exists, err := m.store.Dialect.TableExists(ctx, m.store.DB, model.Table)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}

	if !exists {
		return m.createTable(ctx, model)
	}

	return m.alterTable(ctx, model)
}

// EnsureAuditTable creates the audit log system table if missing.
func (m *Migrator) EnsureAuditTable(ctx context.Context) error {
	if _, err := m.store.DB.ExecContext(ctx, m.store.Dialect.AuditTableSQL()); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (m *Migrator) createTable(ctx context.Context, model *metadata.Model) error {
	var cols []string
	for i := range model.Fields {
		cols = append(cols, m.buildColumnDef(model, &model.Fields[i]))
	}

	// Soft-delete bookkeeping columns when not declared explicitly
	if model.SoftDelete {
		if model.GetField("deleted_at") == nil {
			cols = append(cols, "deleted_at "+m.store.Dialect.ColumnType("timestamp", 0))
		}
		if model.GetField("deleted_by") == nil {
			cols = append(cols, "deleted_by "+m.store.Dialect.ColumnType("string", 0))
		}
	}

	sqlStr := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", model.Table, strings.Join(cols, ",\n  "))
	if _, err := m.store.DB.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("create table %s: %w", model.Table, err)
	}

	if err := m.createIndexes(ctx, model); err != nil {
		return fmt.Errorf("create indexes for %s: %w", model.Table, err)
	}

	return nil
}

func (m *Migrator) alterTable(ctx context.Context, model *metadata.Model) error {
	existing, err := m.store.Dialect.GetColumns(ctx, m.store.DB, model.Table)
	if err != nil {
		return fmt.Errorf("get columns for %s: %w", model.Table, err)
	}

	for _, f := range model.Fields {
		if _, ok := existing[f.Name]; ok {
			continue
		}
		colType := m.store.Dialect.ColumnType(f.Type, f.Precision)
		notNull := ""
		if f.Required && !f.Nullable {
			notNull = " NOT NULL DEFAULT ''" // safe default for existing rows
		}
		sqlStr := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s%s", model.Table, f.Name, colType, notNull)
		if _, err := m.store.DB.ExecContext(ctx, sqlStr); err != nil {
			return fmt.Errorf("add column %s.%s: %w", model.Table, f.Name, err)
		}
	}

	if model.SoftDelete {
		for col, typ := range map[string]string{"deleted_at": "timestamp", "deleted_by": "string"} {
			if _, ok := existing[col]; ok {
				continue
			}
			sqlStr := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", model.Table, col, m.store.Dialect.ColumnType(typ, 0))
			if _, err := m.store.DB.ExecContext(ctx, sqlStr); err != nil {
				return fmt.Errorf("add %s column to %s: %w", col, model.Table, err)
			}
		}
	}

	if err := m.createIndexes(ctx, model); err != nil {
		return fmt.Errorf("create indexes for %s: %w", model.Table, err)
	}

	return nil
}

func (m *Migrator) buildColumnDef(model *metadata.Model, f *metadata.Field) string {
	d := m.store.Dialect

	if f.Name == model.PrimaryKey.Field {
		return f.Name + " " + m.primaryKeyDef(model)
	}

	col := f.Name + " " + d.ColumnType(f.Type, f.Precision)
	if f.Required && !f.Nullable {
		col += " NOT NULL"
	}
	if f.Default != nil {
		switch v := f.Default.(type) {
		case string:
			col += fmt.Sprintf(" DEFAULT '%s'", v)
		case float64:
			col += fmt.Sprintf(" DEFAULT %v", v)
		case bool:
			if d.Name() == "sqlite" {
				if v {
					col += " DEFAULT 1"
				} else {
					col += " DEFAULT 0"
				}
			} else {
				col += fmt.Sprintf(" DEFAULT %t", v)
			}
		default:
			col += fmt.Sprintf(" DEFAULT '%v'", v)
		}
	}
	return col
}

func (m *Migrator) primaryKeyDef(model *metadata.Model) string {
	d := m.store.Dialect
	pk := model.PrimaryKey

	switch {
	case pk.Generated && pk.Type == "uuid":
		def := d.ColumnType("uuid", 0) + " PRIMARY KEY"
		if u := d.UUIDDefault(); u != "" {
			def += " " + u
		}
		return def
	case pk.Generated && (pk.Type == "int" || pk.Type == "bigint"):
		if d.Name() == "sqlite" {
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
		return "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	default:
		f := model.GetField(pk.Field)
		prec := 0
		if f != nil {
			prec = f.Precision
		}
		return d.ColumnType(pk.Type, prec) + " PRIMARY KEY"
	}
}

func (m *Migrator) createIndexes(ctx context.Context, model *metadata.Model) error {
	for _, f := range model.Fields {
		if !f.Unique {
			continue
		}
		sqlStr := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
			model.Table, f.Name, model.Table, f.Name)
		if _, err := m.store.DB.ExecContext(ctx, sqlStr); err != nil {
			return fmt.Errorf("create unique index on %s.%s: %w", model.Table, f.Name, err)
		}
	}

	if model.SoftDelete {
		if _, err := m.store.DB.ExecContext(ctx, m.store.Dialect.SoftDeleteIndexSQL(model.Table)); err != nil {
			return fmt.Errorf("create soft delete index on %s: %w", model.Table, err)
		}
	}

	return nil
}
