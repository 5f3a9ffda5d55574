package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// sortedColumns returns value-map keys in a stable order so generated SQL is
// deterministic.
func sortedColumns(values map[string]any) []string {
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Insert writes one row and returns the number of rows affected.
func Insert(ctx context.Context, q Querier, d Dialect, table string, values map[string]any) (int64, error) {
	sqlStr, params := buildInsert(d, table, values, "")
	n, err := Exec(ctx, q, sqlStr, params...)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, d.MapError(err))
	}
	return n, nil
}

// InsertReturning writes one row and returns the generated key. Dialects
// without RETURNING fall back to LastInsertId.
func InsertReturning(ctx context.Context, q Querier, d Dialect, table string, values map[string]any, pkCol string) (any, error) {
	if d.SupportsReturning() {
		sqlStr, params := buildInsert(d, table, values, pkCol)
		row, err := QueryRow(ctx, q, sqlStr, params...)
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", table, d.MapError(err))
		}
		return row[pkCol], nil
	}

	sqlStr, params := buildInsert(d, table, values, "")
	result, err := q.ExecContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, d.MapError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert %s: last insert id: %w", table, err)
	}
	return id, nil
}

func buildInsert(d Dialect, table string, values map[string]any, returning string) (string, []any) {
	pb := d.NewParamBuilder()
	cols := sortedColumns(values)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
		placeholders[i] = pb.Add(values[c])
	}

	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if returning != "" {
		sqlStr += " RETURNING " + d.QuoteIdent(returning)
	}
	return sqlStr, pb.Params()
}

// Update writes the value map against the predicate and returns rows affected.
func Update(ctx context.Context, q Querier, d Dialect, table string, values map[string]any, pred *Predicate) (int64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("update %s: no column values", table)
	}
	pb := d.NewParamBuilder()
	cols := sortedColumns(values)

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(c), pb.Add(values[c]))
	}

	sqlStr := fmt.Sprintf("UPDATE %s SET %s", d.QuoteIdent(table), strings.Join(sets, ", "))
	if !pred.Empty() {
		sqlStr += " WHERE " + pred.Render(d, pb)
	}

	n, err := Exec(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, d.MapError(err))
	}
	return n, nil
}

// Delete removes rows matching the predicate and returns rows affected. The
// predicate must be non-empty; unconstrained deletes are refused upstream.
func Delete(ctx context.Context, q Querier, d Dialect, table string, pred *Predicate) (int64, error) {
	if pred.Empty() {
		return 0, fmt.Errorf("delete %s: empty predicate", table)
	}
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s", d.QuoteIdent(table), pred.Render(d, pb))

	n, err := Exec(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, d.MapError(err))
	}
	return n, nil
}

// Upsert inserts the row or, on primary-key conflict, updates all non-key
// columns. Returns rows affected.
func Upsert(ctx context.Context, q Querier, d Dialect, table string, values map[string]any, pkCol string) (int64, error) {
	pb := d.NewParamBuilder()
	cols := sortedColumns(values)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	var sets []string
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
		placeholders[i] = pb.Add(values[c])
		if c != pkCol {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", d.QuoteIdent(c), d.QuoteIdent(c)))
		}
	}

	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO ",
		d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "), d.QuoteIdent(pkCol))
	if len(sets) == 0 {
		sqlStr += "NOTHING"
	} else {
		sqlStr += "UPDATE SET " + strings.Join(sets, ", ")
	}

	n, err := Exec(ctx, q, sqlStr, pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", table, d.MapError(err))
	}
	return n, nil
}

// FetchByID reads one full row by primary key.
func FetchByID(ctx context.Context, q Querier, d Dialect, table string, columns []string, pkCol string, id any) (map[string]any, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(quoted, ", "), d.QuoteIdent(table), d.QuoteIdent(pkCol), d.Placeholder(1))
	return QueryRow(ctx, q, sqlStr, id)
}

// FetchToken reads the current concurrency-token value for a row.
func FetchToken(ctx context.Context, q Querier, d Dialect, table, tokenCol, pkCol string, id any) (any, error) {
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		d.QuoteIdent(tokenCol), d.QuoteIdent(table), d.QuoteIdent(pkCol), d.Placeholder(1))
	row, err := QueryRow(ctx, q, sqlStr, id)
	if err != nil {
		return nil, err
	}
	return row[tokenCol], nil
}
