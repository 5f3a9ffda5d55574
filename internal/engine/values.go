package engine

import (
	"fmt"
	"strings"
	"time"

	"forge-backend/internal/metadata"
)

// resolveValues converts a request into its column-value map. Step order
// matters: later steps overwrite earlier ones, and populate runs after
// removal so populated fields are never dropped. extraPopulate carries the
// soft-delete rules when a Delete routes through here.
func (e *Executor) resolveValues(ec *ExecContext, skipDefaults bool, action string, extraPopulate []metadata.PopulateRule) (map[string]any, error) {
	req := ec.Request
	meta := ec.Meta
	model := meta.Model

	// 1. Flatten the request's fields into a working map.
	m := make(map[string]any, len(req.Values))
	for k, v := range req.Values {
		m[k] = v
	}

	// 2. Apply renames.
	for field, column := range meta.Renames {
		if v, ok := m[field]; ok {
			delete(m, field)
			m[column] = v
		}
	}

	// The reset pseudo-field never persists as a column.
	resetRaw, hasReset := m[ResetField]
	delete(m, ResetField)

	// Silently drop ignored fields and fields without a model column.
	for k := range m {
		if meta.Drop[k] {
			delete(m, k)
			continue
		}
		if !model.HasField(k) && !isSoftDeleteColumn(meta, k) {
			delete(m, k)
		}
	}

	env := baseEnv(req, m, action)

	// 3. Decide removals and Default replacements. Replacement takes
	// precedence over removal for the same field.
	var removal []string
	for k, v := range m {
		f := model.GetField(k)
		if !isZeroValue(v) {
			continue
		}
		if expression, ok := meta.Defaults[k]; ok {
			val, err := e.eval.Evaluate(expression, env)
			if err != nil {
				return nil, fmt.Errorf("default for %s: %w", k, err)
			}
			m[k] = val
			continue
		}
		// Nullable fields with a declared column default are not absent.
		nullable := meta.Nullable[k] || (f != nil && f.Nullable)
		if nullable && f != nil && f.Default != nil {
			continue
		}
		if skipDefaults || meta.Style(k) == metadata.StyleNonDefault {
			removal = append(removal, k)
		}
	}

	// 4. Remove after all replacement decisions are finalized.
	for _, k := range removal {
		delete(m, k)
	}

	// 5. Populate rules unconditionally overwrite their targets.
	populate := meta.Populate
	if len(extraPopulate) > 0 {
		populate = append(append([]metadata.PopulateRule{}, populate...), extraPopulate...)
	}
	for _, p := range populate {
		column := meta.Column(p.Field)
		val, err := e.eval.Evaluate(p.Expr, env)
		if err != nil {
			return nil, fmt.Errorf("populate %s: %w", column, err)
		}
		m[column] = val
	}

	// 6. Reverse-populate resolved values back onto the request for
	// downstream consumers that read fields off the request instance.
	if e.reverse != nil {
		e.reverse(req, m)
	}

	// 7. Reset named columns to their column default. Runs after populate so
	// a reset column cannot be re-populated in the same call.
	if hasReset {
		names, err := resetNames(resetRaw)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			column := meta.Column(name)
			f := model.GetField(column)
			if f == nil {
				return nil, UnsupportedOperationError("reset references unknown field %s", name)
			}
			if column == model.PrimaryKey.Field {
				return nil, UnsupportedOperationError("reset cannot target the primary key %s", column)
			}
			m[column] = f.ZeroValue()
		}
	}

	// 8. Inject a deterministic concurrency-token value when the model
	// declares one and the request carries none.
	if meta.TokenField != "" {
		if v, ok := m[meta.TokenField]; !ok || v == nil {
			m[meta.TokenField] = tokenZero(model.GetField(meta.TokenField))
		}
	}

	return m, nil
}

func isSoftDeleteColumn(meta *TypeMeta, column string) bool {
	return meta.SoftDelete && (column == "deleted_at" || column == "deleted_by")
}

// resetNames accepts a comma-separated string or a native sequence of names.
func resetNames(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		var names []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				names = append(names, p)
			}
		}
		return names, nil
	case []string:
		return v, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, UnsupportedOperationError("reset entries must be field names, got %T", item)
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, UnsupportedOperationError("reset must be a field name list, got %T", raw)
	}
}

// tokenZero yields the zero value for a concurrency-token column type.
func tokenZero(f *metadata.Field) any {
	if f == nil {
		return int64(0)
	}
	switch f.Type {
	case "int", "integer", "bigint":
		return int64(0)
	case "decimal", "float":
		return float64(0)
	case "uuid", "string", "text":
		return ""
	default:
		return int64(0)
	}
}

// isZeroValue reports whether v is its type's zero/default value. Values
// arrive JSON-decoded (string/float64/bool/nil) or as native Go values from
// in-process callers.
func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	case float64:
		return val == 0
	case float32:
		return val == 0
	case int:
		return val == 0
	case int32:
		return val == 0
	case int64:
		return val == 0
	case uint:
		return val == 0
	case uint64:
		return val == 0
	case bool:
		return !val
	case time.Time:
		return val.IsZero()
	default:
		return false
	}
}
