package engine

import (
	"context"
	"errors"

	"forge-backend/internal/store"
)

// shapeResponse copies the operation outcome into the fields the response
// type declares. Returns nil when the response type has no shapeable fields.
// Runs outside any transaction; the result re-fetch is an extra read on the
// scoped connection. Deletes report id and count only; the row is gone (or,
// soft-deleted, no longer addressable), so the re-fetch fields are skipped.
func (e *Executor) shapeResponse(ctx context.Context, ec *ExecContext, res execResult, kind opKind) (map[string]any, error) {
	shape := ec.shape
	if shape.Empty() {
		return nil, nil
	}

	model := ec.Model()
	out := make(map[string]any)

	if shape.IDField != "" && res.id != nil {
		out[shape.IDField] = res.id
	}
	if shape.CountField != "" {
		out[shape.CountField] = res.affected
	}

	if kind == opDelete {
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	}

	if shape.ResultField != "" {
		id, err := ec.resolveID(res)
		if err != nil {
			return nil, err
		}
		row, err := store.FetchByID(ctx, ec.Querier, e.store.Dialect,
			model.Table, model.FieldNames(), model.PrimaryKey.Field, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, NotFoundError(model.Name, id)
			}
			return nil, err
		}
		out[shape.ResultField] = row
	}

	if shape.TokenField != "" {
		if ec.Meta.TokenField == "" {
			return nil, UnsupportedOperationError("model %s declares no concurrency token", model.Name)
		}
		id, err := ec.resolveID(res)
		if err != nil {
			return nil, err
		}
		token, err := store.FetchToken(ctx, ec.Querier, e.store.Dialect,
			model.Table, ec.Meta.TokenField, model.PrimaryKey.Field, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, NotFoundError(model.Name, id)
			}
			return nil, err
		}
		out[shape.TokenField] = token
	}

	return out, nil
}

// resolveID prefers the identity resolved by the write, falling back to the
// primary key on the request itself. No determinable id is a definite error.
func (ec *ExecContext) resolveID(res execResult) (any, error) {
	if res.id != nil && !isZeroValue(res.id) {
		return res.id, nil
	}
	if v := ec.requestID(); v != nil {
		return v, nil
	}
	return nil, MissingArgumentError("cannot determine record identity for response shaping on %s", ec.Model().Name)
}
