package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forge-backend/internal/metadata"
	"forge-backend/internal/store"
)

// Hooks are optional callbacks around an operation. The struct is fixed at
// construction; it is never mutated at call time. Before runs to completion
// before persistence begins; After runs only after a successful commit.
type Hooks struct {
	Before func(ctx context.Context, ec *ExecContext) error
	After  func(ctx context.Context, ec *ExecContext, resp map[string]any) error
}

// ReverseHook copies resolved values back onto the request instance.
type ReverseHook func(req *Request, values map[string]any)

type Config struct {
	Store     *store.Store
	Resolver  *Resolver
	Evaluator Evaluator     // defaults to NewExprEvaluator
	Events    EventRecorder // nil disables audit recording
	Hooks     Hooks
	Reverse   ReverseHook
	Logger    zerolog.Logger
}

// Executor runs Create/Update/Patch/Delete/Save requests. Safe for
// concurrent use; all per-call state lives in an ExecContext.
type Executor struct {
	store    *store.Store
	resolver *Resolver
	eval     Evaluator
	events   EventRecorder
	hooks    Hooks
	reverse  ReverseHook
	log      zerolog.Logger
}

func New(cfg Config) *Executor {
	eval := cfg.Evaluator
	if eval == nil {
		eval = NewExprEvaluator()
	}
	return &Executor{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		eval:     eval,
		events:   cfg.Events,
		hooks:    cfg.Hooks,
		reverse:  cfg.Reverse,
		log:      cfg.Logger,
	}
}

type opKind string

const (
	opCreate opKind = "create"
	opUpdate opKind = "update"
	opPatch  opKind = "patch"
	opDelete opKind = "delete"
	opSave   opKind = "save"
)

// Create inserts one row, resolving the identity per the key style.
func (e *Executor) Create(ctx context.Context, req *Request) (map[string]any, error) {
	return e.run(ctx, req, opCreate)
}

// Update writes all resolved fields against the primary key and requires
// exactly one affected row.
func (e *Executor) Update(ctx context.Context, req *Request) (map[string]any, error) {
	return e.run(ctx, req, opUpdate)
}

// Patch is Update with default-valued fields stripped.
func (e *Executor) Patch(ctx context.Context, req *Request) (map[string]any, error) {
	return e.run(ctx, req, opPatch)
}

// Delete removes matching rows, or routes to the update path for
// soft-delete types.
func (e *Executor) Delete(ctx context.Context, req *Request) (map[string]any, error) {
	return e.run(ctx, req, opDelete)
}

// Save upserts by natural key.
func (e *Executor) Save(ctx context.Context, req *Request) (map[string]any, error) {
	return e.run(ctx, req, opSave)
}

func (e *Executor) run(ctx context.Context, req *Request, kind opKind) (map[string]any, error) {
	if req == nil || req.Type == "" {
		return nil, MissingArgumentError("request type is required")
	}

	meta, err := e.resolver.Resolve(req.Type)
	if err != nil {
		return nil, err
	}

	conn, err := e.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ec := &ExecContext{
		Request: req,
		Meta:    meta,
		Querier: conn,
		conn:    conn,
		shape:   meta.Descriptor.Response,
	}

	if e.hooks.Before != nil {
		if err := e.hooks.Before(ctx, ec); err != nil {
			return nil, err
		}
	}

	var res execResult
	switch kind {
	case opCreate:
		res, err = e.runCreate(ctx, ec)
	case opUpdate:
		res, err = e.runUpdate(ctx, ec, false, nil, "update")
	case opPatch:
		res, err = e.runUpdate(ctx, ec, true, nil, "update")
	case opDelete:
		res, err = e.runDelete(ctx, ec)
	case opSave:
		res, err = e.runSave(ctx, ec)
	}
	if err != nil {
		return nil, err
	}

	resp, err := e.shapeResponse(ctx, ec, res, kind)
	if err != nil {
		return nil, err
	}

	if e.hooks.After != nil {
		if err := e.hooks.After(ctx, ec, resp); err != nil {
			return nil, err
		}
	}

	e.log.Debug().
		Str("type", req.Type).
		Str("op", string(kind)).
		Int64("affected", res.affected).
		Msg("operation complete")

	return resp, nil
}

// withWrite executes the persistence step, opening a transaction only when
// an event will be recorded. The transaction wraps exactly the write and the
// event record; response shaping happens outside it on the scoped connection.
func (e *Executor) withWrite(ctx context.Context, ec *ExecContext, action string, fn func(q store.Querier) (execResult, error)) (execResult, error) {
	if e.events == nil || !ec.Meta.Audit {
		return fn(ec.Querier)
	}

	tx, err := ec.conn.BeginTx(ctx, nil)
	if err != nil {
		return execResult{}, fmt.Errorf("begin tx: %w", err)
	}
	ec.Querier = tx
	defer func() { ec.Querier = ec.conn }()

	res, err := fn(tx)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return execResult{}, err
	}

	ev := &Event{
		Type:     ec.Request.Type,
		Model:    ec.Model().Name,
		Table:    ec.Model().Table,
		Action:   action,
		RecordID: res.id,
		Values:   ec.Values,
		At:       time.Now().UTC(),
	}
	if ec.Request.Actor != nil {
		ev.Actor = ec.Request.Actor.ID
	}
	if err := e.events.Record(ctx, tx, ev); err != nil {
		tx.Rollback() //nolint:errcheck
		return execResult{}, fmt.Errorf("record event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return execResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (e *Executor) runCreate(ctx context.Context, ec *ExecContext) (execResult, error) {
	values, err := e.resolveValues(ec, false, "create", nil)
	if err != nil {
		return execResult{}, err
	}
	if errs := e.checkRules(ec, values, "create"); len(errs) > 0 {
		return execResult{}, ValidationError(errs)
	}
	ec.Values = values

	model := ec.Model()
	pkCol := model.PrimaryKey.Field
	supplied := !isZeroValue(values[pkCol])

	// An upstream event id is reused as-is and suppresses generation.
	if !supplied && ec.Request.EventID != nil && !isZeroValue(ec.Request.EventID) {
		values[pkCol] = ec.Request.EventID
		supplied = true
	}

	if !supplied {
		if !model.PrimaryKey.Generated {
			return execResult{}, IntegrityViolationError(
				"create on %s requires a %s value for its externally supplied key", model.Name, pkCol)
		}
		if model.PrimaryKey.Type == "uuid" {
			// app-side generation keeps the identity known on every dialect
			values[pkCol] = uuid.NewString()
			supplied = true
		} else {
			delete(values, pkCol)
		}
	}

	needsID := ec.shape.IDField != "" || ec.shape.ResultField != "" || ec.shape.TokenField != "" ||
		(e.events != nil && ec.Meta.Audit)

	return e.withWrite(ctx, ec, "create", func(q store.Querier) (execResult, error) {
		d := e.store.Dialect
		// An explicitly supplied key always wins over a generated one.
		if supplied {
			n, err := store.Insert(ctx, q, d, model.Table, values)
			if err != nil {
				return execResult{}, err
			}
			return execResult{id: values[pkCol], affected: n}, nil
		}
		if needsID {
			id, err := store.InsertReturning(ctx, q, d, model.Table, values, pkCol)
			if err != nil {
				return execResult{}, err
			}
			return execResult{id: id, affected: 1}, nil
		}
		n, err := store.Insert(ctx, q, d, model.Table, values)
		if err != nil {
			return execResult{}, err
		}
		return execResult{affected: n}, nil
	})
}

func (e *Executor) runUpdate(ctx context.Context, ec *ExecContext, skipDefaults bool, extraPopulate []metadata.PopulateRule, action string) (execResult, error) {
	values, err := e.resolveValues(ec, skipDefaults, action, extraPopulate)
	if err != nil {
		return execResult{}, err
	}
	if errs := e.checkRules(ec, values, action); len(errs) > 0 {
		return execResult{}, ValidationError(errs)
	}
	ec.Values = values

	model := ec.Model()
	pkCol := model.PrimaryKey.Field
	pk := values[pkCol]
	if isZeroValue(pk) {
		return execResult{}, MissingArgumentError("update on %s requires a non-default %s", model.Name, pkCol)
	}

	pred, ok, err := e.buildFilter(ec, values)
	if err != nil {
		return execResult{}, err
	}
	if !ok {
		delete(values, pkCol)
		pred = (&store.Predicate{}).And(pkCol, "=", pk)
	}
	if len(values) == 0 {
		return execResult{}, MissingArgumentError("no column values to update on %s", model.Name)
	}

	return e.withWrite(ctx, ec, action, func(q store.Querier) (execResult, error) {
		n, err := store.Update(ctx, q, e.store.Dialect, model.Table, values, pred)
		if err != nil {
			return execResult{}, err
		}
		if n != 1 {
			return execResult{}, ConcurrencyViolationError(model.Table, n)
		}
		return execResult{id: pk, affected: n}, nil
	})
}

func (e *Executor) runDelete(ctx context.Context, ec *ExecContext) (execResult, error) {
	if ec.Meta.SoftDelete {
		// soft delete is a field update, no physical row removal
		return e.runUpdate(ctx, ec, true, ec.Meta.SoftDeletePopulate, "delete")
	}

	values, err := e.resolveValues(ec, true, "delete", nil)
	if err != nil {
		return execResult{}, err
	}
	ec.Values = values

	pred, err := e.buildDeleteFilter(ec, values)
	if err != nil {
		return execResult{}, err
	}

	return e.withWrite(ctx, ec, "delete", func(q store.Querier) (execResult, error) {
		n, err := store.Delete(ctx, q, e.store.Dialect, ec.Model().Table, pred)
		if err != nil {
			return execResult{}, err
		}
		return execResult{id: ec.requestID(), affected: n}, nil
	})
}

func (e *Executor) runSave(ctx context.Context, ec *ExecContext) (execResult, error) {
	values, err := e.resolveValues(ec, false, "save", nil)
	if err != nil {
		return execResult{}, err
	}
	if errs := e.checkRules(ec, values, "save"); len(errs) > 0 {
		return execResult{}, ValidationError(errs)
	}
	ec.Values = values

	model := ec.Model()
	pkCol := model.PrimaryKey.Field
	if isZeroValue(values[pkCol]) {
		return execResult{}, MissingArgumentError("save on %s requires a %s value", model.Name, pkCol)
	}

	return e.withWrite(ctx, ec, "save", func(q store.Querier) (execResult, error) {
		n, err := store.Upsert(ctx, q, e.store.Dialect, model.Table, values, pkCol)
		if err != nil {
			return execResult{}, err
		}
		// no generated-id path in save mode: identity comes off the request
		id := ec.requestID()
		if id == nil {
			id = values[pkCol]
		}
		return execResult{id: id, affected: n}, nil
	})
}

// requestID reads the primary key off the original request, honoring
// renames. Returns nil when absent or default-valued.
func (ec *ExecContext) requestID() any {
	pkCol := ec.Model().PrimaryKey.Field
	if v, ok := ec.Request.Values[pkCol]; ok && !isZeroValue(v) {
		return v
	}
	for field, column := range ec.Meta.Renames {
		if column == pkCol {
			if v, ok := ec.Request.Values[field]; ok && !isZeroValue(v) {
				return v
			}
		}
	}
	return nil
}
