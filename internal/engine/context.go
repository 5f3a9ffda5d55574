package engine

import (
	"database/sql"

	"forge-backend/internal/metadata"
	"forge-backend/internal/store"
)

// Request is one typed CRUD intent. Immutable per call except for the
// reverse-population of resolved values onto Values.
type Request struct {
	// Type names the registered request descriptor.
	Type string
	// Values holds the request's fields, keyed by field name.
	Values map[string]any
	// Actor is the caller identity, used by expressions; may be nil.
	Actor *metadata.Actor
	// EventID, when set, is an upstream hint to reuse an externally
	// assigned id on create instead of generating one.
	EventID any
}

// ExecContext carries per-call state. Created at the start of an operation,
// destroyed at its end; never cached.
type ExecContext struct {
	Request *Request
	Meta    *TypeMeta
	// Values is the resolved column-value map, available to hooks after
	// value resolution.
	Values map[string]any
	// Querier is the scoped connection, or the open transaction while the
	// write+event pair executes.
	Querier store.Querier

	conn  *sql.Conn
	shape metadata.ResponseShape
}

// Model is a convenience accessor for the bound model descriptor.
func (ec *ExecContext) Model() *metadata.Model {
	return ec.Meta.Model
}

// execResult is the transient outcome of one persistence call, consumed only
// to shape the response.
type execResult struct {
	id       any
	affected int64
}
