package engine

import (
	"context"
	"time"

	"forge-backend/internal/store"
)

// Event describes one successful write for the audit log.
type Event struct {
	Type     string         // request type name
	Model    string         // model name
	Table    string         // backing table
	Action   string         // create, update, delete, save
	RecordID any            // resolved identity of the written row
	Actor    string         // caller id, empty when anonymous
	Values   map[string]any // persisted column values
	At       time.Time
}

// EventRecorder persists audit events. Record runs on the same Querier as
// the write it describes, inside the operation's transaction, so the write
// and its event commit or roll back together.
type EventRecorder interface {
	Record(ctx context.Context, q store.Querier, ev *Event) error
}
