// Package audit persists engine events to the _audit_log system table. The
// insert runs on the caller's Querier, so when the engine opens a
// transaction the event commits or rolls back with the write it describes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forge-backend/internal/engine"
	"forge-backend/internal/store"
)

type Recorder struct {
	dialect store.Dialect
	log     zerolog.Logger
}

func NewRecorder(dialect store.Dialect, log zerolog.Logger) *Recorder {
	return &Recorder{dialect: dialect, log: log}
}

// Record writes one audit row. Values are stored as a JSON snapshot.
func (r *Recorder) Record(ctx context.Context, q store.Querier, ev *engine.Event) error {
	snapshot, err := json.Marshal(ev.Values)
	if err != nil {
		return fmt.Errorf("encode audit values: %w", err)
	}

	var recordID any
	if ev.RecordID != nil {
		recordID = fmt.Sprintf("%v", ev.RecordID)
	}

	d := r.dialect
	sqlStr := fmt.Sprintf(
		`INSERT INTO _audit_log (id, model, table_name, action, record_id, actor, snapshot, recorded_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4),
		d.Placeholder(5), d.Placeholder(6), d.Placeholder(7), d.Placeholder(8))

	if _, err := store.Exec(ctx, q, sqlStr,
		uuid.NewString(), ev.Model, ev.Table, ev.Action, recordID, ev.Actor, string(snapshot), ev.At); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	r.log.Debug().
		Str("model", ev.Model).
		Str("action", ev.Action).
		Msg("audit event recorded")
	return nil
}
