package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"StableMint/internal/event"
)

// EventLogWriter appends engine events to Postgres. Multi-row INSERT keeps
// round trips low; ON CONFLICT DO NOTHING makes replays after a crash
// idempotent on the sequence key.
type EventLogWriter struct {
	db *sql.DB
}

func NewEventLogWriter(db *sql.DB) *EventLogWriter {
	return &EventLogWriter{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// WriteBatch inserts a batch of envelopes into event_log.events on the given
// executor (a *sql.Tx inside the worker's flush transaction).
func (w *EventLogWriter) WriteBatch(ctx context.Context, ex execer, batch []event.Envelope) error {
	if len(batch) == 0 {
		return nil
	}

	query := `INSERT INTO event_log.events
		(sequence, event_type, payload, occurred_at)
		VALUES `

	values := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*4)

	for i, env := range batch {
		base := i * 4
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4,
		))
		args = append(args, env.Sequence, env.EventType.String(), env.Payload, env.Timestamp)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

// DB exposes the underlying handle for transaction management.
func (w *EventLogWriter) DB() *sql.DB {
	return w.db
}
