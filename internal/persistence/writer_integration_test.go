package persistence

import (
	"context"
	"testing"
	"time"

	"StableMint/internal/event"
	"StableMint/internal/testutil"
)

func TestWriteBatchIsIdempotent(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := NewEventLogWriter(db)
	batch := []event.Envelope{
		{Sequence: 1, EventType: event.EventTypeCollateralDeposited, Timestamp: time.Now(), Payload: []byte(`{"user":"a"}`)},
		{Sequence: 2, EventType: event.EventTypeDebtMinted, Timestamp: time.Now(), Payload: []byte(`{"user":"a"}`)},
	}

	if err := writer.WriteBatch(ctx, db, batch); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// Replay of the same sequences must be a no-op.
	if err := writer.WriteBatch(ctx, db, batch); err != nil {
		t.Fatalf("replayed write: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log.events`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
}

func TestWorkerFlushesOnClose(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	input := make(chan event.Envelope, 8)
	worker := NewWorker(db, input, 100, time.Second, nil)

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	for i := int64(1); i <= 5; i++ {
		input <- event.Envelope{
			Sequence:  i,
			EventType: event.EventTypeDebtMinted,
			Timestamp: time.Now(),
			Payload:   []byte(`{}`),
		}
	}
	close(input)

	if err := <-done; err != nil {
		t.Fatalf("worker: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log.events`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("row count = %d, want 5", count)
	}
}
