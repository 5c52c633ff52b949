package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/strategicvalueplus/scout/internal/storage"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if SCOUT_TEST_PG_DSN is set
	dsn := os.Getenv("SCOUT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: SCOUT_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	now := time.Now().UTC()
	authed := true
	source := "pgtest-" + uuid.NewString()

	run := &storage.SearchRun{
		ID:            uuid.NewString(),
		RequestID:     uuid.NewString(),
		Source:        source,
		Keywords:      "injection molding",
		Location:      "Detroit, MI",
		Count:         5,
		Total:         80,
		Success:       true,
		Authenticated: &authed,
		Duration:      750 * time.Millisecond,
		CreatedAt:     now,
	}
	if err := b.Save(ctx, run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{Source: source})
	if err != nil {
		t.Fatalf("Failed to query runs: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(results))
	}

	got := results[0]
	if got.ID != run.ID || got.RequestID != run.RequestID {
		t.Errorf("Unexpected ids %s/%s", got.ID, got.RequestID)
	}
	if got.Count != 5 || got.Total != 80 || !got.Success {
		t.Errorf("Unexpected counts %+v", got)
	}
	if got.Authenticated == nil || !*got.Authenticated {
		t.Errorf("Expected authenticated=true, got %v", got.Authenticated)
	}
	if got.Duration.Milliseconds() != run.Duration.Milliseconds() {
		t.Errorf("Expected Duration %v, got %v", run.Duration, got.Duration)
	}
	// Postgres timestamps might differ slightly in sub-millisecond precision
	if got.CreatedAt.Unix() != run.CreatedAt.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", run.CreatedAt, got.CreatedAt)
	}

	past := now.Add(-1 * time.Hour)
	resultsSince, err := b.Query(ctx, storage.Filter{Source: source, Since: &past})
	if err != nil {
		t.Fatalf("Failed to query runs with Since: %v", err)
	}
	if len(resultsSince) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(resultsSince))
	}
}
