package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/strategicvalueplus/scout/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runs.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	authed := true

	run1 := &storage.SearchRun{
		ID:        "json1",
		RequestID: "req",
		Source:    "thomasnet",
		Keywords:  "valves",
		Count:     3,
		Total:     3,
		Success:   true,
		Duration:  10 * time.Millisecond,
		CreatedAt: now.Add(-2 * time.Hour),
	}
	run2 := &storage.SearchRun{
		ID:            "json2",
		RequestID:     "req",
		Source:        "connex",
		Keywords:      "valves",
		Success:       true,
		Authenticated: &authed,
		Duration:      20 * time.Millisecond,
		CreatedAt:     now.Add(-1 * time.Hour),
	}
	for _, r := range []*storage.SearchRun{run1, run2} {
		if err := b.Save(ctx, r); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(all))
	}
	if all[0].ID != "json2" {
		t.Errorf("Expected newest first, got %s", all[0].ID)
	}
	if all[0].Authenticated == nil || !*all[0].Authenticated {
		t.Errorf("Expected authenticated to round trip")
	}
	if all[1].Duration != 10*time.Millisecond {
		t.Errorf("Expected 10ms, got %v", all[1].Duration)
	}

	res, err := b.Query(ctx, storage.Filter{Source: "thomasnet"})
	if err != nil || len(res) != 1 || res[0].ID != "json1" {
		t.Errorf("Expected thomasnet run, got %v (%v)", res, err)
	}

	since := now.Add(-90 * time.Minute)
	res, err = b.Query(ctx, storage.Filter{Since: &since})
	if err != nil || len(res) != 1 || res[0].ID != "json2" {
		t.Errorf("Expected recent run, got %v (%v)", res, err)
	}

	res, err = b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	if err != nil || len(res) != 1 || res[0].ID != "json1" {
		t.Errorf("Expected paged run, got %v (%v)", res, err)
	}

	// Saving after a query must still append.
	if err := b.Save(ctx, &storage.SearchRun{ID: "json3", Source: "thomasnet", CreatedAt: now}); err != nil {
		t.Fatalf("Failed to save after query: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	reopened, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer reopened.Close()
	all, err = reopened.Query(ctx, storage.Filter{})
	if err != nil || len(all) != 3 {
		t.Errorf("Expected 3 persisted runs, got %d (%v)", len(all), err)
	}
}
