package telemetry

import (
	"context"
	"testing"
	"time"
)

func newTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	log, err := NewSQLiteLog(Config{Enabled: true, Path: ":memory:"})
	if err != nil {
		t.Fatalf("NewSQLiteLog: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRecordStartAndEnd(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	rec := RequestRecord{ID: "q_1", Kind: KindSync, Status: StatusActive, PromptChars: 42, CLIPathMode: "bundled"}
	if err := log.RecordStart(ctx, rec); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	if err := log.RecordEnd(ctx, "q_1", StatusCompleted, "", 3, 2, 0.015); err != nil {
		t.Fatalf("RecordEnd: %v", err)
	}

	out, err := log.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	got := out[0]
	if got.Status != StatusCompleted {
		t.Fatalf("status=%q, want completed", got.Status)
	}
	if got.NumTurns != 3 || got.ToolUseCount != 2 {
		t.Fatalf("unexpected turns/tools: %+v", got)
	}
	if got.EndedAt.Before(got.StartedAt) {
		t.Fatal("ended_at should not precede started_at")
	}
}

func TestRecordEndWithErrorKind(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	if err := log.RecordStart(ctx, RequestRecord{ID: "q_err", Kind: KindStream, Status: StatusActive}); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	if err := log.RecordEnd(ctx, "q_err", StatusCompleted, "cli_not_found", 0, 0, 0); err != nil {
		t.Fatalf("RecordEnd: %v", err)
	}

	summary, err := log.Summarize(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Errored != 1 {
		t.Fatalf("expected 1 errored request, got %d", summary.Errored)
	}
}

func TestListFiltersByStatusAndSince(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	for _, id := range []string{"q_a", "q_b"} {
		if err := log.RecordStart(ctx, RequestRecord{ID: id, Kind: KindAsync, Status: StatusActive}); err != nil {
			t.Fatalf("RecordStart(%s): %v", id, err)
		}
	}
	if err := log.RecordEnd(ctx, "q_a", StatusCompleted, "", 1, 0, 0); err != nil {
		t.Fatalf("RecordEnd: %v", err)
	}

	completed, err := log.List(ctx, ListOptions{Status: StatusCompleted})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "q_a" {
		t.Fatalf("expected only q_a to be completed, got %+v", completed)
	}

	future, err := log.List(ctx, ListOptions{Since: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(future) != 0 {
		t.Fatalf("expected no records starting after now+1h, got %d", len(future))
	}
}

func TestNoopLogDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	var log Log = &NoopLog{}

	if err := log.RecordStart(ctx, RequestRecord{ID: "q_1"}); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	out, err := log.List(ctx, ListOptions{})
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty list from NoopLog, got %v, err=%v", out, err)
	}
}
