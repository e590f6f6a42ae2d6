package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/myrjola/aitrainer/internal/testhelpers"
)

func TestDatabase_PurgeAnonymousPlans(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO users (id, webauthn_id, display_name)
VALUES (1, randomblob(64), 'owner')`); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-2 * AnonymousPlanRetention).Format(time.RFC3339)
	fresh := now.Add(-time.Hour).Format(time.RFC3339)
	rows := []struct {
		id      string
		userID  any
		created string
	}{
		{id: "00000000-0000-0000-0000-000000000001", userID: nil, created: old},
		{id: "00000000-0000-0000-0000-000000000002", userID: nil, created: fresh},
		{id: "00000000-0000-0000-0000-000000000003", userID: 1, created: old},
	}
	for _, r := range rows {
		if _, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO plans
    (id, user_id, owner_key, generator, submission, summary, workout, diet, created)
VALUES (?, ?, 'key', 'test', '{}', '', '', '', ?)`, r.id, r.userID, r.created); err != nil {
			t.Fatalf("Failed to insert plan: %v", err)
		}
	}

	purged, err := db.PurgeAnonymousPlans(ctx, now.Add(-AnonymousPlanRetention))
	if err != nil {
		t.Fatalf("PurgeAnonymousPlans() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeAnonymousPlans() = %d, want 1", purged)
	}
	var remaining int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT count(*) FROM plans").Scan(&remaining); err != nil {
		t.Fatalf("Failed to count plans: %v", err)
	}
	if remaining != 2 {
		t.Errorf("remaining plans = %d, want 2", remaining)
	}
}

func TestDatabase_CloseStopsHousekeeping(t *testing.T) {
	t.Parallel()
	// The loop would otherwise only stop with this context, long after the test has finished.
	ctx := context.Background()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err = db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-db.housekeepingDone:
	default:
		t.Fatal("housekeeping still running after Close")
	}
	if err = db.ReadWrite.PingContext(ctx); err == nil {
		t.Error("read-write pool still open after Close")
	}
}
