package plan_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/myrjola/aitrainer/internal/plan"
	"github.com/myrjola/aitrainer/internal/sqlite"
	"github.com/myrjola/aitrainer/internal/testhelpers"
)

func newRepository(t *testing.T) (*plan.Repository, *sqlite.Database) {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return plan.NewRepository(db, logger), db
}

func insertUser(t *testing.T, db *sqlite.Database, id int) {
	t.Helper()
	if _, err := db.ReadWrite.ExecContext(t.Context(),
		`INSERT INTO users (id, webauthn_id, display_name) VALUES (?, randomblob(64), 'test')`, id); err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func TestRepository(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	repo, db := newRepository(t)
	insertUser(t, db, 1)

	anonymous := plan.Owner{UserID: 0, Key: "session-a"}
	saved, err := repo.Save(ctx, plan.Plan{ //nolint:exhaustruct // test only
		Owner:      anonymous,
		Generator:  "rules",
		Submission: submission(t),
		Draft:      plan.Draft{Summary: "s", Workout: "w", Diet: "d"},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == uuid.Nil || saved.CreatedAt.IsZero() {
		t.Fatalf("Save() did not assign id and timestamp: %+v", saved)
	}

	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	if _, err = repo.Get(ctx, uuid.New()); !errors.Is(err, plan.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}

	list, err := repo.List(ctx, plan.Owner{UserID: 0, Key: "session-b"})
	if err != nil || len(list) != 0 {
		t.Errorf("List(other session) = %d plans, %v", len(list), err)
	}

	n, err := repo.Claim(ctx, anonymous.Key, 1)
	if err != nil || n != 1 {
		t.Fatalf("Claim() = %d, %v", n, err)
	}
	list, err = repo.List(ctx, plan.Owner{UserID: 1, Key: "after-sign-in"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != saved.ID || list[0].Owner.UserID != 1 {
		t.Errorf("List(user) = %+v, want the claimed plan", list)
	}
	list, err = repo.List(ctx, anonymous)
	if err != nil || len(list) != 0 {
		t.Errorf("claimed plan still listed for the anonymous key: %d, %v", len(list), err)
	}
}
