package plan

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/sqlite"
)

// Repository stores plans in sqlite.
type Repository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewRepository(db *sqlite.Database, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Save assigns an id and creation time to p and inserts it.
func (r *Repository) Save(ctx context.Context, p Plan) (Plan, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Plan{}, errors.Wrap(err, "new plan id")
	}
	p.ID = id
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)

	submission, err := json.Marshal(p.Submission)
	if err != nil {
		return Plan{}, errors.Wrap(err, "encode submission")
	}
	var userID sql.NullInt64
	if p.Owner.UserID != 0 {
		userID = sql.NullInt64{Int64: int64(p.Owner.UserID), Valid: true}
	}
	if _, err = r.db.ReadWrite.ExecContext(ctx, `INSERT INTO plans
    (id, user_id, owner_key, generator, submission, summary, workout, diet, created)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), userID, p.Owner.Key, p.Generator, string(submission),
		p.Summary, p.Workout, p.Diet, p.CreatedAt.Format(time.RFC3339)); err != nil {
		return Plan{}, errors.Wrap(err, "insert plan", slog.String("plan_id", p.ID.String()))
	}
	return p, nil
}

const selectPlan = `SELECT id, COALESCE(user_id, 0), owner_key, generator, submission, summary, workout, diet, created
FROM plans`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (Plan, error) {
	var (
		p                   Plan
		id, sub, createdStr string
	)
	if err := row.Scan(&id, &p.Owner.UserID, &p.Owner.Key, &p.Generator, &sub,
		&p.Summary, &p.Workout, &p.Diet, &createdStr); err != nil {
		return Plan{}, err //nolint:wrapcheck // callers wrap and check sql.ErrNoRows.
	}
	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return Plan{}, errors.Wrap(err, "parse plan id", slog.String("plan_id", id))
	}
	if err = json.Unmarshal([]byte(sub), &p.Submission); err != nil {
		return Plan{}, errors.Wrap(err, "decode submission", slog.String("plan_id", id))
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return Plan{}, errors.Wrap(err, "parse created", slog.String("plan_id", id))
	}
	return p, nil
}

// Get returns the plan with id or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Plan, error) {
	p, err := scanPlan(r.db.ReadOnly.QueryRowContext(ctx, selectPlan+` WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, errors.Wrap(ErrNotFound, "get plan", slog.String("plan_id", id.String()))
	}
	if err != nil {
		return Plan{}, errors.Wrap(err, "get plan", slog.String("plan_id", id.String()))
	}
	return p, nil
}

// List returns the plans visible to o, newest first. A signed-in owner sees the plans of their account as well as
// the ones generated in the current session.
func (r *Repository) List(ctx context.Context, o Owner) ([]Plan, error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, selectPlan+`
WHERE (user_id IS NOT NULL AND user_id = :user_id)
   OR (user_id IS NULL AND owner_key = :owner_key AND :owner_key <> '')
ORDER BY created DESC, id DESC`,
		sql.Named("user_id", o.UserID), sql.Named("owner_key", o.Key))
	if err != nil {
		return nil, errors.Wrap(err, "query plans")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", errors.SlogError(closeErr))
		}
	}()

	var plans []Plan
	for rows.Next() {
		p, scanErr := scanPlan(rows)
		if scanErr != nil {
			return nil, errors.Wrap(scanErr, "scan plan")
		}
		plans = append(plans, p)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return plans, nil
}

// Claim moves the anonymous plans generated under key to userID and returns how many moved.
func (r *Repository) Claim(ctx context.Context, key string, userID int) (int64, error) {
	if key == "" || userID == 0 {
		return 0, nil
	}
	res, err := r.db.ReadWrite.ExecContext(ctx,
		`UPDATE plans SET user_id = ? WHERE user_id IS NULL AND owner_key = ?`, userID, key)
	if err != nil {
		return 0, errors.Wrap(err, "claim plans", slog.Int("user_id", userID))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}
