package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/aitrainer/internal/errors"
)

// AnonymousPlanRetention is how long plans generated without a signed-in user are kept.
const AnonymousPlanRetention = 30 * 24 * time.Hour

// housekeeping optimises the database and purges stale anonymous plans once per hour until ctx is done.
//
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) housekeeping(ctx context.Context) {
	// Analyse all tables once for long-lived connections.
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002"); err != nil && ctx.Err() == nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
	}
	for {
		db.runHousekeeping(ctx, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Hour):
		}
	}
}

func (db *Database) runHousekeeping(ctx context.Context, now time.Time) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize"); err != nil && ctx.Err() == nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
	}
	purged, err := db.PurgeAnonymousPlans(ctx, now.Add(-AnonymousPlanRetention))
	if err != nil && ctx.Err() == nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to purge anonymous plans", errors.SlogError(err))
	}
	// Interrupted by Close.
	if ctx.Err() != nil {
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "ran database housekeeping",
		slog.Int64("purged_plans", purged),
		slog.Duration("duration", time.Since(start)))
}

// PurgeAnonymousPlans deletes plans without an owner created before cutoff and returns how many were removed.
func (db *Database) PurgeAnonymousPlans(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ReadWrite.ExecContext(ctx,
		"DELETE FROM plans WHERE user_id IS NULL AND created < ?", cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, errors.Wrap(err, "delete plans")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}
