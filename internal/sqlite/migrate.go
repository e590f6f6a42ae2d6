package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/myrjola/aitrainer/internal/errors"
)

// migrateTo brings the live schema in line with schemaDefinition.
//
// The target schema is created in an attached in-memory database and diffed against the live one. Tables are
// dropped, created or rebuilt with the 12-step procedure from https://www.sqlite.org/lang_altertable.html#otheralter
// and afterwards indexes and triggers are synchronised.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach schema target: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			// Continuing without foreign keys would corrupt data.
			db.logger.LogAttrs(ctx, slog.LevelError, "exit after failing to enable foreign keys",
				errors.SlogError(fkErr))
			if killErr := syscall.Kill(syscall.Getpid(), syscall.SIGINT); killErr != nil {
				os.Exit(1)
			}
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer db.rollback(ctx, tx)

	diffs, err := db.diffSchema(ctx, tx, "table")
	if err != nil {
		return fmt.Errorf("diff tables: %w", err)
	}
	for _, d := range diffs {
		if err = db.applyTableDiff(ctx, tx, d); err != nil {
			return fmt.Errorf("table %s: %w", d.name, err)
		}
	}

	// Rebuilt tables lose their indexes and triggers, so diff these only after the tables are done.
	for _, typ := range []string{"trigger", "index"} {
		if diffs, err = db.diffSchema(ctx, tx, typ); err != nil {
			return fmt.Errorf("diff %ss: %w", typ, err)
		}
		for _, d := range diffs {
			if err = db.applyDiff(ctx, tx, d); err != nil {
				return fmt.Errorf("%s %s: %w", typ, d.name, err)
			}
		}
	}

	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachSchemaTarget initialises a scratch database with schemaDefinition and attaches it as schemaTarget. The
// returned function detaches it again.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	targetDSN := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", targetDSN)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	// The shared cache keeps the data alive while ReadWrite has it attached.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target", errors.SlogError(closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", targetDSN); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target", errors.SlogError(detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback", errors.SlogError(err))
	}
}

type diffOp string

const (
	opCreate diffOp = "create"
	opDrop   diffOp = "drop"
	opChange diffOp = "change"
)

type schemaDiff struct {
	op      diffOp
	typ     string
	name    string
	liveSQL string
	newSQL  string
}

// diffSchema lists the objects of type typ that differ between main and schemaTarget.
//
// ALTER TABLE RENAME quotes the table name in sqlite_schema.sql so quotes are ignored in the comparison.
func (db *Database) diffSchema(ctx context.Context, tx *sql.Tx, typ string) ([]schemaDiff, error) {
	const query = `SELECT CASE
           WHEN target.name IS NULL THEN 'drop'
           WHEN live.name IS NULL THEN 'create'
           ELSE 'change' END          AS op,
       COALESCE(live.name, target.name) AS name,
       COALESCE(live.sql, '')         AS live_sql,
       COALESCE(target.sql, '')       AS new_sql
FROM (SELECT name, sql FROM main.sqlite_schema WHERE type = :type) AS live
         FULL OUTER JOIN (SELECT name, sql FROM schemaTarget.sqlite_schema WHERE type = :type) AS target
                         ON live.name = target.name
WHERE COALESCE(live.name, target.name) NOT LIKE 'sqlite_%'
  AND COALESCE(live.name, target.name) NOT LIKE '_litestream_%'
  AND (live.name IS NULL OR target.name IS NULL
    OR REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', ''))
ORDER BY op, name`

	rows, err := tx.QueryContext(ctx, query, sql.Named("type", typ))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer db.closeRows(ctx, rows)

	var diffs []schemaDiff
	for rows.Next() {
		d := schemaDiff{typ: typ} //nolint:exhaustruct // scanned below.
		if err = rows.Scan(&d.op, &d.name, &d.liveSQL, &d.newSQL); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		diffs = append(diffs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return diffs, nil
}

func (db *Database) applyTableDiff(ctx context.Context, tx *sql.Tx, d schemaDiff) error {
	if d.op != opChange {
		return db.applyDiff(ctx, tx, d)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
		slog.String("table", d.name),
		slog.String("live_sql", d.liveSQL),
		slog.String("new_sql", d.newSQL))

	tempName := d.name + "_migration_temp"
	columns, err := db.commonColumns(ctx, tx, d.name)
	if err != nil {
		return fmt.Errorf("common columns: %w", err)
	}
	common := strings.Join(columns, ", ")
	for _, stmt := range []string{
		strings.Replace(d.newSQL, d.name, tempName, 1),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, common, common, d.name),
		"DROP TABLE " + d.name,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, d.name),
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// applyDiff handles creation and deletion of any object type and rebuilds changed indexes and triggers.
func (db *Database) applyDiff(ctx context.Context, tx *sql.Tx, d schemaDiff) error {
	var stmts []string
	drop := fmt.Sprintf("DROP %s %s", strings.ToUpper(d.typ), d.name)
	switch d.op {
	case opDrop:
		stmts = []string{drop}
	case opCreate:
		stmts = []string{d.newSQL}
	case opChange:
		stmts = []string{drop, d.newSQL}
	}
	for _, stmt := range stmts {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating schema",
			slog.String("op", string(d.op)),
			slog.String("type", d.typ),
			slog.String("query", stmt))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// commonColumns returns the quoted names of columns present in both the live and target versions of table.
func (db *Database) commonColumns(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS live
         JOIN PRAGMA_TABLE_INFO(:table, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer db.closeRows(ctx, rows)

	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return columns, nil
}

func (db *Database) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to close rows", errors.SlogError(err))
	}
}
