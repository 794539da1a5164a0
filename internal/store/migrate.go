// Package store is the domain layer sitting on top of the SQLite schema:
// file, tag, pool, and tag-source CRUD, library configuration, and the
// migration runner that brings a database up to the current schema
// version before any of that CRUD runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/awtfdb/awtfdb/internal/config"
	"github.com/awtfdb/awtfdb/internal/store/migrations"
)

// RunMigrations brings db up to the latest schema version. dbPath is the
// on-disk file backing db, used to place the pre-migration backup copy;
// pass "" for an in-memory database, which skips the backup step.
//
// A single connection is pinned for the whole run so that the EXCLUSIVE
// lock, the SAVEPOINTs, and the final PRAGMA checks all observe the same
// SQLite connection state.
func RunMigrations(ctx context.Context, db *sql.DB, dbPath string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("pin migration connection: %w", err)
	}
	defer conn.Close()

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return fmt.Errorf("determine applied migrations: %w", err)
	}

	var pending []migrations.Step
	for _, step := range migrations.All() {
		if !applied[step.Version] {
			pending = append(pending, step)
		}
	}
	if len(pending) == 0 {
		logger.DebugContext(ctx, "no pending migrations")
		return nil
	}

	logger.InfoContext(ctx, "running migrations", "pending", len(pending))

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() { _, _ = conn.ExecContext(context.Background(), `PRAGMA foreign_keys = ON`) }()

	if dbPath != "" {
		if err := backupBeforeMigration(ctx, conn, dbPath); err != nil {
			return fmt.Errorf("backup before migration: %w", err)
		}
	}

	for _, step := range pending {
		if err := runStep(ctx, conn, step); err != nil {
			return fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
		}
		logger.InfoContext(ctx, "applied migration", "version", step.Version, "name", step.Name)
	}

	if err := writeSchemaMeta(ctx, conn, pending[len(pending)-1].Version); err != nil {
		return fmt.Errorf("write schema_meta: %w", err)
	}

	if err := verifyChecks(ctx, conn); err != nil {
		return fmt.Errorf("post-migration verification: %w", err)
	}

	return nil
}

// writeSchemaMeta records the current schema version and, the first time
// it's ever written, a creation timestamp. schema_meta is a cheap marker
// for callers that want "what version is this" without scanning
// migration_logs; migration_logs stays the authoritative per-step audit
// trail.
func writeSchemaMeta(ctx context.Context, conn *sql.Conn, latestVersion int) error {
	_, err := conn.ExecContext(ctx, `
		INSERT INTO schema_meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, fmt.Sprintf("%d", latestVersion))
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO schema_meta (key, value) VALUES ('created_at', ?)
		ON CONFLICT(key) DO NOTHING
	`, fmt.Sprintf("%d", time.Now().Unix()))
	return err
}

// appliedVersions returns the set of migration versions already recorded
// in migration_logs. A database with no migration_logs table yet (i.e. one
// that has never had migration 1 applied) reports an empty set.
func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int]bool, error) {
	var exists int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'migration_logs'`).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return map[int]bool{}, nil
	}

	rows, err := conn.QueryContext(ctx, `SELECT version FROM migration_logs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// runStep applies one migration step and records it in migration_logs.
// Transactional steps get their own SAVEPOINT (SQLite starts an implicit
// transaction for one if none is already open); the lone non-transactional
// step (WAL mode) runs directly in autocommit mode, since PRAGMA
// journal_mode only takes effect outside a transaction.
func runStep(ctx context.Context, conn *sql.Conn, step migrations.Step) error {
	savepoint := fmt.Sprintf("migration_%d", step.Version)

	if step.Transaction {
		if _, err := conn.ExecContext(ctx, `SAVEPOINT `+savepoint); err != nil {
			return fmt.Errorf("open savepoint: %w", err)
		}
		if err := step.Run(ctx, conn); err != nil {
			_, _ = conn.ExecContext(ctx, `ROLLBACK TO `+savepoint)
			_, _ = conn.ExecContext(ctx, `RELEASE `+savepoint)
			return err
		}
		if _, err := conn.ExecContext(ctx, `RELEASE `+savepoint); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
	} else {
		if err := step.Run(ctx, conn); err != nil {
			return err
		}
	}

	_, err := conn.ExecContext(ctx,
		`INSERT INTO migration_logs (version, applied_at, description) VALUES (?, ?, ?)`,
		step.Version, time.Now().Unix(), step.Description)
	return err
}

// backupBeforeMigration copies the database file to its sibling backup
// path, guarded by an EXCLUSIVE transaction so that a concurrently opening
// process can't observe the database mid-copy or start its own migration
// run at the same time.
func backupBeforeMigration(ctx context.Context, conn *sql.Conn, dbPath string) error {
	if _, err := conn.ExecContext(ctx, `BEGIN EXCLUSIVE`); err != nil {
		return fmt.Errorf("acquire exclusive lock: %w", err)
	}
	defer func() { _, _ = conn.ExecContext(ctx, `COMMIT`) }()

	src, err := os.Open(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Nothing on disk yet (fresh in-process file, not yet flushed);
			// nothing to back up.
			return nil
		}
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		// SQLite creates the file when the connection opens but writes
		// nothing to it until the first change; an empty file has nothing
		// to back up either.
		return nil
	}

	dst, err := os.OpenFile(config.BackupPath(dbPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// verifyChecks runs the two PRAGMA consistency checks spec.md requires
// after a migration run completes.
func verifyChecks(ctx context.Context, conn *sql.Conn) error {
	var integrity string
	if err := conn.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&integrity); err != nil {
		return err
	}
	if integrity != "ok" {
		return &FailedIntegrityCheckError{Detail: integrity}
	}

	rows, err := conn.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return &FailedForeignKeyCheckError{}
	}
	return rows.Err()
}
