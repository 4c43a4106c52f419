package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// CurrentVersion is the current schema version.
//
//	1: rolodex_users, rolodex_channels
//	2: aliases keyed by alias name only
//	3: aliases keyed by (alias, context, target_type)
const CurrentVersion = 3

// OpenDB opens the SQLite database at path with foreign keys and WAL enabled.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}

	// The CLI is single threaded, and a single connection keeps pragmas and
	// in-memory databases consistent across statements.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to enable foreign keys")
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to set journal mode")
	}

	return db, nil
}

// SchemaVersion returns the applied schema version, 0 for an empty database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var tableName string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, goerr.Wrap(err, "failed to check schema_version table")
	}

	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return 0, goerr.Wrap(err, "failed to query schema version")
	}
	return int(version.Int64), nil
}

// Migrate brings the database to CurrentVersion.
func Migrate(ctx context.Context, db *sql.DB) error {
	return MigrateTo(ctx, db, CurrentVersion)
}

// MigrateTo brings the database to the target version. Versions are applied
// in order inside one transaction; a database already at or beyond target
// is left untouched.
func MigrateTo(ctx context.Context, db *sql.DB, target int) error {
	if target < 1 || target > CurrentVersion {
		return goerr.New("unknown schema version", goerr.V("version", target))
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > CurrentVersion {
		return goerr.New("database schema is newer than this binary",
			goerr.V("version", current), goerr.V("supported", CurrentVersion))
	}
	if current >= target {
		return nil
	}

	if err := runMigrations(ctx, db, current, target); err != nil {
		return goerr.Wrap(err, "failed to run migrations", goerr.V("from", current), goerr.V("to", target))
	}

	logging.From(ctx).Debug("database migrated", "from", current, "to", target)
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB, startVersion, endVersion int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(stmts ...string) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return goerr.Wrap(err, "failed to execute migration statement", goerr.V("sql", stmt))
			}
		}
		return nil
	}

	if startVersion < 1 && endVersion >= 1 {
		if err := exec(
			`CREATE TABLE IF NOT EXISTS schema_version (
				version    INTEGER NOT NULL,
				applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS rolodex_users (
				user_id      TEXT NOT NULL,
				workspace_id TEXT NOT NULL,
				username     TEXT,
				real_name    TEXT,
				email        TEXT,
				last_updated TEXT NOT NULL,
				PRIMARY KEY (user_id, workspace_id)
			)`,
			`CREATE TABLE IF NOT EXISTS rolodex_channels (
				channel_id   TEXT NOT NULL,
				workspace_id TEXT NOT NULL,
				channel_name TEXT,
				is_private   INTEGER,
				last_updated TEXT NOT NULL,
				PRIMARY KEY (channel_id, workspace_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_rolodex_users_username ON rolodex_users(workspace_id, username)`,
			`CREATE INDEX IF NOT EXISTS idx_rolodex_channels_name ON rolodex_channels(workspace_id, channel_name)`,
		); err != nil {
			return err
		}
	}

	if startVersion < 2 && endVersion >= 2 {
		if err := exec(
			`CREATE TABLE IF NOT EXISTS aliases (
				alias       TEXT PRIMARY KEY,
				context     TEXT NOT NULL,
				target_type TEXT NOT NULL,
				platform    TEXT NOT NULL,
				target_id   TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		); err != nil {
			return err
		}
	}

	// SQLite cannot alter a primary key, so the table is rebuilt
	if startVersion < 3 && endVersion >= 3 {
		if err := exec(
			`CREATE TABLE aliases_v3 (
				alias       TEXT NOT NULL,
				context     TEXT NOT NULL,
				target_type TEXT NOT NULL,
				platform    TEXT NOT NULL,
				target_id   TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (alias, context, target_type)
			)`,
			`INSERT INTO aliases_v3 (alias, context, target_type, platform, target_id, created_at)
				SELECT alias, context, target_type, platform, target_id, created_at FROM aliases`,
			`DROP TABLE aliases`,
			`ALTER TABLE aliases_v3 RENAME TO aliases`,
			`CREATE INDEX IF NOT EXISTS idx_aliases_platform_target ON aliases(platform, target_id)`,
			`CREATE INDEX IF NOT EXISTS idx_aliases_context ON aliases(context)`,
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", endVersion); err != nil {
		return goerr.Wrap(err, "failed to set schema version")
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit migrations")
	}
	return nil
}
