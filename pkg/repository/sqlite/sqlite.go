package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
)

// Repository is an alias for SQLite to match the pattern
type Repository = SQLite

// SQLite persists the rolodex and aliases in a local SQLite file
type SQLite struct {
	db      *sql.DB
	rolodex *rolodexRepository
	alias   *aliasRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens the database at path and migrates it to the current schema
func New(ctx context.Context, path string) (*SQLite, error) {
	db, err := OpenDB(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to migrate database", goerr.V("path", path))
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database
func NewWithDB(db *sql.DB) *SQLite {
	return &SQLite{
		db:      db,
		rolodex: &rolodexRepository{db: db},
		alias:   &aliasRepository{db: db},
	}
}

func (s *SQLite) Rolodex() interfaces.RolodexRepository {
	return s.rolodex
}

func (s *SQLite) Alias() interfaces.AliasRepository {
	return s.alias
}

func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// rows written by older tools use SQLite's CURRENT_TIMESTAMP format
		t, _ = time.Parse(time.DateTime, s)
	}
	return t.UTC()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}

func boolPtr(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	b := nb.Bool
	return &b
}

// sqlLimit maps a non-positive limit to SQLite's "no limit"
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-folded substring pattern for LIKE ... ESCAPE '\'
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}
