package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

type aliasRepository struct {
	db *sql.DB
}

var _ interfaces.AliasRepository = &aliasRepository{}

const aliasColumns = `alias, context, target_type, platform, target_id`

func scanAlias(row rowScanner) (*model.Alias, error) {
	var (
		a          model.Alias
		targetType string
	)
	if err := row.Scan(&a.Name, &a.Context, &targetType, &a.Platform, &a.TargetID); err != nil {
		return nil, err
	}
	a.TargetType = types.TargetType(targetType)
	return &a, nil
}

func (r *aliasRepository) Add(ctx context.Context, alias *model.Alias) error {
	if !alias.TargetType.IsValid() {
		return goerr.Wrap(model.ErrInvalidTargetType, "invalid alias target type", goerr.V("target_type", alias.TargetType))
	}

	platform := alias.Platform
	if platform == "" {
		platform = model.DefaultPlatform
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM aliases WHERE alias = ? AND context = ? AND target_type = ?`,
		alias.Name, alias.Context, string(alias.TargetType)).Scan(&exists)
	switch {
	case err == nil:
		return goerr.Wrap(model.ErrAliasConflict, "alias already exists",
			goerr.V(model.AliasKey, alias.Name), goerr.V(model.ContextKey, alias.Context))
	case !errors.Is(err, sql.ErrNoRows):
		return goerr.Wrap(err, "failed to check alias", goerr.V(model.AliasKey, alias.Name))
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO aliases (`+aliasColumns+`) VALUES (?, ?, ?, ?, ?)`,
		alias.Name, alias.Context, string(alias.TargetType), platform, alias.TargetID); err != nil {
		return goerr.Wrap(err, "failed to insert alias", goerr.V(model.AliasKey, alias.Name))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit alias")
	}
	return nil
}

func (r *aliasRepository) Get(ctx context.Context, name, contextName string) (*model.Alias, error) {
	query := `SELECT ` + aliasColumns + ` FROM aliases WHERE alias = ?`
	args := []any{name}
	if contextName != "" {
		query += ` AND context = ?`
		args = append(args, contextName)
	}
	query += ` ORDER BY context, target_type LIMIT 1`

	a, err := scanAlias(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "alias not found",
			goerr.V(model.AliasKey, name), goerr.V(model.ContextKey, contextName))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query alias", goerr.V(model.AliasKey, name))
	}
	return a, nil
}

func (r *aliasRepository) Resolve(ctx context.Context, name, contextName string, targetType types.TargetType) (*model.Alias, error) {
	a, err := scanAlias(r.db.QueryRowContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE alias = ? AND context = ? AND target_type = ?`,
		name, contextName, string(targetType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "alias not found",
			goerr.V(model.AliasKey, name), goerr.V(model.ContextKey, contextName), goerr.V("target_type", targetType))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve alias", goerr.V(model.AliasKey, name))
	}
	return a, nil
}

func (r *aliasRepository) List(ctx context.Context, filter model.AliasFilter) ([]*model.Alias, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Context != "" {
		conds = append(conds, "context = ?")
		args = append(args, filter.Context)
	}
	if filter.Platform != "" {
		conds = append(conds, "platform = ?")
		args = append(args, filter.Platform)
	}
	if filter.TargetType != "" {
		conds = append(conds, "target_type = ?")
		args = append(args, string(filter.TargetType))
	}

	query := `SELECT ` + aliasColumns + ` FROM aliases`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY alias, context, target_type LIMIT ? OFFSET ?`
	args = append(args, sqlLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list aliases")
	}
	defer func() { _ = rows.Close() }()

	aliases := make([]*model.Alias, 0)
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan alias")
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate aliases")
	}
	return aliases, nil
}

func (r *aliasRepository) Remove(ctx context.Context, name string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM aliases WHERE alias = ?`, name)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete alias", goerr.V(model.AliasKey, name))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count deleted aliases")
	}
	return int(n), nil
}
