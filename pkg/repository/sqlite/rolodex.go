package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

type rolodexRepository struct {
	db *sql.DB
}

var _ interfaces.RolodexRepository = &rolodexRepository{}

const (
	userColumns    = `user_id, workspace_id, username, real_name, email, last_updated`
	channelColumns = `channel_id, workspace_id, channel_name, is_private, last_updated`

	// username beats real name beats email
	userByNameQuery = `SELECT ` + userColumns + ` FROM rolodex_users
		WHERE workspace_id = ? AND (username = ? OR real_name = ? OR email = ?)
		ORDER BY CASE WHEN username = ? THEN 0 WHEN real_name = ? THEN 1 ELSE 2 END, user_id
		LIMIT 1`
	userByIDQuery      = `SELECT ` + userColumns + ` FROM rolodex_users WHERE workspace_id = ? AND user_id = ?`
	channelByNameQuery = `SELECT ` + channelColumns + ` FROM rolodex_channels
		WHERE workspace_id = ? AND channel_name = ? ORDER BY channel_id LIMIT 1`
	channelByIDQuery = `SELECT ` + channelColumns + ` FROM rolodex_channels WHERE workspace_id = ? AND channel_id = ?`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.RolodexUser, error) {
	var (
		u                         model.RolodexUser
		username, realName, email sql.NullString
		lastUpdated               string
	)
	if err := row.Scan(&u.UserID, &u.WorkspaceID, &username, &realName, &email, &lastUpdated); err != nil {
		return nil, err
	}
	u.Username = stringPtr(username)
	u.RealName = stringPtr(realName)
	u.Email = stringPtr(email)
	u.LastUpdated = parseTime(lastUpdated)
	return &u, nil
}

func scanChannel(row rowScanner) (*model.RolodexChannel, error) {
	var (
		ch          model.RolodexChannel
		name        sql.NullString
		isPrivate   sql.NullBool
		lastUpdated string
	)
	if err := row.Scan(&ch.ChannelID, &ch.WorkspaceID, &name, &isPrivate, &lastUpdated); err != nil {
		return nil, err
	}
	ch.Name = stringPtr(name)
	ch.IsPrivate = boolPtr(isPrivate)
	ch.LastUpdated = parseTime(lastUpdated)
	return &ch, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findUser(ctx context.Context, q queryer, workspaceID, identifier string) (*model.RolodexUser, error) {
	identifier = strings.TrimPrefix(identifier, types.TargetTypeUser.Decoration())

	var row *sql.Row
	if types.TargetTypeUser.IsPlatformID(identifier) {
		row = q.QueryRowContext(ctx, userByIDQuery, workspaceID, identifier)
	} else {
		row = q.QueryRowContext(ctx, userByNameQuery,
			workspaceID, identifier, identifier, identifier, identifier, identifier)
	}

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "rolodex user not found",
			goerr.V(model.WorkspaceIDKey, workspaceID), goerr.V(model.IdentifierKey, identifier))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query rolodex user", goerr.V(model.IdentifierKey, identifier))
	}
	return u, nil
}

func findChannel(ctx context.Context, q queryer, workspaceID, identifier string) (*model.RolodexChannel, error) {
	identifier = strings.TrimPrefix(identifier, types.TargetTypeChannel.Decoration())

	var row *sql.Row
	if types.TargetTypeChannel.IsPlatformID(identifier) {
		row = q.QueryRowContext(ctx, channelByIDQuery, workspaceID, identifier)
	} else {
		row = q.QueryRowContext(ctx, channelByNameQuery, workspaceID, identifier)
	}

	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "rolodex channel not found",
			goerr.V(model.WorkspaceIDKey, workspaceID), goerr.V(model.IdentifierKey, identifier))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query rolodex channel", goerr.V(model.IdentifierKey, identifier))
	}
	return ch, nil
}

func (r *rolodexRepository) UpsertUser(ctx context.Context, user *model.RolodexUser) (*model.RolodexUser, error) {
	if user.UserID == "" || user.WorkspaceID == "" {
		return nil, goerr.New("user ID and workspace ID are required", goerr.V("user_id", user.UserID))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO rolodex_users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, workspace_id) DO UPDATE SET
			username     = COALESCE(excluded.username, rolodex_users.username),
			real_name    = COALESCE(excluded.real_name, rolodex_users.real_name),
			email        = COALESCE(excluded.email, rolodex_users.email),
			last_updated = excluded.last_updated`,
		user.UserID, user.WorkspaceID,
		nullString(user.Username), nullString(user.RealName), nullString(user.Email),
		formatTime(time.Now()),
	); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert rolodex user", goerr.V("user_id", user.UserID))
	}

	stored, err := scanUser(tx.QueryRowContext(ctx, userByIDQuery, user.WorkspaceID, user.UserID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read back rolodex user", goerr.V("user_id", user.UserID))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit rolodex user")
	}
	return stored, nil
}

func (r *rolodexRepository) UpsertChannel(ctx context.Context, channel *model.RolodexChannel) (*model.RolodexChannel, error) {
	if channel.ChannelID == "" || channel.WorkspaceID == "" {
		return nil, goerr.New("channel ID and workspace ID are required", goerr.V("channel_id", channel.ChannelID))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO rolodex_channels (`+channelColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (channel_id, workspace_id) DO UPDATE SET
			channel_name = COALESCE(excluded.channel_name, rolodex_channels.channel_name),
			is_private   = COALESCE(excluded.is_private, rolodex_channels.is_private),
			last_updated = excluded.last_updated`,
		channel.ChannelID, channel.WorkspaceID,
		nullString(channel.Name), nullBool(channel.IsPrivate),
		formatTime(time.Now()),
	); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert rolodex channel", goerr.V(model.ChannelIDKey, channel.ChannelID))
	}

	stored, err := scanChannel(tx.QueryRowContext(ctx, channelByIDQuery, channel.WorkspaceID, channel.ChannelID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read back rolodex channel", goerr.V(model.ChannelIDKey, channel.ChannelID))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit rolodex channel")
	}
	return stored, nil
}

func (r *rolodexRepository) GetUser(ctx context.Context, workspaceID, identifier string) (*model.RolodexUser, error) {
	return findUser(ctx, r.db, workspaceID, identifier)
}

func (r *rolodexRepository) GetChannel(ctx context.Context, workspaceID, identifier string) (*model.RolodexChannel, error) {
	return findChannel(ctx, r.db, workspaceID, identifier)
}

func (r *rolodexRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*model.RolodexUser, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query rolodex users")
	}
	defer func() { _ = rows.Close() }()

	users := make([]*model.RolodexUser, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan rolodex user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rolodex users")
	}
	return users, nil
}

func (r *rolodexRepository) queryChannels(ctx context.Context, query string, args ...any) ([]*model.RolodexChannel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query rolodex channels")
	}
	defer func() { _ = rows.Close() }()

	channels := make([]*model.RolodexChannel, 0)
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan rolodex channel")
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rolodex channels")
	}
	return channels, nil
}

func (r *rolodexRepository) ListUsers(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexUser, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM rolodex_users
		WHERE workspace_id = ?
		ORDER BY COALESCE(username, ''), user_id
		LIMIT ? OFFSET ?`,
		workspaceID, sqlLimit(limit), max(offset, 0))
}

func (r *rolodexRepository) ListChannels(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexChannel, error) {
	return r.queryChannels(ctx, `SELECT `+channelColumns+` FROM rolodex_channels
		WHERE workspace_id = ?
		ORDER BY COALESCE(channel_name, ''), channel_id
		LIMIT ? OFFSET ?`,
		workspaceID, sqlLimit(limit), max(offset, 0))
}

func (r *rolodexRepository) SearchUsers(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexUser, error) {
	pattern := likePattern(query)
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM rolodex_users
		WHERE workspace_id = ? AND (
			`+foldFunc+`(username) LIKE ? ESCAPE '\' OR
			`+foldFunc+`(real_name) LIKE ? ESCAPE '\' OR
			`+foldFunc+`(email) LIKE ? ESCAPE '\')
		ORDER BY COALESCE(username, ''), user_id
		LIMIT ?`,
		workspaceID, pattern, pattern, pattern, sqlLimit(limit))
}

func (r *rolodexRepository) SearchChannels(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexChannel, error) {
	return r.queryChannels(ctx, `SELECT `+channelColumns+` FROM rolodex_channels
		WHERE workspace_id = ? AND `+foldFunc+`(channel_name) LIKE ? ESCAPE '\'
		ORDER BY COALESCE(channel_name, ''), channel_id
		LIMIT ?`,
		workspaceID, likePattern(query), sqlLimit(limit))
}

func (r *rolodexRepository) RemoveUser(ctx context.Context, workspaceID, identifier string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	u, err := findUser(ctx, tx, workspaceID, identifier)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rolodex_users WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, u.UserID); err != nil {
		return false, goerr.Wrap(err, "failed to delete rolodex user", goerr.V("user_id", u.UserID))
	}

	if err := tx.Commit(); err != nil {
		return false, goerr.Wrap(err, "failed to commit rolodex user removal")
	}
	return true, nil
}

func (r *rolodexRepository) RemoveChannel(ctx context.Context, workspaceID, identifier string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	ch, err := findChannel(ctx, tx, workspaceID, identifier)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rolodex_channels WHERE workspace_id = ? AND channel_id = ?`,
		workspaceID, ch.ChannelID); err != nil {
		return false, goerr.Wrap(err, "failed to delete rolodex channel", goerr.V(model.ChannelIDKey, ch.ChannelID))
	}

	if err := tx.Commit(); err != nil {
		return false, goerr.Wrap(err, "failed to commit rolodex channel removal")
	}
	return true, nil
}

func (r *rolodexRepository) Clear(ctx context.Context, workspaceID string) (*model.ClearResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	users, err := tx.ExecContext(ctx, `DELETE FROM rolodex_users WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to clear rolodex users", goerr.V(model.WorkspaceIDKey, workspaceID))
	}
	channels, err := tx.ExecContext(ctx, `DELETE FROM rolodex_channels WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to clear rolodex channels", goerr.V(model.WorkspaceIDKey, workspaceID))
	}

	usersDeleted, err := users.RowsAffected()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count deleted users")
	}
	channelsDeleted, err := channels.RowsAffected()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count deleted channels")
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit rolodex clear")
	}

	return &model.ClearResult{
		UsersDeleted:    int(usersDeleted),
		ChannelsDeleted: int(channelsDeleted),
	}, nil
}
