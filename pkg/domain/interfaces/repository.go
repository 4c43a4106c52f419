package interfaces

import (
	"context"

	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

// Repository defines the interface for the local identifier cache
type Repository interface {
	Rolodex() RolodexRepository
	Alias() AliasRepository

	Close() error
}

// RolodexRepository stores workspace-scoped user and channel records.
// Every mutation is committed before it returns.
type RolodexRepository interface {
	// UpsertUser inserts the user or merges the supplied non-nil fields into
	// the existing row. LastUpdated is always refreshed. Returns the stored row.
	UpsertUser(ctx context.Context, user *model.RolodexUser) (*model.RolodexUser, error)

	// UpsertChannel is UpsertUser for channels
	UpsertChannel(ctx context.Context, channel *model.RolodexChannel) (*model.RolodexChannel, error)

	// GetUser looks up by user ID when identifier has the user ID shape,
	// otherwise by username, real name or email. Returns model.ErrNotFound on miss.
	GetUser(ctx context.Context, workspaceID, identifier string) (*model.RolodexUser, error)

	// GetChannel looks up by channel ID when identifier has the channel ID
	// shape, otherwise by name (leading "#" ignored). Returns model.ErrNotFound on miss.
	GetChannel(ctx context.Context, workspaceID, identifier string) (*model.RolodexChannel, error)

	// ListUsers returns users ordered by username
	ListUsers(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexUser, error)

	// ListChannels returns channels ordered by name
	ListChannels(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexChannel, error)

	// SearchUsers matches query case-insensitively against username, real name and email
	SearchUsers(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexUser, error)

	// SearchChannels matches query case-insensitively against the channel name
	SearchChannels(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexChannel, error)

	// RemoveUser deletes the user matched as in GetUser. Reports whether a row was removed.
	RemoveUser(ctx context.Context, workspaceID, identifier string) (bool, error)

	// RemoveChannel deletes the channel matched as in GetChannel
	RemoveChannel(ctx context.Context, workspaceID, identifier string) (bool, error)

	// Clear removes every user and channel of the workspace
	Clear(ctx context.Context, workspaceID string) (*model.ClearResult, error)
}

// AliasRepository stores context-scoped aliases
type AliasRepository interface {
	// Add creates the alias. Returns model.ErrAliasConflict when the
	// (name, context, target type) key already exists.
	Add(ctx context.Context, alias *model.Alias) error

	// Get returns the first alias with the name. An empty contextName matches
	// every context and is for administrative lookups only.
	Get(ctx context.Context, name, contextName string) (*model.Alias, error)

	// Resolve returns the alias bound in exactly contextName for targetType.
	// Returns model.ErrNotFound on miss.
	Resolve(ctx context.Context, name, contextName string, targetType types.TargetType) (*model.Alias, error)

	// List returns aliases ordered by name
	List(ctx context.Context, filter model.AliasFilter) ([]*model.Alias, error)

	// Remove deletes every alias with the name regardless of context and
	// returns how many rows were removed
	Remove(ctx context.Context, name string) (int, error)
}
