package interfaces

import (
	"context"

	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

// SlackClient is the narrow set of remote capabilities the core needs.
// Implementations return *model.RateLimitedError when the platform throttles.
type SlackClient interface {
	// History returns channel messages newest first
	History(ctx context.Context, q HistoryQuery) ([]model.Message, error)

	// Replies returns a thread, root first, then replies oldest first
	Replies(ctx context.Context, q RepliesQuery) ([]model.Message, error)

	// ListUsers returns one page of workspace members and the next cursor ("" when exhausted)
	ListUsers(ctx context.Context, cursor string, limit int) ([]*SlackUser, string, error)

	// ListChannels returns one page of public and private channels and the next cursor
	ListChannels(ctx context.Context, cursor string, limit int) ([]*SlackChannel, string, error)

	// OpenDM opens (or reuses) a direct message channel with the user
	OpenDM(ctx context.Context, userID string) (string, error)

	// PostMessage posts text and returns the new message's token
	PostMessage(ctx context.Context, channelID, text string, threadTS types.SlackTS) (string, error)

	// AddReaction adds an emoji reaction to the message at ts
	AddReaction(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error

	// RemoveReaction removes the caller's emoji reaction from the message at ts
	RemoveReaction(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error

	// DeleteMessage deletes the message at ts
	DeleteMessage(ctx context.Context, channelID string, ts types.SlackTS) error

	// UserConversations returns one page of conversations the caller is a
	// member of, direct messages included, and the next cursor
	UserConversations(ctx context.Context, cursor string, limit int) ([]*SlackChannel, string, error)

	// AuthTest returns the identity behind the token
	AuthTest(ctx context.Context) (*SlackIdentity, error)
}

// HistoryQuery selects channel history. Zero tokens leave the bound open.
// Oldest and Latest are inclusive when Inclusive is set.
type HistoryQuery struct {
	ChannelID string
	Oldest    types.SlackTS
	Latest    types.SlackTS
	Inclusive bool
	Limit     int
}

// RepliesQuery selects replies of the thread rooted at ThreadTS.
// Oldest is inclusive when Inclusive is set.
type RepliesQuery struct {
	ChannelID string
	ThreadTS  types.SlackTS
	Oldest    types.SlackTS
	Inclusive bool
	Limit     int
}

// SlackUser is a workspace member as listed by the remote API
type SlackUser struct {
	ID       string
	Name     string
	RealName string
	Email    string
	Deleted  bool
	IsBot    bool
}

// SlackChannel is a conversation as listed by the remote API
type SlackChannel struct {
	ID        string
	Name      string
	IsPrivate bool
}

// SlackIdentity is the result of an auth test
type SlackIdentity struct {
	UserID      string
	User        string
	WorkspaceID string
	Workspace   string
}
