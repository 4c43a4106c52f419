package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
)

// remoteLookupLimit is the page size of the single users.list or
// conversations.list call made when the cache misses
const remoteLookupLimit = 1000

// Resolver turns human-supplied user and channel tokens into platform IDs.
// Lookups go literal ID, alias in the caller's context, workspace cache,
// then the remote API; a remote hit is written back to the cache.
type Resolver struct {
	repo    interfaces.Repository
	slack   interfaces.SlackClient
	invoker *Invoker
}

// NewResolver creates a Resolver. slackClient may be nil, in which case the
// remote stage is skipped.
func NewResolver(repo interfaces.Repository, slackClient interfaces.SlackClient, invoker *Invoker) *Resolver {
	return &Resolver{
		repo:    repo,
		slack:   slackClient,
		invoker: invoker,
	}
}

// ResolveUser resolves a user ID, @name, bare name, email or alias
func (r *Resolver) ResolveUser(ctx context.Context, scope model.Scope, token string) (string, error) {
	return r.Resolve(ctx, scope, types.TargetTypeUser, token)
}

// ResolveChannel resolves a channel ID, #name, bare name or alias
func (r *Resolver) ResolveChannel(ctx context.Context, scope model.Scope, token string) (string, error) {
	return r.Resolve(ctx, scope, types.TargetTypeChannel, token)
}

// Resolve runs the lookup cascade for kind
func (r *Resolver) Resolve(ctx context.Context, scope model.Scope, kind types.TargetType, token string) (string, error) {
	notFound := notFoundError(kind)
	token = strings.TrimSpace(token)
	if token == "" {
		return "", goerr.Wrap(notFound, "empty identifier")
	}

	if kind.IsPlatformID(token) {
		return token, nil
	}

	logger := logging.From(ctx).With(model.IdentifierKey, token, "kind", kind)

	// Aliases never resolve without a context, so one context cannot see
	// another's bindings.
	if scope.ContextName != "" {
		alias, err := r.repo.Alias().Resolve(ctx, token, scope.ContextName, kind)
		switch {
		case err == nil:
			logger.Debug("resolved by alias", model.ContextKey, scope.ContextName)
			return alias.TargetID, nil
		case !errors.Is(err, model.ErrNotFound):
			return "", goerr.Wrap(err, "failed to look up alias", goerr.V(model.IdentifierKey, token))
		}
	}

	name := strings.TrimPrefix(token, kind.Decoration())
	if name == "" {
		return "", goerr.Wrap(notFound, "empty identifier", goerr.V(model.IdentifierKey, token))
	}

	id, err := r.lookupCache(ctx, scope.WorkspaceID, kind, name)
	if err == nil {
		logger.Debug("resolved from cache")
		return id, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return "", err
	}

	if r.slack == nil {
		return "", goerr.Wrap(notFound, "identifier not in cache and no remote client",
			goerr.V(model.IdentifierKey, token), goerr.V(model.WorkspaceIDKey, scope.WorkspaceID))
	}

	var remoteErr error
	switch kind {
	case types.TargetTypeUser:
		id, remoteErr = r.resolveRemoteUser(ctx, scope.WorkspaceID, name)
	case types.TargetTypeChannel:
		id, remoteErr = r.resolveRemoteChannel(ctx, scope.WorkspaceID, name)
	default:
		return "", goerr.Wrap(model.ErrInvalidTargetType, "cannot resolve", goerr.V("kind", kind))
	}
	if remoteErr == nil && id != "" {
		logger.Debug("resolved from remote", "id", id)
		return id, nil
	}

	// Cancellation and exhausted throttling are reported as themselves. Any
	// other remote failure reads as not found.
	if remoteErr != nil {
		var rle *model.RateLimitedError
		if ctx.Err() != nil || errors.As(remoteErr, &rle) {
			return "", remoteErr
		}
		return "", goerr.Wrap(notFound, "identifier could not be resolved",
			goerr.V(model.IdentifierKey, token),
			goerr.V(model.WorkspaceIDKey, scope.WorkspaceID),
			goerr.V("cause", remoteErr.Error()))
	}
	return "", goerr.Wrap(notFound, "identifier could not be resolved",
		goerr.V(model.IdentifierKey, token), goerr.V(model.WorkspaceIDKey, scope.WorkspaceID))
}

func notFoundError(kind types.TargetType) error {
	if kind == types.TargetTypeChannel {
		return model.ErrChannelNotFound
	}
	return model.ErrUserNotFound
}

func (r *Resolver) lookupCache(ctx context.Context, workspaceID string, kind types.TargetType, name string) (string, error) {
	switch kind {
	case types.TargetTypeUser:
		u, err := r.repo.Rolodex().GetUser(ctx, workspaceID, name)
		if err != nil {
			return "", err
		}
		return u.UserID, nil
	case types.TargetTypeChannel:
		ch, err := r.repo.Rolodex().GetChannel(ctx, workspaceID, name)
		if err != nil {
			return "", err
		}
		return ch.ChannelID, nil
	}
	return "", goerr.Wrap(model.ErrInvalidTargetType, "cannot look up", goerr.V("kind", kind))
}

func (r *Resolver) resolveRemoteUser(ctx context.Context, workspaceID, name string) (string, error) {
	users, err := Invoke(ctx, r.invoker, "users.list", func(ctx context.Context) ([]*interfaces.SlackUser, error) {
		users, _, err := r.slack.ListUsers(ctx, "", remoteLookupLimit)
		return users, err
	})
	if err != nil {
		return "", err
	}

	for _, u := range users {
		if u.Name != name && u.RealName != name && u.Email != name {
			continue
		}

		if _, err := r.repo.Rolodex().UpsertUser(ctx, userRecord(workspaceID, u)); err != nil {
			logging.From(ctx).Warn("failed to cache resolved user", "user_id", u.ID, "error", err)
		}
		return u.ID, nil
	}
	return "", nil
}

func (r *Resolver) resolveRemoteChannel(ctx context.Context, workspaceID, name string) (string, error) {
	channels, err := Invoke(ctx, r.invoker, "conversations.list", func(ctx context.Context) ([]*interfaces.SlackChannel, error) {
		channels, _, err := r.slack.ListChannels(ctx, "", remoteLookupLimit)
		return channels, err
	})
	if err != nil {
		return "", err
	}

	for _, ch := range channels {
		if ch.Name != name {
			continue
		}

		if _, err := r.repo.Rolodex().UpsertChannel(ctx, channelRecord(workspaceID, ch)); err != nil {
			logging.From(ctx).Warn("failed to cache resolved channel", model.ChannelIDKey, ch.ID, "error", err)
		}
		return ch.ID, nil
	}
	return "", nil
}

// optional turns "" into nil so an upsert leaves the stored field alone
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func userRecord(workspaceID string, u *interfaces.SlackUser) *model.RolodexUser {
	return &model.RolodexUser{
		UserID:      u.ID,
		WorkspaceID: workspaceID,
		Username:    optional(u.Name),
		RealName:    optional(u.RealName),
		Email:       optional(u.Email),
	}
}

func channelRecord(workspaceID string, ch *interfaces.SlackChannel) *model.RolodexChannel {
	return &model.RolodexChannel{
		ChannelID:   ch.ID,
		WorkspaceID: workspaceID,
		Name:        optional(ch.Name),
		IsPrivate:   model.Ptr(ch.IsPrivate),
	}
}
