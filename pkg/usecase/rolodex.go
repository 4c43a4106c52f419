package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
)

// syncPageSize is the page size used when bulk syncing the rolodex
const syncPageSize = 200

// RolodexUseCase manages the workspace-scoped user and channel cache
type RolodexUseCase struct {
	repo    interfaces.Repository
	slack   interfaces.SlackClient
	invoker *Invoker
}

// NewRolodexUseCase creates a RolodexUseCase. slackClient is only needed for sync.
func NewRolodexUseCase(repo interfaces.Repository, slackClient interfaces.SlackClient, invoker *Invoker) *RolodexUseCase {
	return &RolodexUseCase{
		repo:    repo,
		slack:   slackClient,
		invoker: invoker,
	}
}

// AddUser upserts a user record by hand
func (uc *RolodexUseCase) AddUser(ctx context.Context, user *model.RolodexUser) (*model.RolodexUser, error) {
	stored, err := uc.repo.Rolodex().UpsertUser(ctx, user)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to add user", goerr.V("user_id", user.UserID))
	}
	return stored, nil
}

// AddChannel upserts a channel record by hand
func (uc *RolodexUseCase) AddChannel(ctx context.Context, channel *model.RolodexChannel) (*model.RolodexChannel, error) {
	stored, err := uc.repo.Rolodex().UpsertChannel(ctx, channel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to add channel", goerr.V(model.ChannelIDKey, channel.ChannelID))
	}
	return stored, nil
}

func (uc *RolodexUseCase) GetUser(ctx context.Context, workspaceID, identifier string) (*model.RolodexUser, error) {
	return uc.repo.Rolodex().GetUser(ctx, workspaceID, identifier)
}

func (uc *RolodexUseCase) GetChannel(ctx context.Context, workspaceID, identifier string) (*model.RolodexChannel, error) {
	return uc.repo.Rolodex().GetChannel(ctx, workspaceID, identifier)
}

func (uc *RolodexUseCase) ListUsers(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexUser, error) {
	return uc.repo.Rolodex().ListUsers(ctx, workspaceID, limit, offset)
}

func (uc *RolodexUseCase) ListChannels(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexChannel, error) {
	return uc.repo.Rolodex().ListChannels(ctx, workspaceID, limit, offset)
}

func (uc *RolodexUseCase) SearchUsers(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexUser, error) {
	return uc.repo.Rolodex().SearchUsers(ctx, workspaceID, query, limit)
}

func (uc *RolodexUseCase) SearchChannels(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexChannel, error) {
	return uc.repo.Rolodex().SearchChannels(ctx, workspaceID, query, limit)
}

func (uc *RolodexUseCase) RemoveUser(ctx context.Context, workspaceID, identifier string) (bool, error) {
	return uc.repo.Rolodex().RemoveUser(ctx, workspaceID, identifier)
}

func (uc *RolodexUseCase) RemoveChannel(ctx context.Context, workspaceID, identifier string) (bool, error) {
	return uc.repo.Rolodex().RemoveChannel(ctx, workspaceID, identifier)
}

func (uc *RolodexUseCase) Clear(ctx context.Context, workspaceID string) (*model.ClearResult, error) {
	return uc.repo.Rolodex().Clear(ctx, workspaceID)
}

// SyncUsers pages through every workspace member and upserts each one,
// skipping deactivated accounts. Returns how many users were stored.
func (uc *RolodexUseCase) SyncUsers(ctx context.Context, workspaceID string) (int, error) {
	if uc.slack == nil {
		return 0, ErrNoSlackClient
	}

	type page struct {
		users []*interfaces.SlackUser
		next  string
	}

	count := 0
	cursor := ""
	for {
		p, err := Invoke(ctx, uc.invoker, "users.list", func(ctx context.Context) (page, error) {
			users, next, err := uc.slack.ListUsers(ctx, cursor, syncPageSize)
			return page{users: users, next: next}, err
		})
		if err != nil {
			return count, goerr.Wrap(err, "failed to list users", goerr.V("synced", count))
		}

		for _, u := range p.users {
			if u.Deleted {
				continue
			}
			if _, err := uc.repo.Rolodex().UpsertUser(ctx, userRecord(workspaceID, u)); err != nil {
				return count, goerr.Wrap(err, "failed to store user", goerr.V("user_id", u.ID))
			}
			count++
		}

		logging.From(ctx).Debug("synced users page", "page_size", len(p.users), "total", count)
		if p.next == "" {
			return count, nil
		}
		cursor = p.next
	}
}

// SyncChannels pages through every public and private channel and upserts
// each one. Returns how many channels were stored.
func (uc *RolodexUseCase) SyncChannels(ctx context.Context, workspaceID string) (int, error) {
	if uc.slack == nil {
		return 0, ErrNoSlackClient
	}

	type page struct {
		channels []*interfaces.SlackChannel
		next     string
	}

	count := 0
	cursor := ""
	for {
		p, err := Invoke(ctx, uc.invoker, "conversations.list", func(ctx context.Context) (page, error) {
			channels, next, err := uc.slack.ListChannels(ctx, cursor, syncPageSize)
			return page{channels: channels, next: next}, err
		})
		if err != nil {
			return count, goerr.Wrap(err, "failed to list channels", goerr.V("synced", count))
		}

		for _, ch := range p.channels {
			if _, err := uc.repo.Rolodex().UpsertChannel(ctx, channelRecord(workspaceID, ch)); err != nil {
				return count, goerr.Wrap(err, "failed to store channel", goerr.V(model.ChannelIDKey, ch.ID))
			}
			count++
		}

		logging.From(ctx).Debug("synced channels page", "page_size", len(p.channels), "total", count)
		if p.next == "" {
			return count, nil
		}
		cursor = p.next
	}
}
