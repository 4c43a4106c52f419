package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

type rolodexKey struct {
	workspaceID string
	id          string
}

type rolodexRepository struct {
	mu       sync.RWMutex
	users    map[rolodexKey]*model.RolodexUser
	channels map[rolodexKey]*model.RolodexChannel
}

var _ interfaces.RolodexRepository = &rolodexRepository{}

func newRolodexRepository() *rolodexRepository {
	return &rolodexRepository{
		users:    make(map[rolodexKey]*model.RolodexUser),
		channels: make(map[rolodexKey]*model.RolodexChannel),
	}
}

func copyUser(u *model.RolodexUser) *model.RolodexUser {
	c := *u
	return &c
}

func copyChannel(ch *model.RolodexChannel) *model.RolodexChannel {
	c := *ch
	return &c
}

func (r *rolodexRepository) UpsertUser(ctx context.Context, user *model.RolodexUser) (*model.RolodexUser, error) {
	if user.UserID == "" || user.WorkspaceID == "" {
		return nil, goerr.New("user ID and workspace ID are required", goerr.V("user_id", user.UserID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rolodexKey{workspaceID: user.WorkspaceID, id: user.UserID}
	stored, ok := r.users[key]
	if !ok {
		stored = &model.RolodexUser{UserID: user.UserID, WorkspaceID: user.WorkspaceID}
		r.users[key] = stored
	}
	stored.MergeFrom(user)
	stored.LastUpdated = time.Now().UTC()

	return copyUser(stored), nil
}

func (r *rolodexRepository) UpsertChannel(ctx context.Context, channel *model.RolodexChannel) (*model.RolodexChannel, error) {
	if channel.ChannelID == "" || channel.WorkspaceID == "" {
		return nil, goerr.New("channel ID and workspace ID are required", goerr.V("channel_id", channel.ChannelID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := rolodexKey{workspaceID: channel.WorkspaceID, id: channel.ChannelID}
	stored, ok := r.channels[key]
	if !ok {
		stored = &model.RolodexChannel{ChannelID: channel.ChannelID, WorkspaceID: channel.WorkspaceID}
		r.channels[key] = stored
	}
	stored.MergeFrom(channel)
	stored.LastUpdated = time.Now().UTC()

	return copyChannel(stored), nil
}

// findUser must be called with the lock held
func (r *rolodexRepository) findUser(workspaceID, identifier string) *model.RolodexUser {
	identifier = strings.TrimPrefix(identifier, types.TargetTypeUser.Decoration())
	if types.TargetTypeUser.IsPlatformID(identifier) {
		return r.users[rolodexKey{workspaceID: workspaceID, id: identifier}]
	}

	// username beats real name beats email; ties broken by user ID
	var found *model.RolodexUser
	foundRank := 3
	for key, u := range r.users {
		if key.workspaceID != workspaceID {
			continue
		}
		rank := 3
		switch identifier {
		case model.Deref(u.Username):
			rank = 0
		case model.Deref(u.RealName):
			rank = 1
		case model.Deref(u.Email):
			rank = 2
		}
		if rank == 3 {
			continue
		}
		if rank < foundRank || (rank == foundRank && u.UserID < found.UserID) {
			found, foundRank = u, rank
		}
	}
	return found
}

// findChannel must be called with the lock held
func (r *rolodexRepository) findChannel(workspaceID, identifier string) *model.RolodexChannel {
	identifier = strings.TrimPrefix(identifier, types.TargetTypeChannel.Decoration())
	if types.TargetTypeChannel.IsPlatformID(identifier) {
		return r.channels[rolodexKey{workspaceID: workspaceID, id: identifier}]
	}

	var found *model.RolodexChannel
	for key, ch := range r.channels {
		if key.workspaceID != workspaceID || model.Deref(ch.Name) != identifier {
			continue
		}
		if found == nil || ch.ChannelID < found.ChannelID {
			found = ch
		}
	}
	return found
}

func (r *rolodexRepository) GetUser(ctx context.Context, workspaceID, identifier string) (*model.RolodexUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u := r.findUser(workspaceID, identifier)
	if u == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "rolodex user not found",
			goerr.V(model.WorkspaceIDKey, workspaceID), goerr.V(model.IdentifierKey, identifier))
	}
	return copyUser(u), nil
}

func (r *rolodexRepository) GetChannel(ctx context.Context, workspaceID, identifier string) (*model.RolodexChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch := r.findChannel(workspaceID, identifier)
	if ch == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "rolodex channel not found",
			goerr.V(model.WorkspaceIDKey, workspaceID), goerr.V(model.IdentifierKey, identifier))
	}
	return copyChannel(ch), nil
}

func compareUsers(a, b *model.RolodexUser) int {
	return cmp.Or(
		strings.Compare(model.Deref(a.Username), model.Deref(b.Username)),
		strings.Compare(a.UserID, b.UserID),
	)
}

func compareChannels(a, b *model.RolodexChannel) int {
	return cmp.Or(
		strings.Compare(model.Deref(a.Name), model.Deref(b.Name)),
		strings.Compare(a.ChannelID, b.ChannelID),
	)
}

// page applies offset and limit. A non-positive limit returns everything after offset.
func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *rolodexRepository) ListUsers(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.RolodexUser, 0)
	for key, u := range r.users {
		if key.workspaceID == workspaceID {
			users = append(users, copyUser(u))
		}
	}
	slices.SortFunc(users, compareUsers)
	return page(users, limit, offset), nil
}

func (r *rolodexRepository) ListChannels(ctx context.Context, workspaceID string, limit, offset int) ([]*model.RolodexChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]*model.RolodexChannel, 0)
	for key, ch := range r.channels {
		if key.workspaceID == workspaceID {
			channels = append(channels, copyChannel(ch))
		}
	}
	slices.SortFunc(channels, compareChannels)
	return page(channels, limit, offset), nil
}

func containsFold(field *string, query string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), query)
}

func (r *rolodexRepository) SearchUsers(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	users := make([]*model.RolodexUser, 0)
	for key, u := range r.users {
		if key.workspaceID != workspaceID {
			continue
		}
		if containsFold(u.Username, q) || containsFold(u.RealName, q) || containsFold(u.Email, q) {
			users = append(users, copyUser(u))
		}
	}
	slices.SortFunc(users, compareUsers)
	return page(users, limit, 0), nil
}

func (r *rolodexRepository) SearchChannels(ctx context.Context, workspaceID, query string, limit int) ([]*model.RolodexChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	channels := make([]*model.RolodexChannel, 0)
	for key, ch := range r.channels {
		if key.workspaceID == workspaceID && containsFold(ch.Name, q) {
			channels = append(channels, copyChannel(ch))
		}
	}
	slices.SortFunc(channels, compareChannels)
	return page(channels, limit, 0), nil
}

func (r *rolodexRepository) RemoveUser(ctx context.Context, workspaceID, identifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.findUser(workspaceID, identifier)
	if u == nil {
		return false, nil
	}
	delete(r.users, rolodexKey{workspaceID: workspaceID, id: u.UserID})
	return true, nil
}

func (r *rolodexRepository) RemoveChannel(ctx context.Context, workspaceID, identifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := r.findChannel(workspaceID, identifier)
	if ch == nil {
		return false, nil
	}
	delete(r.channels, rolodexKey{workspaceID: workspaceID, id: ch.ChannelID})
	return true, nil
}

func (r *rolodexRepository) Clear(ctx context.Context, workspaceID string) (*model.ClearResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &model.ClearResult{}
	for key := range r.users {
		if key.workspaceID == workspaceID {
			delete(r.users, key)
			result.UsersDeleted++
		}
	}
	for key := range r.channels {
		if key.workspaceID == workspaceID {
			delete(r.channels, key)
			result.ChannelsDeleted++
		}
	}
	return result, nil
}
