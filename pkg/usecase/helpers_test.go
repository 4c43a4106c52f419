package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/repository/memory"
	"github.com/secmon-lab/clacks/pkg/usecase"
	"github.com/secmon-lab/clacks/pkg/utils/clock"
)

// mockSlackClient records queries and delegates to per-method functions
type mockSlackClient struct {
	mu sync.Mutex

	historyFn      func(ctx context.Context, q interfaces.HistoryQuery) ([]model.Message, error)
	repliesFn      func(ctx context.Context, q interfaces.RepliesQuery) ([]model.Message, error)
	listUsersFn    func(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackUser, string, error)
	listChannelsFn func(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackChannel, string, error)
	openDMFn       func(ctx context.Context, userID string) (string, error)
	postMessageFn  func(ctx context.Context, channelID, text string, threadTS types.SlackTS) (string, error)
	addReactionFn  func(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error
	removeReactFn  func(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error
	deleteFn       func(ctx context.Context, channelID string, ts types.SlackTS) error
	userConvsFn    func(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackChannel, string, error)

	historyQueries []interfaces.HistoryQuery
	repliesQueries []interfaces.RepliesQuery
	remoteCalls    int
}

var _ interfaces.SlackClient = &mockSlackClient{}

func (m *mockSlackClient) record() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteCalls++
}

func (m *mockSlackClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remoteCalls
}

func (m *mockSlackClient) History(ctx context.Context, q interfaces.HistoryQuery) ([]model.Message, error) {
	m.record()
	m.mu.Lock()
	m.historyQueries = append(m.historyQueries, q)
	m.mu.Unlock()
	if m.historyFn != nil {
		return m.historyFn(ctx, q)
	}
	return nil, nil
}

func (m *mockSlackClient) Replies(ctx context.Context, q interfaces.RepliesQuery) ([]model.Message, error) {
	m.record()
	m.mu.Lock()
	m.repliesQueries = append(m.repliesQueries, q)
	m.mu.Unlock()
	if m.repliesFn != nil {
		return m.repliesFn(ctx, q)
	}
	return nil, nil
}

func (m *mockSlackClient) ListUsers(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackUser, string, error) {
	m.record()
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockSlackClient) ListChannels(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackChannel, string, error) {
	m.record()
	if m.listChannelsFn != nil {
		return m.listChannelsFn(ctx, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockSlackClient) OpenDM(ctx context.Context, userID string) (string, error) {
	m.record()
	if m.openDMFn != nil {
		return m.openDMFn(ctx, userID)
	}
	return "D" + userID, nil
}

func (m *mockSlackClient) PostMessage(ctx context.Context, channelID, text string, threadTS types.SlackTS) (string, error) {
	m.record()
	if m.postMessageFn != nil {
		return m.postMessageFn(ctx, channelID, text, threadTS)
	}
	return "1700000000.000001", nil
}

func (m *mockSlackClient) AddReaction(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
	m.record()
	if m.addReactionFn != nil {
		return m.addReactionFn(ctx, channelID, ts, emoji)
	}
	return nil
}

func (m *mockSlackClient) RemoveReaction(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
	m.record()
	if m.removeReactFn != nil {
		return m.removeReactFn(ctx, channelID, ts, emoji)
	}
	return nil
}

func (m *mockSlackClient) DeleteMessage(ctx context.Context, channelID string, ts types.SlackTS) error {
	m.record()
	if m.deleteFn != nil {
		return m.deleteFn(ctx, channelID, ts)
	}
	return nil
}

func (m *mockSlackClient) UserConversations(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackChannel, string, error) {
	m.record()
	if m.userConvsFn != nil {
		return m.userConvsFn(ctx, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockSlackClient) AuthTest(ctx context.Context) (*interfaces.SlackIdentity, error) {
	m.record()
	return &interfaces.SlackIdentity{UserID: "U0SELF", WorkspaceID: "T0001"}, nil
}

// spyRepository counts how often the rolodex and alias stores are touched
type spyRepository struct {
	interfaces.Repository
	mu           sync.Mutex
	rolodexCalls int
	aliasCalls   int
}

func (s *spyRepository) Rolodex() interfaces.RolodexRepository {
	s.mu.Lock()
	s.rolodexCalls++
	s.mu.Unlock()
	return s.Repository.Rolodex()
}

func (s *spyRepository) Alias() interfaces.AliasRepository {
	s.mu.Lock()
	s.aliasCalls++
	s.mu.Unlock()
	return s.Repository.Alias()
}

func newSpyRepository() *spyRepository {
	return &spyRepository{Repository: memory.New()}
}

func msg(ts, text string) model.Message {
	return model.Message{"type": "message", "ts": ts, "text": text, "user": "U0001"}
}

// newest returns msgs in reverse order, the way history is returned
func newest(msgs ...model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, msgs[i])
	}
	return out
}

var testStart = time.Unix(1700000000, 0)

func newTestUseCases(t *testing.T, repo interfaces.Repository, slackClient interfaces.SlackClient) (*usecase.UseCases, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(testStart)
	return usecase.New(repo,
		usecase.WithSlackClient(slackClient),
		usecase.WithClock(fake),
	), fake
}

var testScope = model.Scope{WorkspaceID: "T0001", ContextName: "work"}
