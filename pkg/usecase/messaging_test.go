package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/repository/memory"
	"github.com/secmon-lab/clacks/pkg/usecase"
)

func TestMessagingUseCase_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("channel by name", func(t *testing.T) {
		repo := memory.New()
		_, err := repo.Rolodex().UpsertChannel(ctx, &model.RolodexChannel{
			ChannelID: "C0GEN", WorkspaceID: "T0001", Name: model.Ptr("general"),
		})
		gt.NoError(t, err).Required()

		var gotChannel, gotText string
		var gotThread types.SlackTS
		slackClient := &mockSlackClient{
			postMessageFn: func(ctx context.Context, channelID, text string, threadTS types.SlackTS) (string, error) {
				gotChannel, gotText, gotThread = channelID, text, threadTS
				return "1700000001.000001", nil
			},
		}
		uc, _ := newTestUseCases(t, repo, slackClient)

		res, err := uc.Messaging.Send(ctx, testScope, "#general", "hello", types.MustParseSlackTS("1700000000.000100"))
		gt.NoError(t, err).Required()
		gt.Value(t, res.ChannelID).Equal("C0GEN")
		gt.Value(t, res.TS).Equal("1700000001.000001")
		gt.Value(t, gotChannel).Equal("C0GEN")
		gt.Value(t, gotText).Equal("hello")
		gt.Value(t, gotThread.String()).Equal("1700000000.000100")
	})

	t.Run("user opens a direct message", func(t *testing.T) {
		var openedFor string
		slackClient := &mockSlackClient{
			openDMFn: func(ctx context.Context, userID string) (string, error) {
				openedFor = userID
				return "D0DM", nil
			},
		}
		uc, _ := newTestUseCases(t, memory.New(), slackClient)

		res, err := uc.Messaging.Send(ctx, testScope, "U0BOB", "hi", types.SlackTS{})
		gt.NoError(t, err).Required()
		gt.Value(t, openedFor).Equal("U0BOB")
		gt.Value(t, res.ChannelID).Equal("D0DM")
	})

	t.Run("empty text", func(t *testing.T) {
		uc, _ := newTestUseCases(t, memory.New(), &mockSlackClient{})
		_, err := uc.Messaging.Send(ctx, testScope, "C0001", "  ", types.SlackTS{})
		gt.Error(t, err).Is(usecase.ErrEmptyMessage)
	})

	t.Run("unknown user", func(t *testing.T) {
		uc, _ := newTestUseCases(t, memory.New(), &mockSlackClient{})
		_, err := uc.Messaging.Send(ctx, testScope, "@nobody", "hi", types.SlackTS{})
		gt.Error(t, err).Is(model.ErrUserNotFound)
	})
}

func TestMessagingUseCase_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("channel history oldest first within bounds", func(t *testing.T) {
		slackClient := &mockSlackClient{
			historyFn: func(ctx context.Context, q interfaces.HistoryQuery) ([]model.Message, error) {
				return newest(
					msg("1700000000.000001", "before"),
					msg("1700000001.000000", "a"),
					msg("1700000002.000000", "b"),
					msg("1700000009.000000", "after"),
				), nil
			},
		}
		uc, _ := newTestUseCases(t, memory.New(), slackClient)

		msgs, err := uc.Messaging.Read(ctx, usecase.ReadInput{
			ChannelID: "C0001",
			Oldest:    types.MustParseSlackTS("1700000001.000000"),
			Latest:    types.MustParseSlackTS("1700000005.000000"),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, timestamps(msgs)).Equal([]string{"1700000001.000000", "1700000002.000000"})

		q := slackClient.historyQueries[0]
		gt.Number(t, q.Limit).Equal(usecase.DefaultReadLimit)
		gt.Bool(t, q.Inclusive).True()
	})

	t.Run("thread includes the root", func(t *testing.T) {
		slackClient := &mockSlackClient{
			repliesFn: func(ctx context.Context, q interfaces.RepliesQuery) ([]model.Message, error) {
				return []model.Message{msg("1700000000.000100", "root"), msg("1700000000.000200", "reply")}, nil
			},
		}
		uc, _ := newTestUseCases(t, memory.New(), slackClient)

		msgs, err := uc.Messaging.Read(ctx, usecase.ReadInput{
			ChannelID: "C0001",
			ThreadTS:  types.MustParseSlackTS("1700000000.000100"),
			Limit:     5,
		})
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(2)
		gt.Value(t, msgs[0].Text()).Equal("root")
		gt.Number(t, slackClient.repliesQueries[0].Limit).Equal(5)
		gt.Bool(t, slackClient.repliesQueries[0].Inclusive).True()
	})
}

func TestMessagingUseCase_React(t *testing.T) {
	var gotEmoji string
	slackClient := &mockSlackClient{
		addReactionFn: func(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
			gotEmoji = emoji
			return nil
		},
	}
	uc, _ := newTestUseCases(t, memory.New(), slackClient)

	err := uc.Messaging.React(context.Background(), "C0001", types.MustParseSlackTS("1700000000.000100"), ":thumbsup:")
	gt.NoError(t, err).Required()
	gt.Value(t, gotEmoji).Equal("thumbsup")
}

func TestMessagingUseCase_Unreact(t *testing.T) {
	var gotChannel, gotEmoji string
	var gotTS types.SlackTS
	slackClient := &mockSlackClient{
		removeReactFn: func(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
			gotChannel, gotTS, gotEmoji = channelID, ts, emoji
			return nil
		},
	}
	uc, _ := newTestUseCases(t, memory.New(), slackClient)

	err := uc.Messaging.Unreact(context.Background(), "C0001", types.MustParseSlackTS("1700000000.000100"), ":eyes:")
	gt.NoError(t, err).Required()
	gt.Value(t, gotChannel).Equal("C0001")
	gt.Value(t, gotTS.String()).Equal("1700000000.000100")
	gt.Value(t, gotEmoji).Equal("eyes")
}

func TestMessagingUseCase_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the message", func(t *testing.T) {
		var gotTS types.SlackTS
		slackClient := &mockSlackClient{
			deleteFn: func(ctx context.Context, channelID string, ts types.SlackTS) error {
				gotTS = ts
				return nil
			},
		}
		uc, _ := newTestUseCases(t, memory.New(), slackClient)

		gt.NoError(t, uc.Messaging.Delete(ctx, "C0001", types.MustParseSlackTS("1700000000.000100")))
		gt.Value(t, gotTS.String()).Equal("1700000000.000100")
	})

	t.Run("retries when throttled", func(t *testing.T) {
		calls := 0
		slackClient := &mockSlackClient{
			deleteFn: func(ctx context.Context, channelID string, ts types.SlackTS) error {
				calls++
				if calls == 1 {
					return &model.RateLimitedError{RetryAfter: time.Second}
				}
				return nil
			},
		}
		uc, fake := newTestUseCases(t, memory.New(), slackClient)

		gt.NoError(t, uc.Messaging.Delete(ctx, "C0001", types.MustParseSlackTS("1700000000.000100")))
		gt.Number(t, calls).Equal(2)
		gt.Array(t, fake.Sleeps()).Length(1)
	})

	t.Run("without a client", func(t *testing.T) {
		uc := usecase.New(memory.New())
		err := uc.Messaging.Delete(ctx, "C0001", types.MustParseSlackTS("1700000000.000100"))
		gt.Error(t, err).Is(usecase.ErrNoSlackClient)
	})
}

func TestMessagingUseCase_Recent(t *testing.T) {
	ctx := context.Background()

	convs := []*interfaces.SlackChannel{
		{ID: "C0001", Name: "general"},
		{ID: "D0001"},
		{ID: "C0BAD", Name: "broken"},
		{ID: "C0EMPTY", Name: "quiet"},
		{ID: "C0002", Name: "random"},
	}
	latest := map[string]model.Message{
		"C0001": msg("1700000002.000000", "general latest"),
		"D0001": msg("1700000005.000000", "dm latest"),
		"C0002": msg("1700000001.000000", "random latest"),
	}

	newClient := func() *mockSlackClient {
		return &mockSlackClient{
			userConvsFn: func(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackChannel, string, error) {
				gt.Value(t, cursor).Equal("")
				gt.Number(t, limit).Equal(usecase.DefaultRecentConversations)
				return convs, "", nil
			},
			historyFn: func(ctx context.Context, q interfaces.HistoryQuery) ([]model.Message, error) {
				gt.Number(t, q.Limit).Equal(1)
				if q.ChannelID == "C0BAD" {
					return nil, errors.New("not_in_channel")
				}
				if m, ok := latest[q.ChannelID]; ok {
					return []model.Message{m}, nil
				}
				return nil, nil
			},
		}
	}

	t.Run("newest first with conversation fields", func(t *testing.T) {
		uc, _ := newTestUseCases(t, memory.New(), newClient())

		msgs, err := uc.Messaging.Recent(ctx, usecase.RecentInput{})
		gt.NoError(t, err).Required()
		gt.Value(t, timestamps(msgs)).Equal([]string{"1700000005.000000", "1700000002.000000", "1700000001.000000"})
		gt.Value(t, msgs[0][usecase.RecentChannelIDField]).Equal(any("D0001"))
		gt.Value(t, msgs[0][usecase.RecentChannelNameField]).Equal(any("D0001"))
		gt.Value(t, msgs[1][usecase.RecentChannelNameField]).Equal(any("general"))

		_, touched := latest["C0001"][usecase.RecentChannelIDField]
		gt.Bool(t, touched).False()
	})

	t.Run("capped by message limit", func(t *testing.T) {
		uc, _ := newTestUseCases(t, memory.New(), newClient())

		msgs, err := uc.Messaging.Recent(ctx, usecase.RecentInput{MessageLimit: 2})
		gt.NoError(t, err).Required()
		gt.Value(t, timestamps(msgs)).Equal([]string{"1700000005.000000", "1700000002.000000"})
	})

	t.Run("exhausted rate limit aborts", func(t *testing.T) {
		slackClient := newClient()
		slackClient.historyFn = func(ctx context.Context, q interfaces.HistoryQuery) ([]model.Message, error) {
			return nil, &model.RateLimitedError{}
		}
		uc, _ := newTestUseCases(t, memory.New(), slackClient)

		_, err := uc.Messaging.Recent(ctx, usecase.RecentInput{})
		var rle *model.RateLimitedError
		gt.Bool(t, errors.As(err, &rle)).True()
	})
}
