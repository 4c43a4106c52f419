package usecase

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
)

const (
	// DefaultReadLimit is the number of channel messages read when no limit is given
	DefaultReadLimit = 20
	// DefaultThreadReadLimit is the number of thread messages read when no limit is given
	DefaultThreadReadLimit = 100
	// DefaultRecentConversations is the number of conversations scanned by Recent
	DefaultRecentConversations = 100
	// DefaultRecentMessages is the number of messages returned by Recent
	DefaultRecentMessages = 20
)

// Fields added to each message returned by Recent
const (
	RecentChannelIDField   = "channel_id"
	RecentChannelNameField = "channel_name"
)

// MessagingUseCase posts and reads messages
type MessagingUseCase struct {
	slack    interfaces.SlackClient
	resolver *Resolver
	invoker  *Invoker
}

// NewMessagingUseCase creates a MessagingUseCase
func NewMessagingUseCase(slackClient interfaces.SlackClient, resolver *Resolver, invoker *Invoker) *MessagingUseCase {
	return &MessagingUseCase{
		slack:    slackClient,
		resolver: resolver,
		invoker:  invoker,
	}
}

// SendResult identifies a posted message
type SendResult struct {
	ChannelID string `json:"channel"`
	TS        string `json:"ts"`
}

// Send posts text to target. A target written as @name or a user ID goes to
// that user's direct message channel; anything else is resolved as a channel.
func (uc *MessagingUseCase) Send(ctx context.Context, scope model.Scope, target, text string, threadTS types.SlackTS) (*SendResult, error) {
	if uc.slack == nil {
		return nil, ErrNoSlackClient
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	channelID, err := uc.resolveDestination(ctx, scope, target)
	if err != nil {
		return nil, err
	}

	ts, err := Invoke(ctx, uc.invoker, "chat.postMessage", func(ctx context.Context) (string, error) {
		return uc.slack.PostMessage(ctx, channelID, text, threadTS)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send message", goerr.V(model.ChannelIDKey, channelID))
	}

	logging.From(ctx).Debug("message sent", model.ChannelIDKey, channelID, "ts", ts)
	return &SendResult{ChannelID: channelID, TS: ts}, nil
}

func (uc *MessagingUseCase) resolveDestination(ctx context.Context, scope model.Scope, target string) (string, error) {
	user := types.TargetTypeUser
	if !strings.HasPrefix(target, user.Decoration()) && !user.IsPlatformID(target) {
		return uc.resolver.ResolveChannel(ctx, scope, target)
	}

	userID, err := uc.resolver.ResolveUser(ctx, scope, target)
	if err != nil {
		return "", err
	}

	channelID, err := Invoke(ctx, uc.invoker, "conversations.open", func(ctx context.Context) (string, error) {
		return uc.slack.OpenDM(ctx, userID)
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to open direct message", goerr.V("user_id", userID))
	}
	return channelID, nil
}

// ReadInput selects messages to read. Zero bounds are open.
type ReadInput struct {
	ChannelID string
	ThreadTS  types.SlackTS
	Limit     int
	Oldest    types.SlackTS
	Latest    types.SlackTS
}

// Read returns messages oldest first. A thread read includes the root.
func (uc *MessagingUseCase) Read(ctx context.Context, in ReadInput) ([]model.Message, error) {
	if uc.slack == nil {
		return nil, ErrNoSlackClient
	}

	logger := logging.From(ctx).With(model.ChannelIDKey, in.ChannelID)
	inRange := func(ts types.SlackTS) bool {
		if !in.Oldest.IsZero() && ts.Compare(in.Oldest) < 0 {
			return false
		}
		return in.Latest.IsZero() || ts.Compare(in.Latest) <= 0
	}

	var (
		msgs []model.Message
		err  error
	)
	if in.ThreadTS.IsZero() {
		limit := in.Limit
		if limit <= 0 {
			limit = DefaultReadLimit
		}
		msgs, err = Invoke(ctx, uc.invoker, "conversations.history", func(ctx context.Context) ([]model.Message, error) {
			return uc.slack.History(ctx, interfaces.HistoryQuery{
				ChannelID: in.ChannelID,
				Oldest:    in.Oldest,
				Latest:    in.Latest,
				Inclusive: true,
				Limit:     limit,
			})
		})
	} else {
		limit := in.Limit
		if limit <= 0 {
			limit = DefaultThreadReadLimit
		}
		msgs, err = Invoke(ctx, uc.invoker, "conversations.replies", func(ctx context.Context) ([]model.Message, error) {
			return uc.slack.Replies(ctx, interfaces.RepliesQuery{
				ChannelID: in.ChannelID,
				ThreadTS:  in.ThreadTS,
				Oldest:    in.Oldest,
				Inclusive: true,
				Limit:     limit,
			})
		})
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read messages", goerr.V(model.ChannelIDKey, in.ChannelID))
	}

	items := chronological(logger, msgs, inRange)
	out := make([]model.Message, 0, len(items))
	for _, item := range items {
		out = append(out, item.msg)
	}
	return out, nil
}

// React adds an emoji reaction to the message at ts. Surrounding colons are ignored.
func (uc *MessagingUseCase) React(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
	if uc.slack == nil {
		return ErrNoSlackClient
	}

	emoji = strings.Trim(emoji, ":")
	_, err := Invoke(ctx, uc.invoker, "reactions.add", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, uc.slack.AddReaction(ctx, channelID, ts, emoji)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to add reaction", goerr.V(model.ChannelIDKey, channelID))
	}
	return nil
}

// Unreact removes the caller's emoji reaction from the message at ts
func (uc *MessagingUseCase) Unreact(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
	if uc.slack == nil {
		return ErrNoSlackClient
	}

	emoji = strings.Trim(emoji, ":")
	_, err := Invoke(ctx, uc.invoker, "reactions.remove", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, uc.slack.RemoveReaction(ctx, channelID, ts, emoji)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to remove reaction", goerr.V(model.ChannelIDKey, channelID))
	}
	return nil
}

// Delete deletes the message at ts
func (uc *MessagingUseCase) Delete(ctx context.Context, channelID string, ts types.SlackTS) error {
	if uc.slack == nil {
		return ErrNoSlackClient
	}

	_, err := Invoke(ctx, uc.invoker, "chat.delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, uc.slack.DeleteMessage(ctx, channelID, ts)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete message", goerr.V(model.ChannelIDKey, channelID), goerr.V("ts", ts.String()))
	}
	return nil
}

// RecentInput bounds Recent. Non-positive limits use the defaults.
type RecentInput struct {
	ConversationLimit int
	MessageLimit      int
}

// Recent returns the latest message of each conversation the caller belongs
// to, newest first. Each message carries channel_id and channel_name.
// Conversations whose history cannot be read are skipped.
func (uc *MessagingUseCase) Recent(ctx context.Context, in RecentInput) ([]model.Message, error) {
	if uc.slack == nil {
		return nil, ErrNoSlackClient
	}

	convLimit := in.ConversationLimit
	if convLimit <= 0 {
		convLimit = DefaultRecentConversations
	}
	msgLimit := in.MessageLimit
	if msgLimit <= 0 {
		msgLimit = DefaultRecentMessages
	}

	logger := logging.From(ctx)
	convs, err := Invoke(ctx, uc.invoker, "users.conversations", func(ctx context.Context) ([]*interfaces.SlackChannel, error) {
		convs, _, err := uc.slack.UserConversations(ctx, "", convLimit)
		return convs, err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations")
	}

	type latestMessage struct {
		ts  types.SlackTS
		msg model.Message
	}
	var found []latestMessage
	for _, conv := range convs {
		msgs, err := Invoke(ctx, uc.invoker, "conversations.history", func(ctx context.Context) ([]model.Message, error) {
			return uc.slack.History(ctx, interfaces.HistoryQuery{ChannelID: conv.ID, Limit: 1})
		})
		if err != nil {
			var rle *model.RateLimitedError
			if ctx.Err() != nil || errors.As(err, &rle) {
				return nil, goerr.Wrap(err, "failed to read recent activity", goerr.V(model.ChannelIDKey, conv.ID))
			}
			logger.Warn("skipping unreadable conversation", model.ChannelIDKey, conv.ID, "error", err)
			continue
		}

		name := conv.Name
		if name == "" {
			name = conv.ID
		}
		for _, msg := range msgs {
			out := maps.Clone(msg)
			out[RecentChannelIDField] = conv.ID
			out[RecentChannelNameField] = name

			// unparsable tokens sort last
			ts, _ := msg.Timestamp()
			found = append(found, latestMessage{ts: ts, msg: out})
		}
	}

	slices.SortStableFunc(found, func(a, b latestMessage) int {
		return b.ts.Compare(a.ts)
	})

	out := make([]model.Message, 0, min(len(found), msgLimit))
	for _, item := range found[:min(len(found), msgLimit)] {
		out = append(out, item.msg)
	}
	return out, nil
}
