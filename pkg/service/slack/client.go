package slack

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/slack-go/slack"
)

// client implements interfaces.SlackClient on top of slack-go
type client struct {
	api     *slack.Client
	options []slack.Option

	// users.list pagination state keyed by the cursor handed to the caller.
	// slack-go does not expose the raw cursor, so each page is kept until
	// the next one has been fetched successfully. Starting a new listing
	// drops pages that were never continued.
	mu        sync.Mutex
	userPages map[string]slack.UserPagination
}

var _ interfaces.SlackClient = &client{}

// Option is a functional option for client configuration
type Option func(*client)

// WithAPIURL points the client at another Web API endpoint. The URL must end with "/".
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.options = append(c.options, slack.OptionAPIURL(url))
	}
}

// WithDebug enables slack-go request logging
func WithDebug(debug bool) Option {
	return func(c *client) {
		c.options = append(c.options, slack.OptionDebug(debug))
	}
}

// New creates a Slack client with the provided user or bot token
func New(token string, opts ...Option) (interfaces.SlackClient, error) {
	if token == "" {
		return nil, goerr.New("Slack token is required")
	}

	c := &client{
		userPages: make(map[string]slack.UserPagination),
	}
	for _, opt := range opts {
		opt(c)
	}

	httpClient := &http.Client{Transport: &captureTransport{next: http.DefaultTransport}}
	c.api = slack.New(token, append([]slack.Option{slack.OptionHTTPClient(httpClient)}, c.options...)...)

	return c, nil
}

// History retrieves channel messages newest first
func (c *client) History(ctx context.Context, q interfaces.HistoryQuery) ([]model.Message, error) {
	params := &slack.GetConversationHistoryParameters{
		ChannelID: q.ChannelID,
		Inclusive: q.Inclusive,
		Limit:     q.Limit,
	}
	if !q.Oldest.IsZero() {
		params.Oldest = q.Oldest.String()
	}
	if !q.Latest.IsZero() {
		params.Latest = q.Latest.String()
	}

	ctx, body := withCapture(ctx)
	if _, err := c.api.GetConversationHistoryContext(ctx, params); err != nil {
		return nil, wrapAPIError(err, "failed to get conversation history", goerr.V(model.ChannelIDKey, q.ChannelID))
	}

	msgs, err := decodeMessages(body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read conversation history", goerr.V(model.ChannelIDKey, q.ChannelID))
	}
	return msgs, nil
}

// Replies retrieves a thread, root first
func (c *client) Replies(ctx context.Context, q interfaces.RepliesQuery) ([]model.Message, error) {
	params := &slack.GetConversationRepliesParameters{
		ChannelID: q.ChannelID,
		Timestamp: q.ThreadTS.String(),
		Inclusive: q.Inclusive,
		Limit:     q.Limit,
	}
	if !q.Oldest.IsZero() {
		params.Oldest = q.Oldest.String()
	}

	ctx, body := withCapture(ctx)
	if _, _, _, err := c.api.GetConversationRepliesContext(ctx, params); err != nil {
		return nil, wrapAPIError(err, "failed to get conversation replies",
			goerr.V(model.ChannelIDKey, q.ChannelID), goerr.V("thread_ts", q.ThreadTS.String()))
	}

	msgs, err := decodeMessages(body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read conversation replies", goerr.V(model.ChannelIDKey, q.ChannelID))
	}
	return msgs, nil
}

// ListUsers retrieves one page of workspace members
func (c *client) ListUsers(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackUser, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cursor == "" {
		clear(c.userPages)
	}

	page, ok := c.userPages[cursor]
	if !ok {
		if cursor != "" {
			return nil, "", goerr.New("unknown users cursor", goerr.V("cursor", cursor))
		}
		page = c.api.GetUsersPaginated(slack.GetUsersOptionLimit(limit))
	}

	next, err := page.Next(ctx)
	if next.Done(err) {
		delete(c.userPages, cursor)
		return []*interfaces.SlackUser{}, "", nil
	}
	if err := next.Failure(err); err != nil {
		return nil, "", wrapAPIError(err, "failed to list users")
	}

	delete(c.userPages, cursor)
	token := uuid.NewString()
	c.userPages[token] = next

	users := make([]*interfaces.SlackUser, 0, len(next.Users))
	for _, u := range next.Users {
		users = append(users, toSlackUser(u))
	}
	return users, token, nil
}

// ListChannels retrieves one page of public and private channels
func (c *client) ListChannels(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackChannel, string, error) {
	convs, nextCursor, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           limit,
		Cursor:          cursor,
	})
	if err != nil {
		return nil, "", wrapAPIError(err, "failed to get conversations")
	}

	channels := make([]*interfaces.SlackChannel, 0, len(convs))
	for _, conv := range convs {
		channels = append(channels, toSlackChannel(conv))
	}
	return channels, nextCursor, nil
}

// UserConversations retrieves one page of the caller's channels, group DMs and DMs
func (c *client) UserConversations(ctx context.Context, cursor string, limit int) ([]*interfaces.SlackChannel, string, error) {
	convs, nextCursor, err := c.api.GetConversationsForUserContext(ctx, &slack.GetConversationsForUserParameters{
		Types:  []string{"public_channel", "private_channel", "mpim", "im"},
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", wrapAPIError(err, "failed to get user conversations")
	}

	channels := make([]*interfaces.SlackChannel, 0, len(convs))
	for _, conv := range convs {
		channels = append(channels, toSlackChannel(conv))
	}
	return channels, nextCursor, nil
}

// OpenDM opens a direct message conversation with the user
func (c *client) OpenDM(ctx context.Context, userID string) (string, error) {
	ch, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", wrapAPIError(err, "failed to open conversation", goerr.V("user_id", userID))
	}
	return ch.ID, nil
}

// PostMessage posts text, as a thread reply when threadTS is set
func (c *client) PostMessage(ctx context.Context, channelID, text string, threadTS types.SlackTS) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if !threadTS.IsZero() {
		opts = append(opts, slack.MsgOptionTS(threadTS.String()))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", wrapAPIError(err, "failed to post message", goerr.V(model.ChannelIDKey, channelID))
	}
	return ts, nil
}

// AddReaction adds an emoji reaction to a message
func (c *client) AddReaction(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
	ref := slack.NewRefToMessage(channelID, ts.String())
	if err := c.api.AddReactionContext(ctx, emoji, ref); err != nil {
		return wrapAPIError(err, "failed to add reaction",
			goerr.V(model.ChannelIDKey, channelID), goerr.V("ts", ts.String()), goerr.V("emoji", emoji))
	}
	return nil
}

// RemoveReaction removes an emoji reaction from a message
func (c *client) RemoveReaction(ctx context.Context, channelID string, ts types.SlackTS, emoji string) error {
	ref := slack.NewRefToMessage(channelID, ts.String())
	if err := c.api.RemoveReactionContext(ctx, emoji, ref); err != nil {
		return wrapAPIError(err, "failed to remove reaction",
			goerr.V(model.ChannelIDKey, channelID), goerr.V("ts", ts.String()), goerr.V("emoji", emoji))
	}
	return nil
}

// DeleteMessage deletes a message. Only the caller's own messages can be deleted.
func (c *client) DeleteMessage(ctx context.Context, channelID string, ts types.SlackTS) error {
	if _, _, err := c.api.DeleteMessageContext(ctx, channelID, ts.String()); err != nil {
		return wrapAPIError(err, "failed to delete message",
			goerr.V(model.ChannelIDKey, channelID), goerr.V("ts", ts.String()))
	}
	return nil
}

// AuthTest returns the identity behind the token
func (c *client) AuthTest(ctx context.Context) (*interfaces.SlackIdentity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, wrapAPIError(err, "failed to test auth")
	}

	return &interfaces.SlackIdentity{
		UserID:      resp.UserID,
		User:        resp.User,
		WorkspaceID: resp.TeamID,
		Workspace:   resp.Team,
	}, nil
}

// wrapAPIError converts throttling responses into *model.RateLimitedError and
// wraps everything else with goerr.
func wrapAPIError(err error, msg string, values ...goerr.Option) error {
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return &model.RateLimitedError{RetryAfter: rle.RetryAfter, Cause: err}
	}

	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) && resp.Err == "ratelimited" {
		return &model.RateLimitedError{Cause: err}
	}

	return goerr.Wrap(err, msg, values...)
}
