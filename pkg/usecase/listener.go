package usecase

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/utils/clock"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
)

const (
	// DefaultPollInterval is the pause between two polls
	DefaultPollInterval = 2 * time.Second

	pollLimit = 200
)

// ListenInput configures one listening session
type ListenInput struct {
	ChannelID string
	// ThreadTS switches from channel scope to the thread rooted here when set
	ThreadTS types.SlackTS
	Interval time.Duration
	// Timeout bounds the whole session; zero means no bound
	Timeout time.Duration
	// Backfill is how many recent items to emit before polling; zero disables it
	Backfill int
	// Continuous keeps polling after the first new item
	Continuous bool
}

// Listener emulates a subscription over the history and replies APIs
type Listener struct {
	slack   interfaces.SlackClient
	invoker *Invoker
	clock   clock.Clock
}

// NewListener creates a Listener
func NewListener(slackClient interfaces.SlackClient, invoker *Invoker, c clock.Clock) *Listener {
	return &Listener{
		slack:   slackClient,
		invoker: invoker,
		clock:   c,
	}
}

type stampedMessage struct {
	msg model.Message
	ts  types.SlackTS
}

// Listen returns the message stream of one session. Messages are yielded in
// strictly increasing timestamp order and each is stamped with received_at.
//
// The stream ends without an error when the timeout elapses, when ctx is
// cancelled, or, unless Continuous is set, right after the first message
// found by polling. A remote error other than an exhausted rate limit is
// yielded once and ends the stream.
func (l *Listener) Listen(ctx context.Context, in ListenInput) iter.Seq2[model.Message, error] {
	return func(yield func(model.Message, error) bool) {
		if l.slack == nil {
			yield(nil, ErrNoSlackClient)
			return
		}

		interval := in.Interval
		if interval <= 0 {
			interval = DefaultPollInterval
		}

		logger := logging.From(ctx).With(model.ChannelIDKey, in.ChannelID)
		if !in.ThreadTS.IsZero() {
			logger = logger.With("thread_ts", in.ThreadTS.String())
		}

		start := l.clock.Now()
		var latest types.SlackTS

		emit := func(item stampedMessage) bool {
			latest = item.ts
			return yield(item.msg.WithReceivedAt(l.clock.Now()), nil)
		}

		// fail reports err unless the session was cancelled, which is a normal stop
		fail := func(err error) {
			if ctx.Err() != nil {
				logger.Debug("listener cancelled during fetch")
				return
			}
			yield(nil, err)
		}

		if in.Backfill > 0 {
			items, err := l.fetchBackfill(ctx, logger, in)
			if err != nil {
				fail(err)
				return
			}
			for _, item := range items {
				if !latest.IsZero() && !item.ts.After(latest) {
					continue
				}
				if !emit(item) {
					return
				}
			}
		}

		if latest.IsZero() {
			latest = types.SlackTSFromTime(l.clock.Now())
		}

		for {
			if in.Timeout > 0 && l.clock.Since(start) >= in.Timeout {
				logger.Debug("listener timed out", "timeout", in.Timeout)
				return
			}
			if ctx.Err() != nil {
				return
			}

			if err := l.clock.Sleep(ctx, interval); err != nil {
				logger.Debug("listener cancelled during sleep")
				return
			}

			items, err := l.fetchAfter(ctx, logger, in, latest)
			if err != nil {
				fail(err)
				return
			}

			for _, item := range items {
				if !emit(item) {
					return
				}
				if !in.Continuous {
					return
				}
			}
		}
	}
}

// fetchBackfill returns up to Backfill recent items in chronological order,
// without the thread root
func (l *Listener) fetchBackfill(ctx context.Context, logger *slog.Logger, in ListenInput) ([]stampedMessage, error) {
	if in.ThreadTS.IsZero() {
		msgs, err := Invoke(ctx, l.invoker, "conversations.history", func(ctx context.Context) ([]model.Message, error) {
			return l.slack.History(ctx, interfaces.HistoryQuery{
				ChannelID: in.ChannelID,
				Limit:     in.Backfill,
			})
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to fetch channel history", goerr.V(model.ChannelIDKey, in.ChannelID))
		}
		return chronological(logger, msgs, func(types.SlackTS) bool { return true }), nil
	}

	msgs, err := Invoke(ctx, l.invoker, "conversations.replies", func(ctx context.Context) ([]model.Message, error) {
		return l.slack.Replies(ctx, interfaces.RepliesQuery{
			ChannelID: in.ChannelID,
			ThreadTS:  in.ThreadTS,
			Limit:     in.Backfill,
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch thread replies", goerr.V(model.ChannelIDKey, in.ChannelID))
	}

	// The root comes first. A thread holding only its root has nothing to backfill.
	if len(msgs) <= 1 {
		return nil, nil
	}
	return chronological(logger, msgs[1:], func(ts types.SlackTS) bool {
		return !ts.Equal(in.ThreadTS)
	}), nil
}

// fetchAfter returns items strictly newer than latest in chronological order
func (l *Listener) fetchAfter(ctx context.Context, logger *slog.Logger, in ListenInput, latest types.SlackTS) ([]stampedMessage, error) {
	// oldest is inclusive on the remote side
	oldest := latest.Next()
	newer := func(ts types.SlackTS) bool { return ts.After(latest) }

	if in.ThreadTS.IsZero() {
		msgs, err := Invoke(ctx, l.invoker, "conversations.history", func(ctx context.Context) ([]model.Message, error) {
			return l.slack.History(ctx, interfaces.HistoryQuery{
				ChannelID: in.ChannelID,
				Oldest:    oldest,
				Inclusive: true,
				Limit:     pollLimit,
			})
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to poll channel history", goerr.V(model.ChannelIDKey, in.ChannelID))
		}
		return chronological(logger, msgs, newer), nil
	}

	msgs, err := Invoke(ctx, l.invoker, "conversations.replies", func(ctx context.Context) ([]model.Message, error) {
		return l.slack.Replies(ctx, interfaces.RepliesQuery{
			ChannelID: in.ChannelID,
			ThreadTS:  in.ThreadTS,
			Oldest:    oldest,
			Inclusive: true,
			Limit:     pollLimit,
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to poll thread replies", goerr.V(model.ChannelIDKey, in.ChannelID))
	}
	return chronological(logger, msgs, func(ts types.SlackTS) bool {
		return !ts.Equal(in.ThreadTS) && newer(ts)
	}), nil
}

// chronological drops items without a usable timestamp or rejected by keep,
// collapses duplicate timestamps and sorts the rest oldest first.
func chronological(logger *slog.Logger, msgs []model.Message, keep func(types.SlackTS) bool) []stampedMessage {
	items := make([]stampedMessage, 0, len(msgs))
	for _, msg := range msgs {
		ts, err := msg.Timestamp()
		if err != nil {
			logger.Warn("skipping message without a valid timestamp", "ts", msg.TS(), "error", err)
			continue
		}
		if !keep(ts) {
			continue
		}
		items = append(items, stampedMessage{msg: msg, ts: ts})
	}

	slices.SortStableFunc(items, func(a, b stampedMessage) int {
		return a.ts.Compare(b.ts)
	})
	return slices.CompactFunc(items, func(a, b stampedMessage) bool {
		return a.ts.Equal(b.ts)
	})
}
