package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/usecase"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	"github.com/secmon-lab/clacks/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// listenStatus is written to stderr when listening stops
type listenStatus struct {
	Status           string `json:"status"`
	MessagesReceived int    `json:"messages_received"`
}

// messageFilter drops messages the operator did not ask for
type messageFilter struct {
	fromUserID  string
	includeBots bool
}

func (f messageFilter) accept(msg model.Message) bool {
	if f.fromUserID != "" && msg.UserID() != f.fromUserID {
		return false
	}
	if !f.includeBots && msg.IsBot() {
		return false
	}
	return true
}

func cmdListen(e *env) *cli.Command {
	var (
		threadRef   string
		fromUser    string
		outfile     string
		interval    time.Duration
		timeout     time.Duration
		history     int
		includeBots bool
		continuous  bool
	)

	return &cli.Command{
		Name:      "listen",
		Usage:     "Listen for new messages in a channel or thread and print them as NDJSON",
		ArgsUsage: "<channel>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "thread",
				Usage:       "Thread timestamp or message link to listen to replies instead of the channel",
				Destination: &threadRef,
			},
			&cli.StringFlag{
				Name:        "from",
				Usage:       "Only print messages from this user (name, ID, or alias)",
				Destination: &fromUser,
			},
			&cli.DurationFlag{
				Name:        "interval",
				Usage:       "Poll interval",
				Value:       usecase.DefaultPollInterval,
				Destination: &interval,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "Stop after this duration (default: no limit)",
				Destination: &timeout,
			},
			&cli.IntFlag{
				Name:        "include-history",
				Usage:       "Print the last N messages before listening",
				Destination: &history,
			},
			&cli.BoolFlag{
				Name:        "include-bots",
				Usage:       "Include bot messages",
				Destination: &includeBots,
			},
			&cli.BoolFlag{
				Name:        "continuous",
				Usage:       "Keep listening after the first new message",
				Destination: &continuous,
			},
			&cli.StringFlag{
				Name:        "outfile",
				Aliases:     []string{"o"},
				Usage:       "Append NDJSON output to this file instead of stdout",
				Destination: &outfile,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			target, err := requireArg(c, 0, "channel")
			if err != nil {
				return err
			}

			var threadTS types.SlackTS
			if threadRef != "" {
				if threadTS, err = types.ParseMessageRef(threadRef); err != nil {
					return err
				}
			}

			s, err := e.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			channelID, err := s.uc.Resolver.ResolveChannel(ctx, s.scope, target)
			if err != nil {
				return err
			}

			filter := messageFilter{includeBots: includeBots}
			if fromUser != "" {
				if filter.fromUserID, err = s.uc.Resolver.ResolveUser(ctx, s.scope, fromUser); err != nil {
					return err
				}
			}

			var w io.Writer = e.stdout
			if outfile != "" {
				// #nosec G304 - path is given by the operator
				f, err := os.OpenFile(outfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err != nil {
					return goerr.Wrap(err, "failed to open output file", goerr.V("path", outfile))
				}
				defer safe.Close(ctx, f)
				w = f
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			received, err := listen(ctx, s.uc.Listener, usecase.ListenInput{
				ChannelID:  channelID,
				ThreadTS:   threadTS,
				Interval:   interval,
				Timeout:    timeout,
				Backfill:   history,
				Continuous: continuous,
			}, filter, w)

			if statusErr := writeJSON(e.stderr, listenStatus{Status: "stopped", MessagesReceived: received}); statusErr != nil && err == nil {
				err = statusErr
			}
			return err
		},
	}
}

// listen drains the listener into w and reports how many messages were written
func listen(ctx context.Context, listener *usecase.Listener, in usecase.ListenInput, filter messageFilter, w io.Writer) (int, error) {
	logger := logging.From(ctx)
	received := 0

	for msg, err := range listener.Listen(ctx, in) {
		if err != nil {
			return received, err
		}
		if !filter.accept(msg) {
			logger.Debug("message filtered", "ts", msg.TS())
			continue
		}
		if err := writeJSON(w, msg); err != nil {
			return received, err
		}
		received++
	}
	return received, nil
}
