package cli

import (
	"context"
	"strings"

	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdSend(e *env) *cli.Command {
	var threadRef string

	return &cli.Command{
		Name:      "send",
		Usage:     "Send a message to a channel or a user",
		ArgsUsage: "<#channel|@user|alias|ID> <text...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "thread",
				Usage:       "Reply in the thread of this timestamp or message link",
				Destination: &threadRef,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			target, err := requireArg(c, 0, "target")
			if err != nil {
				return err
			}
			text := strings.Join(c.Args().Tail(), " ")

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

			result, err := s.uc.Messaging.Send(ctx, s.scope, target, text, threadTS)
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, result)
		},
	}
}

func cmdRead(e *env) *cli.Command {
	var (
		threadRef string
		limit     int
		since     string
		until     string
	)

	return &cli.Command{
		Name:      "read",
		Usage:     "Read recent messages of a channel or thread as NDJSON, oldest first",
		ArgsUsage: "<channel>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "thread",
				Usage:       "Read the thread of this timestamp or message link",
				Destination: &threadRef,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "Maximum number of messages (default: 20, 100 for threads)",
				Destination: &limit,
			},
			&cli.StringFlag{
				Name:        "since",
				Usage:       "Oldest message to include: timestamp, link, ISO date, or 'N units ago'",
				Destination: &since,
			},
			&cli.StringFlag{
				Name:        "until",
				Usage:       "Newest message to include, same forms as --since",
				Destination: &until,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			target, err := requireArg(c, 0, "channel")
			if err != nil {
				return err
			}

			s, err := e.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			now := s.uc.Now()
			in := usecase.ReadInput{Limit: limit}
			if threadRef != "" {
				if in.ThreadTS, err = types.ParseMessageRef(threadRef); err != nil {
					return err
				}
			}
			if since != "" {
				if in.Oldest, err = types.ParseTimeSpec(since, now); err != nil {
					return err
				}
			}
			if until != "" {
				if in.Latest, err = types.ParseTimeSpec(until, now); err != nil {
					return err
				}
			}

			if in.ChannelID, err = s.uc.Resolver.ResolveChannel(ctx, s.scope, target); err != nil {
				return err
			}

			msgs, err := s.uc.Messaging.Read(ctx, in)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				if err := writeJSON(e.stdout, msg); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func cmdReact(e *env) *cli.Command {
	var remove bool

	return &cli.Command{
		Name:      "react",
		Usage:     "Add an emoji reaction to a message",
		ArgsUsage: "<channel> <timestamp|link> <emoji>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "remove",
				Usage:       "Remove the reaction instead of adding it",
				Destination: &remove,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runReaction(ctx, e, c, remove)
		},
	}
}

func cmdUnreact(e *env) *cli.Command {
	return &cli.Command{
		Name:      "unreact",
		Usage:     "Remove your emoji reaction from a message",
		ArgsUsage: "<channel> <timestamp|link> <emoji>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runReaction(ctx, e, c, true)
		},
	}
}

func runReaction(ctx context.Context, e *env, c *cli.Command, remove bool) error {
	target, err := requireArg(c, 0, "channel")
	if err != nil {
		return err
	}
	ref, err := requireArg(c, 1, "timestamp")
	if err != nil {
		return err
	}
	emoji, err := requireArg(c, 2, "emoji")
	if err != nil {
		return err
	}

	ts, err := types.ParseMessageRef(ref)
	if err != nil {
		return err
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

	status := "reacted"
	if remove {
		status = "unreacted"
		err = s.uc.Messaging.Unreact(ctx, channelID, ts, emoji)
	} else {
		err = s.uc.Messaging.React(ctx, channelID, ts, emoji)
	}
	if err != nil {
		return err
	}

	return writeJSON(e.stdout, map[string]string{
		"status":  status,
		"channel": channelID,
		"ts":      ts.String(),
		"emoji":   strings.Trim(emoji, ":"),
	})
}

func cmdDelete(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete one of your messages",
		ArgsUsage: "<channel> <timestamp|link>",
		Action: func(ctx context.Context, c *cli.Command) error {
			target, err := requireArg(c, 0, "channel")
			if err != nil {
				return err
			}
			ref, err := requireArg(c, 1, "timestamp")
			if err != nil {
				return err
			}

			ts, err := types.ParseMessageRef(ref)
			if err != nil {
				return err
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
			if err := s.uc.Messaging.Delete(ctx, channelID, ts); err != nil {
				return err
			}

			return writeJSON(e.stdout, map[string]string{
				"status":  "deleted",
				"channel": channelID,
				"ts":      ts.String(),
			})
		},
	}
}

func cmdRecent(e *env) *cli.Command {
	var in usecase.RecentInput

	return &cli.Command{
		Name:  "recent",
		Usage: "Show the latest message of each of your conversations as NDJSON, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"l"},
				Usage:       "Maximum number of messages",
				Value:       usecase.DefaultRecentMessages,
				Destination: &in.MessageLimit,
			},
			&cli.IntFlag{
				Name:        "conversations",
				Usage:       "Maximum number of conversations to scan",
				Value:       usecase.DefaultRecentConversations,
				Destination: &in.ConversationLimit,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := e.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			msgs, err := s.uc.Messaging.Recent(ctx, in)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				if err := writeJSON(e.stdout, msg); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
