package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

const defaultListLimit = 100

type userView struct {
	UserID   string  `json:"user_id"`
	Username *string `json:"username"`
	RealName *string `json:"real_name"`
	Email    *string `json:"email"`
}

type channelView struct {
	ChannelID   string  `json:"channel_id"`
	ChannelName *string `json:"channel_name"`
	IsPrivate   *bool   `json:"is_private"`
}

func toUserViews(users []*model.RolodexUser) []userView {
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{UserID: u.UserID, Username: u.Username, RealName: u.RealName, Email: u.Email})
	}
	return views
}

func toChannelViews(channels []*model.RolodexChannel) []channelView {
	views := make([]channelView, 0, len(channels))
	for _, c := range channels {
		views = append(views, channelView{ChannelID: c.ChannelID, ChannelName: c.Name, IsPrivate: c.IsPrivate})
	}
	return views
}

// optionalFlag returns a pointer to the flag value only when it was given
func optionalFlag(c *cli.Command, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	return model.Ptr(c.String(name))
}

func cmdRolodex(e *env) *cli.Command {
	return &cli.Command{
		Name:  "rolodex",
		Usage: "Manage the local cache of users and channels",
		Commands: []*cli.Command{
			cmdRolodexAddUser(e),
			cmdRolodexAddChannel(e),
			cmdRolodexListUsers(e),
			cmdRolodexListChannels(e),
			cmdRolodexSearchUsers(e),
			cmdRolodexSearchChannels(e),
			cmdRolodexSync(e),
			cmdRolodexRemove(e, "remove-user", "Remove a user from the cache"),
			cmdRolodexRemove(e, "remove-channel", "Remove a channel from the cache"),
			cmdRolodexClear(e),
		},
	}
}

func cmdRolodexAddUser(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add-user",
		Usage:     "Add or update a user in the cache",
		ArgsUsage: "<user-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username"},
			&cli.StringFlag{Name: "real-name", Aliases: []string{"n"}, Usage: "Real name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			userID, err := requireArg(c, 0, "user-id")
			if err != nil {
				return err
			}

			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			user, err := s.uc.Rolodex.AddUser(ctx, &model.RolodexUser{
				UserID:      userID,
				WorkspaceID: s.scope.WorkspaceID,
				Username:    optionalFlag(c, "username"),
				RealName:    optionalFlag(c, "real-name"),
				Email:       optionalFlag(c, "email"),
			})
			if err != nil {
				return err
			}

			return writeJSON(e.stdout, struct {
				Status string `json:"status"`
				userView
			}{Status: "added", userView: toUserViews([]*model.RolodexUser{user})[0]})
		},
	}
}

func cmdRolodexAddChannel(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add-channel",
		Usage:     "Add or update a channel in the cache",
		ArgsUsage: "<channel-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "channel-name", Aliases: []string{"n"}, Usage: "Channel name"},
			&cli.BoolFlag{Name: "private", Aliases: []string{"p"}, Usage: "Mark the channel as private"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			channelID, err := requireArg(c, 0, "channel-id")
			if err != nil {
				return err
			}

			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			channel, err := s.uc.Rolodex.AddChannel(ctx, &model.RolodexChannel{
				ChannelID:   channelID,
				WorkspaceID: s.scope.WorkspaceID,
				Name:        optionalFlag(c, "channel-name"),
				IsPrivate:   model.Ptr(c.Bool("private")),
			})
			if err != nil {
				return err
			}

			return writeJSON(e.stdout, struct {
				Status string `json:"status"`
				channelView
			}{Status: "added", channelView: toChannelViews([]*model.RolodexChannel{channel})[0]})
		},
	}
}

func pagingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: defaultListLimit, Usage: "Maximum number of results"},
		&cli.IntFlag{Name: "offset", Usage: "Number of results to skip"},
	}
}

func cmdRolodexListUsers(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list-users",
		Usage: "List cached users",
		Flags: pagingFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			users, err := s.uc.Rolodex.ListUsers(ctx, s.scope.WorkspaceID, c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, map[string]any{
				"users": toUserViews(users),
				"count": len(users),
			})
		},
	}
}

func cmdRolodexListChannels(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list-channels",
		Usage: "List cached channels",
		Flags: pagingFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			channels, err := s.uc.Rolodex.ListChannels(ctx, s.scope.WorkspaceID, c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, map[string]any{
				"channels": toChannelViews(channels),
				"count":    len(channels),
			})
		},
	}
}

func cmdRolodexSearchUsers(e *env) *cli.Command {
	return &cli.Command{
		Name:      "search-users",
		Usage:     "Search cached users by username, real name, or email",
		ArgsUsage: "<query>",
		Flags:     pagingFlags()[:1],
		Action: func(ctx context.Context, c *cli.Command) error {
			query, err := requireArg(c, 0, "query")
			if err != nil {
				return err
			}

			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			users, err := s.uc.Rolodex.SearchUsers(ctx, s.scope.WorkspaceID, query, c.Int("limit"))
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, map[string]any{
				"users": toUserViews(users),
				"count": len(users),
				"query": query,
			})
		},
	}
}

func cmdRolodexSearchChannels(e *env) *cli.Command {
	return &cli.Command{
		Name:      "search-channels",
		Usage:     "Search cached channels by name",
		ArgsUsage: "<query>",
		Flags:     pagingFlags()[:1],
		Action: func(ctx context.Context, c *cli.Command) error {
			query, err := requireArg(c, 0, "query")
			if err != nil {
				return err
			}

			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			channels, err := s.uc.Rolodex.SearchChannels(ctx, s.scope.WorkspaceID, query, c.Int("limit"))
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, map[string]any{
				"channels": toChannelViews(channels),
				"count":    len(channels),
				"query":    query,
			})
		},
	}
}

func cmdRolodexSync(e *env) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Fill the cache from the workspace",
		ArgsUsage: "[users|channels|all]",
		Action: func(ctx context.Context, c *cli.Command) error {
			target := c.Args().First()
			if target == "" {
				target = "all"
			}
			if target != "users" && target != "channels" && target != "all" {
				return goerr.New("sync target must be users, channels, or all", goerr.V("target", target))
			}

			s, err := e.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			output := map[string]any{"status": "synced"}
			if target == "users" || target == "all" {
				n, err := s.uc.Rolodex.SyncUsers(ctx, s.scope.WorkspaceID)
				if err != nil {
					return err
				}
				output["users_synced"] = n
			}
			if target == "channels" || target == "all" {
				n, err := s.uc.Rolodex.SyncChannels(ctx, s.scope.WorkspaceID)
				if err != nil {
					return err
				}
				output["channels_synced"] = n
			}
			return writeJSON(e.stdout, output)
		},
	}
}

func cmdRolodexRemove(e *env, name, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<identifier>",
		Action: func(ctx context.Context, c *cli.Command) error {
			identifier, err := requireArg(c, 0, "identifier")
			if err != nil {
				return err
			}

			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			remove := s.uc.Rolodex.RemoveUser
			if name == "remove-channel" {
				remove = s.uc.Rolodex.RemoveChannel
			}
			removed, err := remove(ctx, s.scope.WorkspaceID, identifier)
			if err != nil {
				return err
			}

			return writeJSON(e.stdout, map[string]string{
				"status":     removalStatus(removed),
				"identifier": identifier,
			})
		},
	}
}

func cmdRolodexClear(e *env) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every cached user and channel of the workspace",
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			result, err := s.uc.Rolodex.Clear(ctx, s.scope.WorkspaceID)
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, map[string]any{
				"status":           "cleared",
				"users_deleted":    result.UsersDeleted,
				"channels_deleted": result.ChannelsDeleted,
			})
		},
	}
}

func removalStatus(removed bool) string {
	if removed {
		return "removed"
	}
	return "not_found"
}
