package cli

import (
	"context"

	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
	"github.com/secmon-lab/clacks/pkg/usecase"
	"github.com/secmon-lab/clacks/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

type aliasView struct {
	Alias      string           `json:"alias"`
	Platform   string           `json:"platform"`
	TargetID   string           `json:"target_id"`
	TargetType types.TargetType `json:"target_type"`
	Context    string           `json:"context"`
}

func toAliasView(a *model.Alias) aliasView {
	return aliasView{
		Alias:      a.Name,
		Platform:   a.Platform,
		TargetID:   a.TargetID,
		TargetType: a.TargetType,
		Context:    a.Context,
	}
}

func cmdAlias(e *env) *cli.Command {
	return &cli.Command{
		Name:  "alias",
		Usage: "Manage aliases of users and channels in the current context",
		Commands: []*cli.Command{
			cmdAliasAdd(e),
			cmdAliasList(e),
			cmdAliasRemove(e),
		},
	}
}

func cmdAliasAdd(e *env) *cli.Command {
	var (
		targetID   string
		targetType string
		platform   string
	)

	return &cli.Command{
		Name:      "add",
		Usage:     "Bind an alias to a user or channel ID",
		ArgsUsage: "<alias>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "target-id",
				Aliases:     []string{"t"},
				Usage:       "User or channel ID the alias points to",
				Required:    true,
				Destination: &targetID,
			},
			&cli.StringFlag{
				Name:        "target-type",
				Aliases:     []string{"T"},
				Usage:       "Target type [user|channel]",
				Required:    true,
				Destination: &targetType,
			},
			&cli.StringFlag{
				Name:        "platform",
				Aliases:     []string{"p"},
				Usage:       "Platform of the target",
				Value:       model.DefaultPlatform,
				Destination: &platform,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			name, err := requireArg(c, 0, "alias")
			if err != nil {
				return err
			}
			tt, err := types.ParseTargetType(targetType)
			if err != nil {
				return err
			}

			s, err := e.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			alias := &model.Alias{
				Name:       name,
				Context:    s.scope.ContextName,
				TargetType: tt,
				Platform:   platform,
				TargetID:   targetID,
			}
			if err := s.uc.Alias.Add(ctx, alias); err != nil {
				return err
			}

			return writeJSON(e.stdout, struct {
				Status string `json:"status"`
				aliasView
			}{Status: "added", aliasView: toAliasView(alias)})
		},
	}
}

func cmdAliasList(e *env) *cli.Command {
	var (
		all        bool
		platform   string
		targetType string
		limit      int
		offset     int
	)

	return &cli.Command{
		Name:  "list",
		Usage: "List aliases of the current context",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "List aliases of every context",
				Destination: &all,
			},
			&cli.StringFlag{
				Name:        "platform",
				Aliases:     []string{"p"},
				Usage:       "Only list aliases of this platform",
				Destination: &platform,
			},
			&cli.StringFlag{
				Name:        "target-type",
				Aliases:     []string{"T"},
				Usage:       "Only list aliases of this target type [user|channel]",
				Destination: &targetType,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"l"},
				Value:       defaultListLimit,
				Usage:       "Maximum number of results",
				Destination: &limit,
			},
			&cli.IntFlag{
				Name:        "offset",
				Usage:       "Number of results to skip",
				Destination: &offset,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			filter := model.AliasFilter{Platform: platform, Limit: limit, Offset: offset}
			if targetType != "" {
				tt, err := types.ParseTargetType(targetType)
				if err != nil {
					return err
				}
				filter.TargetType = tt
			}

			var uc *usecase.UseCases
			if all {
				repo, err := e.workspace.Configure(ctx)
				if err != nil {
					return err
				}
				defer safe.Close(ctx, repo)
				uc = usecase.New(repo)
			} else {
				s, err := e.open(ctx, false)
				if err != nil {
					return err
				}
				defer s.Close(ctx)
				filter.Context = s.scope.ContextName
				uc = s.uc
			}

			aliases, err := uc.Alias.List(ctx, filter)
			if err != nil {
				return err
			}

			views := make([]aliasView, 0, len(aliases))
			for _, a := range aliases {
				views = append(views, toAliasView(a))
			}
			return writeJSON(e.stdout, map[string]any{
				"aliases": views,
				"count":   len(views),
			})
		},
	}
}

func cmdAliasRemove(e *env) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove an alias from every context",
		ArgsUsage: "<alias>",
		Action: func(ctx context.Context, c *cli.Command) error {
			name, err := requireArg(c, 0, "alias")
			if err != nil {
				return err
			}

			repo, err := e.workspace.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			n, err := usecase.New(repo).Alias.Remove(ctx, name)
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, map[string]any{
				"status":  removalStatus(n > 0),
				"alias":   name,
				"removed": n,
			})
		},
	}
}
