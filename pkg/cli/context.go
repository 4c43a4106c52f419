package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/cli/config"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type contextView struct {
	Name          string `json:"name"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Current       bool   `json:"current"`
}

func toContextView(c *model.Context, current string) contextView {
	return contextView{
		Name:          c.Name,
		WorkspaceID:   c.WorkspaceID,
		WorkspaceName: c.WorkspaceName,
		UserID:        c.UserID,
		Current:       c.Name == current,
	}
}

func cmdContext(e *env) *cli.Command {
	return &cli.Command{
		Name:  "context",
		Usage: "Manage authentication contexts",
		Commands: []*cli.Command{
			cmdContextAdd(e),
			cmdContextUse(e),
			cmdContextList(e),
			cmdContextCurrent(e),
			cmdContextRemove(e),
		},
	}
}

func cmdContextAdd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Register a context for the token given with --token",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, c *cli.Command) error {
			name, err := requireArg(c, 0, "name")
			if err != nil {
				return err
			}
			if !e.slack.HasToken() {
				return goerr.Wrap(config.ErrNoToken, "context add needs --token")
			}

			client, err := e.slack.NewClient(e.slack.Token())
			if err != nil {
				return err
			}
			identity, err := client.AuthTest(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to verify token", goerr.V(config.ContextNameKey, name))
			}

			file, err := e.workspace.LoadContexts()
			if err != nil {
				return err
			}
			added := model.Context{
				Name:          name,
				AccessToken:   e.slack.Token(),
				WorkspaceID:   identity.WorkspaceID,
				WorkspaceName: identity.Workspace,
				UserID:        identity.UserID,
			}
			file.Put(added)
			if err := e.workspace.SaveContexts(file); err != nil {
				return err
			}

			logging.From(ctx).Info("context added", "context", added)
			return writeJSON(e.stdout, struct {
				Status string `json:"status"`
				contextView
			}{Status: "added", contextView: toContextView(&added, file.Current)})
		},
	}
}

func cmdContextUse(e *env) *cli.Command {
	return &cli.Command{
		Name:      "use",
		Usage:     "Switch the current context",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, c *cli.Command) error {
			name, err := requireArg(c, 0, "name")
			if err != nil {
				return err
			}

			file, err := e.workspace.LoadContexts()
			if err != nil {
				return err
			}
			if err := file.Use(name); err != nil {
				return err
			}
			if err := e.workspace.SaveContexts(file); err != nil {
				return err
			}
			return writeJSON(e.stdout, map[string]string{"status": "switched", "current": name})
		},
	}
}

func cmdContextList(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered contexts",
		Action: func(ctx context.Context, c *cli.Command) error {
			file, err := e.workspace.LoadContexts()
			if err != nil {
				return err
			}

			views := make([]contextView, 0, len(file.Contexts))
			for i := range file.Contexts {
				views = append(views, toContextView(&file.Contexts[i], file.Current))
			}
			return writeJSON(e.stdout, map[string]any{
				"contexts": views,
				"count":    len(views),
			})
		},
	}
}

func cmdContextCurrent(e *env) *cli.Command {
	return &cli.Command{
		Name:  "current",
		Usage: "Show the active context",
		Action: func(ctx context.Context, c *cli.Command) error {
			active, err := e.workspace.ActiveContext()
			if err != nil {
				return err
			}
			return writeJSON(e.stdout, toContextView(active, active.Name))
		},
	}
}

func cmdContextRemove(e *env) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove a context",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, c *cli.Command) error {
			name, err := requireArg(c, 0, "name")
			if err != nil {
				return err
			}

			file, err := e.workspace.LoadContexts()
			if err != nil {
				return err
			}
			removed := file.Remove(name)
			if removed {
				if err := e.workspace.SaveContexts(file); err != nil {
					return err
				}
			}
			return writeJSON(e.stdout, map[string]string{
				"status":  removalStatus(removed),
				"context": name,
			})
		},
	}
}
