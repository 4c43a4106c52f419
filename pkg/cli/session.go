package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/usecase"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	"github.com/secmon-lab/clacks/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

var (
	// ErrMissingArgument is returned when a positional argument is absent
	ErrMissingArgument = goerr.New("missing argument")

	// ErrWorkspaceMismatch is returned when --token belongs to another
	// workspace than the active context
	ErrWorkspaceMismatch = goerr.New("token workspace does not match context")
)

// session is what a command needs to run: use cases over the cache and,
// when requested, the remote API, plus the scope of the active context.
type session struct {
	uc     *usecase.UseCases
	repo   interfaces.Repository
	active *model.Context
	scope  model.Scope
}

func (s *session) Close(ctx context.Context) {
	safe.Close(ctx, s.repo)
}

// open builds a session. withSlack creates a remote client from --token or
// the active context. A bare --token without any context is accepted and
// its workspace is taken from auth.test. A --token used with a context must
// belong to the context's workspace.
func (e *env) open(ctx context.Context, withSlack bool) (*session, error) {
	active, err := e.workspace.ActiveContext()
	if err != nil {
		if !errors.Is(err, model.ErrNoContext) || !e.slack.HasToken() {
			return nil, err
		}
		active = nil
	}

	var client interfaces.SlackClient
	if withSlack || active == nil {
		client, err = e.slack.Configure(active)
		if err != nil {
			return nil, err
		}
	}

	scope := active.Scope()
	switch {
	case active == nil:
		identity, err := client.AuthTest(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to identify token workspace")
		}
		scope.WorkspaceID = identity.WorkspaceID
		scope.ContextName = e.workspace.ContextOverride()

	case withSlack && e.slack.HasToken():
		// the cache and aliases of the context only apply to its own workspace
		identity, err := client.AuthTest(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to identify token workspace")
		}
		if identity.WorkspaceID != active.WorkspaceID {
			return nil, goerr.Wrap(ErrWorkspaceMismatch, "cannot use --token with this context",
				goerr.V(model.ContextKey, active.Name),
				goerr.V(model.WorkspaceIDKey, active.WorkspaceID),
				goerr.V("token_workspace_id", identity.WorkspaceID))
		}
	}

	repo, err := e.workspace.Configure(ctx)
	if err != nil {
		return nil, err
	}

	var opts []usecase.Option
	if withSlack {
		opts = append(opts, usecase.WithSlackClient(client))
	}

	logging.From(ctx).Debug("session opened", "context", scope.ContextName, "workspace_id", scope.WorkspaceID)
	return &session{
		uc:     usecase.New(repo, opts...),
		repo:   repo,
		active: active,
		scope:  scope,
	}, nil
}

func requireArg(c *cli.Command, index int, name string) (string, error) {
	v := strings.TrimSpace(c.Args().Get(index))
	if v == "" {
		return "", goerr.Wrap(ErrMissingArgument, "argument is required", goerr.V("argument", name))
	}
	return v, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to write output")
	}
	return nil
}
