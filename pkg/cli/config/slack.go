package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	token  string
	apiURL string
	debug  bool
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Slack access token, overrides the context token",
			Category:    "Slack",
			Destination: &x.token,
			Sources:     cli.EnvVars("CLACKS_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack Web API base URL",
			Category:    "Slack",
			Hidden:      true,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("CLACKS_SLACK_API_URL"),
		},
		&cli.BoolFlag{
			Name:        "slack-debug",
			Usage:       "Log Slack API requests",
			Category:    "Slack",
			Destination: &x.debug,
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("token.len", len(x.token)),
		slog.String("api_url", x.apiURL),
	)
}

// Token returns the token given on the command line
func (x *Slack) Token() string {
	return x.token
}

// HasToken reports whether a token was given on the command line
func (x *Slack) HasToken() bool {
	return x.token != ""
}

// Configure creates a client for the token flag, falling back to the token of active
func (x *Slack) Configure(active *model.Context) (interfaces.SlackClient, error) {
	token := x.token
	if token == "" && active != nil {
		token = active.AccessToken
	}
	if token == "" {
		return nil, goerr.Wrap(ErrNoToken, "set --token or add a context with 'clacks context add'")
	}
	return x.NewClient(token)
}

// NewClient creates a client for token using the configured endpoint
func (x *Slack) NewClient(token string) (interfaces.SlackClient, error) {
	var opts []slack.Option
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}
	if x.debug {
		opts = append(opts, slack.WithDebug(true))
	}

	client, err := slack.New(token, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Slack client")
	}
	return client, nil
}
