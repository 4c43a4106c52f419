package cli

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/cli/config"
	"github.com/secmon-lab/clacks/pkg/utils/errutil"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Run executes the clacks command line with os.Stdout and os.Stderr
func Run(ctx context.Context, args []string, version string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return goerr.Wrap(err, "failed to load .env")
	}
	return run(ctx, args, version, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, version string, stdout, stderr io.Writer) error {
	e := &env{stdout: stdout, stderr: stderr}
	var closer func()

	var flags []cli.Flag
	flags = append(flags, e.logger.Flags()...)
	flags = append(flags, e.sentry.Flags()...)
	flags = append(flags, e.workspace.Flags()...)
	flags = append(flags, e.slack.Flags()...)

	app := &cli.Command{
		Name:      "clacks",
		Usage:     "Slack from the command line",
		Version:   version,
		Flags:     flags,
		Writer:    stdout,
		ErrWriter: stderr,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := e.logger.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			if err := e.sentry.Configure(version); err != nil {
				return ctx, err
			}

			logger := logging.Default().With("run_id", uuid.NewString())
			logging.SetDefault(logger)
			logger.Debug("Starting clacks",
				"version", version,
				"logger", e.logger,
				"sentry", e.sentry,
				"workspace", e.workspace,
				"slack", e.slack,
			)
			return logging.With(ctx, logger), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdListen(e),
			cmdSend(e),
			cmdRead(e),
			cmdReact(e),
			cmdUnreact(e),
			cmdDelete(e),
			cmdRecent(e),
			cmdRolodex(e),
			cmdAlias(e),
			cmdContext(e),
			cmdMigrate(e),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		return errutil.Handle(ctx, err, "failed to run clacks")
	}

	return nil
}

// env carries the flag groups and output streams shared by every command
type env struct {
	stdout io.Writer
	stderr io.Writer

	logger    config.Logger
	sentry    config.Sentry
	workspace config.Workspace
	slack     config.Slack
}
