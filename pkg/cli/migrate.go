package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/cli/config"
	"github.com/secmon-lab/clacks/pkg/repository/sqlite"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	"github.com/secmon-lab/clacks/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdMigrate(e *env) *cli.Command {
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate the cache database schema",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Report the pending migration without applying it",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			path, err := e.workspace.DBPath()
			if err != nil {
				return err
			}
			if path == config.MemoryDB {
				return goerr.New("nothing to migrate for the in-memory cache")
			}

			db, err := sqlite.OpenDB(ctx, path)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, db)

			from, err := sqlite.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}

			if from > sqlite.CurrentVersion {
				return goerr.New("cache database was written by a newer clacks", goerr.V("version", from), goerr.V("supported", sqlite.CurrentVersion))
			}

			logger.Info("Migrate configuration", "path", path, "from", from, "to", sqlite.CurrentVersion, "dryRun", dryRun)

			to := from
			if !dryRun && from < sqlite.CurrentVersion {
				if err := sqlite.Migrate(ctx, db); err != nil {
					return goerr.Wrap(err, "failed to apply migrations")
				}
				to = sqlite.CurrentVersion
				logger.Info("Migrations applied successfully")
			}

			return writeJSON(e.stdout, map[string]any{
				"status":         migrationStatus(from, to, dryRun),
				"path":           path,
				"from_version":   from,
				"to_version":     to,
				"target_version": sqlite.CurrentVersion,
			})
		},
	}
}

func migrationStatus(from, to int, dryRun bool) string {
	switch {
	case from >= sqlite.CurrentVersion:
		return "up_to_date"
	case dryRun:
		return "pending"
	case to > from:
		return "migrated"
	default:
		return "pending"
	}
}
