package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/repository/memory"
	"github.com/secmon-lab/clacks/pkg/repository/sqlite"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	// MemoryDB selects the in-memory repository instead of a cache file
	MemoryDB = ":memory:"

	defaultDBFileName = "clacks.db"
	appDirName        = "clacks"
)

// Workspace holds the local state flags: where contexts live, which one is
// active, and which cache database to use.
type Workspace struct {
	configDir   string
	contextName string
	dbPath      string
}

func (x *Workspace) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config-dir",
			Aliases:     []string{"D"},
			Usage:       "Configuration directory (default: user config dir)",
			Category:    "Workspace",
			Destination: &x.configDir,
			Sources:     cli.EnvVars("CLACKS_CONFIG_DIR"),
		},
		&cli.StringFlag{
			Name:        "context",
			Aliases:     []string{"c"},
			Usage:       "Authentication context to use instead of the current one",
			Category:    "Workspace",
			Destination: &x.contextName,
			Sources:     cli.EnvVars("CLACKS_CONTEXT"),
		},
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Cache database path, or " + MemoryDB,
			Category:    "Workspace",
			Destination: &x.dbPath,
			Sources:     cli.EnvVars("CLACKS_DB"),
		},
	}
}

func (x Workspace) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("config_dir", x.configDir),
		slog.String("context", x.contextName),
		slog.String("db", x.dbPath),
	)
}

// ContextOverride returns the context name given on the command line
func (x *Workspace) ContextOverride() string {
	return x.contextName
}

// ConfigDir returns the configuration directory, defaulting to the user config dir
func (x *Workspace) ConfigDir() (string, error) {
	if x.configDir != "" {
		return x.configDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to determine user config directory")
	}
	return filepath.Join(base, appDirName), nil
}

// ContextFilePath returns the path of the context file
func (x *Workspace) ContextFilePath() (string, error) {
	dir, err := x.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ContextFileName), nil
}

// DBPath returns the cache database path
func (x *Workspace) DBPath() (string, error) {
	if x.dbPath != "" {
		return x.dbPath, nil
	}
	dir, err := x.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBFileName), nil
}

// LoadContexts reads the context file
func (x *Workspace) LoadContexts() (*ContextFile, error) {
	path, err := x.ContextFilePath()
	if err != nil {
		return nil, err
	}
	return LoadContextFile(path)
}

// SaveContexts writes the context file
func (x *Workspace) SaveContexts(file *ContextFile) error {
	path, err := x.ContextFilePath()
	if err != nil {
		return err
	}
	return file.Save(path)
}

// ActiveContext returns the context selected by --context or the current marker
func (x *Workspace) ActiveContext() (*model.Context, error) {
	file, err := x.LoadContexts()
	if err != nil {
		return nil, err
	}
	return file.Active(x.contextName)
}

// Configure opens the cache repository. The caller must Close it.
func (x *Workspace) Configure(ctx context.Context) (interfaces.Repository, error) {
	path, err := x.DBPath()
	if err != nil {
		return nil, err
	}

	if path == MemoryDB {
		logging.From(ctx).Debug("Using in-memory cache")
		return memory.New(), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to create cache directory", goerr.V("path", path))
	}

	repo, err := sqlite.New(ctx, path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open cache database", goerr.V("path", path))
	}
	logging.From(ctx).Debug("Using cache database", "path", path)
	return repo, nil
}
