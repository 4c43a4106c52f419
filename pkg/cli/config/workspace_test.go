package config_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/cli/config"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/repository/memory"
	"github.com/secmon-lab/clacks/pkg/repository/sqlite"
)

func TestWorkspace_Paths(t *testing.T) {
	dir := t.TempDir()

	ws := config.NewWorkspaceForTest(dir, "", "")
	path, err := ws.ContextFilePath()
	gt.NoError(t, err).Required()
	gt.Value(t, path).Equal(filepath.Join(dir, config.ContextFileName))

	db, err := ws.DBPath()
	gt.NoError(t, err).Required()
	gt.Value(t, db).Equal(filepath.Join(dir, "clacks.db"))

	ws = config.NewWorkspaceForTest(dir, "", "/tmp/other.db")
	db, err = ws.DBPath()
	gt.NoError(t, err).Required()
	gt.Value(t, db).Equal("/tmp/other.db")
}

func TestWorkspace_ActiveContext(t *testing.T) {
	dir := t.TempDir()

	ws := config.NewWorkspaceForTest(dir, "", "")
	_, err := ws.ActiveContext()
	gt.Error(t, err).Is(model.ErrNoContext)

	file := &config.ContextFile{}
	file.Put(model.Context{Name: "work", WorkspaceID: "T0001"})
	file.Put(model.Context{Name: "home", WorkspaceID: "T0002"})
	gt.NoError(t, ws.SaveContexts(file)).Required()

	active, err := ws.ActiveContext()
	gt.NoError(t, err).Required()
	gt.Value(t, active.Name).Equal("work")

	override := config.NewWorkspaceForTest(dir, "home", "")
	active, err = override.ActiveContext()
	gt.NoError(t, err).Required()
	gt.Value(t, active.WorkspaceID).Equal("T0002")
}

func TestWorkspace_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		ws := config.NewWorkspaceForTest(t.TempDir(), "", config.MemoryDB)
		repo, err := ws.Configure(ctx)
		gt.NoError(t, err).Required()
		defer repo.Close()

		_, ok := repo.(*memory.Memory)
		gt.Bool(t, ok).True()
	})

	t.Run("sqlite file in a new directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache", "clacks.db")
		ws := config.NewWorkspaceForTest(t.TempDir(), "", path)
		repo, err := ws.Configure(ctx)
		gt.NoError(t, err).Required()
		defer repo.Close()

		_, ok := repo.(*sqlite.SQLite)
		gt.Bool(t, ok).True()
	})
}
