package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/cli/config"
	"github.com/secmon-lab/clacks/pkg/domain/model"
)

func TestLoadContextFile(t *testing.T) {
	t.Run("missing file is empty", func(t *testing.T) {
		file, err := config.LoadContextFile(filepath.Join(t.TempDir(), "none.toml"))
		gt.NoError(t, err).Required()
		gt.Value(t, file.Current).Equal("")
		gt.Array(t, file.Contexts).Length(0)
	})

	t.Run("parses contexts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), config.ContextFileName)
		content := `
current = "work"

[[context]]
name = "work"
access_token = "xoxp-1"
workspace_id = "T0001"
workspace_name = "Work"
user_id = "U0001"

[[context]]
name = "home"
access_token = "xoxp-2"
workspace_id = "T0002"
`
		gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()

		file, err := config.LoadContextFile(path)
		gt.NoError(t, err).Required()
		gt.Value(t, file.Current).Equal("work")
		gt.Array(t, file.Contexts).Length(2)

		home, ok := file.Find("home")
		gt.Bool(t, ok).True()
		gt.Value(t, home.WorkspaceID).Equal("T0002")
	})

	t.Run("broken file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), config.ContextFileName)
		gt.NoError(t, os.WriteFile(path, []byte("current = ["), 0600)).Required()

		_, err := config.LoadContextFile(path)
		gt.Value(t, err).NotNil()
	})
}

func TestContextFile_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", config.ContextFileName)

	file := &config.ContextFile{}
	file.Put(model.Context{Name: "work", AccessToken: "xoxp-1", WorkspaceID: "T0001"})
	gt.NoError(t, file.Save(path)).Required()

	info, err := os.Stat(path)
	gt.NoError(t, err).Required()
	if info.Mode().Perm() != 0600 {
		t.Errorf("unexpected permission: %v", info.Mode().Perm())
	}

	loaded, err := config.LoadContextFile(path)
	gt.NoError(t, err).Required()
	gt.Value(t, loaded.Current).Equal("work")
	c, ok := loaded.Find("work")
	gt.Bool(t, ok).True()
	gt.Value(t, c.AccessToken).Equal("xoxp-1")
}

func TestContextFile_Lifecycle(t *testing.T) {
	file := &config.ContextFile{}

	_, err := file.Active("")
	gt.Error(t, err).Is(model.ErrNoContext)

	file.Put(model.Context{Name: "work", WorkspaceID: "T0001"})
	file.Put(model.Context{Name: "home", WorkspaceID: "T0002"})
	gt.Value(t, file.Current).Equal("work")

	// replacing keeps a single entry
	file.Put(model.Context{Name: "home", WorkspaceID: "T0003"})
	gt.Array(t, file.Contexts).Length(2)

	active, err := file.Active("home")
	gt.NoError(t, err).Required()
	gt.Value(t, active.WorkspaceID).Equal("T0003")

	_, err = file.Active("nope")
	gt.Error(t, err).Is(config.ErrContextNotFound)

	gt.Error(t, file.Use("nope")).Is(config.ErrContextNotFound)
	gt.NoError(t, file.Use("home")).Required()
	gt.Value(t, file.Current).Equal("home")

	gt.Bool(t, file.Remove("home")).True()
	gt.Bool(t, file.Remove("home")).False()
	gt.Value(t, file.Current).Equal("")
	gt.Array(t, file.Contexts).Length(1)
}
