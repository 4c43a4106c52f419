package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/clacks/pkg/domain/model"
)

// ContextFileName is the file holding authentication contexts inside the config directory
const ContextFileName = "contexts.toml"

// ContextFile is the on-disk set of authentication contexts
type ContextFile struct {
	Current  string          `toml:"current"`
	Contexts []model.Context `toml:"context"`
}

// LoadContextFile reads path. A missing file yields an empty set.
func LoadContextFile(path string) (*ContextFile, error) {
	// #nosec G304 - path is derived from the config directory flag
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ContextFile{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read context file", goerr.V(ConfigPathKey, path))
	}

	var file ContextFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse context file", goerr.V(ConfigPathKey, path))
	}
	return &file, nil
}

// Save writes the file with owner-only permissions, replacing it atomically
func (f *ContextFile) Save(path string) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return goerr.Wrap(err, "failed to encode context file")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return goerr.Wrap(err, "failed to create config directory", goerr.V(ConfigPathKey, path))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write context file", goerr.V(ConfigPathKey, tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		return goerr.Wrap(err, "failed to replace context file", goerr.V(ConfigPathKey, path))
	}
	return nil
}

// Find returns a copy of the named context
func (f *ContextFile) Find(name string) (*model.Context, bool) {
	for _, c := range f.Contexts {
		if c.Name == name {
			found := c
			return &found, true
		}
	}
	return nil, false
}

// Active returns the context selected by override, or by the current marker
// when override is empty.
func (f *ContextFile) Active(override string) (*model.Context, error) {
	name := override
	if name == "" {
		name = f.Current
	}
	if name == "" {
		return nil, model.ErrNoContext
	}

	c, ok := f.Find(name)
	if !ok {
		return nil, goerr.Wrap(ErrContextNotFound, "context is not registered", goerr.V(ContextNameKey, name))
	}
	return c, nil
}

// Put adds c or replaces the context with the same name. The first context
// added becomes current.
func (f *ContextFile) Put(c model.Context) {
	for i := range f.Contexts {
		if f.Contexts[i].Name == c.Name {
			f.Contexts[i] = c
			return
		}
	}
	f.Contexts = append(f.Contexts, c)
	if f.Current == "" {
		f.Current = c.Name
	}
}

// Use marks name as the current context
func (f *ContextFile) Use(name string) error {
	if _, ok := f.Find(name); !ok {
		return goerr.Wrap(ErrContextNotFound, "cannot switch to unknown context", goerr.V(ContextNameKey, name))
	}
	f.Current = name
	return nil
}

// Remove deletes the named context and reports whether it existed. Removing
// the current context leaves no context selected.
func (f *ContextFile) Remove(name string) bool {
	for i, c := range f.Contexts {
		if c.Name != name {
			continue
		}
		f.Contexts = append(f.Contexts[:i], f.Contexts[i+1:]...)
		if f.Current == name {
			f.Current = ""
		}
		return true
	}
	return false
}
