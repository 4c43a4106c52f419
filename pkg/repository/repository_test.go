package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/repository/memory"
	"github.com/secmon-lab/clacks/pkg/repository/sqlite"
)

func newMemoryRepository(t *testing.T) interfaces.Repository {
	t.Helper()
	return memory.New()
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	repo, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "clacks.db"))
	if err != nil {
		t.Fatalf("failed to create sqlite repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close sqlite repository: %v", err)
		}
	})
	return repo
}

var repositoryFactories = map[string]func(t *testing.T) interfaces.Repository{
	"Memory": newMemoryRepository,
	"SQLite": newSQLiteRepository,
}
