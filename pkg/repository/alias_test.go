package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

func runAliasRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Add and Resolve", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if err := repo.Alias().Add(ctx, &model.Alias{
			Name: "boss", Context: "work", TargetType: types.TargetTypeUser, TargetID: "U0001",
		}); err != nil {
			t.Fatalf("failed to add alias: %v", err)
		}

		got, err := repo.Alias().Resolve(ctx, "boss", "work", types.TargetTypeUser)
		if err != nil {
			t.Fatalf("failed to resolve alias: %v", err)
		}
		if got.TargetID != "U0001" {
			t.Errorf("expected U0001, got %q", got.TargetID)
		}
		if got.Platform != model.DefaultPlatform {
			t.Errorf("expected default platform, got %q", got.Platform)
		}
	})

	t.Run("Add rejects duplicate key", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		alias := &model.Alias{Name: "boss", Context: "work", TargetType: types.TargetTypeUser, TargetID: "U0001"}
		if err := repo.Alias().Add(ctx, alias); err != nil {
			t.Fatalf("failed to add alias: %v", err)
		}

		dup := *alias
		dup.TargetID = "U0002"
		if err := repo.Alias().Add(ctx, &dup); !errors.Is(err, model.ErrAliasConflict) {
			t.Fatalf("expected ErrAliasConflict, got %v", err)
		}

		got, err := repo.Alias().Resolve(ctx, "boss", "work", types.TargetTypeUser)
		if err != nil {
			t.Fatalf("failed to resolve alias: %v", err)
		}
		if got.TargetID != "U0001" {
			t.Errorf("duplicate overwrote the alias: %q", got.TargetID)
		}
	})

	t.Run("Add rejects invalid target type", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Alias().Add(ctx, &model.Alias{Name: "x", Context: "work", TargetType: "group", TargetID: "S1"})
		if !errors.Is(err, model.ErrInvalidTargetType) {
			t.Errorf("expected ErrInvalidTargetType, got %v", err)
		}
	})

	t.Run("Same name in other context or type coexists", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		aliases := []*model.Alias{
			{Name: "ops", Context: "work", TargetType: types.TargetTypeUser, TargetID: "U0001"},
			{Name: "ops", Context: "work", TargetType: types.TargetTypeChannel, TargetID: "C0001"},
			{Name: "ops", Context: "home", TargetType: types.TargetTypeChannel, TargetID: "C0002"},
		}
		for _, a := range aliases {
			if err := repo.Alias().Add(ctx, a); err != nil {
				t.Fatalf("failed to add alias %+v: %v", a, err)
			}
		}

		got, err := repo.Alias().Resolve(ctx, "ops", "home", types.TargetTypeChannel)
		if err != nil {
			t.Fatalf("failed to resolve alias: %v", err)
		}
		if got.TargetID != "C0002" {
			t.Errorf("expected C0002, got %q", got.TargetID)
		}

		_, err = repo.Alias().Resolve(ctx, "ops", "home", types.TargetTypeUser)
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound across target type, got %v", err)
		}
		_, err = repo.Alias().Resolve(ctx, "ops", "other", types.TargetTypeChannel)
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound across context, got %v", err)
		}
	})

	t.Run("Get with and without context", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, a := range []*model.Alias{
			{Name: "ops", Context: "work", TargetType: types.TargetTypeChannel, TargetID: "C0001"},
			{Name: "ops", Context: "home", TargetType: types.TargetTypeChannel, TargetID: "C0002"},
		} {
			if err := repo.Alias().Add(ctx, a); err != nil {
				t.Fatalf("failed to add alias: %v", err)
			}
		}

		got, err := repo.Alias().Get(ctx, "ops", "work")
		if err != nil {
			t.Fatalf("failed to get alias: %v", err)
		}
		if got.TargetID != "C0001" {
			t.Errorf("expected C0001, got %q", got.TargetID)
		}

		// without a context the first by context order wins
		got, err = repo.Alias().Get(ctx, "ops", "")
		if err != nil {
			t.Fatalf("failed to get alias: %v", err)
		}
		if got.Context != "home" {
			t.Errorf("expected home, got %q", got.Context)
		}

		if _, err := repo.Alias().Get(ctx, "missing", ""); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List filters and orders", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, a := range []*model.Alias{
			{Name: "zed", Context: "work", TargetType: types.TargetTypeUser, TargetID: "U0003"},
			{Name: "amy", Context: "work", TargetType: types.TargetTypeUser, TargetID: "U0001"},
			{Name: "dev", Context: "work", TargetType: types.TargetTypeChannel, TargetID: "C0001"},
			{Name: "bob", Context: "home", TargetType: types.TargetTypeUser, TargetID: "U0002"},
		} {
			if err := repo.Alias().Add(ctx, a); err != nil {
				t.Fatalf("failed to add alias: %v", err)
			}
		}

		all, err := repo.Alias().List(ctx, model.AliasFilter{})
		if err != nil {
			t.Fatalf("failed to list aliases: %v", err)
		}
		if len(all) != 4 || all[0].Name != "amy" || all[3].Name != "zed" {
			t.Errorf("unexpected list: %+v", all)
		}

		work, err := repo.Alias().List(ctx, model.AliasFilter{Context: "work", TargetType: types.TargetTypeUser})
		if err != nil {
			t.Fatalf("failed to list aliases: %v", err)
		}
		if len(work) != 2 || work[0].Name != "amy" || work[1].Name != "zed" {
			t.Errorf("unexpected filtered list: %+v", work)
		}

		paged, err := repo.Alias().List(ctx, model.AliasFilter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("failed to list aliases: %v", err)
		}
		if len(paged) != 1 || paged[0].Name != "bob" {
			t.Errorf("unexpected page: %+v", paged)
		}

		none, err := repo.Alias().List(ctx, model.AliasFilter{Platform: "teams"})
		if err != nil {
			t.Fatalf("failed to list aliases: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected empty list, got %+v", none)
		}
	})

	t.Run("Remove deletes the name in every context", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, a := range []*model.Alias{
			{Name: "ops", Context: "work", TargetType: types.TargetTypeChannel, TargetID: "C0001"},
			{Name: "ops", Context: "home", TargetType: types.TargetTypeUser, TargetID: "U0001"},
			{Name: "keep", Context: "work", TargetType: types.TargetTypeUser, TargetID: "U0002"},
		} {
			if err := repo.Alias().Add(ctx, a); err != nil {
				t.Fatalf("failed to add alias: %v", err)
			}
		}

		n, err := repo.Alias().Remove(ctx, "ops")
		if err != nil {
			t.Fatalf("failed to remove alias: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 removed, got %d", n)
		}

		n, err = repo.Alias().Remove(ctx, "ops")
		if err != nil {
			t.Fatalf("failed to remove alias: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 removed, got %d", n)
		}

		if _, err := repo.Alias().Get(ctx, "keep", ""); err != nil {
			t.Errorf("unrelated alias removed: %v", err)
		}
	})
}

func TestAliasRepository(t *testing.T) {
	for name, newRepo := range repositoryFactories {
		t.Run(name, func(t *testing.T) {
			runAliasRepositoryTest(t, newRepo)
		})
	}
}
