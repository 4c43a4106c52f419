package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

// AliasUseCase manages context-scoped aliases
type AliasUseCase struct {
	repo interfaces.Repository
}

// NewAliasUseCase creates an AliasUseCase
func NewAliasUseCase(repo interfaces.Repository) *AliasUseCase {
	return &AliasUseCase{repo: repo}
}

// Add binds name to targetID inside contextName. A name shaped like a
// platform ID or carrying a "#"/"@" decoration is rejected because the
// resolver would never reach it.
func (uc *AliasUseCase) Add(ctx context.Context, alias *model.Alias) error {
	alias.Name = strings.TrimSpace(alias.Name)
	if alias.Context == "" {
		return goerr.Wrap(model.ErrNoContext, "aliases must belong to a context", goerr.V(model.AliasKey, alias.Name))
	}
	if !alias.TargetType.IsValid() {
		return goerr.Wrap(model.ErrInvalidTargetType, "invalid alias target type", goerr.V("target_type", alias.TargetType))
	}
	if alias.Name == "" || strings.ContainsAny(alias.Name[:1], "#@") {
		return goerr.Wrap(ErrInvalidAlias, "alias must be a plain name", goerr.V(model.AliasKey, alias.Name))
	}
	for _, tt := range types.AllTargetTypes() {
		if tt.IsPlatformID(alias.Name) {
			return goerr.Wrap(ErrInvalidAlias, "alias looks like a platform ID", goerr.V(model.AliasKey, alias.Name))
		}
	}
	if alias.TargetID == "" {
		return goerr.Wrap(ErrInvalidAlias, "alias target is empty", goerr.V(model.AliasKey, alias.Name))
	}
	if alias.Platform == "" {
		alias.Platform = model.DefaultPlatform
	}

	if err := uc.repo.Alias().Add(ctx, alias); err != nil {
		return goerr.Wrap(err, "failed to add alias", goerr.V(model.AliasKey, alias.Name), goerr.V(model.ContextKey, alias.Context))
	}
	return nil
}

// Get looks an alias up for administration. An empty contextName searches every context.
func (uc *AliasUseCase) Get(ctx context.Context, name, contextName string) (*model.Alias, error) {
	return uc.repo.Alias().Get(ctx, name, contextName)
}

// List returns aliases matching filter
func (uc *AliasUseCase) List(ctx context.Context, filter model.AliasFilter) ([]*model.Alias, error) {
	return uc.repo.Alias().List(ctx, filter)
}

// Remove deletes the alias from every context and reports how many bindings went away
func (uc *AliasUseCase) Remove(ctx context.Context, name string) (int, error) {
	n, err := uc.repo.Alias().Remove(ctx, name)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to remove alias", goerr.V(model.AliasKey, name))
	}
	return n, nil
}
