package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/secmon-lab/clacks/pkg/domain/model"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

type aliasKey struct {
	name       string
	context    string
	targetType types.TargetType
}

type aliasRepository struct {
	mu      sync.RWMutex
	aliases map[aliasKey]*model.Alias
}

var _ interfaces.AliasRepository = &aliasRepository{}

func newAliasRepository() *aliasRepository {
	return &aliasRepository{
		aliases: make(map[aliasKey]*model.Alias),
	}
}

func compareAliases(a, b *model.Alias) int {
	return cmp.Or(
		strings.Compare(a.Name, b.Name),
		strings.Compare(a.Context, b.Context),
		strings.Compare(string(a.TargetType), string(b.TargetType)),
	)
}

func (r *aliasRepository) Add(ctx context.Context, alias *model.Alias) error {
	if !alias.TargetType.IsValid() {
		return goerr.Wrap(model.ErrInvalidTargetType, "invalid alias target type", goerr.V("target_type", alias.TargetType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := aliasKey{name: alias.Name, context: alias.Context, targetType: alias.TargetType}
	if _, exists := r.aliases[key]; exists {
		return goerr.Wrap(model.ErrAliasConflict, "alias already exists",
			goerr.V(model.AliasKey, alias.Name), goerr.V(model.ContextKey, alias.Context))
	}

	stored := *alias
	if stored.Platform == "" {
		stored.Platform = model.DefaultPlatform
	}
	r.aliases[key] = &stored
	return nil
}

func (r *aliasRepository) Get(ctx context.Context, name, contextName string) (*model.Alias, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *model.Alias
	for key, a := range r.aliases {
		if key.name != name || (contextName != "" && key.context != contextName) {
			continue
		}
		if found == nil || compareAliases(a, found) < 0 {
			found = a
		}
	}
	if found == nil {
		return nil, goerr.Wrap(model.ErrNotFound, "alias not found",
			goerr.V(model.AliasKey, name), goerr.V(model.ContextKey, contextName))
	}

	c := *found
	return &c, nil
}

func (r *aliasRepository) Resolve(ctx context.Context, name, contextName string, targetType types.TargetType) (*model.Alias, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.aliases[aliasKey{name: name, context: contextName, targetType: targetType}]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "alias not found",
			goerr.V(model.AliasKey, name), goerr.V(model.ContextKey, contextName), goerr.V("target_type", targetType))
	}

	c := *a
	return &c, nil
}

func (r *aliasRepository) List(ctx context.Context, filter model.AliasFilter) ([]*model.Alias, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	aliases := make([]*model.Alias, 0)
	for _, a := range r.aliases {
		if filter.Context != "" && a.Context != filter.Context {
			continue
		}
		if filter.Platform != "" && a.Platform != filter.Platform {
			continue
		}
		if filter.TargetType != "" && a.TargetType != filter.TargetType {
			continue
		}
		c := *a
		aliases = append(aliases, &c)
	}
	slices.SortFunc(aliases, compareAliases)
	return page(aliases, filter.Limit, filter.Offset), nil
}

func (r *aliasRepository) Remove(ctx context.Context, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key := range r.aliases {
		if key.name == name {
			delete(r.aliases, key)
			removed++
		}
	}
	return removed, nil
}
