package memory

import (
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps the rolodex and aliases in process memory. Nothing survives
// the process; it backs --db :memory: and tests.
type Memory struct {
	rolodex *rolodexRepository
	alias   *aliasRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		rolodex: newRolodexRepository(),
		alias:   newAliasRepository(),
	}
}

func (m *Memory) Rolodex() interfaces.RolodexRepository {
	return m.rolodex
}

func (m *Memory) Alias() interfaces.AliasRepository {
	return m.alias
}

func (m *Memory) Close() error {
	return nil
}
