package model

import "github.com/secmon-lab/clacks/pkg/domain/types"

// DefaultPlatform is the platform recorded for aliases when none is given
const DefaultPlatform = "slack"

// Alias binds an operator-chosen name to a platform object inside one naming
// context. The key is (Name, Context, TargetType); the same name may exist in
// several contexts.
type Alias struct {
	Name       string
	Context    string
	TargetType types.TargetType
	Platform   string
	TargetID   string
}

// AliasFilter narrows an alias listing. Empty fields do not filter.
type AliasFilter struct {
	Context    string
	Platform   string
	TargetType types.TargetType
	Limit      int
	Offset     int
}
