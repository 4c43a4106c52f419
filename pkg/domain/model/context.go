package model

import "log/slog"

// Context is a named authentication scope. The name is also the key that
// aliases are isolated by.
type Context struct {
	Name          string `toml:"name"`
	AccessToken   string `toml:"access_token" masq:"secret"`
	WorkspaceID   string `toml:"workspace_id"`
	WorkspaceName string `toml:"workspace_name,omitempty"`
	UserID        string `toml:"user_id,omitempty"`
}

// LogValue hides the token from structured logs
func (c Context) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", c.Name),
		slog.String("workspace_id", c.WorkspaceID),
		slog.Int("access_token.len", len(c.AccessToken)),
	)
}

// Scope carries the per-call values that resolution needs. It is passed by
// value at each call site.
type Scope struct {
	WorkspaceID string
	ContextName string
}

// Scope returns the resolution scope of the context
func (c *Context) Scope() Scope {
	if c == nil {
		return Scope{}
	}
	return Scope{WorkspaceID: c.WorkspaceID, ContextName: c.Name}
}
