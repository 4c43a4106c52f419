package model

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/types"
)

// Sentinel errors shared by repositories, use cases and the CLI
var (
	// ErrNotFound is returned by repositories when a row does not exist
	ErrNotFound = goerr.New("not found")

	// ErrUserNotFound is returned when a user token cannot be resolved
	ErrUserNotFound = goerr.New("user not found")

	// ErrChannelNotFound is returned when a channel token cannot be resolved
	ErrChannelNotFound = goerr.New("channel not found")

	// ErrAliasConflict is returned when (alias, context, target type) already exists
	ErrAliasConflict = goerr.New("alias already exists")

	// ErrNoContext is returned when no authentication context is selected
	ErrNoContext = goerr.New("no active authentication context")

	ErrInvalidTimestamp  = types.ErrInvalidTimestamp
	ErrInvalidTargetType = types.ErrInvalidTargetType
)

// Context keys for error values
const (
	IdentifierKey  = "identifier"
	WorkspaceIDKey = "workspace_id"
	ContextKey     = "context"
	AliasKey       = "alias"
	ChannelIDKey   = "channel_id"
)

// RateLimitedError is returned by the remote API adapter when the platform
// asks the caller to slow down.
type RateLimitedError struct {
	// RetryAfter is the delay suggested by the server, zero when absent
	RetryAfter time.Duration
	Cause      error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitedError) Unwrap() error {
	return e.Cause
}
