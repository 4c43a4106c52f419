package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// ErrNoSlackClient is returned when an operation needs the remote API but
	// no credential was configured
	ErrNoSlackClient = goerr.New("slack client is not configured")

	// ErrInvalidAlias is returned for alias names that could never resolve
	ErrInvalidAlias = goerr.New("invalid alias name")

	// ErrEmptyMessage is returned when send is asked to post nothing
	ErrEmptyMessage = goerr.New("message text is empty")
)

// Context keys for error values
const (
	AttemptKey   = "attempt"
	OperationKey = "operation"
)
