package types

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrInvalidTimestamp is returned for malformed timestamp tokens, message links and time specs
	ErrInvalidTimestamp = goerr.New("invalid timestamp")

	// ErrInvalidTargetType is returned when a target type is neither user nor channel
	ErrInvalidTargetType = goerr.New("invalid target type")
)
