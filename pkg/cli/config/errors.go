package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration
var (
	ErrNoToken          = goerr.New("no access token configured")
	ErrContextNotFound  = goerr.New("context not found")
	ErrInvalidLogLevel  = goerr.New("invalid log level")
	ErrInvalidLogFormat = goerr.New("invalid log format")
)

// Context keys for error values
const (
	ConfigPathKey  = "config_path"
	ContextNameKey = "context_name"
)
