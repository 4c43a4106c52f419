package config

import "log/slog"

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(token, apiURL string) *Slack {
	return &Slack{token: token, apiURL: apiURL}
}

// NewWorkspaceForTest creates a Workspace config for testing purposes
func NewWorkspaceForTest(configDir, contextName, dbPath string) *Workspace {
	return &Workspace{configDir: configDir, contextName: contextName, dbPath: dbPath}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output, noColor: true}
}

var ParseLogLevel = parseLogLevel

// Redact applies the log attribute filter
func Redact(a slog.Attr) slog.Attr {
	return redactor()(nil, a)
}
