package config

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// slackTokenPattern matches bot, user and app-level tokens
var slackTokenPattern = regexp.MustCompile(`xox[abposr]-[0-9A-Za-z-]+|xapp-[0-9A-Za-z-]+`)

type Logger struct {
	level   string
	format  string
	output  string
	noColor bool
}

func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level [debug|info|warn|error]",
			Category:    "Logging",
			Value:       "info",
			Destination: &x.level,
			Sources:     cli.EnvVars("CLACKS_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format [console|json]",
			Category:    "Logging",
			Value:       "console",
			Destination: &x.format,
			Sources:     cli.EnvVars("CLACKS_LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output file, '-' for stderr",
			Category:    "Logging",
			Value:       "-",
			Destination: &x.output,
			Sources:     cli.EnvVars("CLACKS_LOG_OUTPUT"),
		},
		&cli.BoolFlag{
			Name:        "log-no-color",
			Usage:       "Disable colored console logs",
			Category:    "Logging",
			Destination: &x.noColor,
			Sources:     cli.EnvVars("CLACKS_LOG_NO_COLOR", "NO_COLOR"),
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

// Configure builds the logger and installs it as the default. The returned
// function closes the log file when one was opened.
func (x *Logger) Configure() (func(), error) {
	level, err := parseLogLevel(x.level)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	closer := func() {}
	if x.output != "" && x.output != "-" {
		// #nosec G304 - path is given by the operator
		f, err := os.OpenFile(x.output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open log file", goerr.V("path", x.output))
		}
		w = f
		closer = func() { _ = f.Close() }
	}

	if x.noColor {
		color.NoColor = true
	}

	handler, err := x.handler(w, level)
	if err != nil {
		closer()
		return nil, err
	}

	logging.SetDefault(slog.New(handler))
	return closer, nil
}

func (x *Logger) handler(w io.Writer, level slog.Level) (slog.Handler, error) {
	filter := redactor()

	switch x.format {
	case "console":
		return clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
			clog.WithColorMap(&clog.ColorMap{
				Level: map[slog.Level]*color.Color{
					slog.LevelDebug: color.New(color.FgGreen, color.Bold),
					slog.LevelInfo:  color.New(color.FgCyan, color.Bold),
					slog.LevelWarn:  color.New(color.FgYellow, color.Bold),
					slog.LevelError: color.New(color.FgRed, color.Bold),
				},
				LevelDefault: color.New(color.FgBlue, color.Bold),
				Time:         color.New(color.FgWhite),
				Message:      color.New(color.FgHiWhite),
				AttrKey:      color.New(color.FgHiCyan),
				AttrValue:    color.New(color.FgHiWhite),
			}),
		), nil

	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: filter,
		}), nil

	default:
		return nil, goerr.Wrap(ErrInvalidLogFormat, "unsupported log format", goerr.V("format", x.format))
	}
}

func redactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("Token"),
		masq.WithFieldName("AccessToken"),
		masq.WithFieldPrefix("Secret"),
		masq.WithRegex(slackTokenPattern),
	)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, goerr.Wrap(ErrInvalidLogLevel, "unsupported log level", goerr.V("level", s))
	}
}
