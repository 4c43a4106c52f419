package errutil

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
)

// Handle logs the error with a message and reports it to Sentry when a
// Sentry client has been initialized. The error is returned as-is so that
// callers can keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	// Extract goerr values for structured logging
	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return err
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		if ge != nil {
			for k, v := range ge.Values() {
				scope.SetExtra(k, v)
			}
		}
		evID := hub.CaptureException(err)
		if evID != nil {
			logger.Debug("error reported to sentry", "event_id", *evID)
		}
	})
	hub.Flush(2 * time.Second)

	return err
}
