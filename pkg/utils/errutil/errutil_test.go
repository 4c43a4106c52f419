package errutil_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/clacks/pkg/utils/errutil"
	"github.com/secmon-lab/clacks/pkg/utils/logging"
)

func TestHandleNil(t *testing.T) {
	gt.NoError(t, errutil.Handle(context.Background(), nil, "nothing"))
}

func TestHandleLogsValues(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.With(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	orig := goerr.New("boom", goerr.V("channel_id", "C123"))
	err := errutil.Handle(ctx, orig, "command failed")

	gt.Value(t, err).Equal(error(orig))
	gt.String(t, buf.String()).Contains("command failed")
	gt.String(t, buf.String()).Contains("C123")
}
