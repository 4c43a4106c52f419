package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/clacks/pkg/domain/model"
)

type captureKey struct{}

// capturedBody receives the raw body of a successful response made with a
// context returned by withCapture
type capturedBody struct {
	data []byte
}

func withCapture(ctx context.Context) (context.Context, *capturedBody) {
	body := &capturedBody{}
	return context.WithValue(ctx, captureKey{}, body), body
}

// captureTransport keeps a copy of response bodies so message objects can be
// emitted exactly as the API sent them. slack-go still decodes the response
// for error and rate limit handling.
type captureTransport struct {
	next http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	body, ok := req.Context().Value(captureKey{}).(*capturedBody)
	if !ok || resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body", goerr.V("url", req.URL.String()))
	}
	body.data = data
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

// decodeMessages extracts the messages array of a history or replies
// response. Numbers keep their literal form.
func decodeMessages(body *capturedBody) ([]model.Message, error) {
	if len(body.data) == 0 {
		return nil, goerr.New("no response body captured")
	}

	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	dec := json.NewDecoder(bytes.NewReader(body.data))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode messages")
	}

	if resp.Messages == nil {
		return []model.Message{}, nil
	}
	return resp.Messages, nil
}
