package model

import (
	"time"

	"github.com/secmon-lab/clacks/pkg/domain/types"
)

// ReceivedAtField is the field injected into every message emitted by the listener
const ReceivedAtField = "received_at"

// Message is a message object as returned by the remote API. Fields are kept
// as-is so the original payload can be written back out unchanged.
type Message map[string]any

// TS returns the raw timestamp token, or "" when absent
func (m Message) TS() string {
	s, _ := m["ts"].(string)
	return s
}

// Timestamp parses the timestamp token
func (m Message) Timestamp() (types.SlackTS, error) {
	return types.ParseSlackTS(m.TS())
}

// UserID returns the sender's user ID
func (m Message) UserID() string {
	s, _ := m["user"].(string)
	return s
}

// Text returns the message text
func (m Message) Text() string {
	s, _ := m["text"].(string)
	return s
}

// IsBot reports whether the message was posted by a bot integration
func (m Message) IsBot() bool {
	if id, _ := m["bot_id"].(string); id != "" {
		return true
	}
	subtype, _ := m["subtype"].(string)
	return subtype == "bot_message"
}

// WithReceivedAt returns a shallow copy stamped with the capture time
func (m Message) WithReceivedAt(at time.Time) Message {
	out := make(Message, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[ReceivedAtField] = at.UTC().Format(time.RFC3339Nano)
	return out
}
