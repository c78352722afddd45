package events

import (
	"encoding/json"

	"chatwindow/internal/domain"
	chatwindow_errors "chatwindow/pkg/errors"
)

type EventType string

const (
	MessageCreated EventType = "message.created"
	MessageUpdated EventType = "message.updated"
)

// Envelope is the wire shape shared by the websocket and redis push feeds.
type Envelope struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// DecodeMessage extracts the message carried by an envelope. Empty or
// unparseable payloads and payloads without an id are malformed.
func DecodeMessage(env Envelope) (domain.Message, error) {
	if len(env.Payload) == 0 {
		return domain.Message{}, chatwindow_errors.ErrMalformedEvent
	}
	var msg domain.Message
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return domain.Message{}, chatwindow_errors.ErrMalformedEvent
	}
	if msg.ID == "" {
		return domain.Message{}, chatwindow_errors.ErrMalformedEvent
	}
	return msg, nil
}
