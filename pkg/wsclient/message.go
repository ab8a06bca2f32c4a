// Package wsclient is the reference client for the docaudit realtime
// endpoint: a reconnecting session manager and an aggregator that folds
// streamed completion tokens back into whole messages.
package wsclient

import (
	"encoding/json"
	"fmt"
)

// MessageType mirrors the server's frame tags.
type MessageType string

const (
	MessageTypeStatus      MessageType = "status"
	MessageTypeError       MessageType = "error"
	MessageTypeAIToken     MessageType = "ai_token"
	MessageTypeAIComplete  MessageType = "ai_complete"
	MessageTypeUserMessage MessageType = "user_message"
)

// CloseUnauthorized is the application close code for a rejected
// handshake. The session manager never reconnects after it.
const CloseUnauthorized = 1008

// Push is one server -> client frame.
type Push struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
	Text string      `json:"text,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

func decodePush(data []byte) (Push, error) {
	var p Push
	if err := json.Unmarshal(data, &p); err != nil {
		return Push{}, fmt.Errorf("malformed push: %w", err)
	}

	switch p.Type {
	case MessageTypeStatus, MessageTypeError, MessageTypeAIToken, MessageTypeAIComplete:
		return p, nil
	default:
		return Push{}, fmt.Errorf("unrecognized push type %q", p.Type)
	}
}

type userMessage struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id"`
	Text string      `json:"text"`
}

func encodeUserMessage(id, text string) ([]byte, error) {
	return json.Marshal(userMessage{
		Type: MessageTypeUserMessage,
		ID:   id,
		Text: text,
	})
}
