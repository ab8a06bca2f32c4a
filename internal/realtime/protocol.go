package realtime

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates the JSON frames exchanged over a realtime
// connection. Every frame carries exactly one of these tags.
type MessageType string

const (
	// Server -> client pushes
	MessageTypeStatus     MessageType = "status"
	MessageTypeError      MessageType = "error"
	MessageTypeAIToken    MessageType = "ai_token"
	MessageTypeAIComplete MessageType = "ai_complete"

	// Client -> server requests
	MessageTypeUserMessage MessageType = "user_message"
)

// String returns the string representation of the MessageType.
func (mt MessageType) String() string {
	return string(mt)
}

// CloseUnauthorized is the application close code sent when the handshake
// credential does not resolve to a user. Clients must not reconnect after
// receiving it.
const CloseUnauthorized = 1008

var (
	ErrMalformedFrame  = fmt.Errorf("malformed frame")
	ErrUnsupportedType = fmt.Errorf("unsupported message type")
)

// Push is one server -> client frame. Only the fields relevant to the tag
// are populated; the rest are omitted on the wire.
type Push struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
	Text string      `json:"text,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

// NewStatusPush creates a free-text status push.
func NewStatusPush(text string) Push {
	return Push{Type: MessageTypeStatus, Text: text}
}

// NewErrorPush creates an error push. The text must be a generic failure
// description safe to show to the client; internal diagnostics stay in the
// server log.
func NewErrorPush(msg string) Push {
	return Push{Type: MessageTypeError, Msg: msg}
}

// NewTokenPush creates one partial-output push for the given correlation id.
func NewTokenPush(id, text string) Push {
	return Push{Type: MessageTypeAIToken, ID: id, Text: text}
}

// NewCompletePush creates the terminal push for the given correlation id,
// carrying the full accumulated text.
func NewCompletePush(id, text string) Push {
	return Push{Type: MessageTypeAIComplete, ID: id, Text: text}
}

// Encode serializes the push to a JSON text frame.
func (p Push) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Request is one client -> server frame.
type Request struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id"`
	Text string      `json:"text"`
}

// DecodeRequest parses and validates an inbound frame. The tag is checked
// before the payload is interpreted; unrecognized tags are a malformed-frame
// error, not silently ignored.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch req.Type {
	case MessageTypeUserMessage:
		if req.Text == "" {
			return nil, fmt.Errorf("%w: user_message requires text", ErrMalformedFrame)
		}
		return &req, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, req.Type)
	}
}
