package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Client-facing failure categories. Internal diagnostics never cross the
// wire; they go to the server log instead.
const (
	errTextInvalidFormat = "Invalid message format"
	errTextUnsupported   = "Unsupported message"
	errTextNotConfigured = "AI service not configured"
	errTextUpstream      = "AI response failed"
)

// CompletionStream is an asynchronous sequence of partial-text chunks from
// the model-call collaborator. Recv returns io.EOF on normal exhaustion.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

// CompletionStreamer opens one completion stream per call.
type CompletionStreamer interface {
	StreamCompletion(ctx context.Context, prompt string) (CompletionStream, error)
}

// Mux consumes inbound chat requests and decomposes each streamed model
// response into ordered partial pushes tagged with the client's
// correlation id. Ordering holds per id only; concurrent streams on one
// connection may interleave on the wire.
type Mux struct {
	registry *Registry
	streamer CompletionStreamer
}

func NewMux(registry *Registry, streamer CompletionStreamer) *Mux {
	return &Mux{
		registry: registry,
		streamer: streamer,
	}
}

// HandleFrame processes one inbound frame from the connection. Malformed
// frames are answered with a single synchronous error push and never reach
// the collaborator; valid requests stream asynchronously.
func (m *Mux) HandleFrame(ctx context.Context, c *Conn, raw []byte) {
	req, err := DecodeRequest(raw)
	if err != nil {
		slog.Debug("rejected inbound frame", "connID", c.ID(), "identity", c.Identity(), "error", err)
		if errors.Is(err, ErrUnsupportedType) {
			c.Send(NewErrorPush(errTextUnsupported))
		} else {
			c.Send(NewErrorPush(errTextInvalidFormat))
		}
		return
	}

	if m.streamer == nil {
		c.Send(NewErrorPush(errTextNotConfigured))
		return
	}

	// The client owns correlation-id uniqueness; the server only echoes
	// whatever id tagged the request.
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	go m.stream(ctx, c.Identity(), id, req.Text)
}

// stream relays one model response. For a single correlation id the partial
// pushes go out in production order and the terminal or error push is
// always last; one goroutine per request makes that ordering structural.
func (m *Mux) stream(ctx context.Context, identity, id, prompt string) {
	stream, err := m.streamer.StreamCompletion(ctx, prompt)
	if err != nil {
		slog.Error("failed to open completion stream", "identity", identity, "correlationID", id, "error", err)
		m.registry.BroadcastTo(identity, NewErrorPush(errTextUpstream))
		return
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			m.registry.BroadcastTo(identity, NewCompletePush(id, full.String()))
			return
		}
		if err != nil {
			slog.Error("completion stream failed", "identity", identity, "correlationID", id, "error", err)
			m.registry.BroadcastTo(identity, NewErrorPush(errTextUpstream))
			return
		}
		if chunk == "" {
			continue
		}

		full.WriteString(chunk)
		m.registry.BroadcastTo(identity, NewTokenPush(id, chunk))
	}
}
