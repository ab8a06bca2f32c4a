package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"docaudit/internal/models"
	"docaudit/internal/realtime"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// maxPromptChars bounds how much extracted text is fed to the model.
const maxPromptChars = 6000

var (
	ErrAINotConfigured = errors.New("AI service not configured")
	ErrEmptyDocument   = errors.New("document contains no extractable text")
)

// Summarizer produces a one-shot summary for extracted document text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// DocumentStore keeps the original uploads.
type DocumentStore interface {
	PutDocument(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// AuditStore persists completed audit records.
type AuditStore interface {
	Create(ctx context.Context, audit *models.Audit) error
	ListByUser(ctx context.Context, userID uint) ([]models.Audit, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	LastByUser(ctx context.Context, userID uint) (*models.Audit, error)
}

// AuditEvents publishes audit lifecycle events.
type AuditEvents interface {
	PublishAuditCompleted(ctx context.Context, event models.AuditCompletedEvent) error
}

// Broadcaster pushes live progress to every open connection of an identity.
type Broadcaster interface {
	BroadcastTo(identity string, p realtime.Push)
}

// AuditService runs the document audit pipeline: store the original,
// extract text, summarize, persist, publish. Progress is broadcast to the
// uploader's open realtime connections at each stage.
type AuditService struct {
	audits      AuditStore
	storage     DocumentStore
	ai          Summarizer
	events      AuditEvents
	broadcaster Broadcaster

	// extractText is swappable so tests run without crafting PDF fixtures.
	extractText func(data []byte) (string, error)
}

func NewAuditService(audits AuditStore, storage DocumentStore, ai Summarizer, events AuditEvents, broadcaster Broadcaster) *AuditService {
	return &AuditService{
		audits:      audits,
		storage:     storage,
		ai:          ai,
		events:      events,
		broadcaster: broadcaster,
		extractText: extractPDFText,
	}
}

// ProcessUpload audits one uploaded document for the user. The returned
// error is safe to map onto an HTTP status; a matching error push has
// already been broadcast when it is non-nil.
func (s *AuditService) ProcessUpload(ctx context.Context, user *models.User, filename, contentType string, data []byte) (*models.Audit, error) {
	if s.ai == nil {
		return nil, ErrAINotConfigured
	}

	s.status(user.Username, fmt.Sprintf("Received %s, starting audit.", filename))

	auditID := uuid.New().String()
	objectKey := fmt.Sprintf("audits/%s/%s", auditID, filename)
	if err := s.storage.PutDocument(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		s.failure(user.Username, "Failed to store document")
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	s.status(user.Username, "Extracting document text.")

	text, err := s.extractText(data)
	if err != nil {
		s.failure(user.Username, "Failed to read PDF")
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	if text == "" {
		s.failure(user.Username, "Document contains no text")
		return nil, ErrEmptyDocument
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars] + "..."
	}

	s.status(user.Username, "Summarizing document.")

	summary, err := s.ai.Summarize(ctx, text)
	if err != nil {
		s.failure(user.Username, "AI response failed")
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}

	audit := &models.Audit{
		ID:        auditID,
		UserID:    user.ID,
		Username:  user.Username,
		Filename:  filename,
		ObjectKey: objectKey,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		s.failure(user.Username, "Failed to save audit")
		return nil, err
	}

	if s.events != nil {
		event := models.AuditCompletedEvent{
			AuditID:   audit.ID,
			Username:  audit.Username,
			Filename:  audit.Filename,
			CreatedAt: audit.CreatedAt,
		}
		if err := s.events.PublishAuditCompleted(ctx, event); err != nil {
			slog.Error("failed to publish audit event", "auditID", audit.ID, "error", err)
		}
	}

	s.status(user.Username, fmt.Sprintf("Audit complete: %s", filename))
	return audit, nil
}

// History returns the user's audits, oldest first.
func (s *AuditService) History(ctx context.Context, userID uint) ([]models.Audit, error) {
	return s.audits.ListByUser(ctx, userID)
}

// Profile summarizes the user's audit activity.
func (s *AuditService) Profile(ctx context.Context, user *models.User) (*models.ProfileResponse, error) {
	count, err := s.audits.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	last, err := s.audits.LastByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	profile := &models.ProfileResponse{
		Username:        user.Username,
		AuditsCompleted: count,
	}
	if last != nil {
		profile.LastAuditID = &last.ID
	}
	return profile, nil
}

func (s *AuditService) status(identity, text string) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastTo(identity, realtime.NewStatusPush(text))
	}
}

func (s *AuditService) failure(identity, msg string) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastTo(identity, realtime.NewErrorPush(msg))
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}
