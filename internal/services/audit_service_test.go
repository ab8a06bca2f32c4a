package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"docaudit/internal/models"
	"docaudit/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditStore struct {
	mu     sync.Mutex
	audits []models.Audit
	fail   bool
}

func (f *fakeAuditStore) Create(ctx context.Context, audit *models.Audit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("db down")
	}
	f.audits = append(f.audits, *audit)
	return nil
}

func (f *fakeAuditStore) ListByUser(ctx context.Context, userID uint) ([]models.Audit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Audit
	for _, a := range f.audits {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAuditStore) CountByUser(ctx context.Context, userID uint) (int64, error) {
	audits, _ := f.ListByUser(ctx, userID)
	return int64(len(audits)), nil
}

func (f *fakeAuditStore) LastByUser(ctx context.Context, userID uint) (*models.Audit, error) {
	audits, _ := f.ListByUser(ctx, userID)
	if len(audits) == 0 {
		return nil, nil
	}
	return &audits[len(audits)-1], nil
}

type fakeDocumentStore struct {
	keys []string
	fail bool
}

func (f *fakeDocumentStore) PutDocument(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	if f.fail {
		return fmt.Errorf("storage down")
	}
	f.keys = append(f.keys, objectKey)
	return nil
}

type fakeSummarizer struct {
	prompts []string
	fail    bool
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("model timeout")
	}
	f.prompts = append(f.prompts, text)
	return "- finding one\n- finding two", nil
}

type fakeEvents struct {
	published []models.AuditCompletedEvent
	fail      bool
}

func (f *fakeEvents) PublishAuditCompleted(ctx context.Context, event models.AuditCompletedEvent) error {
	if f.fail {
		return fmt.Errorf("broker unreachable")
	}
	f.published = append(f.published, event)
	return nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	pushes map[string][]realtime.Push
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{pushes: make(map[string][]realtime.Push)}
}

func (b *recordingBroadcaster) BroadcastTo(identity string, p realtime.Push) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushes[identity] = append(b.pushes[identity], p)
}

func (b *recordingBroadcaster) For(identity string) []realtime.Push {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Push(nil), b.pushes[identity]...)
}

type auditFixture struct {
	svc         *AuditService
	store       *fakeAuditStore
	docs        *fakeDocumentStore
	ai          *fakeSummarizer
	events      *fakeEvents
	broadcaster *recordingBroadcaster
}

func newAuditFixture() *auditFixture {
	f := &auditFixture{
		store:       &fakeAuditStore{},
		docs:        &fakeDocumentStore{},
		ai:          &fakeSummarizer{},
		events:      &fakeEvents{},
		broadcaster: newRecordingBroadcaster(),
	}
	f.svc = NewAuditService(f.store, f.docs, f.ai, f.events, f.broadcaster)
	f.svc.extractText = func(data []byte) (string, error) {
		return string(data), nil
	}
	return f
}

func testUser() *models.User {
	u := &models.User{Username: "alice"}
	u.ID = 7
	return u
}

func TestProcessUploadHappyPath(t *testing.T) {
	f := newAuditFixture()
	ctx := context.Background()

	audit, err := f.svc.ProcessUpload(ctx, testUser(), "report.pdf", "application/pdf", []byte("quarterly numbers"))
	require.NoError(t, err)
	require.NotNil(t, audit)

	assert.NotEmpty(t, audit.ID)
	assert.Equal(t, "report.pdf", audit.Filename)
	assert.Equal(t, "- finding one\n- finding two", audit.Summary)

	// Original stored under the audit's object key.
	require.Len(t, f.docs.keys, 1)
	assert.Contains(t, f.docs.keys[0], audit.ID)

	// Record persisted and event published.
	require.Len(t, f.store.audits, 1)
	require.Len(t, f.events.published, 1)
	assert.Equal(t, audit.ID, f.events.published[0].AuditID)

	// Status pushes at each stage, in order, to the uploader only.
	pushes := f.broadcaster.For("alice")
	require.Len(t, pushes, 4)
	for _, p := range pushes {
		assert.Equal(t, realtime.MessageTypeStatus, p.Type)
	}
	assert.Contains(t, pushes[0].Text, "report.pdf")
	assert.Contains(t, pushes[3].Text, "Audit complete")
}

func TestProcessUploadTruncatesLongText(t *testing.T) {
	f := newAuditFixture()

	long := make([]byte, maxPromptChars+500)
	for i := range long {
		long[i] = 'a'
	}

	_, err := f.svc.ProcessUpload(context.Background(), testUser(), "big.pdf", "application/pdf", long)
	require.NoError(t, err)

	require.Len(t, f.ai.prompts, 1)
	assert.Len(t, f.ai.prompts[0], maxPromptChars+3) // trailing "..."
}

func TestProcessUploadWithoutAI(t *testing.T) {
	f := newAuditFixture()
	f.svc.ai = nil

	_, err := f.svc.ProcessUpload(context.Background(), testUser(), "report.pdf", "application/pdf", []byte("text"))
	assert.ErrorIs(t, err, ErrAINotConfigured)
}

func TestProcessUploadSummarizeFailure(t *testing.T) {
	f := newAuditFixture()
	f.ai.fail = true

	_, err := f.svc.ProcessUpload(context.Background(), testUser(), "report.pdf", "application/pdf", []byte("text"))
	require.Error(t, err)

	// Nothing persisted, no event, and the last push is a generic error.
	assert.Empty(t, f.store.audits)
	assert.Empty(t, f.events.published)

	pushes := f.broadcaster.For("alice")
	require.NotEmpty(t, pushes)
	last := pushes[len(pushes)-1]
	assert.Equal(t, realtime.MessageTypeError, last.Type)
	assert.Equal(t, "AI response failed", last.Msg)
	assert.NotContains(t, last.Msg, "model timeout")
}

func TestProcessUploadEmptyDocument(t *testing.T) {
	f := newAuditFixture()
	f.svc.extractText = func(data []byte) (string, error) { return "", nil }

	_, err := f.svc.ProcessUpload(context.Background(), testUser(), "blank.pdf", "application/pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestProcessUploadPublishFailureIsNotFatal(t *testing.T) {
	f := newAuditFixture()
	f.events.fail = true

	audit, err := f.svc.ProcessUpload(context.Background(), testUser(), "report.pdf", "application/pdf", []byte("text"))
	require.NoError(t, err)
	assert.NotNil(t, audit)
	require.Len(t, f.store.audits, 1)
}

func TestProfile(t *testing.T) {
	f := newAuditFixture()
	ctx := context.Background()
	user := testUser()

	profile, err := f.svc.Profile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profile.AuditsCompleted)
	assert.Nil(t, profile.LastAuditID)

	first, err := f.svc.ProcessUpload(ctx, user, "a.pdf", "application/pdf", []byte("one"))
	require.NoError(t, err)
	second, err := f.svc.ProcessUpload(ctx, user, "b.pdf", "application/pdf", []byte("two"))
	require.NoError(t, err)
	_ = first

	profile, err = f.svc.Profile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.AuditsCompleted)
	require.NotNil(t, profile.LastAuditID)
	assert.Equal(t, second.ID, *profile.LastAuditID)
}
