package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"docaudit/internal/config"
	"docaudit/internal/realtime"

	openai "github.com/sashabaranov/go-openai"
)

const (
	chatSystemPrompt = "You are a helpful auditing chat assistant. Provide concise, clear replies and keep responses focused on the user query."

	summarySystemPrompt = "You are a financial auditing assistant. Provide up to five concise bullet points listing findings or next steps."
)

// AIService is the model-call collaborator: one-shot summaries for uploaded
// documents and streamed completions for the realtime chat.
type AIService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewAIService returns nil when no API key is configured; callers treat a
// nil service as "AI not available".
func NewAIService(cfg *config.OpenAIConfig) *AIService {
	if cfg.APIKey == "" {
		return nil
	}
	return &AIService{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

// Summarize produces a bullet-point audit summary for extracted document
// text.
func (s *AIService) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Audit the following PDF content:\n\n%s", text)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "No audit summary returned.", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamCompletion opens a streamed chat completion for the prompt. It
// satisfies realtime.CompletionStreamer.
func (s *AIService) StreamCompletion(ctx context.Context, prompt string) (realtime.CompletionStream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}
	return &completionStream{inner: stream}, nil
}

// completionStream adapts the OpenAI stream to the chunk sequence the
// multiplexer consumes.
type completionStream struct {
	inner *openai.ChatCompletionStream
}

func (s *completionStream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *completionStream) Close() error {
	return s.inner.Close()
}
