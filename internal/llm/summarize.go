package llm

import (
	"context"
	"fmt"
)

const summarizePrompt = "Please summarize and extract the key words or key phrases that reflect its main themes and ideas of the following text:\n %s"

// Summarizer asks the chat model for a short key-phrase summary of a text.
type Summarizer struct {
	client    *Client
	maxTokens int
}

// NewSummarizer creates a summarizer limited to maxTokens of output (200 when unset).
func NewSummarizer(client *Client, maxTokens int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &Summarizer{client: client, maxTokens: maxTokens}
}

// Summarize returns the model's summary of text.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: "You are a helpful assistant that processes text."},
		{Role: RoleUser, Content: fmt.Sprintf(summarizePrompt, text)},
	}
	reply, err := s.client.ChatWithMessages(ctx, messages, ChatParams{MaxTokens: s.maxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to summarize: %w", err)
	}
	return reply, nil
}
