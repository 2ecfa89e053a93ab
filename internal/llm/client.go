package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxStreamLine bounds a single SSE line from the completions endpoint.
const maxStreamLine = 1 << 20

// CompletionError reports a failed chat completion call. StatusCode is 0 when
// no HTTP response was received.
type CompletionError struct {
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("chat completion (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("chat completion: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Client talks to an OpenAI-compatible chat completions API. It answers chat
// questions, summarises OCR output and serves the health check.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout bounds each request, including the whole of a streamed reply.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a chat client for model at baseURL.
func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatRequest is the request payload for chat completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatChoice is a single choice in the chat response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse is the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) newRequest(ctx context.Context, messages []Message, params ChatParams, stream bool) (*http.Request, error) {
	if len(messages) == 0 {
		return nil, &CompletionError{Err: errors.New("no messages")}
	}

	payload := ChatRequest{
		Model:     c.Model,
		Messages:  messages,
		MaxTokens: params.MaxTokens,
		Stream:    stream,
	}
	if params.Model != "" {
		payload.Model = params.Model
	}
	if params.Temperature != 0 {
		temp := params.Temperature
		payload.Temperature = &temp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// do sends req and returns the response when the status is 200.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &CompletionError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &CompletionError{StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(raw)))}
	}
	return resp, nil
}

// Chat sends a single user message and returns the reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.ChatWithMessages(ctx, []Message{{Role: RoleUser, Content: message}}, ChatParams{})
}

// ChatWithMessages sends a chat completion request with explicit messages and parameters.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	req, err := c.newRequest(ctx, messages, params, false)
	if err != nil {
		return "", err
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &CompletionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &CompletionError{StatusCode: resp.StatusCode, Err: errors.New("no choices returned")}
	}

	return chatResp.Choices[0].Message.Content, nil
}

// StreamChat sends a streaming chat completion request and calls callback for
// every non-empty content delta. It stops at "[DONE]" or the first finish
// reason. Malformed events are skipped; an error event fails the call.
// Errors returned by callback are passed through wrapped, not as CompletionError.
func (c *Client) StreamChat(ctx context.Context, messages []Message, params ChatParams, callback func(chunk string) error) error {
	req, err := c.newRequest(ctx, messages, params, true)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return &CompletionError{StatusCode: resp.StatusCode, Err: errors.New(chunk.Error.Message)}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if content := chunk.Choices[0].Delta.Content; content != "" {
			if err := callback(content); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
		if chunk.Choices[0].FinishReason != "" {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return &CompletionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read stream: %w", err)}
	}
	return nil
}
