package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks docrag/internal/service LLMClient,Retriever
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService docrag/internal/service ChatService

import (
	"context"
	"fmt"
	"strings"

	"docrag/internal/contextutil"
	"docrag/internal/extract"
	"docrag/internal/llm"
	"docrag/internal/storage"
)

// Chat completion settings for answers.
const (
	ChatMaxTokens   = 500
	ChatTemperature = 0.7
)

// NotInDocument is the phrase the model is told to use when the context lacks an answer.
const NotInDocument = "Information not available in the provided document."

const chatSystemPrompt = "You are a helpful assistant that answers based on the given context."

// LLMClient is an interface for interacting with an LLM API.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// ChatWithMessages sends a conversation and returns the reply.
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	// StreamChat sends a conversation and streams the reply via callback.
	StreamChat(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// Retriever returns document context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) (string, error)
}

// Attachment is a file sent along with a chat message.
type Attachment struct {
	FileName string
	Data     []byte
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Message    string
	Attachment *Attachment
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply string
	// DocumentID is set when an attachment was stored.
	DocumentID string
}

// ChatService provides chat functionality.
type ChatService interface {
	// ProcessChat processes a chat request and returns a response.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// StreamChat processes a chat request and streams the response via callback.
	StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	llmClient LLMClient
	retriever Retriever
	documents DocumentService
	k         int
}

// NewChatService creates a new ChatService. documents may be nil, in which
// case attachments are rejected.
func NewChatService(llmClient LLMClient, retriever Retriever, documents DocumentService, k int) ChatService {
	return &chatService{
		llmClient: llmClient,
		retriever: retriever,
		documents: documents,
		k:         k,
	}
}

// ProcessChat answers the message from retrieved document context.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	messages, resp, err := s.prepare(ctx, req)
	if err != nil {
		return ChatResponse{}, err
	}

	reply, err := s.llmClient.ChatWithMessages(ctx, messages, chatParams())
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return ChatResponse{}, WrapError(err, "failed to get LLM response")
	}
	resp.Reply = reply

	logger.InfoContext(ctx, "chat request processed successfully", "message_length", len(req.Message), "reply_length", len(reply))
	return resp, nil
}

// StreamChat is ProcessChat with the reply streamed through callback.
func (s *chatService) StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	messages, resp, err := s.prepare(ctx, req)
	if err != nil {
		return ChatResponse{}, err
	}

	if err := s.llmClient.StreamChat(ctx, messages, chatParams(), callback); err != nil {
		logger.ErrorContext(ctx, "failed to stream LLM response", "error", err)
		return ChatResponse{}, WrapError(err, "failed to stream LLM response")
	}

	logger.InfoContext(ctx, "streaming chat request processed successfully", "message_length", len(req.Message))
	return resp, nil
}

// prepare validates the request, stores any attachment and builds the prompt.
func (s *chatService) prepare(ctx context.Context, req ChatRequest) ([]llm.Message, ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	var resp ChatResponse

	if strings.TrimSpace(req.Message) == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return nil, resp, &ValidationError{Field: "message", Message: "cannot be empty"}
	}

	if req.Attachment != nil && req.Attachment.FileName != "" {
		docID, err := s.attach(ctx, req.Attachment)
		if err != nil {
			return nil, resp, err
		}
		resp.DocumentID = docID
	}

	docContext, err := s.retriever.Retrieve(ctx, req.Message, s.k)
	if err != nil {
		logger.ErrorContext(ctx, "failed to retrieve document context", "error", err)
		return nil, resp, WrapError(err, "failed to retrieve document context")
	}
	logger.DebugContext(ctx, "retrieved document context", "context_length", len(docContext))

	return []llm.Message{
		{Role: llm.RoleSystem, Content: chatSystemPrompt},
		{Role: llm.RoleUser, Content: buildPrompt(docContext, req.Message)},
	}, resp, nil
}

// attach uploads a chat attachment as a document so it is searchable.
func (s *chatService) attach(ctx context.Context, a *Attachment) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if s.documents == nil {
		return "", &ValidationError{Field: "context_file", Message: "attachments are not enabled"}
	}
	if !extract.Supported(a.FileName) {
		return "", &ValidationError{Field: "context_file", Message: "only .txt, .md, .pdf, .png, .jpg or .jpeg files are supported"}
	}

	res, err := s.documents.Upload(ctx, UploadRequest{
		FileName:   a.FileName,
		Data:       a.Data,
		Title:      "Chat Upload - " + a.FileName,
		Tags:       "chat-upload",
		Language:   DefaultLanguage,
		Category:   "chat",
		UploadedBy: "chat-service",
	})
	if err != nil {
		return "", err
	}

	switch res.Status {
	case storage.StatusEmpty:
		logger.WarnContext(ctx, "attachment has no text", "document_id", res.DocumentID)
		return "", &ValidationError{Field: "context_file", Message: "uploaded file is empty or no text could be extracted"}
	case storage.StatusFailed:
		return "", WrapError(res.IngestErr, "failed to index uploaded file")
	}
	return res.DocumentID, nil
}

func buildPrompt(docContext, question string) string {
	return fmt.Sprintf(
		"You are an assistant that answers questions based on the following document content or general knowledge:\n\n"+
			"%s\n\n"+
			"If the answer is not found in the document, respond with '%s'\n"+
			"Now, answer the following question: %s\n\n"+
			"Respond in English as plain, human-readable text without markdown formatting.",
		docContext, NotInDocument, question,
	)
}

func chatParams() llm.ChatParams {
	return llm.ChatParams{
		MaxTokens:   ChatMaxTokens,
		Temperature: ChatTemperature,
	}
}
