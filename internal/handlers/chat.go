package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"docrag/internal/contextutil"
	"docrag/internal/service"
)

// MaxUploadSize bounds multipart request bodies.
const MaxUploadSize = 32 << 20

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the JSON request payload for chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Response   string `json:"response"`
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
}

// ServeHTTP handles chat requests. The body is either JSON {"message": ...}
// or multipart form data with a "message" field and an optional
// "context_file" attachment. ?stream=true streams the reply as Server-Sent Events.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	svcReq, err := parseChatRequest(w, r)
	if err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		h.handleStreamingChat(ctx, w, svcReq)
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, svcReq)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process chat request")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:   svcResp.Reply,
		Status:     "success",
		DocumentID: svcResp.DocumentID,
	})
}

// handleStreamingChat handles streaming chat requests using Server-Sent Events.
func (h *ChatHandler) handleStreamingChat(ctx context.Context, w http.ResponseWriter, svcReq service.ChatRequest) {
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}

	_, err := h.chatService.StreamChat(ctx, svcReq, func(chunk string) error {
		start()
		if err := writeEvent(w, chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !started {
			// Nothing sent yet, so a proper status code is still possible.
			handleServiceError(ctx, w, err, "Failed to process chat request")
			return
		}
		logger.ErrorContext(ctx, "error streaming chat", "error", err)
		payload, _ := json.Marshal(ErrorResponse{Error: "stream interrupted", Status: "error"})
		_ = writeEvent(w, string(payload))
		flusher.Flush()
		return
	}

	start()
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// writeEvent writes one SSE event, splitting multi-line data over several data fields.
func writeEvent(w io.Writer, data string) error {
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}

func parseChatRequest(w http.ResponseWriter, r *http.Request) (service.ChatRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return service.ChatRequest{}, err
		}
		return service.ChatRequest{Message: req.Message}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return service.ChatRequest{}, err
	}
	req := service.ChatRequest{Message: r.FormValue("message")}

	file, header, err := r.FormFile("context_file")
	if err == http.ErrMissingFile {
		return req, nil
	}
	if err != nil {
		return service.ChatRequest{}, err
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		return service.ChatRequest{}, err
	}
	req.Attachment = &service.Attachment{FileName: header.Filename, Data: data}
	return req, nil
}
