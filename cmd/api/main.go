package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docrag/internal/app"
	"docrag/internal/config"
	"docrag/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API stores uploaded documents, indexes their text and answers questions grounded in them.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: docrag API
//   description: |
//     Retrieval-augmented chat over uploaded documents.
//     Files are versioned, chunked, embedded and searched by cosine similarity.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json
//   - text/event-stream

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app.ConfigureLogging(cfg, os.Stdout)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to close resources", "error", err)
		}
	}()

	// Fail fast when the embedding backend disagrees with the index dimension.
	vectors, err := a.Embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		slog.Warn("Embedding backend not reachable at startup", "error", err)
	} else if len(vectors) != 1 || len(vectors[0]) != a.Index.Dimension() {
		log.Fatalf("Embedding vector size mismatch: index expects %d", a.Index.Dimension())
	}

	router := http.NewRouter(&http.Deps{
		ChatService:     a.Chat,
		DocumentService: a.Documents,
		Index:           a.Index,
		LLM:             a.LLM,
	})

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		slog.Error("API server failed", "error", err)
		return
	}
	slog.Info("API server stopped")
}
