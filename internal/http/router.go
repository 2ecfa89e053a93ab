package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docrag/internal/handlers"
	"docrag/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService     service.ChatService
	DocumentService service.DocumentService
	Index           handlers.IndexCounter
	LLM             handlers.Pinger // optional
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	filesHandler := handlers.NewFilesHandler(deps.DocumentService)
	healthHandler := handlers.NewHealthHandler(deps.Index, deps.LLM)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", filesHandler.Upload)
			r.Get("/", filesHandler.List)
			r.Get("/{id}", filesHandler.Get)
			r.Get("/{id}/versions", filesHandler.Versions)
			r.Get("/{id}/preview", filesHandler.Preview)
			r.Delete("/{id}", filesHandler.Delete)
		})
	})

	return r
}
