package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func baseRouter(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	return r
}

// NewRouter serves the chat history API.
func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := baseRouter(allowedOrigins)

	r.Get("/", apiHandler.RootHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", apiHandler.CreateUserHandler)
		r.Get("/users/{userID}", apiHandler.GetUserHandler)

		r.Post("/chat", apiHandler.CreateChatEntryHandler)
		r.Get("/chat/{userID}", apiHandler.ChatHistoryHandler)
		if apiHandler.chatService.HasResponder() {
			r.Post("/chat/reply", apiHandler.ReplyHandler)
		}
	})

	return r
}

// NewHealthRouter serves only the health check and never touches the store.
func NewHealthRouter(allowedOrigins []string) http.Handler {
	r := baseRouter(allowedOrigins)
	r.Get("/api/health", HealthHandler)
	return r
}
