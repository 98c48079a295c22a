package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps holds the handlers wired into the router.
type Deps struct {
	Chat      http.Handler
	Documents http.Handler
	Summary   http.Handler
	Health    http.Handler
}

// NewRouter creates the HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORS)

	r.Method(http.MethodGet, "/healthz", deps.Health)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", deps.Chat)
		r.Method(http.MethodGet, "/documents", deps.Documents)
		r.Method(http.MethodPost, "/documents", deps.Documents)
		r.Method(http.MethodGet, "/documents/{id}/summary", deps.Summary)
	})

	return r
}
