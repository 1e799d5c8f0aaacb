package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/renewer/internal/noteservice"
	"github.com/starford/renewer/internal/settings"
	"github.com/starford/renewer/internal/summary"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, store settings.Store, bg *summary.Background, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, store, bg)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Link rewriting.
	r.Post("/links/update", h.UpdateAllLinks)
	r.Post("/links/update/*", h.UpdateNoteLinks)
	r.Get("/links/*", h.GetLinks)

	// Moves.
	r.Post("/notes/move", h.MoveNote)

	// Summary requester.
	r.Get("/settings/webhook", h.GetWebhook)
	r.Put("/settings/webhook", h.PutWebhook)
	r.Post("/messages", h.PostMessage)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
