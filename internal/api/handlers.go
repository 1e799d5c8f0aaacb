package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/renewer/internal/apperr"
	"github.com/starford/renewer/internal/noteservice"
	"github.com/starford/renewer/internal/settings"
	"github.com/starford/renewer/internal/summary"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *noteservice.Service
	settings settings.Store
	bg       *summary.Background
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, store settings.Store, bg *summary.Background) *Handler {
	return &Handler{svc: svc, settings: store, bg: bg}
}

// notePath extracts the note path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// UpdateAllLinks handles POST /api/links/update.
//
//	@Summary		Rewrite the links of every note
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateAllRequest	true	"Confirmation"
//	@Success		200		{object}	UpdateAllResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/update [post]
func (h *Handler) UpdateAllLinks(w http.ResponseWriter, r *http.Request) {
	var req UpdateAllRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rep, err := h.svc.UpdateAll(r.Context(), nil)
	if err != nil {
		writeError(w, "update all links", err)
		return
	}
	writeJSON(w, http.StatusOK, newUpdateAllResponse(rep))
}

// UpdateNoteLinks handles POST /api/links/update/*.
//
//	@Summary		Rewrite the links of one note
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	UpdateNoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/update/{path} [post]
func (h *Handler) UpdateNoteLinks(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	n, err := h.svc.UpdateLinks(r.Context(), path)
	if err != nil {
		writeError(w, "update note links", err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateNoteResponse{Path: path, Links: n})
}

// GetLinks handles GET /api/links/*.
//
//	@Summary		List a note's links and backlinks
//	@Tags			links
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteLinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/{path} [get]
func (h *Handler) GetLinks(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	links, err := h.svc.Links(r.Context(), path)
	if err != nil {
		writeError(w, "get links", err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// MoveNote handles POST /api/notes/move.
//
//	@Summary		Move a note and fix affected links
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Source and destination"
//	@Success		200		{object}	MoveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := h.svc.Move(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, "move note", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetWebhook handles GET /api/settings/webhook.
//
//	@Summary		Get the summary webhook URL
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	WebhookSetting
//	@Security		BearerAuth
//	@Router			/settings/webhook [get]
func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	v, err := h.settings.WebhookURL(r.Context())
	if err != nil {
		writeError(w, "get webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, WebhookSetting{WebhookURL: v})
}

// PutWebhook handles PUT /api/settings/webhook.
//
//	@Summary		Set the summary webhook URL
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WebhookSetting	true	"Webhook URL"
//	@Success		200		{object}	WebhookSetting
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/webhook [put]
func (h *Handler) PutWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookSetting
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := h.settings.SetWebhookURL(r.Context(), req.WebhookURL)
	if err != nil {
		writeError(w, "set webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, WebhookSetting{WebhookURL: v})
}

// PostMessage handles POST /api/messages.
//
//	@Summary		Send a message to the summary requester
//	@Tags			summary
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MessageRequest	true	"Message"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/messages [post]
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var msg MessageRequest
	if !decodeBody(w, r, &msg) {
		return
	}
	writeJSON(w, http.StatusOK, h.bg.Handle(r.Context(), msg))
}

// SummaryPage serves GET /summary?id&url&title: the rendered result page.
func SummaryPage(bg *summary.Background) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := summary.Page{
			VideoID:  q.Get("id"),
			VideoURL: q.Get("url"),
			Title:    q.Get("title"),
		}
		if page.VideoID != "" && page.VideoURL != "" {
			resp := bg.Handle(r.Context(), summary.Message{Type: summary.TypeGetSummary, URL: page.VideoURL, Title: page.Title})
			if resp.Success {
				page.Summary = resp.Summary
			} else {
				page.Error = resp.Error
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := summary.RenderPage(w, page); err != nil {
			slog.Error("render summary page failed", slog.String("error", err.Error()))
		}
	}
}
