package api

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/renewer/internal/linkrewrite"
	"github.com/starford/renewer/internal/noteservice"
	"github.com/starford/renewer/internal/summary"
)

// UpdateAllRequest is the request body for rewriting every note.
type UpdateAllRequest struct {
	Confirm bool `json:"confirm" example:"true" validate:"required"`
}

// Validate requires an explicit confirmation.
func (r UpdateAllRequest) Validate() error {
	if !r.Confirm {
		return errors.New("confirm must be true to rewrite every note")
	}
	return nil
}

// UpdateAllResponse reports a vault-wide rewrite.
type UpdateAllResponse struct {
	Links   int      `json:"links" example:"12" validate:"required"`
	Files   int      `json:"files" example:"3" validate:"required"`
	Scanned int      `json:"scanned" example:"140" validate:"required"`
	Failed  []string `json:"failed" validate:"required"`
	Message string   `json:"message" example:"Update 12 links in 3 files." validate:"required"`
}

func newUpdateAllResponse(rep linkrewrite.Report) UpdateAllResponse {
	return UpdateAllResponse{
		Links:   rep.Links,
		Files:   rep.Files,
		Scanned: rep.Scanned,
		Failed:  rep.FailedPaths(),
		Message: rep.Message(),
	}
}

// UpdateNoteResponse reports a single-note rewrite.
type UpdateNoteResponse struct {
	Path  string `json:"path" example:"notes/hello.md" validate:"required"`
	Links int    `json:"links" example:"2" validate:"required"`
}

// MoveRequest is the request body for moving a note.
type MoveRequest struct {
	From string `json:"from" example:"inbox/hello.md" validate:"required"`
	To   string `json:"to" example:"notes/hello.md" validate:"required"`
}

// Validate checks both paths are present and stay inside the vault.
func (r MoveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required, validation.By(vaultPath)),
		validation.Field(&r.To, validation.Required, validation.By(vaultPath)),
	)
}

func vaultPath(value interface{}) error {
	s, _ := value.(string)
	for _, part := range strings.Split(s, "/") {
		if part == ".." {
			return errors.New("must not leave the vault")
		}
	}
	return nil
}

// MoveResponse reports a completed move.
type MoveResponse = noteservice.MoveResult

// NoteLinksResponse lists a note's links and backlinks.
type NoteLinksResponse = noteservice.NoteLinks

// WebhookSetting is the body of GET/PUT /settings/webhook.
type WebhookSetting struct {
	WebhookURL string `json:"webhook_url" example:"https://n8n.example.com/webhook/summary"`
}

// MessageRequest is a message for the summary background handler.
type MessageRequest = summary.Message

// MessageResponse answers a MessageRequest.
type MessageResponse = summary.Response
