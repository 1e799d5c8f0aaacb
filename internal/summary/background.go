package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/renewer/internal/apperr"
	"github.com/starford/renewer/internal/models"
)

// Message types.
const (
	TypeSendURL          = "SEND_URL"
	TypeGetSummary       = "GET_SUMMARY"
	TypeGetVideoInfo     = "GET_VIDEO_INFO"
	TypeSummaryRequested = "SUMMARY_REQUESTED"
	TypeSummaryError     = "SUMMARY_ERROR"
)

// Message is a request sent by the popup, the result page or a page probe.
type Message struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// Response answers a Message.
type Response struct {
	Type      string          `json:"type,omitempty"`
	Success   bool            `json:"success"`
	RequestID string          `json:"requestId,omitempty"`
	Summary   *models.Summary `json:"summary,omitempty"`
	Video     *VideoInfo      `json:"video,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// WindowOpener shows the result page for a request.
type WindowOpener interface {
	OpenWindow(ctx context.Context, requestID, pageURL string) error
}

// Fetcher is the part of Client the message handler needs.
type Fetcher interface {
	Fetch(ctx context.Context, videoURL, title string) (*models.Summary, error)
}

// Background dispatches messages to the summary client and window opener.
type Background struct {
	fetcher   Fetcher
	opener    WindowOpener
	publicURL string
	logger    *slog.Logger
}

// NewBackground creates a message handler. publicURL is the base the result
// page is served under.
func NewBackground(fetcher Fetcher, opener WindowOpener, publicURL string, logger *slog.Logger) *Background {
	if logger == nil {
		logger = slog.Default()
	}
	return &Background{
		fetcher:   fetcher,
		opener:    opener,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger,
	}
}

// Handle answers one message. Failures are reported in the response, never
// returned.
func (b *Background) Handle(ctx context.Context, msg Message) Response {
	switch msg.Type {
	case TypeSendURL:
		return b.sendURL(ctx, msg)
	case TypeGetSummary:
		s, err := b.fetcher.Fetch(ctx, msg.URL, msg.Title)
		if err != nil {
			b.logger.Warn("summary: request failed", slog.String("url", msg.URL), slog.String("error", err.Error()))
			return Response{Success: false, Error: ErrorMessage(err)}
		}
		return Response{Success: true, Summary: s}
	case TypeGetVideoInfo:
		info := InfoFromPage(msg.URL, msg.Title)
		return Response{Success: info.VideoID != "", Video: &info}
	default:
		return Response{Success: false, Error: "unknown message type: " + msg.Type}
	}
}

func (b *Background) sendURL(ctx context.Context, msg Message) Response {
	id := uuid.NewString()
	title := msg.Title
	if title == "" {
		title = DefaultTitle
	}
	page := b.PageURL(ExtractVideoID(msg.URL), msg.URL, title)

	b.logger.Info("summary: requested", slog.String("request_id", id), slog.String("url", msg.URL))
	if b.opener != nil {
		if err := b.opener.OpenWindow(ctx, id, page); err != nil {
			b.logger.Error("summary: open window failed", slog.String("request_id", id), slog.String("error", err.Error()))
			return Response{Type: TypeSummaryError, Success: false, RequestID: id, Error: err.Error()}
		}
	}
	return Response{Type: TypeSummaryRequested, Success: true, RequestID: id}
}

// PageURL builds the result page address for a video.
func (b *Background) PageURL(videoID, videoURL, title string) string {
	q := url.Values{}
	q.Set("id", videoID)
	q.Set("url", videoURL)
	q.Set("title", title)
	return b.publicURL + "/summary?" + q.Encode()
}

// Summarize is the popup action: it only accepts YouTube video pages and
// then sends SEND_URL.
func (b *Background) Summarize(ctx context.Context, tabURL, tabTitle string) (Response, error) {
	if !IsWatchURL(tabURL) {
		return Response{}, fmt.Errorf("summary: only available on YouTube video pages: %w", apperr.ErrValidation)
	}
	return b.Handle(ctx, Message{Type: TypeSendURL, URL: tabURL, Title: tabTitle}), nil
}

// ErrorMessage renders err for the user, naming its category.
func ErrorMessage(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("Summary service error: %d", se.Code)
	case errors.Is(err, apperr.ErrConfig):
		return "Webhook URL is not set. Configure it in the settings."
	case errors.Is(err, apperr.ErrValidation):
		return "Not a valid YouTube video URL."
	case errors.Is(err, apperr.ErrParse):
		return "Could not read the summary response."
	}
	return "Failed to fetch the summary: " + err.Error()
}
