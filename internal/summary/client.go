// Package summary requests video summaries from a user-configured webhook
// and renders the result.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/renewer/internal/apperr"
	"github.com/starford/renewer/internal/models"
)

const noContent = "No summary content."

// WebhookSource provides the webhook URL at request time.
type WebhookSource interface {
	WebhookURL(ctx context.Context) (string, error)
}

// StatusError is returned when the webhook answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("summary: webhook responded with status %d", e.Code)
}

// Client posts summary requests to the webhook.
type Client struct {
	settings WebhookSource
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the HTTP client timeout; 0 means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRateLimit allows at most perMinute requests per minute (burst 1).
// Zero disables throttling.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client reading the webhook URL from settings.
func NewClient(settings WebhookSource, opts ...Option) *Client {
	c := &Client{
		settings: settings,
		http:     &http.Client{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestBody struct {
	VideoURL       string `json:"videoUrl"`
	VideoID        string `json:"videoId"`
	VideoTitle     string `json:"videoTitle"`
	ResponseFormat string `json:"responseFormat"`
}

// Fetch requests a summary of the video at videoURL. The URL is validated
// and the webhook URL checked before any network call.
func (c *Client) Fetch(ctx context.Context, videoURL, title string) (*models.Summary, error) {
	videoID := ExtractVideoID(videoURL)
	if videoID == "" {
		return nil, fmt.Errorf("summary: %q is not a YouTube video URL: %w", videoURL, apperr.ErrValidation)
	}

	webhook, err := c.settings.WebhookURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary: read webhook url: %w", err)
	}
	if webhook == "" {
		return nil, fmt.Errorf("summary: webhook url is not set: %w", apperr.ErrConfig)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("summary: rate limit: %w", err)
		}
	}

	payload, err := json.Marshal(requestBody{
		VideoURL:       videoURL,
		VideoID:        videoID,
		VideoTitle:     title,
		ResponseFormat: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("summary: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("summary: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Info("summary: webhook request", slog.String("video_id", videoID))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summary: webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("summary: read response: %v: %w", err, apperr.ErrParse)
	}
	return parseResponse(body, resp.Header.Get("Content-Type"), videoID, title)
}

// parseResponse turns a webhook body into a summary:
//
//  1. "Accepted" -> placeholder announcing the queued request
//  2. {"success":true,"summary":{...}} -> the summary as sent
//  3. anything else -> normalized from title/content/summary/thumbnail
func parseResponse(body []byte, contentType, videoID, title string) (*models.Summary, error) {
	thumb := Thumbnail(videoID)
	text := string(body)

	if strings.TrimSpace(text) == "Accepted" {
		return &models.Summary{
			Title: orDefault(title, DefaultTitle),
			Content: fmt.Sprintf("The request was accepted and a summary is being prepared.\n\n"+
				"Video ID: %s\n\nThe backend is still processing it. Please try again later.", videoID),
			Thumbnail: thumb,
		}, nil
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if isJSON(contentType) {
			return nil, fmt.Errorf("summary: decode response: %v: %w", err, apperr.ErrParse)
		}
		return &models.Summary{
			Title:     orDefault(title, DefaultTitle),
			Content:   text,
			Thumbnail: thumb,
		}, nil
	}

	obj, _ := data.(map[string]any)
	if ok, _ := obj["success"].(bool); ok {
		if s, isObj := obj["summary"].(map[string]any); isObj {
			out := &models.Summary{
				Title:     stringField(s, "title"),
				Content:   stringField(s, "content"),
				Thumbnail: stringField(s, "thumbnail"),
			}
			if !strings.HasPrefix(out.Thumbnail, "http") {
				out.Thumbnail = thumb
			}
			return out, nil
		}
	}

	return &models.Summary{
		Title:     orDefault(stringField(obj, "title"), orDefault(title, DefaultTitle)),
		Content:   orDefault(stringField(obj, "content"), orDefault(stringField(obj, "summary"), noContent)),
		Thumbnail: orDefault(stringField(obj, "thumbnail"), thumb),
	}, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
