package settings

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/renewer/internal/apperr"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	f, err := os.CreateTemp("", "renewer-settings-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWebhookURLUnset(t *testing.T) {
	s := testStore(t)
	v, err := s.WebhookURL(context.Background())
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSetWebhookURL(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	v, err := s.SetWebhookURL(ctx, "  https://hooks.example.com/summarize \n")
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/summarize", v)

	got, err := s.WebhookURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/summarize", got)

	_, err = s.SetWebhookURL(ctx, "http://localhost:5678/webhook/x")
	require.NoError(t, err)
	got, err = s.Get(ctx, KeyWebhookURL)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5678/webhook/x", got)
}

func TestSetWebhookURLRejectsInvalid(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_, err := s.SetWebhookURL(ctx, "https://ok.example.com")
	require.NoError(t, err)

	for _, raw := range []string{"", "   ", "not a url", "/relative/path", "ftp://example.com/x"} {
		_, err := s.SetWebhookURL(ctx, raw)
		assert.ErrorIs(t, err, apperr.ErrValidation, raw)
	}

	got, err := s.WebhookURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://ok.example.com", got, "rejected values must not overwrite")
}
