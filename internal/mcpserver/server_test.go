package mcpserver

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/renewer/internal/apperr"
	"github.com/starford/renewer/internal/linkrewrite"
	"github.com/starford/renewer/internal/models"
	"github.com/starford/renewer/internal/noteservice"
	"github.com/starford/renewer/internal/settings"
	"github.com/starford/renewer/internal/testutil"
)

type stubFetcher struct {
	summary *models.Summary
	err     error
}

func (f stubFetcher) Fetch(context.Context, string, string) (*models.Summary, error) {
	return f.summary, f.err
}

func testServer(t *testing.T, files map[string]string, fetcher stubFetcher) (*Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t, files)

	dbFile, err := os.CreateTemp("", "renewer-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	st, err := settings.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	opts := linkrewrite.DefaultOptions()
	opts.RenameDelay = 0
	rw := linkrewrite.New(env.Store, env.Cache, nil, testutil.QuietLogger(), opts)
	svc := noteservice.NewService(env.Store, env.Cache, rw)

	return New(env.Store, svc, st, fetcher), env
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_links":
		result, err = srv.getLinks(ctx, req)
	case "update_note_links":
		result, err = srv.updateNoteLinks(ctx, req)
	case "update_all_links":
		result, err = srv.updateAllLinks(ctx, req)
	case "move_note":
		result, err = srv.moveNote(ctx, req)
	case "summarize_video":
		result, err = srv.summarizeVideo(ctx, req)
	case "get_webhook_url":
		result, err = srv.getWebhookURL(ctx, req)
	case "set_webhook_url":
		result, err = srv.setWebhookURL(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListNotes(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"a.md": "a", "sub/b.md": "b", "pic.png": "x"}, stubFetcher{})

	text := resultText(callTool(t, srv, "list_notes", map[string]interface{}{}))
	if !strings.Contains(text, "a.md") || !strings.Contains(text, "sub/b.md") || strings.Contains(text, "pic.png") {
		t.Errorf("list = %q", text)
	}
}

func TestUpdateNoteLinks(t *testing.T) {
	srv, env := testServer(t, map[string]string{"sub/a.md": "[b](b.md)\n", "b.md": ""}, stubFetcher{})

	r := callTool(t, srv, "update_note_links", map[string]interface{}{"path": "sub/a.md"})
	if text := resultText(r); text != "Update 1 links in sub/a.md." {
		t.Errorf("result = %q", text)
	}
	if got := env.ReadFile(t, "sub/a.md"); got != "[b](../b.md)\n" {
		t.Errorf("content = %q", got)
	}

	r = callTool(t, srv, "update_note_links", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestUpdateAllLinksNeedsConfirm(t *testing.T) {
	srv, env := testServer(t, map[string]string{"sub/a.md": "[b](b.md)\n", "b.md": ""}, stubFetcher{})

	r := callTool(t, srv, "update_all_links", map[string]interface{}{})
	if !r.IsError {
		t.Fatal("expected error without confirm")
	}
	if got := env.ReadFile(t, "sub/a.md"); got != "[b](b.md)\n" {
		t.Errorf("content changed: %q", got)
	}

	r = callTool(t, srv, "update_all_links", map[string]interface{}{"confirm": true})
	if text := resultText(r); text != "Update 1 links in 1 file." {
		t.Errorf("result = %q", text)
	}
}

func TestMoveNoteAndGetLinks(t *testing.T) {
	srv, _ := testServer(t, map[string]string{
		"a.md":       "[n](inbox/n.md)\n",
		"inbox/n.md": "",
	}, stubFetcher{})

	r := callTool(t, srv, "move_note", map[string]interface{}{"from": "inbox/n.md", "to": "done/n.md"})
	if r.IsError {
		t.Fatalf("move failed: %s", resultText(r))
	}

	r = callTool(t, srv, "get_links", map[string]interface{}{"path": "a.md"})
	if text := resultText(r); !strings.Contains(text, `"target": "done/n.md"`) {
		t.Errorf("links = %s", text)
	}
}

func TestWebhookURLTools(t *testing.T) {
	srv, _ := testServer(t, nil, stubFetcher{})

	if text := resultText(callTool(t, srv, "get_webhook_url", nil)); text != "webhook url is not set" {
		t.Errorf("initial = %q", text)
	}
	if r := callTool(t, srv, "set_webhook_url", map[string]interface{}{"url": "nope"}); !r.IsError {
		t.Error("expected invalid url to be rejected")
	}
	callTool(t, srv, "set_webhook_url", map[string]interface{}{"url": "https://hooks.example.com/s"})
	if text := resultText(callTool(t, srv, "get_webhook_url", nil)); text != "https://hooks.example.com/s" {
		t.Errorf("after set = %q", text)
	}
}

func TestSummarizeVideo(t *testing.T) {
	srv, _ := testServer(t, nil, stubFetcher{summary: &models.Summary{Title: "T", Content: "C", Thumbnail: "https://x/y.jpg"}})
	r := callTool(t, srv, "summarize_video", map[string]interface{}{"url": "https://youtu.be/abc"})
	if text := resultText(r); !strings.Contains(text, `"content": "C"`) {
		t.Errorf("result = %s", text)
	}

	srv, _ = testServer(t, nil, stubFetcher{err: errors.Join(errors.New("summary: webhook url is not set"), apperr.ErrConfig)})
	r = callTool(t, srv, "summarize_video", map[string]interface{}{"url": "https://youtu.be/abc"})
	if !r.IsError || !strings.Contains(resultText(r), "Webhook URL is not set") {
		t.Errorf("config error result = %+v", r)
	}
}
