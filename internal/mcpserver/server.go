// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes renewer tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/renewer/internal/noteservice"
	"github.com/starford/renewer/internal/settings"
	"github.com/starford/renewer/internal/storage"
	"github.com/starford/renewer/internal/summary"
)

const conventionsURI = "renewer://link-conventions"

// Server wraps the MCP server with renewer tools.
type Server struct {
	mcp      *server.MCPServer
	store    storage.Provider
	svc      *noteservice.Service
	settings settings.Store
	summary  summary.Fetcher
}

// New creates a new MCP server with all renewer tools registered.
func New(store storage.Provider, svc *noteservice.Service, st settings.Store, fetcher summary.Fetcher) *Server {
	s := &Server{store: store, svc: svc, settings: st, summary: fetcher}

	s.mcp = server.NewMCPServer(
		"renewer",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_links",
		mcp.WithDescription("List the links of a note with their resolved targets, and the notes linking to it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.getLinks)

	s.mcp.AddTool(mcp.NewTool("update_note_links",
		mcp.WithDescription("Rewrite the Markdown links and embeds of one note relative to its location. "+
			"See the "+conventionsURI+" resource for the rules."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.updateNoteLinks)

	s.mcp.AddTool(mcp.NewTool("update_all_links",
		mcp.WithDescription("Rewrite the links of every note in the vault. Requires confirm=true."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to proceed")),
	), s.updateAllLinks)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("Move a note to another path and fix its links and the links pointing at it."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Current note path")),
		mcp.WithString("to", mcp.Required(), mcp.Description("New note path (must end with .md)")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("summarize_video",
		mcp.WithDescription("Request a summary of a YouTube video from the configured webhook."),
		mcp.WithString("url", mcp.Required(), mcp.Description("YouTube video URL")),
		mcp.WithString("title", mcp.Description("Optional video title")),
	), s.summarizeVideo)

	s.mcp.AddTool(mcp.NewTool("get_webhook_url",
		mcp.WithDescription("Return the configured summary webhook URL."),
	), s.getWebhookURL)

	s.mcp.AddTool(mcp.NewTool("set_webhook_url",
		mcp.WithDescription("Set the summary webhook URL (absolute http or https URL)."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Webhook URL")),
	), s.setWebhookURL)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Link Conventions",
			mcp.WithResourceDescription("How renewer writes and rewrites Markdown links."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.Links(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(links), nil
}

func (s *Server) updateNoteLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.UpdateLinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Update %d links in %s.", n, path)), nil
}

func (s *Server) updateAllLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError("confirm must be true to rewrite every note"), nil
	}
	rep, err := s.svc.UpdateAll(ctx, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rep.Failed) > 0 {
		return mcp.NewToolResultError(rep.Message() + " Failed: " + strings.Join(rep.FailedPaths(), ", ")), nil
	}
	return mcp.NewToolResultText(rep.Message()), nil
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Move(ctx, from, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) summarizeVideo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.summary.Fetch(ctx, url, req.GetString("title", ""))
	if err != nil {
		return mcp.NewToolResultError(summary.ErrorMessage(err)), nil
	}
	return jsonResult(sum), nil
}

func (s *Server) getWebhookURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := s.settings.WebhookURL(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v == "" {
		return mcp.NewToolResultText("webhook url is not set"), nil
	}
	return mcp.NewToolResultText(v), nil
}

func (s *Server) setWebhookURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.settings.SetWebhookURL(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("saved: " + v), nil
}

func (s *Server) readConventionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     LinkConventions,
		},
	}, nil
}
