// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notex workspace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/storage"
	"github.com/starford/notex/internal/workspace"
)

const conventionsURI = "notex://conventions"

// Server wraps the MCP server with notex tools.
type Server struct {
	mcp    *server.MCPServer
	store  *workspace.Store
	files  storage.Provider
	logger *slog.Logger
}

// New creates a new MCP server with all notex tools registered. files must
// be rooted at the store's active workspace; it is used for note bodies,
// which the store only exposes through the active-note editor.
func New(store *workspace.Store, files storage.Provider, logger *slog.Logger) *Server {
	s := &Server{store: store, files: files, logger: logger}

	s.mcp = server.NewMCPServer(
		"notex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List visible notes in display order (pinned first)."),
		mcp.WithString("folder", mcp.Description("Optional folder prefix to filter by")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a visible note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.txt)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Fails if the path already exists. "+
			"Read the notex://conventions resource for naming rules."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note")),
		mcp.WithString("content", mcp.Description("Initial content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Hide a note, or remove it from disk when permanent is true."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
		mcp.WithBoolean("permanent", mcp.Description("Remove from disk instead of hiding")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("rename_note",
		mcp.WithDescription("Rename a note. A bare name keeps the note in its folder."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Current relative path")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New file name or relative path")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("toggle_pin",
		mcp.WithDescription("Pin or unpin a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.togglePin)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search visible notes by file name and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Workspace Conventions",
			mcp.WithResourceDescription("How notex names, hides, pins and orders notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventions,
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

// toolError turns a store error into a tool-level error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("already exists")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(req.GetString("folder", ""), "/")
	notes, err := s.store.Notes(ctx)
	if err != nil {
		return toolError(err), nil
	}
	var paths []string
	for _, n := range notes {
		if folder != "" && !strings.HasPrefix(n.Path, folder+"/") {
			continue
		}
		paths = append(paths, n.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) visible(ctx context.Context, p string) (bool, error) {
	paths, err := s.store.VisiblePaths(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range paths {
		if v == p {
			return true, nil
		}
	}
	return false, nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := s.visible(ctx, p)
	if err != nil {
		return toolError(err), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
	}
	data, err := s.files.Read(p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	created, err := s.store.CreateNote(ctx, p)
	if err != nil {
		return toolError(err), nil
	}
	if content := req.GetString("content", ""); content != "" {
		if err := s.files.Write(created, []byte(content)); err != nil {
			s.logger.Error("mcp: write content failed", slog.String("path", created), slog.String("error", err.Error()))
			return toolError(err), nil
		}
		_ = s.store.Refresh(ctx)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", created)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	permanent := req.GetBool("permanent", false)
	if err := s.store.DeleteItem(ctx, p, permanent); err != nil {
		return toolError(err), nil
	}
	if permanent {
		return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", p)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("hidden: %s", p)), nil
}

func (s *Server) renameNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	next, err := s.store.RenameItem(ctx, p, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s", next)), nil
}

func (s *Server) togglePin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pinned, err := s.store.TogglePin(ctx, p)
	if err != nil {
		return toolError(err), nil
	}
	if pinned {
		return mcp.NewToolResultText(fmt.Sprintf("pinned: %s", p)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("unpinned: %s", p)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.store.Search(ctx, q)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readConventions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     WorkspaceConventions,
		},
	}, nil
}
