package api

import (
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/search"
	"github.com/starford/notex/internal/workspace"
)

// WorkspaceRequest selects the workspace root directory.
type WorkspaceRequest struct {
	Root string `json:"root" example:"/home/me/notes" validate:"required"`
}

// CreateNoteRequest is the request body for creating a note. An empty name
// creates "New Note.txt".
type CreateNoteRequest struct {
	Name string `json:"name" example:"Ideas.txt"`
}

// PathResponse carries the path produced by a create or rename.
type PathResponse struct {
	Path string `json:"path" example:"Ideas.txt" validate:"required"`
}

// OpenNoteRequest selects the note to make active.
type OpenNoteRequest struct {
	Path string `json:"path" example:"Ideas.txt" validate:"required"`
}

// ContentRequest replaces the active note's in-memory content.
type ContentRequest struct {
	Content string `json:"content" example:"Ideas\nfirst one"`
}

// RenameRequest renames or moves a note. NewName is either a bare file name
// (kept in the same folder) or a full workspace path.
type RenameRequest struct {
	OldPath string `json:"old_path" example:"notes/a.txt" validate:"required"`
	NewName string `json:"new_name" example:"b.txt" validate:"required"`
}

// BatchDeleteRequest deletes or hides several notes at once.
type BatchDeleteRequest struct {
	Paths     []string `json:"paths" validate:"required"`
	Permanent bool     `json:"permanent"`
}

// PinRequest toggles the pin on a note.
type PinRequest struct {
	Path string `json:"path" example:"Ideas.txt" validate:"required"`
}

// PinResponse reports the pin state after a toggle.
type PinResponse struct {
	Path   string `json:"path"`
	Pinned bool   `json:"pinned"`
}

// SortRequest changes the note list ordering.
type SortRequest struct {
	SortBy        string `json:"sort_by" example:"modified" enums:"name,date,modified"`
	SortDirection string `json:"sort_direction" example:"desc" enums:"asc,desc"`
}

// SelectRequest describes a click on a list item. Modifier wins over the
// raw key flags when both are sent.
type SelectRequest struct {
	Modifier string   `json:"modifier" example:"range" enums:"none,toggle,range"`
	Ctrl     bool     `json:"ctrl"`
	Meta     bool     `json:"meta"`
	Shift    bool     `json:"shift"`
	Item     string   `json:"item" validate:"required"`
	Current  []string `json:"current"`
	Anchor   string   `json:"anchor"`
}

// SelectResponse is the selection after the click.
type SelectResponse struct {
	Selection []string `json:"selection"`
	Anchor    string   `json:"anchor"`
}

// SearchQueryRequest feeds the debounced search.
type SearchQueryRequest struct {
	Query string `json:"query" example:"groceries"`
}

// SearchResponse wraps immediate search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// NoteListResponse wraps the visible note list.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
}

// StateResponse is the full workspace snapshot.
type StateResponse = workspace.Snapshot

// SearchStateResponse is the debounced search state.
type SearchStateResponse = search.State
