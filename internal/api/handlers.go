package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notex/internal/prefs"
	"github.com/starford/notex/internal/search"
	"github.com/starford/notex/internal/selection"
	"github.com/starford/notex/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	store    *workspace.Store
	searcher *search.Debouncer
	prefs    *prefs.Store

	switchRoot func(ctx context.Context, root string) error
}

// NewHandler creates a new Handler. searcher and prefs may be nil, in which
// case their routes answer 404.
func NewHandler(store *workspace.Store, searcher *search.Debouncer, p *prefs.Store) *Handler {
	return &Handler{store: store, searcher: searcher, prefs: p}
}

// wildcardPath extracts the workspace path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.txt).
func wildcardPath(r *http.Request) string {
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

// State handles GET /api/state.
//
//	@Summary		Workspace snapshot
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, "api: state", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SwitchWorkspace handles PUT /api/workspace.
//
//	@Summary		Activate another workspace directory
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WorkspaceRequest	true	"Workspace root"
//	@Success		200		{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/workspace [put]
func (h *Handler) SwitchWorkspace(w http.ResponseWriter, r *http.Request) {
	if h.switchRoot == nil {
		writeJSON(w, http.StatusNotFound, errorBody("workspace switching disabled"))
		return
	}
	var req WorkspaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Root == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("root is required"))
		return
	}
	if err := h.switchRoot(r.Context(), req.Root); err != nil {
		writeError(w, "api: switch workspace", err)
		return
	}
	h.State(w, r)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List visible notes in display order
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.store.Notes(r.Context())
	if err != nil {
		writeError(w, "api: list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create an empty note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note name"
//	@Success		201		{object}	PathResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.store.CreateNote(r.Context(), req.Name)
	if err != nil {
		writeError(w, "api: create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: p})
}

// CreateDraft handles POST /api/notes/draft.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CreateDraft(r.Context()); err != nil {
		writeError(w, "api: create draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNote handles DELETE /api/notes/*. Without ?permanent=true the note
// is hidden instead of removed.
//
//	@Summary		Hide or delete a note
//	@Tags			notes
//	@Param			path		path	string	true	"Note path"
//	@Param			permanent	query	bool	false	"Remove from disk"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	permanent, _ := strconv.ParseBool(r.URL.Query().Get("permanent"))
	if err := h.store.DeleteItem(r.Context(), p, permanent); err != nil {
		writeError(w, "api: delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNotes handles POST /api/notes/delete.
func (h *Handler) DeleteNotes(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("paths is required"))
		return
	}
	if err := h.store.DeleteItems(r.Context(), req.Paths, req.Permanent); err != nil {
		writeError(w, "api: delete notes", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unhide handles DELETE /api/hidden/*.
func (h *Handler) Unhide(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.store.UnhideItem(r.Context(), p); err != nil {
		writeError(w, "api: unhide", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameNote handles POST /api/notes/rename.
//
//	@Summary		Rename or move a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Rename"
//	@Success		200		{object}	PathResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/rename [post]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OldPath == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("old_path and new_name are required"))
		return
	}
	p, err := h.store.RenameItem(r.Context(), req.OldPath, req.NewName)
	if err != nil {
		writeError(w, "api: rename", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: p})
}

// TogglePin handles POST /api/pins.
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	pinned, err := h.store.TogglePin(r.Context(), req.Path)
	if err != nil {
		writeError(w, "api: toggle pin", err)
		return
	}
	writeJSON(w, http.StatusOK, PinResponse{Path: req.Path, Pinned: pinned})
}

// SetSort handles PUT /api/sort.
func (h *Handler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if !decodeBody(w, r, &req) {
		return
	}
	key, dir, err := workspace.ParseSort(req.SortBy, req.SortDirection)
	if err != nil {
		writeError(w, "api: sort", err)
		return
	}
	if err := h.store.SetSort(r.Context(), key, dir); err != nil {
		writeError(w, "api: sort", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetActive handles GET /api/active. Returns null when no note is open.
func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Active(r.Context())
	if err != nil {
		writeError(w, "api: active", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// OpenNote handles POST /api/active/open.
//
//	@Summary		Open a note for editing
//	@Tags			active
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenNoteRequest	true	"Note to open"
//	@Success		200		{object}	workspace.Active
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/active/open [post]
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	var req OpenNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	a, err := h.store.OpenNote(r.Context(), req.Path)
	if err != nil {
		writeError(w, "api: open note", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateContent handles PUT /api/active/content.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.UpdateContent(r.Context(), req.Content); err != nil {
		writeError(w, "api: update content", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveActive handles POST /api/active/save.
func (h *Handler) SaveActive(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SaveActiveNote(r.Context()); err != nil {
		writeError(w, "api: save", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select handles POST /api/select. The visible list is read from the store
// so range selection follows the current display order.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Item == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("item is required"))
		return
	}
	visible, err := h.store.VisiblePaths(r.Context())
	if err != nil {
		writeError(w, "api: select", err)
		return
	}
	mod := selection.FromKeys(req.Ctrl, req.Meta, req.Shift)
	if req.Modifier != "" {
		mod = selection.ParseModifier(req.Modifier)
	}
	sel, anchor := selection.Select(mod, req.Item, req.Current, visible, req.Anchor)
	if sel == nil {
		sel = []string{}
	}
	writeJSON(w, http.StatusOK, SelectResponse{Selection: sel, Anchor: anchor})
}

// Search handles GET /api/search.
//
//	@Summary		Search visible notes immediately
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	hits, err := h.store.Search(r.Context(), q)
	if err != nil {
		writeError(w, "api: search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}

// UpdateSearchQuery handles PUT /api/search/query. Results arrive through
// the event stream once typing settles.
func (h *Handler) UpdateSearchQuery(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		writeJSON(w, http.StatusNotFound, errorBody("search debouncer disabled"))
		return
	}
	var req SearchQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.searcher.Update(req.Query)
	writeJSON(w, http.StatusAccepted, h.searcher.State())
}

// FlushSearch handles POST /api/search/flush. It runs the pending query
// without waiting for typing to settle, as on Enter, and returns the state
// once the search has finished.
func (h *Handler) FlushSearch(w http.ResponseWriter, _ *http.Request) {
	if h.searcher == nil {
		writeJSON(w, http.StatusNotFound, errorBody("search debouncer disabled"))
		return
	}
	h.searcher.Flush()
	writeJSON(w, http.StatusOK, h.searcher.State())
}

// SearchState handles GET /api/search/state.
func (h *Handler) SearchState(w http.ResponseWriter, _ *http.Request) {
	if h.searcher == nil {
		writeJSON(w, http.StatusNotFound, errorBody("search debouncer disabled"))
		return
	}
	writeJSON(w, http.StatusOK, h.searcher.State())
}

// ListPrefs handles GET /api/prefs.
func (h *Handler) ListPrefs(w http.ResponseWriter, _ *http.Request) {
	if h.prefs == nil {
		writeJSON(w, http.StatusNotFound, errorBody("preferences disabled"))
		return
	}
	writeJSON(w, http.StatusOK, h.prefs.All())
}

// GetPref handles GET /api/prefs/{key}.
func (h *Handler) GetPref(w http.ResponseWriter, r *http.Request) {
	if h.prefs == nil {
		writeJSON(w, http.StatusNotFound, errorBody("preferences disabled"))
		return
	}
	raw, err := h.prefs.Get(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, "api: get pref", err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// SetPref handles PUT /api/prefs/{key}. The body is the raw JSON value.
func (h *Handler) SetPref(w http.ResponseWriter, r *http.Request) {
	if h.prefs == nil {
		writeJSON(w, http.StatusNotFound, errorBody("preferences disabled"))
		return
	}
	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	if err := h.prefs.Set(chi.URLParam(r, "key"), raw); err != nil {
		writeError(w, "api: set pref", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
