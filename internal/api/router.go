package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notex/internal/prefs"
	"github.com/starford/notex/internal/search"
	"github.com/starford/notex/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// switchRoot, if non-nil, backs PUT /workspace.
func NewRouter(store *workspace.Store, searcher *search.Debouncer, p *prefs.Store, authEnabled bool, token string, sseHandler http.Handler, switchRoot func(ctx context.Context, root string) error) chi.Router {
	h := NewHandler(store, searcher, p)
	h.switchRoot = switchRoot

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/state", h.State)
	r.Put("/workspace", h.SwitchWorkspace)

	// Notes. Static routes are registered before the wildcard.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/draft", h.CreateDraft)
	r.Post("/notes/delete", h.DeleteNotes)
	r.Post("/notes/rename", h.RenameNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Delete("/hidden/*", h.Unhide)

	r.Post("/pins", h.TogglePin)
	r.Put("/sort", h.SetSort)
	r.Post("/select", h.Select)

	// Active note.
	r.Get("/active", h.GetActive)
	r.Post("/active/open", h.OpenNote)
	r.Put("/active/content", h.UpdateContent)
	r.Post("/active/save", h.SaveActive)

	// Search.
	r.Get("/search", h.Search)
	r.Put("/search/query", h.UpdateSearchQuery)
	r.Post("/search/flush", h.FlushSearch)
	r.Get("/search/state", h.SearchState)

	// Preferences.
	r.Get("/prefs", h.ListPrefs)
	r.Get("/prefs/{key}", h.GetPref)
	r.Put("/prefs/{key}", h.SetPref)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
