// Package workspace holds the in-memory projection of a note workspace: the
// flattened, sorted note list, the active note and the overlays layered over
// the raw file listing.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/debounce"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/overlay"
	"github.com/starford/notex/internal/storage"
)

// Event kinds published by the Store.
const (
	EventNotesUpdated = "notes.updated"
	EventNoteOpened   = "note.opened"
	EventNoteClosed   = "note.closed"
	EventNoteRenamed  = "note.renamed"
	EventNoteSaving   = "note.saving"
	EventNoteSaved    = "note.saved"
	EventPinsUpdated  = "pins.updated"
)

// DefaultNoteName is used by CreateNote when no name is given.
const DefaultNoteName = "New Note.txt"

const searchLimit = 50

// Publisher receives state-change notifications.
type Publisher interface {
	Publish(kind string, data any)
}

// Searcher ranks notes for a query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// Active is a snapshot of the open note.
type Active struct {
	Note    models.Note `json:"note"`
	Content string      `json:"content"`
	Dirty   bool        `json:"dirty"`
	Saving  bool        `json:"saving"`
}

// Snapshot is a consistent copy of the store's visible state.
type Snapshot struct {
	Root          string               `json:"root"`
	Notes         []models.Note        `json:"notes"`
	Active        *Active              `json:"active,omitempty"`
	Pinned        []string             `json:"pinned"`
	Hidden        []string             `json:"hidden"`
	SortBy        models.SortKey       `json:"sort_by"`
	SortDirection models.SortDirection `json:"sort_direction"`
}

// Option configures a Store.
type Option func(*Store)

// WithIndex sets the search backend.
func WithIndex(idx Searcher) Option {
	return func(s *Store) { s.index = idx }
}

// WithPublisher sets the receiver of state-change events.
func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithSort sets the initial sort key and direction.
func WithSort(key models.SortKey, dir models.SortDirection) Option {
	return func(s *Store) {
		s.sortBy = key
		s.sortDir = dir
	}
}

// WithAutoTitle configures content-derived renaming: the quiet period, the
// eligible extensions (with leading dot) and the exclusive title length limit.
func WithAutoTitle(delay time.Duration, exts []string, maxLen int) Option {
	return func(s *Store) {
		s.titleDelay = delay
		s.titleExts = exts
		s.titleMax = maxLen
	}
}

// WithDraftMaxLength bounds the first-line name given to auto-created drafts.
func WithDraftMaxLength(n int) Option {
	return func(s *Store) { s.draftMax = n }
}

// WithSavingIndicator sets how long the saving flag stays up after a write.
func WithSavingIndicator(d time.Duration) Option {
	return func(s *Store) { s.savingDelay = d }
}

// Store is the note workspace aggregate. All exported methods are safe for
// concurrent use; state changes are serialized on an internal loop while file
// I/O runs on the caller's goroutine.
type Store struct {
	open    storage.Opener
	appData storage.Provider
	index   Searcher
	pub     Publisher
	logger  *slog.Logger

	titleDelay  time.Duration
	titleExts   []string
	titleMax    int
	draftMax    int
	savingDelay time.Duration

	loop      *loop
	renameT   *debounce.Timer
	savingT   *debounce.Timer
	overlayMu sync.Mutex // serializes read-persist-commit of hidden and pinned sets
	fileMu    sync.Mutex // orders active-note writes against renames

	// Owned by loop.
	gen      uint64
	root     string
	files    storage.Provider
	notes    []models.Note
	known    map[string]struct{}
	hidden   overlay.Set
	pinned   overlay.Set
	active   *models.Note
	content  string
	dirty    bool
	saving   bool
	creating bool
	sortBy   models.SortKey
	sortDir  models.SortDirection
}

// New creates a Store. open resolves a workspace root to a file provider;
// appData holds pinned.json. Call Start to activate a root.
func New(open storage.Opener, appData storage.Provider, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		open:        open,
		appData:     appData,
		pub:         nopPublisher{},
		logger:      logger,
		titleDelay:  time.Second,
		titleExts:   []string{".txt"},
		titleMax:    50,
		draftMax:    30,
		savingDelay: 500 * time.Millisecond,
		hidden:      overlay.NewSet(),
		pinned:      overlay.NewSet(),
		sortBy:      models.SortByModified,
		sortDir:     models.SortDesc,
	}
	for _, o := range opts {
		o(s)
	}
	s.loop = newLoop()
	s.renameT = debounce.New(s.titleDelay)
	s.savingT = debounce.New(s.savingDelay)
	return s
}

// workspaceRef is what an operation needs to do I/O outside the loop.
type workspaceRef struct {
	gen    uint64
	root   string
	files  storage.Provider
	hidden overlay.Set
	pinned overlay.Set
}

func (s *Store) current(ctx context.Context) (workspaceRef, error) {
	ref, err := query(ctx, s.loop, func() workspaceRef {
		return workspaceRef{gen: s.gen, root: s.root, files: s.files, hidden: s.hidden, pinned: s.pinned}
	})
	if err != nil {
		return ref, err
	}
	if ref.files == nil {
		return ref, apperr.ErrNoWorkspace
	}
	return ref, nil
}

// Start activates root: it ensures the directory exists, loads the hidden
// and pinned sets, resets the note list and active note, and refreshes.
func (s *Store) Start(ctx context.Context, root string) error {
	files, err := s.open(root)
	if err != nil {
		return fmt.Errorf("workspace: open %s: %w", root, err)
	}
	hidden := overlay.LoadHidden(files, s.logger)
	pinned := overlay.LoadPinned(s.appData, files.Root(), s.logger)

	s.renameT.Cancel()
	s.savingT.Cancel()
	err = s.loop.do(ctx, func() {
		s.gen++
		s.root = files.Root()
		s.files = files
		s.hidden = hidden
		s.pinned = pinned
		s.notes = nil
		s.known = nil
		s.clearActiveLocked()
		s.saving = false
		s.creating = false
	})
	if err != nil {
		return err
	}
	s.logger.Info("store: workspace opened",
		slog.String("root", files.Root()),
		slog.Int("hidden", hidden.Len()),
		slog.Int("pinned", pinned.Len()))
	return s.Refresh(ctx)
}

// Stop cancels pending timers and detaches the workspace.
func (s *Store) Stop() {
	s.renameT.Cancel()
	s.savingT.Cancel()
	_ = s.loop.do(context.Background(), func() {
		s.gen++
		s.root = ""
		s.files = nil
		s.notes = nil
		s.known = nil
		s.clearActiveLocked()
	})
}

// Close stops the store and its loop. The store is unusable afterwards.
func (s *Store) Close() {
	s.Stop()
	s.loop.close()
}

// Refresh re-lists the workspace and publishes the visible note list. When
// overrideHidden is given it is used instead of the stored hidden set. On a
// listing error the previous list is kept.
func (s *Store) Refresh(ctx context.Context, overrideHidden ...overlay.Set) error {
	ws, err := s.current(ctx)
	if err != nil {
		return err
	}
	hidden := ws.hidden
	if len(overrideHidden) > 0 {
		hidden = overrideHidden[0]
	}

	tree, err := ws.files.List("")
	if err != nil {
		s.logger.Error("store: refresh failed",
			slog.String("root", ws.root),
			slog.String("error", err.Error()))
		return fmt.Errorf("workspace: refresh: %w", err)
	}
	visible := flatten(tree, hidden)

	return s.loop.do(ctx, func() {
		if s.gen != ws.gen {
			return
		}
		s.known = markNew(visible, s.known)
		sortNotes(visible, s.pinned, s.sortBy, s.sortDir)
		s.notes = visible
		s.publish(EventNotesUpdated, s.notesLocked())
	})
}

// OpenNote makes the note at p active. Any pending auto-title rename is
// cancelled first. On a read error the previous active note is kept.
func (s *Store) OpenNote(ctx context.Context, p string) (*Active, error) {
	s.renameT.Cancel()
	ws, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	data, err := ws.files.Read(p)
	if err != nil {
		s.logger.Warn("store: open failed", slog.String("path", p), slog.String("error", err.Error()))
		return nil, fmt.Errorf("workspace: open %s: %w", p, err)
	}
	return query(ctx, s.loop, func() *Active {
		if s.gen != ws.gen {
			return nil
		}
		// A content change may have re-armed the timer for the previous note.
		s.renameT.Cancel()
		note := s.lookupLocked(p)
		s.active = &note
		s.content = string(data)
		s.dirty = false
		s.creating = false
		a := s.activeLocked()
		s.publish(EventNoteOpened, a)
		return a
	})
}

type saveJob struct {
	gen     uint64
	files   storage.Provider
	note    models.Note
	content string
}

// SaveActiveNote writes the active note if it is dirty. The saving flag is
// raised for the write and dropped after the indicator delay. On failure the
// note stays dirty.
func (s *Store) SaveActiveNote(ctx context.Context) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	job, err := query(ctx, s.loop, func() *saveJob {
		if s.files == nil || s.active == nil || !s.dirty {
			return nil
		}
		s.saving = true
		s.publish(EventNoteSaving, s.activeLocked())
		return &saveJob{gen: s.gen, files: s.files, note: *s.active, content: s.content}
	})
	if err != nil || job == nil {
		return err
	}

	werr := job.files.Write(job.note.Path, []byte(job.content))
	if werr != nil {
		s.logger.Error("store: save failed", slog.String("path", job.note.Path), slog.String("error", werr.Error()))
	} else {
		s.logger.Debug("store: saved", slog.String("path", job.note.Path))
	}

	_ = s.loop.do(context.WithoutCancel(ctx), func() {
		if werr != nil || s.gen != job.gen || s.active == nil {
			return
		}
		// Edits made during the write keep the note dirty.
		if s.active.Path == job.note.Path && s.content == job.content {
			s.dirty = false
		}
	})

	gen := job.gen
	s.savingT.Schedule(func() {
		_ = s.loop.do(context.Background(), func() {
			if s.gen != gen {
				return
			}
			s.saving = false
			s.publish(EventNoteSaved, s.activeLocked())
		})
	})

	if werr != nil {
		return fmt.Errorf("workspace: save %s: %w", job.note.Path, werr)
	}
	return nil
}

// CreateNote creates an empty note at name (relative to the root) and
// returns its path. A previously hidden path is unhidden first.
func (s *Store) CreateNote(ctx context.Context, name string) (string, error) {
	p := strings.Trim(strings.TrimSpace(name), "/")
	if p == "" {
		p = DefaultNoteName
	}
	if IsSystemName(path.Base(p)) {
		return "", fmt.Errorf("workspace: create %s: %w", p, apperr.ErrInvalid)
	}

	if _, err := s.updateHidden(ctx, func(h overlay.Set) (overlay.Set, bool) {
		return h.Without(p), h.Has(p)
	}); err != nil {
		return "", err
	}

	ws, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	if err := ws.files.Create(p, nil); err != nil {
		s.logger.Warn("store: create failed", slog.String("path", p), slog.String("error", err.Error()))
		return "", fmt.Errorf("workspace: create %s: %w", p, err)
	}
	s.logger.Info("store: note created", slog.String("path", p))
	_ = s.Refresh(ctx)
	return p, nil
}

// CreateDraft clears the active note so the next content change starts a
// new draft.
func (s *Store) CreateDraft(ctx context.Context) error {
	s.renameT.Cancel()
	return s.loop.do(ctx, func() {
		s.renameT.Cancel()
		s.creating = false
		if s.active != nil {
			s.clearActiveLocked()
			s.publish(EventNoteClosed, nil)
		}
		s.content = ""
		s.dirty = false
	})
}

// DeleteItem soft-deletes p by adding it to the hidden set, or removes it
// from disk when permanent is set.
func (s *Store) DeleteItem(ctx context.Context, p string, permanent bool) error {
	return s.DeleteItems(ctx, []string{p}, permanent)
}

// DeleteItems applies DeleteItem to several paths with a single overlay
// write and a single refresh.
func (s *Store) DeleteItems(ctx context.Context, paths []string, permanent bool) error {
	if len(paths) == 0 {
		return nil
	}

	var (
		override []overlay.Set
		removed  []string
		errs     []error
	)
	if permanent {
		ws, err := s.current(ctx)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if err := ws.files.Delete(p); err != nil {
				s.logger.Warn("store: delete failed", slog.String("path", p), slog.String("error", err.Error()))
				errs = append(errs, fmt.Errorf("workspace: delete %s: %w", p, err))
				continue
			}
			s.logger.Info("store: deleted", slog.String("path", p))
			removed = append(removed, p)
		}
	} else {
		next, err := s.updateHidden(ctx, func(h overlay.Set) (overlay.Set, bool) {
			for _, p := range paths {
				h = h.With(p)
			}
			return h, true
		})
		if err != nil {
			return err
		}
		override = []overlay.Set{next}
		removed = paths
	}

	_ = s.loop.do(context.WithoutCancel(ctx), func() {
		if s.active == nil {
			return
		}
		for _, p := range removed {
			if s.active.Path == p || strings.HasPrefix(s.active.Path, p+"/") {
				s.renameT.Cancel()
				s.clearActiveLocked()
				s.publish(EventNoteClosed, nil)
				return
			}
		}
	})

	_ = s.Refresh(ctx, override...)
	return errors.Join(errs...)
}

// UnhideItem removes p from the hidden set so it shows up again.
func (s *Store) UnhideItem(ctx context.Context, p string) error {
	next, err := s.updateHidden(ctx, func(h overlay.Set) (overlay.Set, bool) {
		return h.Without(p), h.Has(p)
	})
	if err != nil {
		return err
	}
	return s.Refresh(ctx, next)
}

// RenameItem renames or moves oldPath. A target without "/" is a new name in
// the same parent; otherwise it is a full workspace path. It returns the new
// path. A taken destination fails with apperr.ErrAlreadyExists.
func (s *Store) RenameItem(ctx context.Context, oldPath, newNameOrPath string) (string, error) {
	newPath := resolveRename(oldPath, newNameOrPath)
	if newPath == "" {
		return "", fmt.Errorf("workspace: rename %s: %w", oldPath, apperr.ErrInvalid)
	}
	if newPath == oldPath {
		return oldPath, nil
	}

	ws, err := s.moveActive(ctx, oldPath, newPath)
	if err != nil {
		_ = s.Refresh(ctx)
		return "", err
	}

	if ws.pinned.Has(oldPath) {
		if _, err := s.updatePinned(ctx, func(p overlay.Set) (overlay.Set, bool) {
			return p.Rename(oldPath, newPath), p.Has(oldPath)
		}); err != nil {
			s.logger.Warn("store: move pin failed", slog.String("path", newPath), slog.String("error", err.Error()))
		}
	}

	_ = s.Refresh(ctx)
	return newPath, nil
}

// moveActive moves the file and retargets the active note in one step with
// respect to SaveActiveNote, so a save never recreates the old path.
func (s *Store) moveActive(ctx context.Context, oldPath, newPath string) (workspaceRef, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	ws, err := s.current(ctx)
	if err != nil {
		return ws, err
	}
	if err := ws.files.Move(oldPath, newPath); err != nil {
		s.logger.Warn("store: rename failed",
			slog.String("from", oldPath),
			slog.String("to", newPath),
			slog.String("error", err.Error()))
		return ws, fmt.Errorf("workspace: rename %s: %w", oldPath, err)
	}
	s.logger.Info("store: renamed", slog.String("from", oldPath), slog.String("to", newPath))

	_ = s.loop.do(context.WithoutCancel(ctx), func() {
		if s.gen != ws.gen {
			return
		}
		if s.active != nil && s.active.Path == oldPath {
			s.active.Path = newPath
			s.active.Name = path.Base(newPath)
		}
		s.publish(EventNoteRenamed, map[string]string{"old_path": oldPath, "new_path": newPath})
	})
	return ws, nil
}

func resolveRename(oldPath, target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if strings.Contains(target, "/") {
		return strings.Trim(target, "/")
	}
	return storage.Join(storage.Parent(oldPath), target)
}

// TogglePin flips the pin on p, persists the pinned set and re-sorts. It
// reports whether p is pinned afterwards.
func (s *Store) TogglePin(ctx context.Context, p string) (bool, error) {
	var on bool
	_, err := s.updatePinned(ctx, func(cur overlay.Set) (overlay.Set, bool) {
		var next overlay.Set
		next, on = cur.Toggle(p)
		return next, true
	})
	if err != nil {
		return false, err
	}
	return on, nil
}

// SetSort changes the sort key and direction and re-sorts the list.
func (s *Store) SetSort(ctx context.Context, key models.SortKey, dir models.SortDirection) error {
	if _, _, err := ParseSort(string(key), string(dir)); err != nil {
		return err
	}
	return s.loop.do(ctx, func() {
		s.sortBy = key
		s.sortDir = dir
		s.resortLocked()
	})
}

// UpdateContent replaces the active note's in-memory content and marks it
// dirty. With an active note it drives the auto-title renamer; without one,
// non-blank content creates a draft note at the workspace root.
func (s *Store) UpdateContent(ctx context.Context, content string) error {
	type edit struct {
		ref   workspaceRef
		draft bool
		noWS  bool
	}
	e, err := query(ctx, s.loop, func() edit {
		if s.files == nil {
			return edit{noWS: true}
		}
		s.content = content
		s.dirty = true
		if s.active != nil {
			// Armed on the loop so a concurrent OpenNote cancels it.
			s.scheduleAutoTitle(*s.active, content)
			return edit{}
		}
		if !s.creating && strings.TrimSpace(content) != "" {
			s.creating = true
			return edit{draft: true, ref: workspaceRef{gen: s.gen, root: s.root, files: s.files}}
		}
		return edit{}
	})
	switch {
	case err != nil:
		return err
	case e.noWS:
		return apperr.ErrNoWorkspace
	case e.draft:
		return s.createDraftNote(ctx, e.ref, content)
	}
	return nil
}

// Search queries the index and drops hits that are not in the visible list.
func (s *Store) Search(ctx context.Context, q string) ([]models.SearchHit, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}
	if s.index == nil {
		return nil, fmt.Errorf("workspace: search: no index: %w", apperr.ErrInvalid)
	}
	hits, err := s.index.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("workspace: search: %w", err)
	}
	return query(ctx, s.loop, func() []models.SearchHit {
		visible := make(map[string]models.Note, len(s.notes))
		for _, n := range s.notes {
			visible[n.Path] = n
		}
		out := make([]models.SearchHit, 0, len(hits))
		for _, h := range hits {
			n, ok := visible[h.File.Path]
			if !ok {
				continue
			}
			h.File = n
			out = append(out, h)
		}
		return out
	})
}

// Notes returns a copy of the visible list.
func (s *Store) Notes(ctx context.Context) ([]models.Note, error) {
	return query(ctx, s.loop, s.notesLocked)
}

// VisiblePaths returns the paths of the visible list in display order.
func (s *Store) VisiblePaths(ctx context.Context) ([]string, error) {
	return query(ctx, s.loop, func() []string {
		out := make([]string, len(s.notes))
		for i, n := range s.notes {
			out[i] = n.Path
		}
		return out
	})
}

// Active returns the open note, or nil.
func (s *Store) Active(ctx context.Context) (*Active, error) {
	return query(ctx, s.loop, s.activeLocked)
}

// Snapshot returns a consistent copy of the visible state.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	return query(ctx, s.loop, func() Snapshot {
		return Snapshot{
			Root:          s.root,
			Notes:         s.notesLocked(),
			Active:        s.activeLocked(),
			Pinned:        s.pinned.Paths(),
			Hidden:        s.hidden.Paths(),
			SortBy:        s.sortBy,
			SortDirection: s.sortDir,
		}
	})
}

// updateHidden persists fn's result as the hidden set and commits it. fn
// reports whether anything changed; unchanged sets are not written.
func (s *Store) updateHidden(ctx context.Context, fn func(overlay.Set) (overlay.Set, bool)) (overlay.Set, error) {
	s.overlayMu.Lock()
	defer s.overlayMu.Unlock()

	ws, err := s.current(ctx)
	if err != nil {
		return overlay.Set{}, err
	}
	next, changed := fn(ws.hidden)
	if !changed {
		return ws.hidden, nil
	}
	if err := overlay.SaveHidden(ws.files, next); err != nil {
		s.logger.Error("store: persist hidden failed", slog.String("error", err.Error()))
		return overlay.Set{}, fmt.Errorf("workspace: %w", err)
	}
	err = s.loop.do(context.WithoutCancel(ctx), func() {
		if s.gen == ws.gen {
			s.hidden = next
		}
	})
	return next, err
}

// updatePinned persists fn's result as the pinned set, commits it and
// re-sorts the list.
func (s *Store) updatePinned(ctx context.Context, fn func(overlay.Set) (overlay.Set, bool)) (overlay.Set, error) {
	s.overlayMu.Lock()
	defer s.overlayMu.Unlock()

	ws, err := s.current(ctx)
	if err != nil {
		return overlay.Set{}, err
	}
	next, changed := fn(ws.pinned)
	if !changed {
		return ws.pinned, nil
	}
	if err := overlay.SavePinned(s.appData, ws.root, next); err != nil {
		s.logger.Error("store: persist pinned failed", slog.String("error", err.Error()))
		return overlay.Set{}, fmt.Errorf("workspace: %w", err)
	}
	err = s.loop.do(context.WithoutCancel(ctx), func() {
		if s.gen != ws.gen {
			return
		}
		s.pinned = next
		s.publish(EventPinsUpdated, map[string][]string{"pinned": next.Paths()})
		s.resortLocked()
	})
	return next, err
}

func (s *Store) createDraftNote(ctx context.Context, ws workspaceRef, content string) error {
	now := time.Now()
	name := draftName(content, s.draftMax, now)
	err := ws.files.Create(name, []byte(content))
	if errors.Is(err, apperr.ErrAlreadyExists) {
		name = untitledName(now)
		err = ws.files.Create(name, []byte(content))
	}
	if err != nil {
		s.logger.Error("store: draft create failed", slog.String("path", name), slog.String("error", err.Error()))
		_ = s.loop.do(context.WithoutCancel(ctx), func() { s.creating = false })
		return fmt.Errorf("workspace: create draft: %w", err)
	}
	s.logger.Info("store: draft created", slog.String("path", name))

	_ = s.loop.do(context.WithoutCancel(ctx), func() {
		if !s.creating || s.gen != ws.gen {
			return
		}
		s.creating = false
		s.active = &models.Note{Path: name, Name: name, LastModified: now}
		s.dirty = s.content != content
		s.publish(EventNoteOpened, s.activeLocked())
	})
	_ = s.Refresh(ctx)
	return nil
}

func (s *Store) publish(kind string, data any) {
	s.pub.Publish(kind, data)
}

// The helpers below must run on the loop.

func (s *Store) notesLocked() []models.Note {
	out := make([]models.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *Store) activeLocked() *Active {
	if s.active == nil {
		return nil
	}
	return &Active{Note: *s.active, Content: s.content, Dirty: s.dirty, Saving: s.saving}
}

func (s *Store) clearActiveLocked() {
	s.active = nil
	s.content = ""
	s.dirty = false
}

func (s *Store) lookupLocked(p string) models.Note {
	for _, n := range s.notes {
		if n.Path == p {
			return n
		}
	}
	return models.Note{Path: p, Name: path.Base(p)}
}

func (s *Store) resortLocked() {
	notes := s.notesLocked()
	sortNotes(notes, s.pinned, s.sortBy, s.sortDir)
	s.notes = notes
	s.publish(EventNotesUpdated, s.notesLocked())
}
