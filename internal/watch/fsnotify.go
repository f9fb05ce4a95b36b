// Package watch turns file-system change notifications for a workspace root
// into coalesced refresh callbacks.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Kind classifies a change notification.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Removed Kind = "removed"
	Renamed Kind = "renamed"
)

// Event is a single change under the watched root. Path is slash-separated
// and relative to the root.
type Event struct {
	Kind Kind
	Path string
}

// Source delivers change events for a root. The returned channel is closed
// once ctx is cancelled and the source has released its resources.
type Source interface {
	Subscribe(ctx context.Context, root string) (<-chan Event, error)
}

// FSNotify is a Source backed by fsnotify. Subdirectories are watched
// recursively, including ones created after Subscribe.
type FSNotify struct {
	logger *slog.Logger
}

// NewFSNotify returns an fsnotify-backed Source.
func NewFSNotify(logger *slog.Logger) *FSNotify {
	return &FSNotify{logger: logger}
}

// Subscribe starts watching root. Setup errors (missing root, watcher limit)
// are returned synchronously.
func (s *FSNotify) Subscribe(ctx context.Context, root string) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addDirsRecursive(w, root); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		defer w.Close()
		s.logger.Info("watcher: started", slog.String("root", root))

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("watcher: stopped", slog.String("root", root))
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				kind, ok := classify(ev.Op)
				if !ok {
					continue
				}

				// New directories must be added explicitly; fsnotify is not recursive.
				if kind == Created {
					if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
						if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
							s.logger.Warn("watcher: add new dir failed",
								slog.String("path", ev.Name),
								slog.String("error", addErr.Error()))
						} else {
							s.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
						}
					}
				}

				rel, relErr := filepath.Rel(root, ev.Name)
				if relErr != nil {
					continue
				}
				select {
				case out <- Event{Kind: kind, Path: filepath.ToSlash(rel)}:
				case <-ctx.Done():
					return
				}

			case watchErr, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
			}
		}
	}()
	return out, nil
}

func classify(op fsnotify.Op) (Kind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return Created, true
	case op&fsnotify.Write != 0:
		return Updated, true
	case op&fsnotify.Remove != 0:
		return Removed, true
	case op&fsnotify.Rename != 0:
		return Renamed, true
	}
	return "", false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
