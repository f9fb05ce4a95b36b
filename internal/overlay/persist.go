package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/storage"
)

const (
	// HiddenFile lives at the workspace root and holds a JSON array of paths.
	HiddenFile = ".hidden.json"
	// PinnedFile lives in the app-data directory as {"pinned": [...]} with
	// absolute paths, so one file serves every workspace on the device.
	PinnedFile = "pinned.json"
)

type pinnedDoc struct {
	Pinned []string `json:"pinned"`
}

// LoadHidden reads the hidden set of a workspace. A missing or unreadable
// manifest yields an empty set.
func LoadHidden(store storage.Provider, logger *slog.Logger) Set {
	data, err := store.Read(HiddenFile)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("overlay: read hidden failed", slog.String("error", err.Error()))
		}
		return NewSet()
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		logger.Warn("overlay: decode hidden failed", slog.String("error", err.Error()))
		return NewSet()
	}
	return NewSet(paths...)
}

// SaveHidden writes the hidden set to the workspace root.
func SaveHidden(store storage.Provider, s Set) error {
	data, err := json.MarshalIndent(nonNil(s.Paths()), "", "  ")
	if err != nil {
		return fmt.Errorf("overlay: encode hidden: %w", err)
	}
	if err := store.Write(HiddenFile, data); err != nil {
		return fmt.Errorf("overlay: save hidden: %w", err)
	}
	return nil
}

// LoadPinned reads the pins of the workspace at root from the app-data
// directory. The file holds absolute paths for every workspace on the device;
// only those under root are returned, relative to it. A missing or unreadable
// file yields an empty set.
func LoadPinned(store storage.Provider, root string, logger *slog.Logger) Set {
	doc, err := readPinned(store)
	if err != nil {
		logger.Warn("overlay: read pinned failed", slog.String("error", err.Error()))
		return NewSet()
	}
	var rel []string
	for _, abs := range doc.Pinned {
		if p, ok := underRoot(root, abs); ok {
			rel = append(rel, p)
		}
	}
	return NewSet(rel...)
}

// SavePinned replaces the pins of the workspace at root and keeps the pins
// recorded for other workspaces.
func SavePinned(store storage.Provider, root string, s Set) error {
	doc, err := readPinned(store)
	if err != nil {
		return fmt.Errorf("overlay: load pinned: %w", err)
	}
	kept := make([]string, 0, len(doc.Pinned)+s.Len())
	for _, abs := range doc.Pinned {
		if _, ok := underRoot(root, abs); !ok {
			kept = append(kept, abs)
		}
	}
	for _, p := range s.Paths() {
		kept = append(kept, filepath.Join(root, filepath.FromSlash(p)))
	}
	sort.Strings(kept)

	data, err := json.MarshalIndent(pinnedDoc{Pinned: kept}, "", "  ")
	if err != nil {
		return fmt.Errorf("overlay: encode pinned: %w", err)
	}
	if err := store.Write(PinnedFile, data); err != nil {
		return fmt.Errorf("overlay: save pinned: %w", err)
	}
	return nil
}

// readPinned treats a missing file as empty. A corrupt file is reported so
// SavePinned does not silently drop other workspaces' pins.
func readPinned(store storage.Provider) (pinnedDoc, error) {
	var doc pinnedDoc
	data, err := store.Read(PinnedFile)
	if errors.Is(err, apperr.ErrNotFound) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return pinnedDoc{}, fmt.Errorf("decode %s: %w", PinnedFile, err)
	}
	return doc, nil
}

// underRoot converts an absolute pin to a workspace-relative path when it
// lies inside root.
func underRoot(root, abs string) (string, bool) {
	if root == "" || !filepath.IsAbs(abs) {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
