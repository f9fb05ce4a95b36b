package workspace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/overlay"
)

// IsSystemName reports whether a file name is a workspace artifact that never
// appears in the note list.
func IsSystemName(name string) bool {
	return name == overlay.PinnedFile || strings.HasPrefix(name, ".")
}

// flatten collapses the entry tree into its visible leaves. System-named and
// hidden entries are dropped together with anything below them.
func flatten(tree []models.Entry, hidden overlay.Set) []models.Note {
	var out []models.Note
	for _, e := range tree {
		if IsSystemName(e.Name) || hidden.Has(e.Path) {
			continue
		}
		if e.IsFolder {
			out = append(out, flatten(e.Children, hidden)...)
			continue
		}
		out = append(out, e.Note())
	}
	return out
}

// markNew flags notes absent from known and returns the new known set. A nil
// known set means no listing has succeeded yet, so nothing is flagged.
func markNew(notes []models.Note, known map[string]struct{}) map[string]struct{} {
	next := make(map[string]struct{}, len(notes))
	for i := range notes {
		if known != nil {
			_, seen := known[notes[i].Path]
			notes[i].IsNew = !seen
		}
		next[notes[i].Path] = struct{}{}
	}
	return next
}

// sortNotes orders notes pinned first, then by key within each partition.
// The direction only flips the key comparison, never the pin partition.
func sortNotes(notes []models.Note, pinned overlay.Set, key models.SortKey, dir models.SortDirection) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if pa, pb := pinned.Has(a.Path), pinned.Has(b.Path); pa != pb {
			return pa
		}
		var c int
		switch key {
		case models.SortByName:
			c = strings.Compare(a.Name, b.Name)
		default:
			c = a.LastModified.Compare(b.LastModified)
		}
		if dir == models.SortDesc {
			c = -c
		}
		return c < 0
	})
}

// ParseSort validates a sort key and direction.
func ParseSort(key, dir string) (models.SortKey, models.SortDirection, error) {
	k := models.SortKey(key)
	switch k {
	case models.SortByName, models.SortByDate, models.SortByModified:
	default:
		return "", "", fmt.Errorf("workspace: sort key %q: %w", key, apperr.ErrInvalid)
	}
	d := models.SortDirection(dir)
	switch d {
	case models.SortAsc, models.SortDesc:
	default:
		return "", "", fmt.Errorf("workspace: sort direction %q: %w", dir, apperr.ErrInvalid)
	}
	return k, d, nil
}
