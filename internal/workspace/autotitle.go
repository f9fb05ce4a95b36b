package workspace

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/parser"
)

const draftExt = ".txt"

// scheduleAutoTitle derives a file name from content and arms the rename
// timer. The path is captured now so a later note switch cannot redirect the
// rename. Every change drops the previously armed rename, so only the title
// of the latest content can win.
func (s *Store) scheduleAutoTitle(note models.Note, content string) {
	ext := path.Ext(note.Name)
	if !s.titleEligible(ext) {
		return
	}
	s.renameT.Cancel()

	title := parser.FileTitle(content, strings.EqualFold(ext, ".md"), s.titleMax)
	if title == "" {
		return
	}
	newName := title + ext
	if newName == note.Name || IsSystemName(newName) {
		return
	}

	oldPath := note.Path
	s.renameT.Schedule(func() {
		if _, err := s.RenameItem(context.Background(), oldPath, newName); err != nil {
			s.logger.Warn("store: auto-title rename failed",
				slog.String("path", oldPath),
				slog.String("title", newName),
				slog.String("error", err.Error()))
		}
	})
}

// RenamePending reports whether an auto-title rename is armed.
func (s *Store) RenamePending() bool { return s.renameT.Pending() }

func (s *Store) titleEligible(ext string) bool {
	for _, e := range s.titleExts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// draftName names an auto-created draft after its first line when that is
// short enough, otherwise after the creation time.
func draftName(content string, maxLen int, now time.Time) string {
	first := parser.SanitizeFilename(parser.FirstLine(content))
	if first != "" && utf8.RuneCountInString(first) < maxLen && !IsSystemName(first) {
		return first + draftExt
	}
	return untitledName(now)
}

func untitledName(now time.Time) string {
	return "Untitled-" + strconv.FormatInt(now.UnixMilli(), 10) + draftExt
}
