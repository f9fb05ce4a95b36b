package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/storage"
)

// Sync walks the workspace and brings the index up to date:
//   - files with an unchanged mtime are skipped without reading
//   - files whose mtime moved but whose digest matches only get the new mtime
//   - new or modified files are read and upserted
//   - files removed from disk are deleted from the index
//
// Folders and dot-named entries are skipped. Files whose content is not
// valid UTF-8 are indexed by name only.
func Sync(db NoteIndex, store storage.Provider, logger *slog.Logger) error {
	tree, err := store.List("")
	if err != nil {
		return err
	}

	stamps, err := db.AllStamps()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{})
	for _, e := range files(tree) {
		disk[e.Path] = struct{}{}

		st, known := stamps[e.Path]
		if known && st.ModTime.Equal(e.LastModified) {
			continue
		}

		data, err := store.Read(e.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}
		cs := digest(data)
		if known && st.Checksum == cs {
			if err := db.TouchNote(e.Path, e.LastModified); err != nil {
				logger.Warn("sync: touch failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			}
			continue
		}
		body := string(data)
		if !utf8.Valid(data) {
			body = ""
		}
		if err := db.UpsertNote(NoteRow{
			Path:     e.Path,
			Name:     e.Name,
			Body:     body,
			Checksum: cs,
			ModTime:  e.LastModified,
		}); err != nil {
			logger.Warn("sync: index failed", slog.String("path", e.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", e.Path))
		}
	}

	// Remove stale entries.
	for p := range stamps {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// files flattens a tree to its indexable leaves.
func files(tree []models.Entry) []models.Entry {
	var out []models.Entry
	for _, e := range tree {
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		if e.IsFolder {
			out = append(out, files(e.Children)...)
			continue
		}
		out = append(out, e)
	}
	return out
}

// digest is the hex SHA-256 of data.
func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
