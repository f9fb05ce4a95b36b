package index

import (
	"context"
	"time"

	"github.com/starford/notex/internal/models"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type NoteIndex interface {
	UpsertNote(n NoteRow) error
	DeleteNote(path string) error
	TouchNote(path string, mtime time.Time) error
	AllStamps() (map[string]Stamp, error)
	Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
