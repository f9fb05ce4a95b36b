package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/starford/notex/internal/models"
)

// Scores assigned to search hits.
const (
	ScoreFilename = 10
	ScoreContent  = 5
)

const (
	snippetBefore = 20
	snippetAfter  = 40
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path     string
	Name     string
	Body     string
	Checksum string
	ModTime  time.Time
}

// Stamp is the change-detection state of an indexed note.
type Stamp struct {
	Checksum string
	ModTime  time.Time
}

// UpsertNote inserts or replaces a note.
func (db *DB) UpsertNote(n NoteRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (path, name, body, checksum, mtime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name     = excluded.name,
			body     = excluded.body,
			checksum = excluded.checksum,
			mtime    = excluded.mtime
	`, n.Path, n.Name, n.Body, n.Checksum, n.ModTime.UnixNano())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note from the index. Deleting a missing path is not an error.
func (db *DB) DeleteNote(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// TouchNote records a new mtime for a note whose content did not change.
func (db *DB) TouchNote(path string, mtime time.Time) error {
	if _, err := db.conn.Exec(`UPDATE notes SET mtime = ? WHERE path = ?`, mtime.UnixNano(), path); err != nil {
		return fmt.Errorf("index: touch note: %w", err)
	}
	return nil
}

// AllStamps returns the change-detection state of every indexed note.
func (db *DB) AllStamps() (map[string]Stamp, error) {
	rows, err := db.conn.Query(`SELECT path, checksum, mtime FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all stamps: %w", err)
	}
	defer rows.Close()
	out := make(map[string]Stamp)
	for rows.Next() {
		var (
			p, cs string
			mt    int64
		)
		if err := rows.Scan(&p, &cs, &mt); err != nil {
			return nil, err
		}
		out[p] = Stamp{Checksum: cs, ModTime: time.Unix(0, mt)}
	}
	return out, rows.Err()
}

// Search ranks notes whose name or content contains query, case-insensitively.
// Name hits score ScoreFilename, content-only hits ScoreContent, and a note
// matching both gets the sum. Results are ordered by score, then name.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	like := "%" + escapeLike(strings.ToLower(q)) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, name, body, mtime
		FROM notes
		WHERE lower(name) LIKE ? ESCAPE '\' OR lower(body) LIKE ? ESCAPE '\'
	`, like, like)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	needle := lowerRunes(q)
	var out []models.SearchHit
	for rows.Next() {
		var (
			r  NoteRow
			mt int64
		)
		if err := rows.Scan(&r.Path, &r.Name, &r.Body, &mt); err != nil {
			return nil, err
		}
		r.ModTime = time.Unix(0, mt)
		if hit, ok := score(r, needle); ok {
			out = append(out, hit)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].File.Name < out[j].File.Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// score re-checks a candidate row in Go, since SQLite's lower() only folds ASCII.
func score(r NoteRow, needle []rune) (models.SearchHit, bool) {
	hit := models.SearchHit{
		File: models.Note{Path: r.Path, Name: r.Name, LastModified: r.ModTime},
	}
	if indexFold([]rune(r.Name), needle) >= 0 {
		hit.MatchType = models.MatchFilename
		hit.Score = ScoreFilename
	}
	body := []rune(r.Body)
	if idx := indexFold(body, needle); idx >= 0 {
		if hit.MatchType == "" {
			hit.MatchType = models.MatchContent
		}
		hit.Score += ScoreContent
		hit.Snippet = snippet(body, idx, len(needle))
	}
	return hit, hit.MatchType != ""
}

// snippet cuts the text around a match and flattens newlines.
func snippet(body []rune, idx, n int) string {
	start := idx - snippetBefore
	if start < 0 {
		start = 0
	}
	end := idx + n + snippetAfter
	if end > len(body) {
		end = len(body)
	}
	s := strings.ReplaceAll(string(body[start:end]), "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	if start > 0 {
		s = "..." + s
	}
	if end < len(body) {
		s += "..."
	}
	return s
}

// indexFold returns the rune index of the lower-case needle in hay, comparing
// rune by rune after lower-casing hay.
func indexFold(hay, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if unicode.ToLower(hay[i+j]) != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

func lowerRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
