// Package models defines the domain types for notex.
package models

import "time"

// Note is a leaf entry of the workspace as shown in the note list.
type Note struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
	IsFolder     bool      `json:"is_folder"`
	// IsNew is recomputed on every refresh and never persisted.
	IsNew bool `json:"is_new,omitempty"`
}

// Entry is a node of the tree returned by the file store.
type Entry struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	IsFolder     bool      `json:"is_folder"`
	LastModified time.Time `json:"last_modified"`
	Children     []Entry   `json:"children,omitempty"`
}

// Note converts the entry to a list item.
func (e Entry) Note() Note {
	return Note{
		Path:         e.Path,
		Name:         e.Name,
		LastModified: e.LastModified,
		IsFolder:     e.IsFolder,
	}
}

// MatchType tells whether a search hit came from the file name or its content.
type MatchType string

const (
	MatchFilename MatchType = "filename"
	MatchContent  MatchType = "content"
)

// SearchHit is one ranked search result.
type SearchHit struct {
	File      Note      `json:"file"`
	Snippet   string    `json:"snippet"`
	MatchType MatchType `json:"match_type"`
	Score     int       `json:"score"`
}

// SortKey selects the ordering of the note list within each pin partition.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByDate     SortKey = "date"
	SortByModified SortKey = "modified"
)

// SortDirection is the direction applied after comparing by SortKey.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)
