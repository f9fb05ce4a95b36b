// Package storage defines the workspace file-system abstraction.
package storage

import "github.com/starford/notex/internal/models"

// Provider is the interface for workspace file operations.
// All paths are slash-separated and relative to Root().
type Provider interface {
	// Root returns the absolute directory the provider is confined to.
	Root() string
	// List returns the entry tree under dir ("" for the root).
	List(dir string) ([]models.Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Create writes a new file. It fails if path already exists.
	Create(path string, content []byte) error
	// Delete removes the file or directory at path.
	Delete(path string) error
	// Move renames oldPath to newPath. It fails if newPath exists or oldPath is missing.
	Move(oldPath, newPath string) error
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
}

// Opener opens a provider rooted at an absolute directory.
type Opener func(root string) (Provider, error)

// OpenFS is an Opener that creates root when missing and returns an FS provider.
func OpenFS(root string) (Provider, error) {
	return EnsureFS(root)
}
