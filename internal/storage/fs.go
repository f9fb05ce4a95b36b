package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to workspace directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", classify(err))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// EnsureFS creates root (and parents) if needed and returns a provider for it.
func EnsureFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", classify(err))
	}
	return NewFS(root)
}

// Root returns the absolute workspace directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the workspace root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalid)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes workspace root: %s: %w", rel, apperr.ErrInvalid)
	}
	return abs, nil
}

// List returns the entry tree under dir. Children are ordered by name.
func (f *FS) List(dir string) ([]models.Entry, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	out, err := f.readTree(base)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", classify(err))
	}
	return out, nil
}

func (f *FS) readTree(dir string) ([]models.Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between ReadDir and Info.
				continue
			}
			return nil, err
		}
		abs := filepath.Join(dir, d.Name())
		rel, _ := filepath.Rel(f.root, abs)
		e := models.Entry{
			Path:         filepath.ToSlash(rel),
			Name:         d.Name(),
			IsFolder:     d.IsDir(),
			LastModified: info.ModTime(),
		}
		if d.IsDir() {
			children, err := f.readTree(abs)
			if err != nil {
				return nil, err
			}
			e.Children = children
		}
		out = append(out, e)
	}
	return out, nil
}

// Read returns the raw bytes of a workspace file.
func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, classify(err))
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(p string, content []byte) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", classify(err))
	}

	tmp, err := os.CreateTemp(dir, ".notex-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", classify(err))
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", classify(err))
	}
	success = true
	return nil
}

// Create writes content to a new file and fails with apperr.ErrAlreadyExists
// if p is taken.
func (f *FS) Create(p string, content []byte) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", classify(err))
	}
	file, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", p, classify(err))
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return fmt.Errorf("storage: create %s: %w", p, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("storage: create %s: %w", p, err)
	}
	return nil
}

// Delete removes a file, or a directory with everything below it.
func (f *FS) Delete(p string) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to delete workspace root: %w", apperr.ErrInvalid)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, classify(err))
	}
	if info.IsDir() {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, classify(err))
	}
	return nil
}

// Move renames a file within the workspace. The destination must not exist.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	oldInfo, err := os.Stat(absOld)
	if err != nil {
		return fmt.Errorf("storage: move %s: %w", oldPath, classify(err))
	}
	// Case-only renames on case-insensitive file systems resolve to the same file.
	if newInfo, err := os.Stat(absNew); err == nil && !os.SameFile(oldInfo, newInfo) {
		return fmt.Errorf("storage: move to %s: %w", newPath, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", classify(err))
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", classify(err))
	}
	return nil
}

// MkdirAll creates a directory inside the workspace.
func (f *FS) MkdirAll(dir string) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dir, classify(err))
	}
	return nil
}

// Join builds a workspace path from slash-separated elements.
func Join(elem ...string) string {
	return strings.TrimPrefix(path.Join(elem...), "/")
}

// Parent returns the slash-separated parent of p ("" at the root).
func Parent(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// classify maps OS errors onto application sentinels, keeping the original
// error in the chain.
func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", apperr.ErrPermission, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %w", apperr.ErrAlreadyExists, err)
	default:
		return err
	}
}
