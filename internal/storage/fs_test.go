package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notex/internal/apperr"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte("Hello\nWorld\n")
	if err := s.Write("note.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempWorkspace(t)
	_, err := s.Read("nope.txt")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateIsExclusive(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Create("sub/new.txt", []byte("first")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("sub/new.txt", []byte("second"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	got, _ := s.Read("sub/new.txt")
	if string(got) != "first" {
		t.Errorf("existing file overwritten: %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("a/b/c.txt", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("del.txt", []byte("bye"))
	if err := s.Delete("del.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.txt"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("dir/a.txt", []byte("a"))
	_ = s.Write("dir/sub/b.txt", []byte("b"))
	if err := s.Delete("dir"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "dir")); !os.IsNotExist(err) {
		t.Errorf("directory still present: %v", err)
	}
}

func TestDeleteRootRefused(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Delete(""); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestMove(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("old.txt", []byte("data"))
	if err := s.Move("old.txt", "sub/new.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.txt")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.txt"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestMoveDestinationExists(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("a.txt", []byte("a"))
	_ = s.Write("b.txt", []byte("b"))
	err := s.Move("a.txt", "b.txt")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("b.txt")
	if string(got) != "b" {
		t.Errorf("destination overwritten: %q", got)
	}
}

func TestMoveMissingSource(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Move("ghost.txt", "x.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListTree(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("a.txt", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write(".hidden.json", []byte("[]"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3 (%+v)", len(items), items)
	}
	found := false
	for _, it := range items {
		if it.Name != "sub" {
			continue
		}
		found = true
		if !it.IsFolder {
			t.Error("sub should be a folder")
		}
		if len(it.Children) != 1 || it.Children[0].Path != "sub/b.md" {
			t.Errorf("children = %+v, want [sub/b.md]", it.Children)
		}
	}
	if !found {
		t.Errorf("sub folder missing: %+v", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWorkspace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.txt",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("atomic.txt", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.txt", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.txt")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".notex-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "notex-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestEnsureFSCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "NoteX")
	s, err := EnsureFS(root)
	if err != nil {
		t.Fatalf("EnsureFS: %v", err)
	}
	if info, err := os.Stat(s.Root()); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestJoinAndParent(t *testing.T) {
	if got := Join("", "a.txt"); got != "a.txt" {
		t.Errorf("Join = %q", got)
	}
	if got := Join("dir", "a.txt"); got != "dir/a.txt" {
		t.Errorf("Join = %q", got)
	}
	if got := Parent("a.txt"); got != "" {
		t.Errorf("Parent = %q", got)
	}
	if got := Parent("dir/sub/a.txt"); got != "dir/sub" {
		t.Errorf("Parent = %q", got)
	}
}
