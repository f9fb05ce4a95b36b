package workspace

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/notex/internal/testutil"
)

func TestAutoTitle_LastChangeWins(t *testing.T) {
	e := newEnv(t, WithAutoTitle(300*time.Millisecond, []string{".txt"}, 50))
	e.write("draft.txt", "", 0)
	e.start()
	if _, err := e.store.OpenNote(e.ctx, "draft.txt"); err != nil {
		t.Fatal(err)
	}

	_ = e.store.UpdateContent(e.ctx, "First\nbody")
	if !e.store.RenamePending() {
		t.Fatal("rename not scheduled")
	}
	time.Sleep(100 * time.Millisecond)
	_ = e.store.UpdateContent(e.ctx, "Final title\nbody")

	// The first timer would have fired by now had it not been replaced.
	time.Sleep(250 * time.Millisecond)
	if e.exists("First.txt") {
		t.Fatal("superseded title was applied")
	}
	if !e.exists("draft.txt") {
		t.Fatal("renamed before the quiet period after the last change")
	}

	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.exists("Final title.txt")
	}, "rename to final title never happened")

	if e.exists("draft.txt") || e.exists("First.txt") {
		t.Error("expected exactly one rename")
	}
	if a := e.active(); a.Note.Path != "Final title.txt" || a.Content != "Final title\nbody" {
		t.Errorf("active = %+v", a)
	}
}

func TestAutoTitle_OpenNoteCancels(t *testing.T) {
	e := newEnv(t, WithAutoTitle(100*time.Millisecond, []string{".txt"}, 50))
	e.write("one.txt", "", 0)
	e.write("two.txt", "", 0)
	e.start()
	_, _ = e.store.OpenNote(e.ctx, "one.txt")

	_ = e.store.UpdateContent(e.ctx, "Renamed")
	if _, err := e.store.OpenNote(e.ctx, "two.txt"); err != nil {
		t.Fatal(err)
	}
	if e.store.RenamePending() {
		t.Error("OpenNote left the rename armed")
	}
	time.Sleep(250 * time.Millisecond)
	if e.exists("Renamed.txt") || !e.exists("one.txt") {
		t.Error("previous note was renamed after switching away")
	}
}

func TestAutoTitle_RacingOpenNoteNeverLeavesStaleRename(t *testing.T) {
	e := newEnv(t, WithAutoTitle(time.Minute, []string{".txt"}, 50))
	e.write("one.txt", "", 0)
	e.write("two.txt", "", 0)
	e.start()

	for i := 0; i < 100; i++ {
		if _, err := e.store.OpenNote(e.ctx, "one.txt"); err != nil {
			t.Fatal(err)
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = e.store.UpdateContent(e.ctx, "Renamed")
		}()
		go func() {
			defer wg.Done()
			_, _ = e.store.OpenNote(e.ctx, "two.txt")
		}()
		wg.Wait()

		// When the open landed last the edit belonged to one.txt and must
		// not survive it.
		if a := e.active(); a.Content == "" && e.store.RenamePending() {
			t.Fatalf("iteration %d: rename for one.txt still armed after opening two.txt", i)
		}
	}
}

func TestAutoTitle_SkipsInvalidTitles(t *testing.T) {
	e := newEnv(t, WithAutoTitle(30*time.Millisecond, []string{".txt"}, 10))
	e.write("n.txt", "", 0)
	e.write("n.md", "", 0)
	e.start()
	_, _ = e.store.OpenNote(e.ctx, "n.txt")

	for _, content := range []string{"", "  \nbody", "???", "much too long a title", "n"} {
		_ = e.store.UpdateContent(e.ctx, content)
		if e.store.RenamePending() {
			t.Errorf("content %q armed a rename", content)
		}
	}

	// Extensions not configured for titling are left alone.
	_, _ = e.store.OpenNote(e.ctx, "n.md")
	_ = e.store.UpdateContent(e.ctx, "Title")
	if e.store.RenamePending() {
		t.Error(".md note armed a rename")
	}
}

func TestAutoTitle_MarkdownFrontmatter(t *testing.T) {
	e := newEnv(t, WithAutoTitle(20*time.Millisecond, []string{".md"}, 50))
	e.write("n.md", "", 0)
	e.start()
	_, _ = e.store.OpenNote(e.ctx, "n.md")

	_ = e.store.UpdateContent(e.ctx, "---\ntitle: Meeting notes\n---\n# Something else\n")
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.exists("Meeting notes.md")
	}, "frontmatter title not used")
}

func TestAutoTitle_ConflictKeepsName(t *testing.T) {
	e := newEnv(t, WithAutoTitle(20*time.Millisecond, []string{".txt"}, 50))
	e.write("a.txt", "", 0)
	e.write("Taken.txt", "other", 0)
	e.start()
	_, _ = e.store.OpenNote(e.ctx, "a.txt")

	_ = e.store.UpdateContent(e.ctx, "Taken")
	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return !e.store.RenamePending()
	}, "rename never fired")
	time.Sleep(50 * time.Millisecond)

	if a := e.active(); a.Note.Path != "a.txt" || a.Content != "Taken" {
		t.Errorf("active = %+v, want unchanged path and kept content", a)
	}
	if !slices.Contains(e.paths(), "a.txt") {
		t.Error("original note vanished")
	}
}

func TestAutosaver_SavesDirtyNote(t *testing.T) {
	e := newEnv(t, WithSavingIndicator(time.Millisecond))
	e.write("a.txt", "v1", 0)
	e.start()
	_, _ = e.store.OpenNote(e.ctx, "a.txt")

	var enabled atomic.Bool
	a := NewAutosaver(e.store, func() (bool, time.Duration) {
		return enabled.Load(), 20 * time.Millisecond
	}, testutil.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	_ = e.store.UpdateContent(ctx, "v2")
	time.Sleep(80 * time.Millisecond)
	if got := e.read("a.txt"); got != "v1" {
		t.Fatalf("disabled autosave wrote %q", got)
	}

	enabled.Store(true)
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.read("a.txt") == "v2"
	}, "autosave never wrote the dirty note")
	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return !e.active().Dirty
	}, "note still dirty after autosave")
}
