package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/notex/internal/testutil"
)

// chanSource is a Source driven by the test.
type chanSource struct {
	mu   sync.Mutex
	subs map[string]chan Event
	err  error
}

func newChanSource() *chanSource {
	return &chanSource{subs: make(map[string]chan Event)}
}

func (s *chanSource) Subscribe(ctx context.Context, root string) (<-chan Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan Event)
	s.mu.Lock()
	s.subs[root] = ch
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, root)
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *chanSource) emit(root string, ev Event) bool {
	s.mu.Lock()
	ch, ok := s.subs[root]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- ev:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func (s *chanSource) active(root string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[root]
	return ok
}

func TestBridge_CoalescesBurst(t *testing.T) {
	src := newChanSource()
	var calls atomic.Int32
	b := NewBridge(src, 100*time.Millisecond, func(context.Context) { calls.Add(1) }, testutil.Logger())

	if err := b.Start(context.Background(), "/ws"); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	for i := 0; i < 10; i++ {
		if !src.emit("/ws", Event{Kind: Updated, Path: "a.txt"}) {
			t.Fatal("emit failed")
		}
	}

	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return calls.Load() == 1
	}, "expected one settle callback")

	time.Sleep(250 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("settle calls = %d, want 1", n)
	}
}

func TestBridge_StopCancelsPending(t *testing.T) {
	src := newChanSource()
	var calls atomic.Int32
	b := NewBridge(src, 150*time.Millisecond, func(context.Context) { calls.Add(1) }, testutil.Logger())

	if err := b.Start(context.Background(), "/ws"); err != nil {
		t.Fatal(err)
	}
	src.emit("/ws", Event{Kind: Created, Path: "a.txt"})
	testutil.Eventually(t, time.Second, 5*time.Millisecond, b.Pending, "callback never armed")

	b.Stop()
	if b.Pending() {
		t.Error("pending callback survived Stop")
	}
	if b.Root() != "" {
		t.Errorf("Root() = %q after Stop", b.Root())
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("settle calls = %d after Stop, want 0", n)
	}
	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return !src.active("/ws")
	}, "subscription not released")
}

func TestBridge_RootChangeResubscribes(t *testing.T) {
	src := newChanSource()
	var calls atomic.Int32
	b := NewBridge(src, 50*time.Millisecond, func(context.Context) { calls.Add(1) }, testutil.Logger())

	if err := b.Start(context.Background(), "/one"); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(context.Background(), "/two"); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return !src.active("/one")
	}, "old root still subscribed")
	if b.Root() != "/two" {
		t.Errorf("Root() = %q, want /two", b.Root())
	}

	src.emit("/two", Event{Kind: Removed, Path: "x.txt"})
	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return calls.Load() == 1
	}, "new root events not delivered")
}

func TestBridge_SubscribeError(t *testing.T) {
	src := newChanSource()
	src.err = errors.New("boom")
	b := NewBridge(src, 0, func(context.Context) {}, testutil.Logger())

	if err := b.Start(context.Background(), "/ws"); err == nil {
		t.Fatal("expected error")
	}
	if b.Root() != "" {
		t.Error("failed Start should leave the bridge idle")
	}
	b.Stop()
}

func TestFSNotify_ReportsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := NewFSNotify(testutil.Logger()).Subscribe(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	seen := map[string]Kind{}
	go func() {
		for ev := range events {
			mu.Lock()
			seen[ev.Path] = ev.Kind
			mu.Unlock()
		}
	}()

	_ = os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hi"), 0o644)
	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		_, ok := seen["new.txt"]
		return ok
	}, "no event for new.txt")

	// Directories created after Subscribe are watched too.
	sub := filepath.Join(dir, "sub")
	_ = os.MkdirAll(sub, 0o755)
	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["sub"] == Created
	}, "no event for new dir")

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.txt"), []byte("deep"), 0o644)
	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		_, ok := seen["sub/deep.txt"]
		return ok
	}, "no event for file in new dir")
}

func TestFSNotify_MissingRoot(t *testing.T) {
	_, err := NewFSNotify(testutil.Logger()).Subscribe(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestFSNotify_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := NewFSNotify(testutil.Logger()).Subscribe(ctx, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

// slowSource takes a while to subscribe and counts subscriptions whose
// context has not ended yet.
type slowSource struct {
	live atomic.Int32
}

func (s *slowSource) Subscribe(ctx context.Context, _ string) (<-chan Event, error) {
	time.Sleep(20 * time.Millisecond)
	s.live.Add(1)
	go func() {
		<-ctx.Done()
		s.live.Add(-1)
	}()
	return make(chan Event), nil
}

func TestBridge_OverlappingStartsThenStop(t *testing.T) {
	src := &slowSource{}
	b := NewBridge(src, 50*time.Millisecond, func(context.Context) {}, testutil.Logger())

	var wg sync.WaitGroup
	for _, root := range []string{"/a", "/b", "/c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Start(context.Background(), root); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return src.live.Load() == 1
	}, "overlapping starts should leave exactly one subscription")
	b.Stop()
	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return src.live.Load() == 0
	}, "subscription outlived Stop")
	if b.Root() != "" {
		t.Errorf("root = %q after Stop", b.Root())
	}
}
