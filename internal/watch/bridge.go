package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/notex/internal/debounce"
)

// DefaultQuiet is the coalescing window applied when none is configured.
const DefaultQuiet = 500 * time.Millisecond

// Bridge subscribes to a Source for one root at a time and collapses each
// burst of events into a single onSettle call after a quiet window.
type Bridge struct {
	src      Source
	logger   *slog.Logger
	timer    *debounce.Timer
	onSettle func(ctx context.Context)

	// lifecycle is held across a whole Start or Stop so that overlapping
	// calls cannot leave an orphaned subscription behind.
	lifecycle sync.Mutex

	mu     sync.Mutex
	root   string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBridge creates a Bridge. A non-positive quiet falls back to DefaultQuiet.
func NewBridge(src Source, quiet time.Duration, onSettle func(ctx context.Context), logger *slog.Logger) *Bridge {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Bridge{
		src:      src,
		logger:   logger,
		timer:    debounce.New(quiet),
		onSettle: onSettle,
	}
}

// Start subscribes to root, replacing any previous subscription. The
// subscription ends when ctx is cancelled or Stop is called.
func (b *Bridge) Start(ctx context.Context, root string) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	b.stop()

	wctx, cancel := context.WithCancel(ctx)
	events, err := b.src.Subscribe(wctx, root)
	if err != nil {
		cancel()
		return fmt.Errorf("watch: subscribe %s: %w", root, err)
	}

	done := make(chan struct{})
	b.mu.Lock()
	b.root = root
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	go b.run(wctx, events, done)
	return nil
}

// Stop unsubscribes and drops any pending callback. It blocks until the
// event loop has exited. Calling Stop on an idle Bridge is a no-op.
func (b *Bridge) Stop() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	b.stop()
}

func (b *Bridge) stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.root, b.cancel, b.done = "", nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	b.timer.Cancel()
}

// Root returns the currently watched root, or "" when idle.
func (b *Bridge) Root() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.root
}

// Pending reports whether a coalesced callback is armed.
func (b *Bridge) Pending() bool { return b.timer.Pending() }

func (b *Bridge) run(ctx context.Context, events <-chan Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.logger.Debug("watch: event",
				slog.String("kind", string(ev.Kind)),
				slog.String("path", ev.Path))
			b.timer.Schedule(func() {
				if ctx.Err() != nil {
					return
				}
				b.onSettle(ctx)
			})
		}
	}
}
