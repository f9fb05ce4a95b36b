// Package search debounces interactive queries into a single outstanding
// request and drops responses that a newer request has superseded.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/notex/internal/debounce"
	"github.com/starford/notex/internal/models"
)

// DefaultQuiet is the debounce window applied when none is configured.
const DefaultQuiet = 200 * time.Millisecond

// FailedMessage is the user-visible error shown when a search call fails.
const FailedMessage = "Search failed. Please try again."

// Func performs one search.
type Func func(ctx context.Context, query string) ([]models.SearchHit, error)

// State is a snapshot of the debouncer's visible state.
type State struct {
	Query     string             `json:"query"`
	Results   []models.SearchHit `json:"results"`
	Searching bool               `json:"searching"`
	Err       string             `json:"error,omitempty"`
}

// Debouncer issues at most one search per settled query.
type Debouncer struct {
	search   Func
	timer    *debounce.Timer
	logger   *slog.Logger
	onChange func(State)

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	requestID uint64
}

// New creates a Debouncer. onChange, if non-nil, receives a snapshot after
// every visible state change.
func New(search Func, quiet time.Duration, logger *slog.Logger, onChange func(State)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		search:   search,
		timer:    debounce.New(quiet),
		logger:   logger,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Update records the latest query. A blank query clears the results at once
// and supersedes any in-flight call; anything else (re)arms the debounce timer.
func (d *Debouncer) Update(query string) {
	d.mu.Lock()
	d.state.Query = query
	if strings.TrimSpace(query) == "" {
		d.timer.Cancel()
		d.requestID++
		d.state.Results = nil
		d.state.Searching = false
		d.state.Err = ""
		snap := d.snapshotLocked()
		d.mu.Unlock()
		d.notify(snap)
		return
	}
	d.mu.Unlock()

	d.timer.Schedule(func() { d.issue(query) })
}

// Flush issues the pending query immediately instead of waiting for the
// quiet period. It is a no-op when nothing is pending.
func (d *Debouncer) Flush() {
	if !d.timer.Cancel() {
		return
	}
	d.mu.Lock()
	q := d.state.Query
	d.mu.Unlock()
	d.issue(q)
}

// State returns a snapshot of the current state.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Close drops any pending query and cancels the in-flight call's context.
func (d *Debouncer) Close() {
	d.timer.Cancel()
	d.cancel()
}

func (d *Debouncer) issue(query string) {
	d.mu.Lock()
	d.requestID++
	id := d.requestID
	d.state.Searching = true
	snap := d.snapshotLocked()
	d.mu.Unlock()
	d.notify(snap)

	hits, err := d.search(d.ctx, query)

	d.mu.Lock()
	if id != d.requestID {
		d.mu.Unlock()
		d.logger.Debug("search: stale response dropped",
			slog.String("query", query),
			slog.Uint64("request_id", id))
		return
	}
	d.state.Searching = false
	if err != nil {
		d.logger.Warn("search: query failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		d.state.Results = nil
		d.state.Err = FailedMessage
	} else {
		d.state.Results = hits
		d.state.Err = ""
	}
	snap = d.snapshotLocked()
	d.mu.Unlock()
	d.notify(snap)
}

func (d *Debouncer) snapshotLocked() State {
	s := d.state
	if s.Results != nil {
		s.Results = append([]models.SearchHit(nil), s.Results...)
	}
	return s
}

func (d *Debouncer) notify(s State) {
	if d.onChange != nil {
		d.onChange(s)
	}
}
