package workspace

import (
	"context"
	"errors"
	"sync"
)

var errLoopClosed = errors.New("workspace: store closed")

// loop is a single goroutine that owns the store's in-memory state. Every
// read or mutation of that state is a closure run on the loop, so closures
// never interleave. I/O happens outside and its results are applied here.
type loop struct {
	ops     chan func()
	stopCh  chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newLoop() *loop {
	l := &loop{
		ops:     make(chan func()),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.stopCh:
			return
		case op := <-l.ops:
			op()
		}
	}
}

// do runs fn on the loop and waits for it. fn must not block.
func (l *loop) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.ops <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return errLoopClosed
	}
	// Once received, the op always runs.
	<-done
	return nil
}

func (l *loop) close() {
	l.once.Do(func() { close(l.stopCh) })
	<-l.stopped
}

// query runs fn on the loop and returns its result.
func query[T any](ctx context.Context, l *loop, fn func() T) (T, error) {
	var out T
	err := l.do(ctx, func() { out = fn() })
	return out, err
}
