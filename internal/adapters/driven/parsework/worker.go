// Package parsework offloads snapshot parsing to a worker goroutine so a
// large revision's markup never blocks the caller's loop. The worker's
// role is a pure function (revision) → (comments, sections) invoked via
// request/response message passing.
package parsework

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
	"github.com/jwbth/talkwatch/internal/logger"
)

// Ensure Worker implements the interface.
var _ driven.SnapshotParser = (*Worker)(nil)

// ParseFunc is the pure parse step the worker hosts.
type ParseFunc func(rev *domain.RawRevision) (*domain.Snapshot, error)

type request struct {
	id    string
	rev   *domain.RawRevision
	reply chan result
}

type result struct {
	snapshot *domain.Snapshot
	err      error
}

// Worker hosts a ParseFunc behind a request channel. Concurrent requests
// for the same revision id are de-duplicated: later callers subscribe to
// the outstanding computation instead of re-submitting it.
type Worker struct {
	fn       ParseFunc
	requests chan request

	mu      sync.Mutex
	pending map[int64][]chan result
	closed  bool
	done    chan struct{}
}

// New starts a worker around fn.
func New(fn ParseFunc) *Worker {
	w := &Worker{
		fn:       fn,
		requests: make(chan request),
		pending:  make(map[int64][]chan result),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// Parse produces the snapshot for a revision, offloaded to the worker.
func (w *Worker) Parse(ctx context.Context, rev *domain.RawRevision) (*domain.Snapshot, error) {
	if rev == nil {
		return nil, domain.ErrInvalidInput
	}

	reply := make(chan result, 1)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, domain.ErrInvalidInput
	}
	waiters, outstanding := w.pending[rev.ID]
	w.pending[rev.ID] = append(waiters, reply)
	w.mu.Unlock()

	if !outstanding {
		req := request{id: uuid.New().String(), rev: rev, reply: reply}
		logger.Debug("parse request %s for revision %d", req.id, rev.ID)
		select {
		case w.requests <- req:
		case <-ctx.Done():
			w.abandon(rev.ID, reply)
			return nil, ctx.Err()
		case <-w.done:
			return nil, domain.ErrInvalidInput
		}
	}

	select {
	case res := <-reply:
		return res.snapshot, res.err
	case <-ctx.Done():
		w.abandon(rev.ID, reply)
		return nil, ctx.Err()
	}
}

// Close stops the worker. Outstanding requests are abandoned.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	close(w.done)
	return nil
}

// loop is the worker goroutine: one parse at a time, results fanned out to
// every subscriber of that revision id.
func (w *Worker) loop() {
	for {
		select {
		case <-w.done:
			return
		case req := <-w.requests:
			snapshot, err := w.fn(req.rev)
			w.mu.Lock()
			waiters := w.pending[req.rev.ID]
			delete(w.pending, req.rev.ID)
			w.mu.Unlock()
			for _, ch := range waiters {
				ch <- result{snapshot: snapshot, err: err}
			}
		}
	}
}

// abandon drops one waiter for a revision without disturbing the rest.
func (w *Worker) abandon(revisionID int64, reply chan result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	waiters := w.pending[revisionID]
	for i, ch := range waiters {
		if ch == reply {
			w.pending[revisionID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(w.pending[revisionID]) == 0 {
		delete(w.pending, revisionID)
	}
}
