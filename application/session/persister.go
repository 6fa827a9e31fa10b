package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storycanvas/application/ports"
)

const persistTimeout = 10 * time.Second

// debouncedPersister batches snapshot writes. Every schedule call resets
// the timer, so a burst of edits produces one write after the burst goes
// quiet. A failed write re-arms the timer with the same snapshot so the
// state is retried instead of dropped.
type debouncedPersister struct {
	repo   ports.CanvasRepository
	logger *zap.Logger
	delay  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func() *ports.GraphSnapshot
	closed  bool
}

func newDebouncedPersister(repo ports.CanvasRepository, delay time.Duration, logger *zap.Logger) *debouncedPersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &debouncedPersister{repo: repo, delay: delay, logger: logger}
}

// schedule records the latest snapshot source and (re)arms the timer.
// Only the snapshot captured at fire time is written; intermediate states
// superseded within the window are never persisted.
func (p *debouncedPersister) schedule(snapshot func() *ports.GraphSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = snapshot
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, p.fire)
}

func (p *debouncedPersister) fire() {
	p.mu.Lock()
	snapshot := p.pending
	p.pending = nil
	closed := p.closed
	p.mu.Unlock()
	if snapshot == nil || closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	snap := snapshot()
	if err := p.repo.Save(ctx, snap); err != nil {
		p.logger.Warn("debounced persist failed, re-arming",
			zap.String("story_id", snap.StoryID),
			zap.String("canvas_id", snap.CanvasID.String()),
			zap.Error(err),
		)
		p.schedule(snapshot)
		return
	}
	p.logger.Debug("canvas persisted",
		zap.String("story_id", snap.StoryID),
		zap.String("canvas_id", snap.CanvasID.String()),
	)
}

// flush writes any pending snapshot immediately
func (p *debouncedPersister) flush(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	snapshot := p.pending
	p.pending = nil
	p.mu.Unlock()
	if snapshot == nil {
		return nil
	}
	return p.repo.Save(ctx, snapshot())
}

// close flushes and stops accepting further schedules
func (p *debouncedPersister) close(ctx context.Context) error {
	err := p.flush(ctx)
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return err
}
