package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gzhole/personaguard/internal/learning"
)

const (
	defaultSaveInterval = time.Second
	defaultSaveTimeout  = 5 * time.Second
)

// Persister writes snapshots in the background so callers never wait on
// storage. Only the latest submitted snapshot is kept; writes are paced
// by a rate limiter.
type Persister struct {
	store   Store
	logger  *zap.Logger
	limiter *rate.Limiter
	timeout time.Duration

	mu      sync.Mutex
	pending *learning.Snapshot
	lastErr error

	// writeMu serializes Save calls from the loop and from Flush.
	writeMu sync.Mutex

	wake      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	stopped   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type PersisterOption func(*Persister)

func WithPersisterLogger(l *zap.Logger) PersisterOption {
	return func(p *Persister) { p.logger = l }
}

// WithRateLimit sets how often background writes may happen.
func WithRateLimit(limit rate.Limit, burst int) PersisterOption {
	return func(p *Persister) { p.limiter = rate.NewLimiter(limit, burst) }
}

// WithSaveTimeout bounds a single Save call.
func WithSaveTimeout(d time.Duration) PersisterOption {
	return func(p *Persister) { p.timeout = d }
}

// NewPersister starts the background writer. Call Close to stop it.
func NewPersister(s Store, opts ...PersisterOption) *Persister {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Persister{
		store:   s,
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Every(defaultSaveInterval), 1),
		timeout: defaultSaveTimeout,
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Submit queues s for writing, replacing any snapshot not yet written.
// It never blocks.
func (p *Persister) Submit(s *learning.Snapshot) {
	p.mu.Lock()
	p.pending = s
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Flush writes the pending snapshot now, ignoring the rate limit, and
// returns the write error. It is a no-op when nothing is pending.
func (p *Persister) Flush(ctx context.Context) error {
	return p.writePending(ctx)
}

// LastError returns the error of the most recent write, or nil.
func (p *Persister) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Close stops the background writer and flushes what is pending. The
// store itself is left open.
func (p *Persister) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.stopped

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		p.closeErr = p.writePending(ctx)
	})
	return p.closeErr
}

func (p *Persister) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.wake:
		}

		if err := p.limiter.Wait(p.ctx); err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		_ = p.writePending(ctx)
		cancel()
	}
}

func (p *Persister) writePending(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	snap := p.pending
	p.pending = nil
	p.mu.Unlock()

	if snap == nil {
		return nil
	}

	err := p.store.Save(ctx, snap)

	p.mu.Lock()
	p.lastErr = err
	if err != nil && p.pending == nil {
		// Keep the failed snapshot for the next attempt unless a newer one arrived.
		p.pending = snap
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("snapshot write failed", zap.Error(err))
		return err
	}
	p.logger.Debug("snapshot written",
		zap.Int("successes", len(snap.LearningData.Successes)),
		zap.Int("failures", len(snap.LearningData.Failures)),
	)
	return nil
}
