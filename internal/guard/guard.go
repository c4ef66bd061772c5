// Package guard is the persona guard's entry point. A Guard owns the
// persona config, the outcome history and the learned state, and turns
// each (user message, model reply) exchange into a Decision.
//
// Processing pipeline:
//
//	ProcessExchange
//	  ├── guardian.Detector  : override attempt or redirect topic?
//	  │     └── yes → transform.Redirect
//	  ├── validate.Validator : reply in character?
//	  │     ├── no  → transform.Repair (one attempt, then confused template)
//	  │     └── yes → transform.Enhance
//	  ├── learning.Engine    : record outcome, maybe adapt
//	  └── store.Persister    : snapshot written in the background
//
// Any panic inside the pipeline is recovered and the raw reply is
// returned unchanged.
package guard

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/gzhole/personaguard/internal/guardian"
	"github.com/gzhole/personaguard/internal/learning"
	"github.com/gzhole/personaguard/internal/logger"
	"github.com/gzhole/personaguard/internal/metrics"
	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/store"
	"github.com/gzhole/personaguard/internal/transform"
	"github.com/gzhole/personaguard/internal/validate"
)

// Guard is safe for concurrent use. Exchanges are processed one at a time.
type Guard struct {
	mu sync.Mutex

	cfg         *persona.Config
	detector    *guardian.Detector
	validator   *validate.Validator
	transformer *transform.Transformer
	engine      *learning.Engine

	logger    *zap.Logger
	audit     *logger.AuditLogger
	metrics   *metrics.Metrics
	persister *store.Persister
	now       func() time.Time
}

type options struct {
	logger    *zap.Logger
	audit     *logger.AuditLogger
	metrics   *metrics.Metrics
	persister *store.Persister
	rng       transform.Rand
	now       func() time.Time
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithAuditLog writes one line per exchange. The caller closes the log.
func WithAuditLog(a *logger.AuditLogger) Option {
	return func(o *options) { o.audit = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPersister hands a snapshot to p after every exchange. The guard
// closes p on Close.
func WithPersister(p *store.Persister) Option {
	return func(o *options) { o.persister = p }
}

// WithRand sets the source of template and pattern choices.
func WithRand(r transform.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a guard for cfg, which must already be validated.
func New(cfg *persona.Config, opts ...Option) *Guard {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		seed := uint64(o.now().UnixNano())
		o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	v := validate.New(cfg)
	return &Guard{
		cfg:         cfg,
		detector:    guardian.NewDetector(cfg),
		validator:   v,
		transformer: transform.New(cfg, v, o.rng),
		engine: learning.NewEngine(cfg,
			learning.WithLogger(o.logger.Named("learning")),
			learning.WithClock(o.now),
		),
		logger:    o.logger,
		audit:     o.audit,
		metrics:   o.metrics,
		persister: o.persister,
		now:       o.now,
	}
}

// Restore loads prior learning from s. A missing snapshot is not an
// error. A partly damaged snapshot is restored as far as it decoded and
// the damage is logged.
func (g *Guard) Restore(ctx context.Context, s store.Store) error {
	snap, err := s.Load(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		g.logger.Debug("no prior learning snapshot")
		return nil
	}
	var partial *store.PartialError
	if errors.As(err, &partial) {
		g.logger.Warn("learning snapshot partially restored",
			zap.Strings("defaulted_sections", partial.Sections),
			zap.Error(partial.Err),
		)
	} else if err != nil {
		return fmt.Errorf("load learning snapshot: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.engine.Restore(snap)
	stats := g.engine.Stats()
	g.metrics.SetState(stats.PersonalityStrength, g.engine.Thresholds())
	g.logger.Info("learning snapshot restored",
		zap.Int("total_processed", stats.TotalProcessed),
		zap.Int("adaptations", g.engine.AdaptationStats().Rules.Adaptations),
	)
	return nil
}

// GenerateSystemPrompt returns the persona system prompt with extra
// appended when non-empty.
func (g *Guard) GenerateSystemPrompt(extra string) string {
	return persona.SystemPrompt(g.cfg, extra)
}

// ProcessExchange decides what the user sees in place of raw.
func (g *Guard) ProcessExchange(userMessage, raw string) Decision {
	start := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	d, outcome, err := g.decide(userMessage, raw)
	if err != nil {
		g.logger.Error("exchange processing failed, returning raw reply", zap.Error(err))
		d = Decision{Action: ActionPassthrough, Response: raw, Reason: ReasonError}
		g.finish(userMessage, raw, d, learning.Entry{}, start, err)
		return d
	}

	entry := g.engine.Record(outcome)
	if outcome.Success {
		if a, ok := g.engine.MaybeAdapt(); ok {
			d.Adapted = true
			g.metrics.ObserveAdaptation(string(a.Direction))
		}
	}
	if g.persister != nil {
		g.persister.Submit(g.engine.Snapshot())
	}

	g.finish(userMessage, raw, d, entry, start, nil)
	return d
}

func (g *Guard) decide(userMessage, raw string) (d Decision, o learning.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	threat := g.detector.Detect(userMessage)
	d.Signals = threat.SignalIDs()
	g.metrics.ObserveSignals(d.Signals)

	success := true
	var enhanced transform.Result
	switch {
	case threat.ShouldRedirect:
		d.Action = ActionRedirect
		d.Reason = Reason(threat.Reason)
		if threat.Topic != nil {
			d.Topic = threat.Topic.Key
		}
		d.Response = g.transformer.Redirect(threat.Topic)

	default:
		th := g.engine.Thresholds()
		res := g.validator.Validate(raw, th)
		d.Issues = res.Issues
		if res.Valid {
			d.Action = ActionEnhance
			d.Reason = ReasonGood
			enhanced = g.transformer.Enhance(raw, g.engine.Preferences())
			d.Response = enhanced.Text
		} else {
			repaired := g.transformer.Repair(raw, th)
			d.Action = ActionRepair
			d.Reason = ReasonInconsistent
			d.Response = repaired.Text
			d.Fallback = repaired.Fallback
			success = !repaired.Fallback
		}
	}

	// Only enhanced replies carry a composition worth learning from.
	o = learning.Outcome{
		Original: raw,
		Final:    d.Response,
		Action:   string(d.Action),
		Reason:   string(d.Reason),
		Success:  success,
		Pattern:  enhanced.Pattern,
		Behavior: enhanced.Behavior,
	}
	return d, o, nil
}

// finish reports a decision to metrics, the audit log and the debug log.
func (g *Guard) finish(userMessage, raw string, d Decision, entry learning.Entry, start time.Time, procErr error) {
	elapsed := g.now().Sub(start)
	g.metrics.ObserveDecision(string(d.Action), string(d.Reason), elapsed)
	g.metrics.SetState(g.engine.Stats().PersonalityStrength, g.engine.Thresholds())

	g.logger.Debug("exchange processed",
		zap.String("action", string(d.Action)),
		zap.String("reason", string(d.Reason)),
		zap.Strings("signals", d.Signals),
		zap.Bool("adapted", d.Adapted),
		zap.Duration("elapsed", elapsed),
	)

	if g.audit == nil {
		return
	}
	event := logger.AuditEvent{
		Timestamp:        start.UTC().Format(time.RFC3339),
		EntryID:          entry.ID,
		UserMessage:      userMessage,
		Action:           string(d.Action),
		Reason:           string(d.Reason),
		Topic:            d.Topic,
		TriggeredSignals: d.Signals,
		Issues:           d.Issues,
		Pattern:          string(entry.Pattern),
		RawLength:        utf8.RuneCountInString(raw),
		FinalLength:      utf8.RuneCountInString(d.Response),
		Adapted:          d.Adapted,
	}
	if procErr != nil {
		event.Error = procErr.Error()
	}
	if err := g.audit.Log(event); err != nil {
		g.logger.Warn("audit log write failed", zap.Error(err))
	}
}

// Stats returns totals and personality strength.
func (g *Guard) Stats() learning.Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Stats()
}

// AdaptationStats returns the learned rules and effective thresholds.
func (g *Guard) AdaptationStats() learning.AdaptationStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.AdaptationStats()
}

// Snapshot returns the current persistable state.
func (g *Guard) Snapshot() *learning.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Snapshot()
}

// Flush writes the current state through the persister and returns the
// write error. Without a persister it does nothing.
func (g *Guard) Flush(ctx context.Context) error {
	if g.persister == nil {
		return nil
	}
	g.persister.Submit(g.Snapshot())
	return g.persister.Flush(ctx)
}

// Close writes the final state and stops the persister.
func (g *Guard) Close() error {
	if g.persister == nil {
		return nil
	}
	g.persister.Submit(g.Snapshot())
	return g.persister.Close()
}
