package learning

import (
	"cmp"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/transform"
)

const (
	maxPreferredPatterns  = 3
	maxPreferredBehaviors = 5
)

// Direction is the way an adaptation moved the ratio thresholds.
type Direction string

const (
	DirectionShrink Direction = "shrink"
	DirectionGrow   Direction = "grow"
)

// Adaptation describes one completed adaptation.
type Adaptation struct {
	Direction   Direction
	Sample      int
	FailureRate float64
	SuccessRate float64
	Before      persona.Thresholds
	After       persona.Thresholds
	Patterns    []transform.Pattern
	Behaviors   []string
	At          time.Time
}

// Stats summarizes the outcome history.
type Stats struct {
	TotalProcessed int     `json:"totalProcessed"`
	SuccessRate    float64 `json:"successRate"`

	// PersonalityStrength is the success fraction of the most recent
	// StrengthWindow entries, using the available count as denominator
	// while fewer exist. Zero with no history.
	PersonalityStrength float64 `json:"personalityStrength"`
}

// AdaptationStats is a read-only view of the learned state.
type AdaptationStats struct {
	Rules       Rules              `json:"rules"`
	LastAdapted time.Time          `json:"lastAdapted"`
	Thresholds  persona.Thresholds `json:"thresholds"`
	Strength    float64            `json:"strength"`
}

// Engine records outcomes and adapts thresholds and preferences.
//
// Adaptation is reactive: it runs once at least Cooldown successes have
// been recorded since the previous adaptation, the recent window holds
// at least MinSampleSize entries, and the window's failure rate is above
// FailureThreshold (shrink) or its success rate is above
// TargetConsistency (grow).
type Engine struct {
	params persona.Learning
	base   persona.Thresholds

	successes *Ring[Entry]
	failures  *Ring[Entry]

	rules       Rules
	lastAdapted time.Time

	totalSuccesses int
	totalFailures  int
	nextSeq        uint64

	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(cfg *persona.Config, opts ...Option) *Engine {
	e := &Engine{
		params:    cfg.Learning,
		base:      cfg.Thresholds,
		successes: NewRing[Entry](cfg.Learning.HistoryCap),
		failures:  NewRing[Entry](cfg.Learning.HistoryCap),
		rules:     Rules{Thresholds: cfg.Thresholds},
		nextSeq:   1,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Record appends an outcome to the matching log and returns the stored entry.
func (e *Engine) Record(o Outcome) Entry {
	entry := newEntry(o, e.nextSeq, e.now())
	e.nextSeq++

	if o.Success {
		e.successes.Push(entry)
		e.totalSuccesses++
		e.rules.SuccessesSinceAdapt++
	} else {
		e.failures.Push(entry)
		e.totalFailures++
	}
	return entry
}

// MaybeAdapt adapts when the trigger condition holds. Calling it again
// without new successes is a no-op.
func (e *Engine) MaybeAdapt() (Adaptation, bool) {
	p := e.params
	if e.rules.SuccessesSinceAdapt < p.Cooldown {
		return Adaptation{}, false
	}

	window := e.recent(p.Window)
	if len(window) < p.MinSampleSize {
		return Adaptation{}, false
	}

	failed := 0
	for _, entry := range window {
		if !entry.Success {
			failed++
		}
	}
	failureRate := float64(failed) / float64(len(window))
	successRate := 1 - failureRate

	a := Adaptation{
		Sample:      len(window),
		FailureRate: failureRate,
		SuccessRate: successRate,
		Before:      e.rules.Thresholds,
	}
	switch {
	case failureRate > p.FailureThreshold:
		a.Direction = DirectionShrink
		a.After = scaleRatios(a.Before, p.ShrinkFactor)
	case successRate > p.TargetConsistency:
		a.Direction = DirectionGrow
		a.After = scaleRatios(a.Before, p.GrowFactor)
	default:
		return Adaptation{}, false
	}

	recentSuccesses := e.successes.Last(p.Window)
	a.Patterns = rankPatterns(recentSuccesses)
	a.Behaviors = rankBehaviors(recentSuccesses)
	a.At = e.now()

	e.rules.Thresholds = a.After
	e.rules.PreferredPatterns = a.Patterns
	e.rules.PreferredBehaviors = a.Behaviors
	e.rules.Adaptations++
	e.rules.SuccessesSinceAdapt = 0
	e.lastAdapted = a.At

	e.logger.Info("persona adapted",
		zap.String("direction", string(a.Direction)),
		zap.Int("sample", a.Sample),
		zap.Float64("failure_rate", a.FailureRate),
		zap.Float64("min_persona_word_ratio", a.After.MinPersonaWordRatio),
		zap.Float64("min_symbol_ratio", a.After.MinSymbolRatio),
		zap.Int("adaptations", e.rules.Adaptations),
	)
	return a, true
}

// Thresholds returns the effective validation thresholds.
func (e *Engine) Thresholds() persona.Thresholds {
	return e.rules.Thresholds
}

// Preferences returns the learned composition preferences for Enhance.
func (e *Engine) Preferences() transform.Preferences {
	return transform.Preferences{
		Patterns:  slices.Clone(e.rules.PreferredPatterns),
		Behaviors: slices.Clone(e.rules.PreferredBehaviors),
	}
}

func (e *Engine) Stats() Stats {
	total := e.totalSuccesses + e.totalFailures
	s := Stats{
		TotalProcessed:      total,
		PersonalityStrength: e.strength(),
	}
	if total > 0 {
		s.SuccessRate = float64(e.totalSuccesses) / float64(total)
	}
	return s
}

func (e *Engine) AdaptationStats() AdaptationStats {
	return AdaptationStats{
		Rules:       e.rules.clone(),
		LastAdapted: e.lastAdapted,
		Thresholds:  e.rules.Thresholds,
		Strength:    e.strength(),
	}
}

// Successes returns the success log, oldest first.
func (e *Engine) Successes() []Entry { return e.successes.Items() }

// Failures returns the failure log, oldest first.
func (e *Engine) Failures() []Entry { return e.failures.Items() }

func (e *Engine) strength() float64 {
	recent := e.recent(e.params.StrengthWindow)
	if len(recent) == 0 {
		return 0
	}
	ok := 0
	for _, entry := range recent {
		if entry.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(recent))
}

// recent returns the k most recent entries across both logs, oldest first.
func (e *Engine) recent(k int) []Entry {
	merged := append(e.successes.Last(k), e.failures.Last(k)...)
	slices.SortFunc(merged, func(a, b Entry) int { return cmp.Compare(a.Seq, b.Seq) })
	if len(merged) > k {
		merged = merged[len(merged)-k:]
	}
	return merged
}

// Snapshot captures the engine for persistence.
func (e *Engine) Snapshot() *Snapshot {
	now := e.now()
	return &Snapshot{
		Timestamp: now,
		LearningData: LearningData{
			Successes:   e.successes.Items(),
			Failures:    e.failures.Items(),
			LastAdapted: e.lastAdapted,
		},
		AdaptationRules: e.rules.clone(),
		Metadata: Metadata{
			TotalProcessed: e.totalSuccesses + e.totalFailures,
			TotalSuccesses: e.totalSuccesses,
			TotalFailures:  e.totalFailures,
			NextSeq:        e.nextSeq,
			LastSaved:      now,
		},
	}
}

// Restore replaces the engine's state with s. Logs longer than the
// history cap keep only their most recent entries. Zero thresholds (a
// section that failed to load) fall back to the configured values.
func (e *Engine) Restore(s *Snapshot) {
	e.successes.Reset()
	e.failures.Reset()

	maxSeq := uint64(0)
	for _, entry := range s.LearningData.Successes {
		e.successes.Push(entry)
		maxSeq = max(maxSeq, entry.Seq)
	}
	for _, entry := range s.LearningData.Failures {
		e.failures.Push(entry)
		maxSeq = max(maxSeq, entry.Seq)
	}

	e.rules = s.AdaptationRules.clone()
	if e.rules.Thresholds == (persona.Thresholds{}) {
		e.rules.Thresholds = e.base
	}
	e.lastAdapted = s.LearningData.LastAdapted

	e.totalSuccesses = max(s.Metadata.TotalSuccesses, len(s.LearningData.Successes))
	e.totalFailures = max(s.Metadata.TotalFailures, len(s.LearningData.Failures))
	e.nextSeq = max(s.Metadata.NextSeq, maxSeq+1)
}

func scaleRatios(th persona.Thresholds, factor float64) persona.Thresholds {
	th.MinPersonaWordRatio = min(1, th.MinPersonaWordRatio*factor)
	th.MinSymbolRatio = min(1, th.MinSymbolRatio*factor)
	return th
}

func rankPatterns(entries []Entry) []transform.Pattern {
	counts := make(map[transform.Pattern]int)
	for _, entry := range entries {
		if entry.Pattern != "" && entry.Pattern != transform.PatternOther {
			counts[entry.Pattern]++
		}
	}
	return topN(counts, maxPreferredPatterns)
}

func rankBehaviors(entries []Entry) []string {
	counts := make(map[string]int)
	for _, entry := range entries {
		if entry.Behavior != "" {
			counts[entry.Behavior]++
		}
	}
	return topN(counts, maxPreferredBehaviors)
}

// topN ranks keys by count, highest first, breaking ties by key.
func topN[K ~string](counts map[K]int, n int) []K {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
