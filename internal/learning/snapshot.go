package learning

import (
	"time"

	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/transform"
)

// Snapshot is the persisted form of an engine. Field names are the
// on-disk JSON format shared by every store backend.
type Snapshot struct {
	Timestamp       time.Time    `json:"timestamp"`
	LearningData    LearningData `json:"learningData"`
	AdaptationRules Rules        `json:"adaptationRules"`
	Metadata        Metadata     `json:"metadata"`
}

type LearningData struct {
	Successes   []Entry   `json:"successes"`
	Failures    []Entry   `json:"failures"`
	LastAdapted time.Time `json:"lastAdapted"`
}

// Rules are the learned adaptations.
type Rules struct {
	// Thresholds are the effective validation thresholds. They start as
	// the persona's configured values.
	Thresholds          persona.Thresholds  `json:"thresholds"`
	PreferredPatterns   []transform.Pattern `json:"preferredPatterns"`
	PreferredBehaviors  []string            `json:"preferredBehaviors"`
	Adaptations         int                 `json:"adaptations"`
	SuccessesSinceAdapt int                 `json:"successesSinceAdapt"`
}

type Metadata struct {
	TotalProcessed int       `json:"totalProcessed"`
	TotalSuccesses int       `json:"totalSuccesses"`
	TotalFailures  int       `json:"totalFailures"`
	NextSeq        uint64    `json:"nextSeq"`
	LastSaved      time.Time `json:"lastSaved"`
}

func (r Rules) clone() Rules {
	r.PreferredPatterns = append([]transform.Pattern(nil), r.PreferredPatterns...)
	r.PreferredBehaviors = append([]string(nil), r.PreferredBehaviors...)
	return r
}
