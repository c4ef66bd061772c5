// Package learning keeps the bounded outcome history of processed
// exchanges and derives adapted thresholds and composition preferences
// from it.
//
// An Engine is not safe for concurrent use. The guard serializes access.
package learning

import (
	"time"

	"github.com/google/uuid"

	"github.com/gzhole/personaguard/internal/normalize"
	"github.com/gzhole/personaguard/internal/redact"
	"github.com/gzhole/personaguard/internal/transform"
)

// maxEntryText bounds the stored original and final reply text, in runes.
const maxEntryText = 500

// Entry is one processed exchange as kept in the outcome history.
type Entry struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Original  string    `json:"original"`
	Final     string    `json:"final"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	Success   bool      `json:"success"`

	// Pattern and Behavior are classified from the full text at record
	// time so truncation of Original and Final cannot change them.
	Pattern  transform.Pattern `json:"pattern,omitempty"`
	Behavior string            `json:"behavior,omitempty"`
}

// Outcome is what the guard reports about one exchange.
type Outcome struct {
	Original string
	Final    string
	Action   string
	Reason   string
	Success  bool
	Pattern  transform.Pattern
	Behavior string
}

func newEntry(o Outcome, seq uint64, now time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Seq:       seq,
		Timestamp: now,
		Original:  normalize.Truncate(redact.Redact(o.Original), maxEntryText),
		Final:     normalize.Truncate(redact.Redact(o.Final), maxEntryText),
		Action:    o.Action,
		Reason:    o.Reason,
		Success:   o.Success,
		Pattern:   o.Pattern,
		Behavior:  o.Behavior,
	}
}
