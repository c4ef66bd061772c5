// Package guardian inspects the user's message before the model reply is
// looked at. It detects attempts to talk the persona out of character and
// mentions of topics the persona redirects on.
//
// Architecture:
//
//	Detector
//	  ├── rules     : override phrases from the persona config plus
//	  │                built-in instruction-override patterns
//	  ├── topics    : ordered redirect keys from the persona config
//	  └── unicode   : strips invisible characters and folds homoglyphs
//	                   before any matching
package guardian

import "github.com/gzhole/personaguard/internal/persona"

// Reason explains why a message should be redirected.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonOverride      Reason = "override"
	ReasonTopicRedirect Reason = "topic-redirect"
)

// Signal is a single rule that fired on a message.
type Signal struct {
	// ID is a short, unique identifier (e.g., "override_phrase").
	ID string

	// Category groups related signals ("persona-override", "obfuscation").
	Category string

	// Matched is the phrase or pattern text that fired.
	Matched string

	// Description is a human-readable explanation of why this signal fired.
	Description string
}

// Threat is the outcome of inspecting one user message.
type Threat struct {
	// IsThreat is set when any persona-override rule fired.
	IsThreat bool

	// ShouldRedirect is IsThreat or a redirect topic matched.
	ShouldRedirect bool

	// Reason is ReasonOverride when IsThreat, else ReasonTopicRedirect
	// when Topic is set, else ReasonNone.
	Reason Reason

	// Topic is the first configured redirect topic found, if any.
	Topic *persona.Topic

	// Signals lists every rule that fired, including informational
	// obfuscation signals that do not by themselves redirect.
	Signals []Signal
}

// SignalIDs returns the IDs of all fired signals in order.
func (t Threat) SignalIDs() []string {
	ids := make([]string, len(t.Signals))
	for i, s := range t.Signals {
		ids[i] = s.ID
	}
	return ids
}
