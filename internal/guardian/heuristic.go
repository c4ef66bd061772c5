package guardian

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gzhole/personaguard/internal/normalize"
	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/unicode"
)

// Detector scans user messages for persona-override attempts and
// redirect topics. It is read-only after construction and safe for
// concurrent use.
type Detector struct {
	rules  []heuristicRule
	topics []persona.Topic
}

// heuristicRule is a single override detection rule.
type heuristicRule struct {
	signal Signal
	match  func(nt normalize.NormalizedText) (string, bool)
}

// NewDetector builds a detector from the persona's override phrases and
// redirect topics.
func NewDetector(cfg *persona.Config) *Detector {
	d := &Detector{topics: cfg.Topics}
	d.rules = d.buildRules(cfg.OverridePhrases)
	return d
}

// Detect inspects a user message. Override detection wins over topic
// redirection when both fire.
func (d *Detector) Detect(message string) Threat {
	var threat Threat

	scan := unicode.Scan(message)
	if !scan.Clean {
		threat.Signals = append(threat.Signals, Signal{
			ID:          "hidden_characters",
			Category:    "obfuscation",
			Matched:     scan.Findings[0].Codepoint,
			Description: fmt.Sprintf("Message contains %d invisible or look-alike character(s)", len(scan.Findings)),
		})
	}

	nt := normalize.Normalize(scan.Sanitized)

	for _, r := range d.rules {
		if matched, ok := r.match(nt); ok {
			sig := r.signal
			sig.Matched = matched
			threat.Signals = append(threat.Signals, sig)
			threat.IsThreat = true
		}
	}

	for i := range d.topics {
		if nt.Contains(d.topics[i].Key) {
			topic := d.topics[i]
			threat.Topic = &topic
			break
		}
	}

	threat.ShouldRedirect = threat.IsThreat || threat.Topic != nil
	switch {
	case threat.IsThreat:
		threat.Reason = ReasonOverride
	case threat.Topic != nil:
		threat.Reason = ReasonTopicRedirect
	}
	return threat
}

func (d *Detector) buildRules(overridePhrases []string) []heuristicRule {
	phrases := make([]string, len(overridePhrases))
	copy(phrases, overridePhrases)

	return []heuristicRule{
		// --- Configured override phrases ---
		{
			signal: Signal{
				ID:          "override_phrase",
				Category:    "persona-override",
				Description: "Message asks the persona to become something else",
			},
			match: func(nt normalize.NormalizedText) (string, bool) {
				return nt.FirstMatch(phrases)
			},
		},

		// --- Instruction override ---
		{
			signal: Signal{
				ID:          "instruction_override",
				Category:    "persona-override",
				Description: "Message contains instruction override language (e.g., 'ignore previous')",
			},
			match: func(nt normalize.NormalizedText) (string, bool) {
				return firstPatternMatch(nt.Lower, instructionOverridePatterns)
			},
		},

		// --- Prompt exfiltration ---
		{
			signal: Signal{
				ID:          "prompt_exfiltration",
				Category:    "persona-override",
				Description: "Message attempts to reveal the system prompt or instructions",
			},
			match: func(nt normalize.NormalizedText) (string, bool) {
				return firstPatternMatch(nt.Lower, promptExfilPatterns)
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Pattern definitions
// ---------------------------------------------------------------------------

var instructionOverridePatterns = compilePatterns([]string{
	`ignore\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|rules?|prompts?)`,
	`disregard\s+(all\s+)?(previous|prior|your)\s+(previous\s+)?(instructions?|rules?|guidelines?)`,
	`forget\s+(all\s+)?(your|previous)\s+(instructions?|rules?|training)`,
	`you\s+are\s+now\s+(free|unrestricted|unfiltered|a\s+human|an?\s+ai)`,
	`new\s+instructions?:\s+`,
	`system\s*:\s*(you\s+are|ignore|forget)`,
	`<\|im_start\|>system`,
	`\[inst\]`,
})

var promptExfilPatterns = compilePatterns([]string{
	`(show|reveal|display|print|output)\s+(me\s+)?(your|the)\s+(system\s+)?prompt`,
	`repeat\s+(your\s+)?(system\s+)?(prompt|instructions?)`,
	`what\s+(is|are)\s+your\s+(system\s+prompt|instructions?)`,
})

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

func firstPatternMatch(s string, patterns []*regexp.Regexp) (string, bool) {
	for _, p := range patterns {
		if m := p.FindString(s); m != "" {
			return strings.TrimSpace(m), true
		}
	}
	return "", false
}
