// Package validate scores a candidate reply against the persona's quality
// thresholds.
//
// Only two conditions decide validity: the reply must not contain a
// forbidden meta-phrase, and its length must be within bounds. Persona-word
// and symbol ratios are computed and reported as issues but never reject a
// reply on their own.
package validate

import (
	"fmt"

	"github.com/gzhole/personaguard/internal/normalize"
	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/unicode"
)

// Score is the structured breakdown behind a validation verdict.
type Score struct {
	HasSymbol           bool
	HasRequiredWord     bool
	HasBehaviorWord     bool
	HasRequiredElements bool
	PersonalityBreak    bool
	BreakPhrase         string
	WordCount           int
	PersonaWordRatio    float64
	SymbolRatio         float64
	Length              int
	LengthValid         bool
}

type Result struct {
	Valid  bool
	Score  Score
	Issues []string
}

// Validator checks replies against a persona config.
type Validator struct {
	cfg *persona.Config
}

func New(cfg *persona.Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate scores text against th. Callers pass the effective thresholds
// (config values with any learned overrides applied).
func (v *Validator) Validate(text string, th persona.Thresholds) Result {
	nt := normalize.Normalize(text)
	var s Score

	s.HasSymbol = nt.ContainsAny(v.cfg.Required.Symbols)
	s.HasRequiredWord = nt.ContainsAny(v.cfg.Required.Words)
	s.HasBehaviorWord = nt.ContainsAny(v.cfg.Required.BehaviorWords)
	s.HasRequiredElements = s.HasSymbol || s.HasRequiredWord || s.HasBehaviorWord

	s.BreakPhrase, s.PersonalityBreak = nt.FirstMatch(v.cfg.ForbiddenPhrases)

	s.WordCount = len(nt.Words)
	denom := float64(max(1, s.WordCount))
	s.PersonaWordRatio = float64(nt.CountWordsContaining(v.cfg.Lexicon)) / denom
	s.SymbolRatio = float64(unicode.CountPictographs(text)) / denom

	s.Length = nt.Length()
	s.LengthValid = s.Length >= th.MinLength && s.Length <= th.MaxLength

	return Result{
		Valid:  !s.PersonalityBreak && s.LengthValid,
		Score:  s,
		Issues: issues(s, th),
	}
}

// issues re-checks every metric independently of the verdict.
func issues(s Score, th persona.Thresholds) []string {
	var out []string
	if s.PersonalityBreak {
		out = append(out, fmt.Sprintf("personality break: contains %q", s.BreakPhrase))
	}
	if !s.HasRequiredElements {
		out = append(out, "missing required persona elements (symbol, word, or behavior)")
	}
	if s.PersonaWordRatio < th.MinPersonaWordRatio {
		out = append(out, fmt.Sprintf("persona word ratio %.2f below minimum %.2f", s.PersonaWordRatio, th.MinPersonaWordRatio))
	}
	if s.SymbolRatio < th.MinSymbolRatio {
		out = append(out, fmt.Sprintf("symbol ratio %.2f below minimum %.2f", s.SymbolRatio, th.MinSymbolRatio))
	}
	if !s.LengthValid {
		out = append(out, fmt.Sprintf("length %d outside [%d, %d]", s.Length, th.MinLength, th.MaxLength))
	}
	return out
}
