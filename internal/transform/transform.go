// Package transform rewrites model replies so they stay in character:
// canned redirects for override attempts and topics, a single repair
// attempt for invalid replies, and light decoration for valid ones.
//
// A Transformer is not safe for concurrent use; the random source it
// draws from is not synchronized.
package transform

import (
	"strings"

	"github.com/gzhole/personaguard/internal/normalize"
	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/validate"
)

// Rand is the source of every random choice the transformer makes.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Pattern classifies how persona cues were composed onto a reply.
type Pattern string

const (
	PatternBehaviorSymbol Pattern = "behavior+symbol"
	PatternBehaviorOnly   Pattern = "behavior-only"
	PatternSymbolOnly     Pattern = "symbol-only"
	PatternPrefixSymbol   Pattern = "prefix-symbol"
	PatternOther          Pattern = "other"
)

// Patterns lists the learnable composition patterns in a stable order.
func Patterns() []Pattern {
	return []Pattern{PatternBehaviorSymbol, PatternBehaviorOnly, PatternSymbolOnly, PatternPrefixSymbol}
}

// Preferences are the learned composition preferences handed to Enhance.
// Empty slices mean nothing has been learned yet.
type Preferences struct {
	Patterns  []Pattern
	Behaviors []string
}

// Result is a transformed reply.
type Result struct {
	Text string

	// Fallback is set when Repair gave up and returned a confused template.
	Fallback bool

	// Pattern and Behavior describe what Enhance composed onto the text.
	// Both are empty for every other transformation.
	Pattern  Pattern
	Behavior string
}

type composition struct {
	kind  Pattern
	apply func(text, marker, behavior string) string
}

var compositions = []composition{
	{PatternBehaviorSymbol, func(text, marker, behavior string) string {
		return text + " " + marker + " *" + behavior + "*"
	}},
	{PatternBehaviorSymbol, func(text, marker, behavior string) string {
		return text + " *" + behavior + "* " + marker
	}},
	{PatternBehaviorOnly, func(text, _, behavior string) string {
		return text + " *" + behavior + "*"
	}},
	{PatternSymbolOnly, func(text, marker, _ string) string {
		return text + " " + marker
	}},
	{PatternPrefixSymbol, func(text, marker, behavior string) string {
		return marker + " *" + behavior + "* " + text
	}},
}

// Transformer produces persona-consistent replies from templates and
// composition patterns.
type Transformer struct {
	cfg       *persona.Config
	validator *validate.Validator
	rng       Rand
	behaviors []string
}

func New(cfg *persona.Config, v *validate.Validator, rng Rand) *Transformer {
	return &Transformer{
		cfg:       cfg,
		validator: v,
		rng:       rng,
		behaviors: cfg.Behaviors.All(),
	}
}

// Redirect returns a redirect template with the topic substituted in.
// Without a topic (a bare override attempt) it answers from the
// personality-break templates instead, since redirect templates need
// a topic to fill their placeholders.
func (t *Transformer) Redirect(topic *persona.Topic) string {
	if topic == nil {
		return t.Fallback(persona.CategoryPersonalityBreak)
	}
	tmpl := t.pick(t.cfg.Templates.Redirect)
	return strings.NewReplacer("{topic}", topic.Singular, "{topics}", topic.Plural).Replace(tmpl)
}

// Fallback returns a uniformly chosen template of the category. Unknown
// or empty categories use the fallback templates.
func (t *Transformer) Fallback(c persona.Category) string {
	templates := t.cfg.Templates.ForCategory(c)
	if len(templates) == 0 {
		templates = t.cfg.Templates.Fallback
	}
	return t.pick(templates)
}

// Repair prepends one intro phrase and validates once more against th.
// If the reply is still invalid it is discarded for a confused template.
func (t *Transformer) Repair(text string, th persona.Thresholds) Result {
	candidate := t.pick(t.cfg.IntroPhrases) + " " + text
	if t.validator.Validate(candidate, th).Valid {
		return Result{Text: candidate}
	}
	return Result{Text: t.Fallback(persona.CategoryConfused), Fallback: true}
}

// Enhance decorates a valid reply with a marker and a behavior phrase.
// A reply that already acts out a known behavior only gets a marker.
func (t *Transformer) Enhance(text string, prefs Preferences) Result {
	marker := t.pick(t.cfg.Required.Symbols)

	nt := normalize.Normalize(text)
	if _, ok := nt.FirstMatch(t.behaviors); ok {
		return Result{Text: text + " " + marker, Pattern: PatternSymbolOnly}
	}

	comp := t.pickComposition(prefs.Patterns)
	behavior := ""
	if comp.kind != PatternSymbolOnly {
		if len(prefs.Behaviors) > 0 {
			behavior = t.pick(prefs.Behaviors)
		} else {
			behavior = t.pick(t.behaviors)
		}
	}

	return Result{
		Text:     comp.apply(text, marker, behavior),
		Pattern:  comp.kind,
		Behavior: behavior,
	}
}

// pickComposition samples a learned pattern kind and then a composition
// of that kind. With nothing learned every composition is equally likely.
func (t *Transformer) pickComposition(learned []Pattern) composition {
	if len(learned) > 0 {
		kind := learned[t.rng.IntN(len(learned))]
		var matching []composition
		for _, c := range compositions {
			if c.kind == kind {
				matching = append(matching, c)
			}
		}
		if len(matching) > 0 {
			return matching[t.rng.IntN(len(matching))]
		}
	}
	return compositions[t.rng.IntN(len(compositions))]
}

func (t *Transformer) pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[t.rng.IntN(len(items))]
}
