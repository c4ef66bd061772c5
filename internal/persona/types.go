// Package persona holds the declarative description of the character the
// guard enforces: identity, lexicon, templates, thresholds and learning
// parameters. A Config is immutable once loaded; thresholds learned at run
// time are kept by the learning engine, not written back here.
package persona

// Category names a template group.
type Category string

const (
	CategoryRedirect         Category = "redirect"
	CategoryConfused         Category = "confused"
	CategoryPersonalityBreak Category = "personality-break"
	CategoryFallback         Category = "fallback"
)

type Config struct {
	Version          string           `yaml:"version"`
	Identity         Identity         `yaml:"identity"`
	Behaviors        Behaviors        `yaml:"behaviors"`
	IntroPhrases     []string         `yaml:"intro_phrases" validate:"min=1,dive,required"`
	Required         RequiredElements `yaml:"required"`
	Lexicon          []string         `yaml:"lexicon" validate:"min=1,dive,required"`
	ForbiddenPhrases []string         `yaml:"forbidden_phrases" validate:"min=1,dive,required"`
	Thresholds       Thresholds       `yaml:"thresholds"`
	OverridePhrases  []string         `yaml:"override_phrases" validate:"dive,required"`
	Topics           []Topic          `yaml:"topics" validate:"dive"`
	Templates        Templates        `yaml:"templates"`
	Learning         Learning         `yaml:"learning"`
}

type Identity struct {
	Name   string   `yaml:"name" validate:"required"`
	Breed  string   `yaml:"breed" validate:"required"`
	Traits []string `yaml:"traits" validate:"dive,required"`
}

// Behaviors are short stage directions grouped by mood. Enhance wraps one
// in emphasis markers ("*wags tail*").
type Behaviors struct {
	Greeting []string `yaml:"greeting" validate:"min=1,dive,required"`
	Thinking []string `yaml:"thinking" validate:"min=1,dive,required"`
	Excited  []string `yaml:"excited" validate:"min=1,dive,required"`
	Confused []string `yaml:"confused" validate:"min=1,dive,required"`
}

// All returns every behavior phrase in mood order.
func (b Behaviors) All() []string {
	all := make([]string, 0, len(b.Greeting)+len(b.Thinking)+len(b.Excited)+len(b.Confused))
	all = append(all, b.Greeting...)
	all = append(all, b.Thinking...)
	all = append(all, b.Excited...)
	all = append(all, b.Confused...)
	return all
}

// RequiredElements lists the cues a response is scanned for. Any one
// category being present is enough.
type RequiredElements struct {
	Symbols       []string `yaml:"symbols" validate:"min=1,dive,required"`
	Words         []string `yaml:"words" validate:"dive,required"`
	BehaviorWords []string `yaml:"behavior_words" validate:"dive,required"`
}

// Thresholds are the quality bounds used by the validator. Length is
// measured in runes.
type Thresholds struct {
	MinLength           int     `yaml:"min_length" json:"minLength" validate:"gte=0"`
	MaxLength           int     `yaml:"max_length" json:"maxLength" validate:"gtfield=MinLength"`
	MinPersonaWordRatio float64 `yaml:"min_persona_word_ratio" json:"minPersonaWordRatio" validate:"gte=0,lte=1"`
	MinSymbolRatio      float64 `yaml:"min_symbol_ratio" json:"minSymbolRatio" validate:"gte=0,lte=1"`
}

// Topic is a redirect target. Key is matched as a substring of the
// lower-cased user message; Singular and Plural fill the {topic} and
// {topics} placeholders of redirect templates.
type Topic struct {
	Key      string `yaml:"key" validate:"required"`
	Singular string `yaml:"singular" validate:"required"`
	Plural   string `yaml:"plural" validate:"required"`
}

type Templates struct {
	Redirect         []string `yaml:"redirect" validate:"min=1,dive,required"`
	Confused         []string `yaml:"confused" validate:"min=1,dive,required"`
	PersonalityBreak []string `yaml:"personality_break" validate:"min=1,dive,required"`
	Fallback         []string `yaml:"fallback" validate:"min=1,dive,required"`
}

// ForCategory returns the templates of a category, or nil for an unknown one.
func (t Templates) ForCategory(c Category) []string {
	switch c {
	case CategoryRedirect:
		return t.Redirect
	case CategoryConfused:
		return t.Confused
	case CategoryPersonalityBreak:
		return t.PersonalityBreak
	case CategoryFallback:
		return t.Fallback
	default:
		return nil
	}
}

// Learning parameterizes the adaptation engine.
type Learning struct {
	// HistoryCap bounds each outcome log (successes, failures).
	HistoryCap int `yaml:"history_cap" validate:"gte=1"`
	// Window is how many recent entries rates and rankings are computed over.
	Window int `yaml:"window" validate:"gte=1"`
	// MinSampleSize is the smallest window that may trigger adaptation.
	MinSampleSize int `yaml:"min_sample_size" validate:"gte=1"`
	// Cooldown is the number of successes required between adaptations.
	Cooldown int `yaml:"cooldown" validate:"gte=1"`
	// FailureThreshold: a window failure rate above it shrinks thresholds.
	FailureThreshold float64 `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	// TargetConsistency: a window success rate above it grows thresholds.
	TargetConsistency float64 `yaml:"target_consistency" validate:"gt=0,lte=1"`
	ShrinkFactor      float64 `yaml:"shrink_factor" validate:"gt=0,lt=1"`
	GrowFactor        float64 `yaml:"grow_factor" validate:"gt=1"`
	// StrengthWindow is the number of recent entries personality strength is measured over.
	StrengthWindow int `yaml:"strength_window" validate:"gte=1"`
}
