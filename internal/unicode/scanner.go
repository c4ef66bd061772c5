package unicode

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Finding is a single invisible or confusable character found in user text.
type Finding struct {
	Category    string // "zero-width", "bidi-override", "tag-char", "control-char", "homoglyph", "invalid-utf8"
	Description string
	Position    int    // byte offset in the input
	Codepoint   string // e.g. "U+200B"
}

// ScanResult holds the output of a scan.
type ScanResult struct {
	Clean    bool
	Findings []Finding
	// Sanitized is the input with invisible characters removed and
	// confusable letters folded to their Latin look-alikes, so phrase
	// matching sees what a human reader sees.
	Sanitized string
}

// Scan inspects user text for characters that can hide a phrase from
// substring matching.
func Scan(input string) ScanResult {
	result := ScanResult{Clean: true}
	var sanitized strings.Builder
	sanitized.Grow(len(input))

	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])

		if r == utf8.RuneError && size == 1 {
			result.Clean = false
			result.Findings = append(result.Findings, Finding{
				Category:    "invalid-utf8",
				Description: "Invalid UTF-8 byte sequence",
				Position:    i,
				Codepoint:   fmt.Sprintf("0x%02X", input[i]),
			})
			i++
			continue
		}

		if f, found := classifyRune(r, i); found {
			result.Clean = false
			result.Findings = append(result.Findings, f)
			if latin, ok := foldHomoglyph(r); ok {
				sanitized.WriteRune(latin)
			}
			i += size
			continue
		}

		sanitized.WriteRune(r)
		i += size
	}

	result.Sanitized = sanitized.String()
	return result
}

// pictographPattern covers the emoji and dingbat blocks used as persona
// markers (🐕, 🐾, 🦴, ☀, ✨, ...).
var pictographPattern = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`)

// CountPictographs returns the number of pictographic symbol characters in text.
func CountPictographs(text string) int {
	return len(pictographPattern.FindAllStringIndex(text, -1))
}

func classifyRune(r rune, pos int) (Finding, bool) {
	cp := fmt.Sprintf("U+%04X", r)

	switch {
	case isZeroWidth(r):
		return Finding{
			Category:    "zero-width",
			Description: fmt.Sprintf("Zero-width character %s can split a phrase without showing", cp),
			Position:    pos,
			Codepoint:   cp,
		}, true
	case isBidiOverride(r):
		return Finding{
			Category:    "bidi-override",
			Description: fmt.Sprintf("Bidirectional control %s can reorder displayed text", cp),
			Position:    pos,
			Codepoint:   cp,
		}, true
	case isTagCharacter(r):
		return Finding{
			Category:    "tag-char",
			Description: fmt.Sprintf("Unicode tag character %s can smuggle hidden instructions", cp),
			Position:    pos,
			Codepoint:   cp,
		}, true
	case isUnsafeControl(r):
		return Finding{
			Category:    "control-char",
			Description: fmt.Sprintf("Control character %s in chat text", cp),
			Position:    pos,
			Codepoint:   cp,
		}, true
	}

	if latin, ok := foldHomoglyph(r); ok {
		return Finding{
			Category:    "homoglyph",
			Description: fmt.Sprintf("%s looks like Latin '%c'", cp, latin),
			Position:    pos,
			Codepoint:   cp,
		}, true
	}

	return Finding{}, false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\uFEFF', // ZERO WIDTH NO-BREAK SPACE (BOM)
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\u200E', // LEFT-TO-RIGHT MARK
		'\u200F', // RIGHT-TO-LEFT MARK
		'\u00AD': // SOFT HYPHEN
		return true
	}
	return false
}

func isBidiOverride(r rune) bool {
	return (r >= '\u202A' && r <= '\u202E') || (r >= '\u2066' && r <= '\u2069')
}

func isTagCharacter(r rune) bool {
	return r >= 0xE0001 && r <= 0xE007F
}

func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

func foldHomoglyph(r rune) (rune, bool) {
	if unicode.Is(unicode.Cyrillic, r) {
		if latin, ok := cyrillicHomoglyphs[r]; ok {
			return latin, true
		}
	}
	if unicode.Is(unicode.Greek, r) {
		if latin, ok := greekHomoglyphs[r]; ok {
			return latin, true
		}
	}
	return 0, false
}

var cyrillicHomoglyphs = map[rune]rune{
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C',
	'е': 'e', 'Е': 'E', 'Н': 'H', 'і': 'i', 'І': 'I',
	'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O', 'р': 'p',
	'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y',
	'У': 'Y',
}

var greekHomoglyphs = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'ο': 'o',
	'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y', 'Ζ': 'Z',
}
