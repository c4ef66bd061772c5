package normalize

import (
	"strings"
	"unicode/utf8"
)

// NormalizedText is a chat message prepared for case-insensitive matching.
type NormalizedText struct {
	Raw   string
	Lower string
	Words []string
}

// Normalize lower-cases text and splits it on whitespace.
func Normalize(text string) NormalizedText {
	lower := strings.ToLower(text)
	return NormalizedText{
		Raw:   text,
		Lower: lower,
		Words: strings.Fields(lower),
	}
}

// Contains reports whether the lower-cased text contains item, compared
// case-insensitively.
func (n NormalizedText) Contains(item string) bool {
	if item == "" {
		return false
	}
	return strings.Contains(n.Lower, strings.ToLower(item))
}

// FirstMatch returns the first item (in list order) found in the text.
func (n NormalizedText) FirstMatch(items []string) (string, bool) {
	for _, item := range items {
		if n.Contains(item) {
			return item, true
		}
	}
	return "", false
}

// ContainsAny reports whether any item is found in the text.
func (n NormalizedText) ContainsAny(items []string) bool {
	_, ok := n.FirstMatch(items)
	return ok
}

// CountWordsContaining counts words that contain any of the items as a
// substring. Each word is counted at most once.
func (n NormalizedText) CountWordsContaining(items []string) int {
	lowered := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			lowered = append(lowered, strings.ToLower(item))
		}
	}

	count := 0
	for _, w := range n.Words {
		for _, item := range lowered {
			if strings.Contains(w, item) {
				count++
				break
			}
		}
	}
	return count
}

// Length returns the rune count of the raw text.
func (n NormalizedText) Length() int {
	return utf8.RuneCountInString(n.Raw)
}

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
