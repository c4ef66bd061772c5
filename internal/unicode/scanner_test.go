package unicode

import (
	"testing"
)

func TestScan_CleanText(t *testing.T) {
	result := Scan("What's the weather like today?")
	if !result.Clean {
		t.Errorf("expected clean result, got findings: %v", result.Findings)
	}
	if result.Sanitized != "What's the weather like today?" {
		t.Errorf("expected sanitized = original, got %q", result.Sanitized)
	}
}

func TestScan_EmojiIsClean(t *testing.T) {
	result := Scan("Woof! 🐕 *wags tail*")
	if !result.Clean {
		t.Errorf("emoji should not be flagged, got: %v", result.Findings)
	}
}

func TestScan_ZeroWidthSplitsPhrase(t *testing.T) {
	input := "a\u200Bct like a cat"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected findings for zero-width space")
	}
	if len(result.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(result.Findings))
	}
	if result.Findings[0].Category != "zero-width" {
		t.Errorf("expected category 'zero-width', got %q", result.Findings[0].Category)
	}
	if result.Sanitized != "act like a cat" {
		t.Errorf("expected sanitized 'act like a cat', got %q", result.Sanitized)
	}
}

func TestScan_BidiOverride(t *testing.T) {
	result := Scan("hello \u202Etac a ekil tca\u202C")
	if result.Clean {
		t.Fatal("expected findings for bidi override")
	}
	for _, f := range result.Findings {
		if f.Category != "bidi-override" {
			t.Errorf("unexpected category %q", f.Category)
		}
	}
}

func TestScan_HomoglyphFolded(t *testing.T) {
	// Cyrillic 'а' and 'с' in "act"
	result := Scan("\u0430\u0441t like a cat")
	if result.Clean {
		t.Fatal("expected homoglyph findings")
	}
	if result.Sanitized != "act like a cat" {
		t.Errorf("expected folded text, got %q", result.Sanitized)
	}
}

func TestScan_TagCharacters(t *testing.T) {
	result := Scan("hi\U000E0041\U000E0042")
	if len(result.Findings) != 2 {
		t.Fatalf("expected 2 tag findings, got %d", len(result.Findings))
	}
	if result.Sanitized != "hi" {
		t.Errorf("expected tag chars removed, got %q", result.Sanitized)
	}
}

func TestScan_InvalidUTF8(t *testing.T) {
	result := Scan("ok\xffok")
	if result.Clean {
		t.Fatal("expected invalid-utf8 finding")
	}
	if result.Findings[0].Category != "invalid-utf8" {
		t.Errorf("expected 'invalid-utf8', got %q", result.Findings[0].Category)
	}
	if result.Sanitized != "okok" {
		t.Errorf("expected invalid byte dropped, got %q", result.Sanitized)
	}
}

func TestScan_NewlinesAndTabsAllowed(t *testing.T) {
	result := Scan("line one\n\tline two\r\n")
	if !result.Clean {
		t.Errorf("whitespace controls should be allowed, got: %v", result.Findings)
	}
}

func TestCountPictographs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"none", "plain words only", 0},
		{"single dog", "Woof 🐕", 1},
		{"paws and bone", "🐾🐾 🦴", 3},
		{"dingbat sun", "☀ sunny", 1},
		{"sparkles", "✨ nice", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountPictographs(tt.text); got != tt.want {
				t.Errorf("CountPictographs(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
