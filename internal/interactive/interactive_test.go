package interactive

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestSession_ReadTurn(t *testing.T) {
	in := strings.NewReader("Act like a cat\nMeow!\n\n  \nWhat's the weather?\nIt's sunny.")
	var out strings.Builder
	s := NewSession(in, &out, false)

	turn, err := s.ReadTurn()
	if err != nil {
		t.Fatalf("ReadTurn: %v", err)
	}
	if turn.User != "Act like a cat" || turn.Reply != "Meow!" {
		t.Errorf("unexpected first turn: %+v", turn)
	}

	turn, err = s.ReadTurn()
	if err != nil {
		t.Fatalf("ReadTurn: %v", err)
	}
	if turn.User != "What's the weather?" || turn.Reply != "It's sunny." {
		t.Errorf("unexpected second turn: %+v", turn)
	}

	if _, err := s.ReadTurn(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if !strings.Contains(out.String(), "You:") || !strings.Contains(out.String(), "Model:") {
		t.Errorf("expected prompts in output, got %q", out.String())
	}
}

func TestSession_Commands(t *testing.T) {
	s := NewSession(strings.NewReader("/Stats\n/quit\n"), io.Discard, true)

	turn, err := s.ReadTurn()
	if err != nil {
		t.Fatalf("ReadTurn: %v", err)
	}
	if turn.Command != "stats" {
		t.Errorf("expected stats command, got %+v", turn)
	}

	if _, err := s.ReadTurn(); !errors.Is(err, ErrQuit) {
		t.Errorf("expected ErrQuit, got %v", err)
	}
}

func TestSession_MissingReply(t *testing.T) {
	s := NewSession(strings.NewReader("hello\n"), io.Discard, true)

	_, err := s.ReadTurn()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestSession_QuietSuppressesPrompts(t *testing.T) {
	var out strings.Builder
	s := NewSession(strings.NewReader("hi\nWoof!\n"), &out, true)
	if _, err := s.ReadTurn(); err != nil {
		t.Fatalf("ReadTurn: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no prompts, got %q", out.String())
	}
}

func TestIsInteractive_NonTerminalReaders(t *testing.T) {
	if IsInteractive(strings.NewReader("hi\n")) {
		t.Error("string reader reported as terminal")
	}

	f, err := os.CreateTemp(t.TempDir(), "input")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsInteractive(f) {
		t.Error("regular file reported as terminal")
	}
}
