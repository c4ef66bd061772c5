// Package interactive reads chat turns typed at a terminal. Each turn is
// a user message followed by the model reply to run through the guard.
package interactive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrQuit is returned by ReadTurn when the user asks to leave.
var ErrQuit = errors.New("quit")

// Turn is one exchange, or a slash command such as "/stats".
type Turn struct {
	User    string
	Reply   string
	Command string
}

// IsInteractive reports whether in is a terminal. Readers that are not
// files, such as pipes handed in by tests, never are.
func IsInteractive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type Session struct {
	reader *bufio.Reader
	out    io.Writer
	quiet  bool
}

// NewSession reads turns from in and writes prompts to out. Prompts are
// suppressed when quiet is set, as for piped input.
func NewSession(in io.Reader, out io.Writer, quiet bool) *Session {
	return &Session{reader: bufio.NewReader(in), out: out, quiet: quiet}
}

// ReadTurn reads the next turn. Blank user lines are skipped. A line
// starting with "/" is returned as a command; "/quit" and "/exit" return
// ErrQuit. End of input returns io.EOF.
func (s *Session) ReadTurn() (Turn, error) {
	for {
		user, err := s.readLine("You:   ")
		if err != nil {
			return Turn{}, err
		}
		if user == "" {
			continue
		}

		if strings.HasPrefix(user, "/") {
			cmd := strings.ToLower(strings.TrimPrefix(user, "/"))
			switch cmd {
			case "quit", "exit", "q":
				return Turn{}, ErrQuit
			default:
				return Turn{Command: cmd}, nil
			}
		}

		reply, err := s.readLine("Model: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Turn{}, fmt.Errorf("input ended before the model reply: %w", io.ErrUnexpectedEOF)
			}
			return Turn{}, err
		}
		return Turn{User: user, Reply: reply}, nil
	}
}

func (s *Session) readLine(prompt string) (string, error) {
	if !s.quiet {
		fmt.Fprint(s.out, prompt)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
