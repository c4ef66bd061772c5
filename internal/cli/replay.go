package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Process a transcript of exchanges",
	Long: `Read exchanges as JSON lines of the form {"user": "...", "reply": "..."}
and write one decision per line. Reads stdin when no file is given.
Malformed lines are skipped with a warning.

Example:
  personaguard replay transcript.jsonl > decisions.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: replayCommand,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

type exchange struct {
	User  string `json:"user"`
	Reply string `json:"reply"`
}

func replayCommand(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		defer f.Close()
		in = f
	}

	rt, err := openRuntime(cmd.Context(), runtimeOptions{restore: true, persist: true, audit: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			zlog.Warn(err.Error())
		}
	}()

	n, err := replay(in, cmd.OutOrStdout(), rt)
	zlog.Info("replay finished", zap.Int("exchanges", n))
	return err
}

func replay(in io.Reader, out io.Writer, rt *runtime) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	n := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var ex exchange
		if err := json.Unmarshal([]byte(text), &ex); err != nil {
			zlog.Warn("skipping malformed exchange", zap.Int("line", line), zap.Error(err))
			continue
		}
		d := rt.guard.ProcessExchange(ex.User, ex.Reply)
		if err := writeJSON(out, d); err != nil {
			return n, err
		}
		n++
	}
	return n, scanner.Err()
}
