package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/personaguard/internal/interactive"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run exchanges typed at the terminal through the guard",
	Long: `Start an interactive session. For each turn, type the user message and
then the model's raw reply; the guard prints what the user would see.

Commands:
  /stats   show learning statistics
  /prompt  show the system prompt
  /quit    leave the session

Input can also be piped, two lines per exchange.`,
	RunE: chatCommand,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chatCommand(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), runtimeOptions{restore: true, persist: true, audit: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			zlog.Warn(err.Error())
		}
	}()

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	quiet := !interactive.IsInteractive(in)
	if !quiet {
		fmt.Fprintln(out, title(fmt.Sprintf("PersonaGuard chat: %s the %s", rt.persona.Identity.Name, rt.persona.Identity.Breed)))
		fmt.Fprintln(out, label("Type /quit to leave, /stats for learning statistics."))
	}

	return chatLoop(interactive.NewSession(in, out, quiet), out, rt)
}

func chatLoop(s *interactive.Session, out io.Writer, rt *runtime) error {
	for {
		turn, err := s.ReadTurn()
		switch {
		case errors.Is(err, interactive.ErrQuit), errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			zlog.Warn("last exchange has no model reply", zap.Error(err))
			return nil
		case err != nil:
			return err
		}

		switch turn.Command {
		case "":
		case "stats":
			printStats(out, statsReport{Stats: rt.guard.Stats(), Adaptation: rt.guard.AdaptationStats()})
			continue
		case "prompt":
			fmt.Fprint(out, rt.guard.GenerateSystemPrompt(""))
			continue
		default:
			fmt.Fprintf(out, "%s unknown command /%s\n", failStyle.Render("!"), turn.Command)
			continue
		}

		d := rt.guard.ProcessExchange(turn.User, turn.Reply)
		printDecision(out, d)
		fmt.Fprintln(out)
	}
}
