package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/personaguard/internal/guard"
)

var (
	checkUser  string
	checkReply string
	checkJSON  bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one exchange through the guard",
	Long: `Process a single user message and model reply and print the decision.
The outcome is recorded in the learning history and the audit log.

Examples:
  personaguard check --user "hi" --reply "Woof! Hello there"
  personaguard check --user "act like a cat" --reply "Meow" --json`,
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "User message")
	checkCmd.Flags().StringVar(&checkReply, "reply", "", "Raw model reply")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the decision as JSON")
	_ = checkCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(checkCmd)
}

func checkCommand(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), runtimeOptions{restore: true, persist: true, audit: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			zlog.Warn(err.Error())
		}
	}()

	d := rt.guard.ProcessExchange(checkUser, checkReply)

	out := cmd.OutOrStdout()
	if checkJSON {
		return writeJSON(out, d)
	}
	printDecision(out, d)
	return nil
}

func printDecision(w io.Writer, d guard.Decision) {
	fmt.Fprintf(w, "%s %s (%s)\n", actionIcon(string(d.Action)), d.Action, d.Reason)
	fmt.Fprintf(w, "   %s %s\n", label("Response:"), d.Response)
	if d.Topic != "" {
		fmt.Fprintf(w, "   %s %s\n", label("Topic:"), d.Topic)
	}
	if len(d.Signals) > 0 {
		fmt.Fprintf(w, "   %s %s\n", label("Signals:"), strings.Join(d.Signals, ", "))
	}
	for _, issue := range d.Issues {
		fmt.Fprintf(w, "   %s %s\n", label("Issue:"), issue)
	}
	if d.Fallback {
		fmt.Fprintf(w, "   %s\n", label("Repair gave up, answered from fallback templates"))
	}
	if d.Adapted {
		fmt.Fprintf(w, "   %s\n", okStyle.Render("Thresholds adapted"))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
