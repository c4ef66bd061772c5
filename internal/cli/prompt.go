package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promptExtra string

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the persona system prompt",
	Long: `Print the system prompt that tells the model to stay in character.
Extra instructions are appended after the persona rules.

  personaguard prompt --extra "Keep answers under three sentences."`,
	RunE: promptCommand,
}

func init() {
	promptCmd.Flags().StringVar(&promptExtra, "extra", "", "Additional instructions appended to the prompt")
	rootCmd.AddCommand(promptCmd)
}

func promptCommand(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Fprint(cmd.OutOrStdout(), rt.guard.GenerateSystemPrompt(promptExtra))
	return nil
}
