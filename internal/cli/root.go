package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	personaPath  string
	statePath    string
	logPath      string
	storeBackend string
	verbose      bool

	zlog = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "personaguard",
	Short: "PersonaGuard - keeps a chat persona in character",
	Long: `PersonaGuard sits between a language model's reply and the user. It
redirects attempts to talk the persona out of character, repairs replies
that break character, and decorates good replies with persona cues. It
learns from recent outcomes and adapts its thresholds over time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zlog = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zlog.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&personaPath, "persona", "", "Path to persona YAML file (default: ~/.personaguard/persona.yaml, built-in dog if missing)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Learning snapshot location: file path, or redis:// URL for --store redis")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.personaguard/audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "file", "Snapshot backend: file, sqlite or redis")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func Execute() error {
	return rootCmd.Execute()
}
