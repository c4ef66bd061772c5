package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/personaguard/internal/config"
	"github.com/gzhole/personaguard/internal/persona"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Manage persona packs",
	Long: `Manage PersonaGuard persona packs.

Persona packs are YAML files that add behaviors, lexicon, redirect topics
and templates to the base persona. Packs are stored in ~/.personaguard/packs/
and merged with your persona at runtime. A pack whose file name starts with
an underscore is disabled.

Examples:
  personaguard pack list               # List installed packs
  personaguard pack enable park-day    # Enable a pack
  personaguard pack disable bath-time  # Disable a pack
  personaguard pack show park-day      # Show pack details`,
}

var packListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed persona packs",
	RunE:  packList,
}

var packEnableCmd = &cobra.Command{
	Use:   "enable <pack-name>",
	Short: "Enable a disabled persona pack",
	Args:  cobra.ExactArgs(1),
	RunE:  packEnable,
}

var packDisableCmd = &cobra.Command{
	Use:   "disable <pack-name>",
	Short: "Disable a persona pack (prefix with underscore)",
	Args:  cobra.ExactArgs(1),
	RunE:  packDisable,
}

var packShowCmd = &cobra.Command{
	Use:   "show <pack-name>",
	Short: "Show details of a persona pack",
	Args:  cobra.ExactArgs(1),
	RunE:  packShow,
}

func init() {
	packCmd.AddCommand(packListCmd)
	packCmd.AddCommand(packEnableCmd)
	packCmd.AddCommand(packDisableCmd)
	packCmd.AddCommand(packShowCmd)
	rootCmd.AddCommand(packCmd)
}

func packsDir() (*config.Config, error) {
	cfg, err := config.Load(personaPath, statePath, logPath, storeBackend)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.PacksDir, 0700); err != nil {
		return nil, err
	}
	return cfg, nil
}

func packList(cmd *cobra.Command, args []string) error {
	cfg, err := packsDir()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	base, err := persona.Load(cfg.PersonaPath)
	if err != nil {
		return fmt.Errorf("failed to load persona: %w", err)
	}
	_, infos, err := persona.LoadPacks(cfg.PacksDir, base)
	if err != nil && len(infos) == 0 {
		return fmt.Errorf("failed to load packs: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No persona packs installed.")
		fmt.Fprintf(out, "\nTo install packs, copy YAML files to: %s\n", cfg.PacksDir)
		return nil
	}

	fmt.Fprintln(out, title("Installed Persona Packs"))
	for _, info := range infos {
		fmt.Fprintf(out, "  %s  %-25s %s\n", passIcon(info.Enabled && info.Err == nil), info.Name, info.Description)
		if info.Err != nil {
			fmt.Fprintf(out, "       %s\n", failStyle.Render(info.Err.Error()))
			continue
		}
		if info.Version != "" {
			fmt.Fprintf(out, "       v%s by %s  (%d additions)\n", info.Version, info.Author, info.Additions)
		}
	}
	fmt.Fprintln(out, strings.Repeat("─", 60))
	if err != nil {
		fmt.Fprintf(out, "%s merged persona is invalid: %v\n", failStyle.Render("!"), err)
	}
	fmt.Fprintf(out, "\nPacks directory: %s\n", cfg.PacksDir)
	return nil
}

func packEnable(cmd *cobra.Command, args []string) error {
	return setPackEnabled(cmd, args[0], true)
}

func packDisable(cmd *cobra.Command, args []string) error {
	return setPackEnabled(cmd, args[0], false)
}

// packPaths returns the enabled and disabled file names for a pack,
// preferring whichever extension is already on disk.
func packPaths(dir, name string) (enabled, disabled string) {
	for _, ext := range []string{".yaml", ".yml"} {
		enabled = filepath.Join(dir, name+ext)
		disabled = filepath.Join(dir, "_"+name+ext)
		if fileExists(enabled) || fileExists(disabled) {
			return enabled, disabled
		}
	}
	return filepath.Join(dir, name+".yaml"), filepath.Join(dir, "_"+name+".yaml")
}

func setPackEnabled(cmd *cobra.Command, name string, enable bool) error {
	cfg, err := packsDir()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	enabled, disabled := packPaths(cfg.PacksDir, name)
	from, to, verb := disabled, enabled, "enabled"
	if !enable {
		from, to, verb = enabled, disabled, "disabled"
	}

	switch {
	case fileExists(from):
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to update pack %s: %w", name, err)
		}
		fmt.Fprintf(out, "%s Pack '%s' %s.\n", passIcon(enable), name, verb)
		return nil
	case fileExists(to):
		fmt.Fprintf(out, "Pack '%s' is already %s.\n", name, verb)
		return nil
	default:
		return fmt.Errorf("pack '%s' not found in %s", name, cfg.PacksDir)
	}
}

func packShow(cmd *cobra.Command, args []string) error {
	cfg, err := packsDir()
	if err != nil {
		return err
	}

	name := args[0]
	path, disabled := packPaths(cfg.PacksDir, name)
	state := "enabled"
	if !fileExists(path) {
		path, state = disabled, "disabled"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("pack '%s' not found in %s", name, cfg.PacksDir)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%s)\n\n", label("Pack:"), name, state)
	fmt.Fprintln(out, strings.TrimRight(string(data), "\n"))
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
