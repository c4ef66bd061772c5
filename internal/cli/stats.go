package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/personaguard/internal/learning"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics and adapted thresholds",
	Long: `Show the outcome totals, personality strength and the thresholds and
preferences the guard has learned so far.

  personaguard stats
  personaguard stats --store sqlite --json`,
	RunE: statsCommand,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

type statsReport struct {
	Stats      learning.Stats           `json:"stats"`
	Adaptation learning.AdaptationStats `json:"adaptation"`
}

func statsCommand(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cmd.Context(), runtimeOptions{restore: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	report := statsReport{
		Stats:      rt.guard.Stats(),
		Adaptation: rt.guard.AdaptationStats(),
	}
	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printStats(cmd.OutOrStdout(), report)
	return nil
}

func printStats(w io.Writer, r statsReport) {
	fmt.Fprintln(w, title("PersonaGuard Learning Stats"))
	fmt.Fprintf(w, "  %s %d\n", label("Exchanges processed:"), r.Stats.TotalProcessed)
	fmt.Fprintf(w, "  %s %.1f%%\n", label("Success rate:       "), r.Stats.SuccessRate*100)
	fmt.Fprintf(w, "  %s %.2f\n", label("Personality strength:"), r.Stats.PersonalityStrength)
	fmt.Fprintln(w)

	fmt.Fprintln(w, section("Thresholds"))
	th := r.Adaptation.Thresholds
	fmt.Fprintf(w, "  %s %d-%d runes\n", label("Length:            "), th.MinLength, th.MaxLength)
	fmt.Fprintf(w, "  %s %.3f\n", label("Persona word ratio:"), th.MinPersonaWordRatio)
	fmt.Fprintf(w, "  %s %.3f\n", label("Symbol ratio:      "), th.MinSymbolRatio)
	fmt.Fprintln(w)

	fmt.Fprintln(w, section("Adaptation"))
	rules := r.Adaptation.Rules
	fmt.Fprintf(w, "  %s %d\n", label("Adaptations:       "), rules.Adaptations)
	if r.Adaptation.LastAdapted.IsZero() {
		fmt.Fprintf(w, "  %s never\n", label("Last adapted:      "))
	} else {
		fmt.Fprintf(w, "  %s %s\n", label("Last adapted:      "), r.Adaptation.LastAdapted.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "  %s %s\n", label("Preferred patterns:"), joinOrNone(patternNames(rules)))
	fmt.Fprintf(w, "  %s %s\n", label("Preferred behaviors:"), joinOrNone(rules.PreferredBehaviors))
}

func patternNames(r learning.Rules) []string {
	names := make([]string, 0, len(r.PreferredPatterns))
	for _, p := range r.PreferredPatterns {
		names = append(names, string(p))
	}
	return names
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
