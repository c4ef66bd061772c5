package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/personaguard/internal/config"
	"github.com/gzhole/personaguard/internal/logger"
)

var (
	logFilterAction string
	logFilterReason string
	logLast         int
	logSummary      bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the PersonaGuard audit log with filtering and summary options.

Examples:
  personaguard log                        # Show all entries
  personaguard log --last 20              # Show last 20 entries
  personaguard log --action redirect      # Show only redirected exchanges
  personaguard log --reason inconsistent  # Show only repaired replies
  personaguard log --summary              # Show summary stats`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterAction, "action", "", "Filter by action (redirect, repair, enhance, passthrough)")
	logCmd.Flags().StringVar(&logFilterReason, "reason", "", "Filter by reason (override, topic-redirect, inconsistent, good, error)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(personaPath, statePath, logPath, storeBackend)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	events, err := readAuditLog(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events, logFilterAction, logFilterReason)

	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(out, events)
		return nil
	}

	printEvents(out, filtered)
	return nil
}

func readAuditLog(path string) ([]logger.AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event logger.AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func filterEvents(events []logger.AuditEvent, action, reason string) []logger.AuditEvent {
	if action == "" && reason == "" {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if action != "" && !strings.EqualFold(e.Action, action) {
			continue
		}
		if reason != "" && !strings.EqualFold(e.Reason, reason) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.AuditEvent) {
	for _, e := range events {
		adapted := ""
		if e.Adapted {
			adapted = " [ADAPTED]"
		}

		fmt.Fprintf(w, "%s %s %s (%s)%s\n", actionIcon(e.Action), formatTimestamp(e.Timestamp), e.Action, e.Reason, adapted)
		fmt.Fprintf(w, "     User: %s\n", e.UserMessage)

		if e.Topic != "" {
			fmt.Fprintf(w, "     Topic: %s\n", e.Topic)
		}
		if len(e.TriggeredSignals) > 0 {
			fmt.Fprintf(w, "     Signals: %s\n", strings.Join(e.TriggeredSignals, ", "))
		}
		for _, issue := range e.Issues {
			fmt.Fprintf(w, "     Issue: %s\n", issue)
		}
		if e.Pattern != "" {
			fmt.Fprintf(w, "     Pattern: %s\n", e.Pattern)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", e.Error)
		}
		fmt.Fprintf(w, "     Length: %d -> %d\n", e.RawLength, e.FinalLength)
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, all []logger.AuditEvent) {
	actions := map[string]int{}
	signals := map[string]int{}
	adaptations := 0
	errorCount := 0

	for _, e := range all {
		actions[e.Action]++
		for _, s := range e.TriggeredSignals {
			signals[s]++
		}
		if e.Adapted {
			adaptations++
		}
		if e.Error != "" {
			errorCount++
		}
	}

	fmt.Fprintln(w, title("PersonaGuard Audit Summary"))
	fmt.Fprintf(w, "  Total exchanges: %d\n", len(all))
	fmt.Fprintf(w, "  Redirect:        %d\n", actions["redirect"])
	fmt.Fprintf(w, "  Repair:          %d\n", actions["repair"])
	fmt.Fprintf(w, "  Enhance:         %d\n", actions["enhance"])
	fmt.Fprintf(w, "  Passthrough:     %d\n", actions["passthrough"])
	fmt.Fprintf(w, "  Adaptations:     %d\n", adaptations)
	fmt.Fprintf(w, "  Errors:          %d\n", errorCount)

	fmt.Fprintf(w, "  First event:     %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(w, "  Last event:      %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	if len(signals) > 0 {
		ids := make([]string, 0, len(signals))
		for id := range signals {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			if signals[ids[i]] != signals[ids[j]] {
				return signals[ids[i]] > signals[ids[j]]
			}
			return ids[i] < ids[j]
		})

		fmt.Fprintln(w)
		fmt.Fprintln(w, section("Threat signals"))
		for _, id := range ids {
			fmt.Fprintf(w, "  %-22s %d\n", id, signals[id])
		}
	}

	fmt.Fprintln(w)
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
