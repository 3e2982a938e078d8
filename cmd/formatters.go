package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"argus/core"
	"argus/detect"
)

// renderRulesTable prints rules as an aligned table.
func renderRulesTable(rules []core.DetectionRule) {
	if len(rules) == 0 {
		warningColor.Println("No rules found")
		return
	}

	headerColor.Printf("Detection Rules (%d)\n\n", len(rules))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tPRIORITY\tCONDITIONS\tACTIONS")
	for _, rule := range rules {
		fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\t%d\n",
			rule.ID, truncate(rule.Name, 40), rule.Enabled, rule.Priority,
			len(rule.Conditions), len(rule.Actions))
	}
	_ = w.Flush()
}

// renderResults prints one block per indicator with its detection outcome.
func renderResults(indicators []core.ThreatIndicator, results []*core.DetectionResult) {
	matched := 0
	for i, result := range results {
		indicator := indicators[i]
		if result.Matched() {
			matched++
			errorColor.Printf("▲ %s", indicator.Value)
			fmt.Printf(" (%s, %s)\n", indicator.Type, indicator.Severity)
			fmt.Printf("  Risk score: %.1f\n", result.RiskScore)
			fmt.Printf("  Matched rules: %s\n", strings.Join(result.MatchedRules, ", "))
			for _, action := range result.RecommendedActions {
				if action.Target != "" {
					fmt.Printf("  → %s (%s)\n", action.Type, action.Target)
				} else {
					fmt.Printf("  → %s\n", action.Type)
				}
			}
		} else if !quiet {
			successColor.Printf("● %s", indicator.Value)
			fmt.Printf(" (%s): no matches\n", indicator.Type)
		}
	}

	fmt.Println()
	if matched > 0 {
		warningColor.Printf("%d of %d indicators triggered detections\n", matched, len(results))
	} else {
		successColor.Printf("All %d indicators clean\n", len(results))
	}
}

// renderStats prints the engine counters after a run.
func renderStats(stats detect.EngineStats) {
	if quiet {
		return
	}
	infoColor.Printf("Processed: %d  Alerts: %d  Rules: %d\n",
		stats.ProcessedEvents, stats.ActiveAlerts, stats.LoadedRules)
}

// truncate shortens a string to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
