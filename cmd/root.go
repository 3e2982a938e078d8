// Package cmd provides command-line interface commands for the Argus
// detection engine.
package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags shared by all commands
var (
	configFile string
	outputJSON bool
	noColor    bool
	quiet      bool
)

// NewRootCmd creates the argus root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "argus",
		Short: "Argus threat indicator detection engine",
		Long: `Argus evaluates threat indicators against weighted, prioritized detection
rules and produces detection results with risk scores and recommended response
actions.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(NewRulesCmd())
	rootCmd.AddCommand(NewEvaluateCmd())

	return rootCmd
}
