package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"argus/bootstrap"
	"argus/detect"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultTimeout bounds CLI operations.
const defaultTimeout = 5 * time.Minute

// NewRulesCmd creates the rules command with all subcommands.
func NewRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage detection rules",
		Long: `Manage detection rules: validate rule files, import them into persistent
storage, and list the rules currently known to the engine.`,
	}

	rulesCmd.AddCommand(newRulesValidateCmd())
	rulesCmd.AddCommand(newRulesImportCmd())
	rulesCmd.AddCommand(newRulesListCmd())
	rulesCmd.AddCommand(newRulesDeleteCmd())

	return rulesCmd
}

// newRulesValidateCmd creates the 'rules validate' subcommand.
func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a rule file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newCLILogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			rules, err := detect.LoadRules(args[0], logger.Sugar())
			if err != nil {
				errorColor.Printf("✗ %s is not a valid rule file\n", args[0])
				return err
			}

			successColor.Printf("✓ %s: %d valid rules\n", args[0], len(rules))
			if !quiet {
				renderRulesTable(rules)
			}
			return nil
		},
	}
}

// newRulesImportCmd creates the 'rules import' subcommand.
func newRulesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import rules from a file into persistent storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, err := bootstrap.NewApp(ctx, configFile)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			rules, err := detect.LoadRules(args[0], app.Sugar)
			if err != nil {
				return err
			}

			var s *spinner.Spinner
			if !quiet && !outputJSON {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = fmt.Sprintf(" Importing %d rules...", len(rules))
				s.Start()
			}

			imported := 0
			for i := range rules {
				if err := app.RuleStorage.SaveRule(&rules[i]); err != nil {
					if s != nil {
						s.Stop()
					}
					return fmt.Errorf("failed to import rule %s: %w", rules[i].ID, err)
				}
				imported++
			}
			if s != nil {
				s.Stop()
			}

			successColor.Printf("✓ Imported %d rules from %s\n", imported, args[0])
			return nil
		},
	}
}

// newRulesListCmd creates the 'rules list' subcommand.
func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all rules in persistent storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, err := bootstrap.NewApp(ctx, configFile)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			rules, err := app.RuleStorage.GetAllRules()
			if err != nil {
				return err
			}

			if outputJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(rules)
			}

			renderRulesTable(rules)
			return nil
		},
	}
}

// newRulesDeleteCmd creates the 'rules delete' subcommand.
func newRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule from persistent storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, err := bootstrap.NewApp(ctx, configFile)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if err := app.RuleStorage.DeleteRule(args[0]); err != nil {
				return err
			}
			successColor.Printf("✓ Deleted rule %s\n", args[0])
			return nil
		},
	}
}

// newCLILogger builds a quiet logger for commands that do not need the full
// application.
func newCLILogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
