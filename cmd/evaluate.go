package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"argus/bootstrap"
	"argus/core"

	"github.com/spf13/cobra"
)

// maxIndicatorFileSize limits indicator files to 50MB.
const maxIndicatorFileSize = 50 * 1024 * 1024

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	var cacheResults bool

	evaluateCmd := &cobra.Command{
		Use:   "evaluate <indicators-file>",
		Short: "Evaluate threat indicators against loaded detection rules",
		Long: `Evaluate reads a JSON file containing an array of threat indicators,
runs each one through the detection engine, and prints the resulting matches,
risk scores, and recommended actions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, err := bootstrap.NewApp(ctx, configFile)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			indicators, err := loadIndicators(args[0])
			if err != nil {
				return err
			}
			if len(indicators) == 0 {
				warningColor.Println("No indicators found in input file")
				return nil
			}

			results := make([]*core.DetectionResult, 0, len(indicators))
			for i := range indicators {
				result := app.Engine.ProcessIndicator(&indicators[i])
				results = append(results, result)

				if cacheResults && app.Cache != nil {
					key := core.GetResultCacheKey(indicators[i].ID)
					if err := app.Cache.Set(ctx, key, result, app.Config.ResultTTL()); err != nil {
						app.Sugar.Warnf("Failed to cache result for %s: %v", indicators[i].ID, err)
					}
				}
			}

			if outputJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(results)
			}

			renderResults(indicators, results)
			renderStats(app.Engine.Stats())
			return nil
		},
	}

	evaluateCmd.Flags().BoolVar(&cacheResults, "cache", false, "Cache detection results in Redis (requires redis.enabled)")

	return evaluateCmd
}

// loadIndicators reads and parses a JSON array of threat indicators.
func loadIndicators(filename string) ([]core.ThreatIndicator, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot access indicator file: %w", err)
	}
	if info.Size() > maxIndicatorFileSize {
		return nil, fmt.Errorf("indicator file too large: %d bytes (max %d)", info.Size(), maxIndicatorFileSize)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read indicator file: %w", err)
	}

	var indicators []core.ThreatIndicator
	if err := json.Unmarshal(data, &indicators); err != nil {
		return nil, fmt.Errorf("failed to parse indicator file %s: %w", filename, err)
	}

	for i := range indicators {
		if indicators[i].Type != "" && !indicators[i].Type.IsValid() {
			return nil, fmt.Errorf("indicator %d: invalid indicator_type %q", i, indicators[i].Type)
		}
		if indicators[i].Severity != "" && !indicators[i].Severity.IsValid() {
			return nil, fmt.Errorf("indicator %d: invalid severity %q", i, indicators[i].Severity)
		}
	}
	return indicators, nil
}
