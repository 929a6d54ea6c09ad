package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/experiment"
	"github.com/leadpilot/leadpilot/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <name>",
	Short: "Show detailed results for an experiment",
	Long:  `Show per-variant rates, confidence intervals and the significance verdict.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	name := args[0]

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		exp, err := s.GetExperiment(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", name)
			}
			return fmt.Errorf("failed to get experiment: %w", err)
		}

		engine := experiment.NewEngine(s, logger)
		result, err := engine.Evaluate(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to evaluate: %w", err)
		}

		fmt.Printf("EXPERIMENT: %s\n", exp.Name)
		fmt.Printf("STATE: %s\n", exp.Status)
		fmt.Printf("CONFIDENCE LEVEL: %.1f%%  MIN SAMPLE: %d\n", exp.ConfidenceLevel, exp.MinSampleSize)
		fmt.Printf("CREATED: %s\n", exp.CreatedAt.Format("2006-01-02"))
		fmt.Println()

		fmt.Printf("VARIANT           IMPRESSIONS  CLICKS   CONVERSIONS  RATE     %.0f%% CI\n", exp.ConfidenceLevel)
		fmt.Println(strings.Repeat("─", 76))

		for _, v := range result.Variants {
			indicator := ""
			if result.Winner != nil && v.Name == *result.Winner {
				indicator = " ← WINNER"
			}

			ciStr := "N/A"
			if v.Interval != nil {
				ciStr = fmt.Sprintf("[%.1f%%, %.1f%%]", v.Interval.Lower, v.Interval.Upper)
			}

			variantName := v.Name
			if len(variantName) > 16 {
				variantName = variantName[:13] + "..."
			}

			fmt.Printf("%-16s  %-11d  %-7d  %-11d  %-7s  %s%s\n",
				variantName,
				v.Impressions,
				v.Clicks,
				v.Conversions,
				formatPercent(v.ConversionRate),
				ciStr,
				indicator,
			)
		}

		fmt.Println()

		if result.SampleSizeMet {
			fmt.Printf("Statistical significance: %.1f%% (z = %.3f, p = %.4f)\n",
				result.Significance, result.ZScore, result.PValue)
			if result.Winner != nil {
				fmt.Printf("Relative improvement: %.1f%%\n", result.Improvement)
			}
		}
		fmt.Printf("Recommendation: %s\n", result.Recommendation)

		return nil
	})
}
