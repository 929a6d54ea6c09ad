package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/scoring"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	scoreCmd := newScoreCmd()
	scoreCmd.AddCommand(newScoreBatchCmd())
	rootCmd.AddCommand(scoreCmd)
}

func newScoreCmd() *cobra.Command {
	var algorithmName string

	cmd := &cobra.Command{
		Use:   "score <lead-id>",
		Short: "Score a lead",
		Long: `Score a lead with a configured algorithm and print the result with
its explanation. Rescoring replaces the stored result.

Example:
  leadpilot score 5e2cbbd0-... --algorithm default`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				engine := scoring.NewEngine(s, logger)

				result, err := engine.Score(context.Background(), leadID, algorithmName)
				if err != nil {
					return fmt.Errorf("failed to score lead: %w", err)
				}

				printScoringResult(result)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&algorithmName, "algorithm", "a", "default", "scoring algorithm name")

	return cmd
}

func newScoreBatchCmd() *cobra.Command {
	var algorithmName string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score every lead",
		Long: `Score all leads with the given algorithm. Leads that fail to score
are logged and skipped; the rest still get results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				leads, err := s.ListLeads(ctx)
				if err != nil {
					return fmt.Errorf("failed to list leads: %w", err)
				}

				ids := make([]string, len(leads))
				for i, l := range leads {
					ids[i] = l.ID
				}

				engine := scoring.NewEngine(s, logger)
				results, err := engine.ScoreBatch(ctx, ids, algorithmName)
				if err != nil {
					return fmt.Errorf("failed to score batch: %w", err)
				}

				fmt.Printf("Scored %d of %d leads\n", len(results), len(leads))
				for _, r := range results {
					fmt.Printf("  %s: %.1f (%s)\n", r.LeadID, r.Score, r.Category)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&algorithmName, "algorithm", "a", "default", "scoring algorithm name")

	return cmd
}

func printScoringResult(r *store.ScoringResult) {
	fmt.Printf("LEAD: %s\n", r.LeadID)
	fmt.Printf("SCORE: %.1f / 100 (%s)\n", r.Score, r.Category)
	fmt.Printf("CONFIDENCE: %.0f%%\n", r.Confidence*100)
	fmt.Println()
	fmt.Println(r.Explanation.Summary)

	if len(r.Explanation.TopFactors) > 0 {
		fmt.Println("\nTop factors:")
		for _, f := range r.Explanation.TopFactors {
			fmt.Printf("  %-20s value %.2f x weight %.2f = %.3f\n",
				f.Feature, f.Value, f.Weight, f.Contribution)
		}
	}
}
