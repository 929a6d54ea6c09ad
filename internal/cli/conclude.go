package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/experiment"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	rootCmd.AddCommand(newConcludeCmd())
}

func newConcludeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conclude <name>",
		Short: "Conclude an experiment and freeze its result",
		Long: `Run the final significance evaluation, mark the experiment completed
and freeze the winner and significance. This cannot be undone.

Example:
  leadpilot conclude welcome-email`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				engine := experiment.NewEngine(s, logger)

				result, err := engine.Conclude(context.Background(), name)
				if err != nil {
					return fmt.Errorf("failed to conclude: %w", err)
				}

				fmt.Printf("Experiment '%s' concluded.\n", name)
				if result.Winner != nil {
					fmt.Printf("Winner: %q with %.1f%% significance (%.1f%% relative improvement)\n",
						*result.Winner, result.Significance, result.Improvement)
				} else {
					fmt.Printf("No winner declared (significance %.1f%%).\n", result.Significance)
					fmt.Printf("Recommendation at close: %s\n", result.Recommendation)
				}

				return nil
			})
		},
	}

	return cmd
}
