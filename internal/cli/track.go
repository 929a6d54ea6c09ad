package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/experiment"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	rootCmd.AddCommand(newTrackCmd())
}

func newTrackCmd() *cobra.Command {
	var (
		variantName string
		subjectID   string
		value       float64
	)

	cmd := &cobra.Command{
		Use:   "track <experiment> <impression|click|conversion|revenue>",
		Short: "Record an event against a variant",
		Long: `Record an event in the experiment ledger and bump the variant's
counters. Revenue events require --value.

Examples:
  leadpilot track welcome-email impression --variant control --subject lead-42
  leadpilot track welcome-email revenue --variant personalized --subject lead-42 --value 499.00`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentName := args[0]
			kind := store.EventKind(args[1])

			var v *float64
			if cmd.Flags().Changed("value") {
				v = &value
			}

			return withStore(func(s *store.SQLiteStore) error {
				engine := experiment.NewEngine(s, logger)

				err := engine.Record(context.Background(), experimentName, variantName, subjectID, kind, v)
				if err != nil {
					return fmt.Errorf("failed to record event: %w", err)
				}

				fmt.Printf("Recorded %s for variant %q\n", kind, variantName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&variantName, "variant", "", "variant name (required)")
	cmd.Flags().StringVar(&subjectID, "subject", "", "subject identifier")
	cmd.Flags().Float64Var(&value, "value", 0, "revenue amount (revenue events only)")
	cmd.MarkFlagRequired("variant")

	return cmd
}
