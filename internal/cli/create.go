package cli

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/experiment"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		variants      string
		confidence    float64
		minSampleSize int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new A/B experiment",
		Long: `Create a new A/B experiment with the specified name and variants.

Variants are given as name=traffic pairs that must sum to 100, or as
bare names for an even split. Without --variants you will be prompted.

Examples:
  leadpilot create welcome-email --variants "control=50,personalized=50"
  leadpilot create subject-line --variants "A,B"
  leadpilot create pricing --variants "A=80,B=20" --confidence 99 --min-sample 500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if variants == "" {
				entered, err := promptVariants()
				if err != nil {
					return err
				}
				variants = entered
			}

			specs, err := parseVariantSpecs(variants)
			if err != nil {
				return err
			}

			return withStore(func(s *store.SQLiteStore) error {
				engine := experiment.NewEngine(s, logger)

				exp, err := engine.Create(context.Background(), name, specs, confidence, minSampleSize)
				if err != nil {
					return fmt.Errorf("failed to create experiment: %w", err)
				}

				fmt.Printf("Created experiment '%s' with %d variants:\n", exp.Name, len(exp.Variants))
				for _, v := range exp.Variants {
					fmt.Printf("  %s: %.1f%% of traffic\n", v.Name, v.TrafficPercent)
				}
				fmt.Printf("Confidence level: %.1f%%, minimum sample size: %d\n", exp.ConfidenceLevel, exp.MinSampleSize)
				fmt.Println("\nExperiment is in draft. Run 'leadpilot start' to begin assigning subjects.")

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variants, "variants", "v", "", "comma-separated name=traffic pairs")
	cmd.Flags().Float64Var(&confidence, "confidence", 95, "confidence level required to declare a winner")
	cmd.Flags().IntVar(&minSampleSize, "min-sample", 100, "minimum impressions per variant before significance is computed")

	return cmd
}

func promptVariants() (string, error) {
	prompt := promptui.Prompt{
		Label:   "Variants (name=traffic, comma-separated)",
		Default: "control=50,variant=50",
	}

	result, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return "", fmt.Errorf("cancelled")
		}
		return "", err
	}

	return result, nil
}
