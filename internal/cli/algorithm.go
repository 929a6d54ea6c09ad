package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/scoring"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	algorithmCmd := &cobra.Command{
		Use:   "algorithm",
		Short: "Manage scoring algorithms",
	}
	algorithmCmd.AddCommand(newAlgorithmCreateCmd(), newAlgorithmListCmd(), newAlgorithmPerformanceCmd())
	rootCmd.AddCommand(algorithmCmd)
}

func newAlgorithmCreateCmd() *cobra.Command {
	var (
		weightsJSON string
		hot         float64
		warm        float64
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a scoring algorithm",
		Long: fmt.Sprintf(`Create a weighted scoring algorithm. Weights are a JSON object
mapping feature names to non-negative weights; unknown features are
rejected.

Known features: %s

Example:
  leadpilot algorithm create default \
      --weights '{"seniority":2,"industry":1.5,"company_size":1,"contact_quality":1}' \
      --hot 75 --warm 45`, strings.Join(scoring.KnownFeatures, ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var weights map[string]float64
			if err := json.Unmarshal([]byte(weightsJSON), &weights); err != nil {
				return fmt.Errorf("failed to parse --weights: %w", err)
			}
			if err := scoring.ValidateWeights(weights); err != nil {
				return fmt.Errorf("invalid weights: %w", err)
			}
			if warm > hot {
				return fmt.Errorf("--warm threshold %.1f exceeds --hot %.1f", warm, hot)
			}

			alg := &store.ScoringAlgorithm{
				Name:    name,
				Active:  true,
				Weights: weights,
				Thresholds: store.Thresholds{
					Hot:  hot,
					Warm: warm,
					Cold: 0,
				},
			}

			return withStore(func(s *store.SQLiteStore) error {
				if err := s.CreateAlgorithm(context.Background(), alg); err != nil {
					return fmt.Errorf("failed to create algorithm: %w", err)
				}

				fmt.Printf("Created algorithm '%s' (v%d) with %d weighted features\n",
					alg.Name, alg.Version, len(alg.Weights))
				fmt.Printf("Thresholds: hot >= %.1f, warm >= %.1f\n", hot, warm)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&weightsJSON, "weights", "w", "", "JSON feature-weight map (required)")
	cmd.Flags().Float64Var(&hot, "hot", 75, "score lower-bound for the hot category")
	cmd.Flags().Float64Var(&warm, "warm", 45, "score lower-bound for the warm category")
	cmd.MarkFlagRequired("weights")

	return cmd
}

func newAlgorithmListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scoring algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				algorithms, err := s.ListAlgorithms(context.Background())
				if err != nil {
					return fmt.Errorf("failed to list algorithms: %w", err)
				}

				if len(algorithms) == 0 {
					fmt.Println("No algorithms yet. Create one with 'leadpilot algorithm create'.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tVERSION\tACTIVE\tFEATURES\tHOT\tWARM\tF1")
				for _, a := range algorithms {
					fmt.Fprintf(w, "%s\t%d\t%t\t%d\t%.1f\t%.1f\t%.3f\n",
						a.Name, a.Version, a.Active, len(a.Weights),
						a.Thresholds.Hot, a.Thresholds.Warm, a.Performance.F1)
				}

				return w.Flush()
			})
		},
	}
}

func newAlgorithmPerformanceCmd() *cobra.Command {
	var perf store.Performance

	cmd := &cobra.Command{
		Use:   "performance <name>",
		Short: "Record externally measured model performance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				if err := s.UpdateAlgorithmPerformance(context.Background(), name, perf); err != nil {
					return fmt.Errorf("failed to update performance: %w", err)
				}

				fmt.Printf("Updated performance for '%s'\n", name)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&perf.Accuracy, "accuracy", 0, "accuracy")
	cmd.Flags().Float64Var(&perf.Precision, "precision", 0, "precision")
	cmd.Flags().Float64Var(&perf.Recall, "recall", 0, "recall")
	cmd.Flags().Float64Var(&perf.F1, "f1", 0, "F1 score")

	return cmd
}
