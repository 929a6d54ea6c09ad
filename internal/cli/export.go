package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	rootCmd.AddCommand(newExportCmd())
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <experiment>",
		Short: "Export an experiment's event log as CSV",
		Long: `Export the raw append-only event log for an experiment as CSV,
for analysis outside LeadPilot.

Example:
  leadpilot export welcome-email -o events.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				exp, err := s.GetExperiment(ctx, name)
				if err != nil {
					return fmt.Errorf("failed to get experiment: %w", err)
				}

				events, err := s.ListEvents(ctx, exp.ID)
				if err != nil {
					return fmt.Errorf("failed to get events: %w", err)
				}

				out := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer f.Close()
					out = f
				}

				variantNames := make(map[int64]string, len(exp.Variants))
				for _, v := range exp.Variants {
					variantNames[v.ID] = v.Name
				}

				w := csv.NewWriter(out)
				if err := w.Write([]string{"id", "experiment", "variant", "subject", "kind", "value", "created_at"}); err != nil {
					return err
				}

				for _, e := range events {
					value := ""
					if e.Value != nil {
						value = strconv.FormatFloat(*e.Value, 'f', -1, 64)
					}
					record := []string{
						strconv.FormatInt(e.ID, 10),
						exp.Name,
						variantNames[e.VariantID],
						e.SubjectID,
						string(e.Kind),
						value,
						e.CreatedAt.Format(time.RFC3339),
					}
					if err := w.Write(record); err != nil {
						return err
					}
				}

				w.Flush()
				if err := w.Error(); err != nil {
					return fmt.Errorf("failed to write csv: %w", err)
				}

				if output != "" {
					fmt.Printf("Exported %d events to %s\n", len(events), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}
