package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/experiment"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	rootCmd.AddCommand(newAssignCmd())
}

func newAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <experiment> [subject]",
		Short: "Assign a subject to a variant",
		Long: `Assign a subject to one of a running experiment's variants.

Assignment is idempotent: repeating the command for the same subject
returns the original variant. Omitting the subject generates a fresh id.

Example:
  leadpilot assign welcome-email lead-42`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentName := args[0]
			subjectID := uuid.NewString()
			if len(args) == 2 {
				subjectID = args[1]
			}

			return withStore(func(s *store.SQLiteStore) error {
				engine := experiment.NewEngine(s, logger)

				variant, err := engine.Assign(context.Background(), experimentName, subjectID)
				if err != nil {
					return fmt.Errorf("failed to assign: %w", err)
				}

				fmt.Printf("Subject %s -> variant %q\n", subjectID, variant.Name)
				return nil
			})
		},
	}

	return cmd
}
