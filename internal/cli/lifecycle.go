package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/experiment"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	rootCmd.AddCommand(
		newLifecycleCmd("start", "Start a draft or paused experiment", func(ctx context.Context, e *experiment.Engine, name string) error {
			return e.Start(ctx, name)
		}),
		newLifecycleCmd("pause", "Pause a running experiment", func(ctx context.Context, e *experiment.Engine, name string) error {
			return e.Pause(ctx, name)
		}),
		newLifecycleCmd("cancel", "Cancel an experiment without declaring a winner", func(ctx context.Context, e *experiment.Engine, name string) error {
			return e.Cancel(ctx, name)
		}),
	)
}

func newLifecycleCmd(verb, short string, fn func(context.Context, *experiment.Engine, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				engine := experiment.NewEngine(s, logger)
				if err := fn(context.Background(), engine, name); err != nil {
					return fmt.Errorf("failed to %s experiment: %w", verb, err)
				}

				fmt.Printf("Experiment '%s': %s ok\n", name, verb)
				return nil
			})
		},
	}
}
