package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/campaign"
	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	campaignCmd := &cobra.Command{
		Use:   "campaign",
		Short: "Manage campaigns and their metrics",
	}
	campaignCmd.AddCommand(newCampaignAddCmd(), newCampaignTrackCmd(), newCampaignMetricsCmd())
	rootCmd.AddCommand(campaignCmd)
}

func newCampaignAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				c, err := s.CreateCampaign(context.Background(), name)
				if err != nil {
					return fmt.Errorf("failed to create campaign: %w", err)
				}

				fmt.Printf("Created campaign '%s' (id %d)\n", c.Name, c.ID)
				return nil
			})
		},
	}
}

func newCampaignTrackCmd() *cobra.Command {
	var (
		n       int64
		revenue float64
	)

	cmd := &cobra.Command{
		Use:   "track <name> <counter>",
		Short: "Bump a campaign execution counter",
		Long: `Bump one of the raw execution counters: sent, delivered, opened,
clicked, replied, bounced, unsubscribed or converted. Use --revenue to
accumulate revenue alongside conversions.

Example:
  leadpilot campaign track q3-outreach delivered --n 950`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, counter := args[0], args[1]

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				if err := s.IncrementCampaignCounter(ctx, name, counter, n); err != nil {
					return fmt.Errorf("failed to track: %w", err)
				}
				if revenue != 0 {
					if err := s.AddCampaignRevenue(ctx, name, revenue); err != nil {
						return fmt.Errorf("failed to add revenue: %w", err)
					}
				}

				fmt.Printf("Campaign '%s': %s += %d\n", name, counter, n)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&n, "n", 1, "amount to add")
	cmd.Flags().Float64Var(&revenue, "revenue", 0, "revenue to accumulate")

	return cmd
}

func newCampaignMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <name>",
		Short: "Recompute and show campaign metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				aggregator := campaign.NewAggregator(s)

				m, err := aggregator.Refresh(context.Background(), name)
				if err != nil {
					return fmt.Errorf("failed to compute metrics: %w", err)
				}

				fmt.Printf("CAMPAIGN: %s\n", name)
				fmt.Printf("  Delivery rate:     %6.2f%%\n", m.DeliveryRate)
				fmt.Printf("  Open rate:         %6.2f%%\n", m.OpenRate)
				fmt.Printf("  Click rate:        %6.2f%%\n", m.ClickRate)
				fmt.Printf("  Reply rate:        %6.2f%%\n", m.ReplyRate)
				fmt.Printf("  Bounce rate:       %6.2f%%\n", m.BounceRate)
				fmt.Printf("  Unsubscribe rate:  %6.2f%%\n", m.UnsubscribeRate)
				fmt.Printf("  Conversion rate:   %6.2f%%\n", m.ConversionRate)
				fmt.Printf("  Revenue/conversion: %.2f\n", m.AvgRevenuePerConversion)
				fmt.Printf("Calculated at %s\n", m.CalculatedAt.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}
