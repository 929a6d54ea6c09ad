package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leadpilot/leadpilot/internal/store"
)

func init() {
	leadCmd := &cobra.Command{
		Use:   "lead",
		Short: "Manage leads",
	}
	leadCmd.AddCommand(newLeadAddCmd(), newLeadListCmd())
	rootCmd.AddCommand(leadCmd)
}

func newLeadAddCmd() *cobra.Command {
	var lead store.Lead
	var intentSignals string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a lead",
		Long: `Add a lead with the attributes the scoring engine reads.

Example:
  leadpilot lead add --email ada@acme.io --title "VP Sales" --industry SaaS \
      --company Acme --employees 250 --department sales`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if intentSignals != "" {
				for _, s := range strings.Split(intentSignals, ",") {
					if s = strings.TrimSpace(s); s != "" {
						lead.IntentSignals = append(lead.IntentSignals, s)
					}
				}
			}

			return withStore(func(s *store.SQLiteStore) error {
				if err := s.CreateLead(context.Background(), &lead); err != nil {
					return fmt.Errorf("failed to add lead: %w", err)
				}

				fmt.Printf("Added lead %s\n", lead.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lead.Email, "email", "", "email address")
	cmd.Flags().StringVar(&lead.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&lead.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lead.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&lead.Company, "company", "", "company name")
	cmd.Flags().StringVar(&lead.JobTitle, "title", "", "job title")
	cmd.Flags().StringVar(&lead.Department, "department", "", "department")
	cmd.Flags().StringVar(&lead.Industry, "industry", "", "industry")
	cmd.Flags().IntVar(&lead.EmployeeCount, "employees", 0, "company employee count")
	cmd.Flags().StringVar(&lead.Website, "website", "", "company website")
	cmd.Flags().StringVar(&intentSignals, "intent", "", "comma-separated buying intent signals")
	cmd.Flags().IntVar(&lead.InteractionCount, "interactions", 0, "historical interaction count")

	return cmd
}

func newLeadListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				leads, err := s.ListLeads(context.Background())
				if err != nil {
					return fmt.Errorf("failed to list leads: %w", err)
				}

				if len(leads) == 0 {
					fmt.Println("No leads yet. Add one with 'leadpilot lead add'.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tEMAIL\tTITLE\tCOMPANY\tINDUSTRY\tEMPLOYEES")
				for _, l := range leads {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
						l.ID, l.Email, l.JobTitle, l.Company, l.Industry, l.EmployeeCount)
				}

				return w.Flush()
			})
		},
	}
}
