// Package listings implements the listings command for querying the
// reconciled store from the terminal.
package listings

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/mgh3326/rent-radar/cmd/common"
	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/domain"
)

// Command returns the listings command.
func Command() *cobra.Command {
	var (
		source       string
		dong         string
		propertyType string
		rentType     string
		maxDeposit   int
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List active rental listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			db, err := cmdcommon.OpenDatabase(deps.Config)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			active := true
			filters := database.ListingFilters{
				Source:       source,
				Dong:         dong,
				PropertyType: propertyType,
				RentType:     rentType,
				IsActive:     &active,
				Limit:        limit,
			}
			if maxDeposit > 0 {
				filters.MaxDeposit = &maxDeposit
			}

			results, err := database.NewListingRepository(db).Search(cmd.Context(), filters)
			if err != nil {
				return fmt.Errorf("failed to search listings: %w", err)
			}

			renderListings(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "filter by source (naver, zigbang)")
	cmd.Flags().StringVar(&dong, "dong", "", "filter by neighborhood name")
	cmd.Flags().StringVar(&propertyType, "property-type", "", "filter by property type")
	cmd.Flags().StringVar(&rentType, "rent-type", "", "filter by rent type (jeonse, monthly)")
	cmd.Flags().IntVar(&maxDeposit, "max-deposit", 0, "maximum deposit in 10,000 KRW")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")

	return cmd
}

func renderListings(listings []domain.Listing) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Source", "Type", "Rent", "Deposit", "Monthly", "Area", "Floor", "Address"})
	for _, l := range listings {
		area := "-"
		if l.AreaM2 != nil {
			area = fmt.Sprintf("%.1f", *l.AreaM2)
		}
		floor := "-"
		if l.Floor != nil {
			floor = fmt.Sprintf("%d", *l.Floor)
		}
		t.AppendRow(table.Row{
			l.ID, l.Source, l.PropertyType, l.RentType, l.Deposit, l.MonthlyRent, area, floor, l.Address,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "Total", len(listings)})
	t.Render()
}
