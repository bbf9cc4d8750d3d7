// Package crawl implements the crawl command for running the
// fetch-parse-persist pipeline against the rental portals.
package crawl

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/mgh3326/rent-radar/cmd/common"
	"github.com/mgh3326/rent-radar/internal/pipeline"
)

// Command returns the crawl command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl [source]",
		Short: "Run a crawl for one source or all sources",
		Long: `Run the crawl pipeline: fetch listings, reconcile them into the
database, deactivate stale rows, and send a run summary.

Sources: naver, zigbang, molit. Without an argument all sources run
sequentially.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}

			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			db, err := cmdcommon.OpenDatabase(deps.Config)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			listingCrawlers := cmdcommon.FilterListingCrawlers(
				cmdcommon.BuildListingCrawlers(deps.Config, deps.Logger), source)
			tradeCrawlers := cmdcommon.FilterTradeCrawlers(
				cmdcommon.BuildTradeCrawlers(deps.Config, deps.Logger), source)
			if source != "" && len(listingCrawlers) == 0 && len(tradeCrawlers) == 0 {
				return fmt.Errorf("unknown source %q", source)
			}

			p := cmdcommon.BuildPipeline(cmd.Context(), deps.Config, deps.Logger, db)

			// Manual triggers carry their own dedup window so a
			// double invocation does not queue a second identical run.
			enqueued, err := p.TryEnqueue(cmd.Context(), source)
			if err != nil {
				return fmt.Errorf("failed to acquire enqueue lock: %w", err)
			}
			if !enqueued {
				fmt.Println("an identical crawl was already triggered within the dedup window, skipping")
				return nil
			}

			reports, runErr := p.RunAll(cmd.Context(), listingCrawlers, tradeCrawlers)

			renderReports(reports)
			return runErr
		},
	}
}

// renderReports prints the per-source run summary table.
func renderReports(reports []*pipeline.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{
		"Source", "Attempts", "Raw", "Parsed", "Upserted", "Deactivated", "Fetch Errors", "Duration",
	})
	for _, report := range reports {
		if report.Skipped {
			t.AppendRow(table.Row{report.Source, "-", "-", "-", "-", "-", "-", "skipped"})
			continue
		}
		t.AppendRow(table.Row{
			report.Source,
			report.Attempts,
			report.Raw,
			report.Parsed,
			report.Upserted,
			report.Deactivated,
			report.FetchErrors,
			report.Duration.Round(10 * time.Millisecond),
		})
	}
	t.Render()
}
