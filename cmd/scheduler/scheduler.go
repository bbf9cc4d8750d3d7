// Package scheduler implements the scheduler command that runs crawls
// on cron schedules.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	cmdcommon "github.com/mgh3326/rent-radar/cmd/common"
	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/logger"
	"github.com/mgh3326/rent-radar/internal/pipeline"
)

// defaultSchedule runs a source every 6 hours when no per-source
// schedule is configured.
const defaultSchedule = "0 */6 * * *"

// Command returns the scheduler command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run crawls on their configured cron schedules",
		Long: `Start the scheduler and run each source's crawl on its cron
schedule from pipeline.schedules. The scheduler runs until interrupted.
Overlapping fires of the same source are skipped by the dedup guard.`,
		RunE: runScheduler,
	}
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	db, err := cmdcommon.OpenDatabase(deps.Config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	p := cmdcommon.BuildPipeline(cmd.Context(), deps.Config, deps.Logger, db)
	listingCrawlers := cmdcommon.BuildListingCrawlers(deps.Config, deps.Logger)
	tradeCrawlers := cmdcommon.BuildTradeCrawlers(deps.Config, deps.Logger)

	c := cron.New()
	schedules := deps.Config.Pipeline.Schedules

	for _, lc := range listingCrawlers {
		if err := addJob(c, schedules[lc.Source()], listingJob(cmd.Context(), p, deps.Logger, lc)); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", lc.Source(), err)
		}
		deps.Logger.Info("scheduled listing crawl",
			logger.String("source", lc.Source()),
			logger.String("schedule", scheduleFor(schedules, lc.Source())))
	}
	for _, tc := range tradeCrawlers {
		if err := addJob(c, schedules[tc.Source()], tradeJob(cmd.Context(), p, deps.Logger, tc)); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", tc.Source(), err)
		}
		deps.Logger.Info("scheduled trade crawl",
			logger.String("source", tc.Source()),
			logger.String("schedule", scheduleFor(schedules, tc.Source())))
	}

	c.Start()
	deps.Logger.Info("scheduler started")

	<-cmd.Context().Done()
	deps.Logger.Info("shutdown signal received, stopping scheduler")

	// Stop returns a context that is done once running jobs finish.
	<-c.Stop().Done()
	return nil
}

func scheduleFor(schedules map[string]string, source string) string {
	if schedule, ok := schedules[source]; ok && schedule != "" {
		return schedule
	}
	return defaultSchedule
}

func addJob(c *cron.Cron, schedule string, job func()) error {
	if schedule == "" {
		schedule = defaultSchedule
	}
	_, err := c.AddFunc(schedule, job)
	return err
}

func listingJob(ctx context.Context, p *pipeline.Pipeline, log logger.Logger, lc crawler.ListingCrawler) func() {
	return func() {
		if _, err := p.RunListingSource(ctx, lc); err != nil {
			log.Error("scheduled listing crawl failed",
				logger.String("source", lc.Source()),
				logger.Error(err))
		}
	}
}

func tradeJob(ctx context.Context, p *pipeline.Pipeline, log logger.Logger, tc crawler.TradeCrawler) func() {
	return func() {
		if _, err := p.RunTradeSource(ctx, tc); err != nil {
			log.Error("scheduled trade crawl failed",
				logger.String("source", tc.Source()),
				logger.Error(err))
		}
	}
}
