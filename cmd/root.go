// Package cmd implements the command-line interface for rent-radar.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cmdcommon "github.com/mgh3326/rent-radar/cmd/common"
	"github.com/mgh3326/rent-radar/cmd/crawl"
	"github.com/mgh3326/rent-radar/cmd/listings"
	cmdscheduler "github.com/mgh3326/rent-radar/cmd/scheduler"
	"github.com/mgh3326/rent-radar/cmd/serve"
)

var rootCmd = &cobra.Command{
	Use:   "rentradar",
	Short: "A rental listings crawler and price tracker",
	Long: `rent-radar crawls Korean rental portals and the official trade
registry, reconciles the results into one queryable store, and tracks
price movement over time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cmdcommon.CfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&cmdcommon.Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rentradar version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(cmdscheduler.Command())
	rootCmd.AddCommand(listings.Command())
}
