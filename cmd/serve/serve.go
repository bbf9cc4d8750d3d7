// Package serve implements the serve command that runs the HTTP API.
package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/mgh3326/rent-radar/cmd/common"
	"github.com/mgh3326/rent-radar/internal/api"
	"github.com/mgh3326/rent-radar/internal/cache"
	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/logger"
	"github.com/mgh3326/rent-radar/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Command returns the serve command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve the listings API: search, price history, official trade
trends, market comparison, and favorites.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	db, err := cmdcommon.OpenDatabase(deps.Config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Search caching is an optimization; a down Redis only costs
	// latency.
	var resultCache service.ResultCache
	if redisClient, redisErr := cmdcommon.OpenRedis(cmd.Context(), deps.Config); redisErr != nil {
		deps.Logger.Warn("redis unavailable, serving without search cache", logger.Error(redisErr))
	} else {
		resultCache = cache.New(redisClient, deps.Config.Pipeline.CacheTTL)
	}

	listingRepo := database.NewListingRepository(db)
	tradeRepo := database.NewTradeRepository(db)
	priceChangeRepo := database.NewPriceChangeRepository(db)
	favoriteRepo := database.NewFavoriteRepository(db)

	listingService := service.NewListingService(listingRepo, resultCache, deps.Logger)
	comparisonService := service.NewComparisonService(listingRepo, tradeRepo)
	priceService := service.NewPriceService(priceChangeRepo, tradeRepo)
	favoriteService := service.NewFavoriteService(favoriteRepo)
	safetyService := service.NewSafetyService(listingRepo, tradeRepo)

	server := api.NewServer(deps.Config.Server, deps.Logger, api.Handlers{
		Listings:  api.NewListingsHandler(listingService, comparisonService, deps.Logger),
		Prices:    api.NewPricesHandler(priceService, deps.Logger),
		Favorites: api.NewFavoritesHandler(favoriteService, deps.Logger),
		Safety:    api.NewSafetyHandler(safetyService, deps.Logger),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}
