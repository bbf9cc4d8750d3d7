package common

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/mgh3326/rent-radar/internal/cache"
	"github.com/mgh3326/rent-radar/internal/config"
	"github.com/mgh3326/rent-radar/internal/crawler"
	"github.com/mgh3326/rent-radar/internal/crawler/molit"
	"github.com/mgh3326/rent-radar/internal/crawler/naver"
	"github.com/mgh3326/rent-radar/internal/crawler/zigbang"
	"github.com/mgh3326/rent-radar/internal/database"
	"github.com/mgh3326/rent-radar/internal/dedup"
	"github.com/mgh3326/rent-radar/internal/fetch"
	"github.com/mgh3326/rent-radar/internal/logger"
	"github.com/mgh3326/rent-radar/internal/notify"
	"github.com/mgh3326/rent-radar/internal/pipeline"
	"github.com/mgh3326/rent-radar/internal/regioncode"
)

// OpenDatabase connects to Postgres using the loaded configuration.
func OpenDatabase(cfg *config.Config) (*sqlx.DB, error) {
	return database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
}

// OpenRedis connects to Redis. Callers that can degrade without Redis
// should treat an error here as non-fatal.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return cache.NewRedisClient(ctx, cfg.Redis)
}

// fetchConfig maps crawler config onto the fetch client tuning.
func fetchConfig(cfg config.CrawlerConfig) fetch.Config {
	return fetch.Config{
		RequestTimeout:    cfg.RequestTimeout,
		InterRequestDelay: cfg.InterRequestDelay,
		MaxRetries:        cfg.MaxRetries,
		BaseDelay:         cfg.BaseDelay,
		MaxBackoff:        cfg.MaxBackoff,
		JitterRatio:       cfg.JitterRatio,
		CooldownThreshold: cfg.CooldownThreshold,
		Cooldown:          cfg.Cooldown,
	}
}

// BuildListingCrawlers constructs the portal crawlers. Each source
// gets its own fetch client so 429 state never bleeds across sources.
func BuildListingCrawlers(cfg *config.Config, log logger.Logger) []crawler.ListingCrawler {
	naverClient := fetch.NewClient(fetchConfig(cfg.Crawler), naver.DefaultHeaders(), log)

	districtNames := make([]string, 0, len(cfg.Crawler.RegionCodes))
	for _, code := range cfg.Crawler.RegionCodes {
		districtNames = append(districtNames, regioncode.NameOrCode(code))
	}
	zigbangClient := fetch.NewClient(fetchConfig(cfg.Crawler), nil, log)

	return []crawler.ListingCrawler{
		naver.New(naverClient, log, cfg.Crawler.RegionCodes),
		zigbang.New(zigbangClient, log, districtNames,
			zigbang.WithRowCooldown(cfg.Crawler.RowCooldownEvery, cfg.Crawler.RowCooldown)),
	}
}

// BuildTradeCrawlers constructs the official-trade crawlers. Without a
// MOLIT API key the trade source is skipped entirely.
func BuildTradeCrawlers(cfg *config.Config, log logger.Logger) []crawler.TradeCrawler {
	if cfg.Crawler.MolitAPIKey == "" {
		log.Info("molit api key not configured, skipping trade crawls")
		return nil
	}

	client := fetch.NewClient(fetchConfig(cfg.Crawler), nil, log)
	return []crawler.TradeCrawler{
		molit.New(client, log, molit.Config{
			APIKey:      cfg.Crawler.MolitAPIKey,
			Endpoint:    cfg.Crawler.MolitEndpoint,
			RegionCodes: cfg.Crawler.RegionCodes,
			FetchMonths: cfg.Crawler.FetchMonths,
		}),
	}
}

// BuildPipeline wires repositories, the dedup guard, and the notifier
// into a pipeline. Redis being down degrades to an in-process guard
// rather than blocking crawls.
func BuildPipeline(ctx context.Context, cfg *config.Config, log logger.Logger, db *sqlx.DB) *pipeline.Pipeline {
	var guard dedup.Guard
	if redisClient, err := OpenRedis(ctx, cfg); err != nil {
		log.Warn("redis unavailable, using in-process dedup guard", logger.Error(err))
		guard = dedup.NewMemoryGuard()
	} else {
		guard = dedup.NewRedisGuard(redisClient)
	}

	var notifier notify.Notifier
	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
		notifier = notify.NewTelegramNotifier(cfg.Notify, log)
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	return pipeline.New(
		database.NewListingRepository(db),
		database.NewTradeRepository(db),
		guard,
		notifier,
		log,
		pipeline.Config{
			RegionCodes:    cfg.Crawler.RegionCodes,
			StaleThreshold: cfg.Pipeline.StaleThreshold,
			DedupTTL:       cfg.Pipeline.DedupTTL,
			MaxAttempts:    cfg.Pipeline.MaxAttempts,
		},
	)
}

// FilterListingCrawlers keeps only the named source, or all when the
// name is empty.
func FilterListingCrawlers(crawlers []crawler.ListingCrawler, source string) []crawler.ListingCrawler {
	if source == "" || source == "all" {
		return crawlers
	}
	for _, c := range crawlers {
		if c.Source() == source {
			return []crawler.ListingCrawler{c}
		}
	}
	return nil
}

// FilterTradeCrawlers keeps only the named source, or all when the
// name is empty.
func FilterTradeCrawlers(crawlers []crawler.TradeCrawler, source string) []crawler.TradeCrawler {
	if source == "" || source == "all" {
		return crawlers
	}
	for _, c := range crawlers {
		if c.Source() == source {
			return []crawler.TradeCrawler{c}
		}
	}
	return nil
}
