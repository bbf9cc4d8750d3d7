// Package config provides configuration management for rent-radar.
// Values come from config.yaml with RENTRADAR_* environment overrides;
// the loaded Config is constructed once in cmd and injected, never
// referenced as ambient global state.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerAddress = ":8080"

	defaultDBHost    = "localhost"
	defaultDBPort    = 5432
	defaultDBUser    = "rent"
	defaultDBName    = "rent_radar"
	defaultDBSSLMode = "disable"

	defaultRedisAddress = "localhost:6379"

	defaultRequestTimeout    = 10 * time.Second
	defaultInterRequestDelay = 1500 * time.Millisecond
	defaultMaxRetries        = 3
	defaultBaseDelay         = 1 * time.Second
	defaultMaxBackoff        = 30 * time.Second
	defaultJitterRatio       = 0.2
	defaultCooldownThreshold = 3
	defaultCooldown          = 60 * time.Second
	defaultRowCooldownEvery  = 20
	defaultRowCooldown       = 2 * time.Second

	defaultFetchMonths      = 2
	defaultStaleThreshold   = 48 * time.Hour
	defaultDedupTTL         = time.Hour
	defaultCacheTTL         = 30 * time.Minute
	defaultPipelineAttempts = 3

	defaultLogLevel  = "info"
	defaultLogFormat = "json"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Debug   bool   `mapstructure:"debug"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis settings for the dedup guard and the search cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CrawlerConfig holds fetch and crawl tuning shared by all sources.
// The delays are operationally tuned; never hard-code replacements.
type CrawlerConfig struct {
	RegionCodes []string `mapstructure:"region_codes"`

	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	InterRequestDelay time.Duration `mapstructure:"inter_request_delay"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BaseDelay         time.Duration `mapstructure:"base_delay"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	JitterRatio       float64       `mapstructure:"jitter_ratio"`
	CooldownThreshold int           `mapstructure:"cooldown_threshold"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	RowCooldownEvery  int           `mapstructure:"row_cooldown_every"`
	RowCooldown       time.Duration `mapstructure:"row_cooldown"`

	MolitAPIKey   string `mapstructure:"molit_api_key"`
	MolitEndpoint string `mapstructure:"molit_endpoint"`
	FetchMonths   int    `mapstructure:"fetch_months"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	DedupTTL       time.Duration `mapstructure:"dedup_ttl"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Schedules      SchedulesMap  `mapstructure:"schedules"`
}

// SchedulesMap maps source name to a cron expression.
type SchedulesMap map[string]string

// NotifyConfig holds Telegram notification settings.
type NotifyConfig struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file path (optional) plus
// RENTRADAR_* environment variables, applies defaults, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RENTRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Defaults plus environment are enough when no file exists.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", defaultServerAddress)

	v.SetDefault("database.host", defaultDBHost)
	v.SetDefault("database.port", defaultDBPort)
	v.SetDefault("database.user", defaultDBUser)
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", defaultDBName)
	v.SetDefault("database.sslmode", defaultDBSSLMode)

	v.SetDefault("redis.address", defaultRedisAddress)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("crawler.region_codes", []string{"11110"})
	v.SetDefault("crawler.request_timeout", defaultRequestTimeout)
	v.SetDefault("crawler.inter_request_delay", defaultInterRequestDelay)
	v.SetDefault("crawler.max_retries", defaultMaxRetries)
	v.SetDefault("crawler.base_delay", defaultBaseDelay)
	v.SetDefault("crawler.max_backoff", defaultMaxBackoff)
	v.SetDefault("crawler.jitter_ratio", defaultJitterRatio)
	v.SetDefault("crawler.cooldown_threshold", defaultCooldownThreshold)
	v.SetDefault("crawler.cooldown", defaultCooldown)
	v.SetDefault("crawler.row_cooldown_every", defaultRowCooldownEvery)
	v.SetDefault("crawler.row_cooldown", defaultRowCooldown)
	v.SetDefault("crawler.molit_api_key", "")
	v.SetDefault("crawler.molit_endpoint",
		"http://openapi.molit.go.kr/OpenAPI_ToolInstall498/service/rest/RTMSDataSvcAptRent/getRTMSDataSvcAptRent")
	v.SetDefault("crawler.fetch_months", defaultFetchMonths)

	v.SetDefault("pipeline.stale_threshold", defaultStaleThreshold)
	v.SetDefault("pipeline.dedup_ttl", defaultDedupTTL)
	v.SetDefault("pipeline.cache_ttl", defaultCacheTTL)
	v.SetDefault("pipeline.max_attempts", defaultPipelineAttempts)

	v.SetDefault("notify.telegram_bot_token", "")
	v.SetDefault("notify.telegram_chat_id", "")

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.format", defaultLogFormat)
}

// Validate checks structural constraints the rest of the system relies on.
func (c *Config) Validate() error {
	if len(c.Crawler.RegionCodes) == 0 {
		return errors.New("crawler.region_codes must not be empty")
	}
	for _, code := range c.Crawler.RegionCodes {
		if len(code) != 5 {
			return fmt.Errorf("region code %q must be a 5-digit LAWD_CD", code)
		}
	}
	if c.Crawler.MaxRetries < 0 {
		return errors.New("crawler.max_retries must not be negative")
	}
	if c.Crawler.JitterRatio < 0 || c.Crawler.JitterRatio >= 1 {
		return errors.New("crawler.jitter_ratio must be in [0, 1)")
	}
	if c.Crawler.FetchMonths < 1 || c.Crawler.FetchMonths > 24 {
		return errors.New("crawler.fetch_months must be between 1 and 24")
	}
	if c.Pipeline.MaxAttempts < 1 {
		return errors.New("pipeline.max_attempts must be at least 1")
	}
	if c.Pipeline.StaleThreshold <= 0 {
		return errors.New("pipeline.stale_threshold must be positive")
	}
	return nil
}
