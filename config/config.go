package config

import (
	"time"

	"github.com/caarlos0/env/v6"

	"sjsage522/pricewatcher/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
	RedisStream          string `env:"REDIS_STREAM" envDefault:"price-updates"`
	RedisStreamMaxLength int64  `env:"REDIS_STREAM_MAX_LENGTH" envDefault:"500"`

	// Memcache configuration
	MemcacheAddr string `env:"MEMCACHE_ADDR" envDefault:"localhost:11211"`

	// Postgres connection string; the in-memory store is used when empty
	DatabaseURL string `env:"DATABASE_URL"`

	// Supplier configuration
	ChromeAddr     string        `env:"CHROME_ADDR" envDefault:"http://localhost:3000"`
	UseChrome      bool          `env:"USE_CHROME" envDefault:"true"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" envDefault:"45s"`
	RateLimitBlock time.Duration `env:"RATE_LIMIT_BLOCK" envDefault:"5m"`

	// Poll configuration
	PollInterval time.Duration `env:"POLLING_INTERVAL" envDefault:"1h"`
	ItemDelay    time.Duration `env:"ITEM_DELAY" envDefault:"5s"`
	ItemTimeout  time.Duration `env:"ITEM_TIMEOUT" envDefault:"60s"`

	// Management API
	APIPort    int           `env:"API_PORT" envDefault:"8080"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"15m"`

	// Discord
	DiscordToken     string `env:"DISCORD_TOKEN"`
	DiscordChannelID string `env:"CHANNEL_ID"`
	DiscordAPIURL    string `env:"DISCORD_API_URL" envDefault:"https://discord.com/api/v10"`

	// Environment
	Environment string `env:"PRICEWATCH_ENVIRONMENT" envDefault:"development"`
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.NewConfiguration("can't parse env variables", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.NewConfiguration("POLLING_INTERVAL must be positive", nil)
	}
	if c.ItemDelay < 0 {
		return errors.NewConfiguration("ITEM_DELAY must not be negative", nil)
	}
	if c.ItemTimeout <= 0 {
		return errors.NewConfiguration("ITEM_TIMEOUT must be positive", nil)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return errors.NewConfiguration("API_PORT must be a valid port", nil)
	}
	if c.SessionTTL <= 0 {
		return errors.NewConfiguration("SESSION_TTL must be positive", nil)
	}
	if c.UseChrome && c.ChromeAddr == "" {
		return errors.NewConfiguration("CHROME_ADDR is required when USE_CHROME is set", nil)
	}
	if c.Environment == "production" && (c.DiscordToken == "" || c.DiscordChannelID == "") {
		return errors.NewConfiguration("DISCORD_TOKEN and CHANNEL_ID are required in production", nil)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
