package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/cryptomonitor.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	PriceAPIBase  string        `envconfig:"PRICE_API_BASE" default:"https://min-api.cryptocompare.com"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"5s"`
	PriceCacheTTL time.Duration `envconfig:"PRICE_CACHE_TTL" default:"5m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
