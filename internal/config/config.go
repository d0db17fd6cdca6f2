package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is assembled entirely from environment variables; the service
// runs in container platforms where that is the only configuration
// surface.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	App      AppConfig
	Batch    BatchConfig
}

type ServerConfig struct {
	Port         int           `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	RateLimitRPS float64       `envconfig:"SERVER_RATE_LIMIT_RPS" default:"10"`
	RateBurst    int           `envconfig:"SERVER_RATE_BURST" default:"20"`
}

type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" required:"true"`
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	APIHost  string `envconfig:"TELEGRAM_API_HOST" default:"https://api.telegram.org"`
}

type AppConfig struct {
	// BaseURL is the public portal address deep links point at.
	BaseURL string `envconfig:"APP_BASE_URL" required:"true"`
	// APISecret is the bearer credential the processing endpoints expect.
	APISecret string `envconfig:"API_SECRET_KEY" required:"true"`
}

type BatchConfig struct {
	// Size caps how many eligible updates one pass picks up.
	Size int `envconfig:"BATCH_SIZE" default:"50"`
	// SendInterval is the minimum spacing between outbound Telegram
	// calls. 50ms keeps well under the Bot API broadcast limit.
	SendInterval time.Duration `envconfig:"SEND_INTERVAL" default:"50ms"`
	// PollInterval is how often the worker binary runs a pass.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"1m"`
	// ProducerCacheTTL bounds how long producer display names are cached.
	ProducerCacheTTL time.Duration `envconfig:"PRODUCER_CACHE_TTL" default:"5m"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}
