package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/menu-engine/internal/domain/order"
)

// Config holds the complete application configuration, loadable from
// environment variables (MENU_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (MENU_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MaxConns    int32  `default:"0" usage:"Maximum pool connections, 0 keeps the URL or driver default" flag:"max-conns"`
	RateLimit   RateLimitConfig
	Order       OrderConfig
	Health      HealthConfig
	Graceful    GracefulConfig
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// OrderConfig bounds order input.
type OrderConfig struct {
	MaxLines             int `default:"50"  usage:"Maximum lines per order" flag:"max-lines"`
	MaxQuantity          int `default:"99"  usage:"Maximum quantity per line" flag:"max-quantity"`
	MaxInstructionLength int `default:"500" usage:"Maximum special instructions length in characters" flag:"max-instruction-length"`
}

// HealthConfig controls background health probing.
type HealthConfig struct {
	Interval      time.Duration `default:"10s" usage:"Health check interval" flag:"health-interval"`
	MaxGoroutines int           `default:"10000" usage:"Liveness goroutine threshold" flag:"max-goroutines"`
	MaxPoolWaits  int64         `default:"100" usage:"Waiting pool acquires per interval before readiness fails" flag:"max-pool-waits"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Limits converts the order section into service limits.
func (c OrderConfig) Limits() order.Limits {
	return order.Limits{
		MaxLines:             c.MaxLines,
		MaxQuantity:          c.MaxQuantity,
		MaxInstructionLength: c.MaxInstructionLength,
	}
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MENU",
		Files:     []string{"config.yaml", "/etc/menu/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set MENU_DATABASE_URL or DATABASE_URL")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.Errorf("rate limit must be positive, got %d per %s", c.RateLimit.Max, c.RateLimit.Window)
	}
	if c.Order.MaxLines < 0 || c.Order.MaxQuantity < 0 || c.Order.MaxInstructionLength < 0 {
		return errors.New("order limits must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the MENU_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
