package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/menu-engine/internal/domain/order"
)

func validConfig() Config {
	return Config{
		Addr:        "0.0.0.0:8080",
		DatabaseURL: "postgres://localhost/menu",
		RateLimit:   RateLimitConfig{Max: 100, Window: time.Minute},
		Order:       OrderConfig{MaxLines: 50, MaxQuantity: 99, MaxInstructionLength: 500},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero order limits disable checks", mutate: func(c *Config) { c.Order = OrderConfig{} }},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "zero rate", mutate: func(c *Config) { c.RateLimit.Max = 0 }, wantErr: true},
		{name: "zero window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: true},
		{name: "negative quantity cap", mutate: func(c *Config) { c.Order.MaxQuantity = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/menu")
	t.Setenv("PORT", "9090")

	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/menu", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	explicit := validConfig()
	explicit.Addr = "127.0.0.1:7000"
	explicit.applyPlatformDefaults()
	assert.Equal(t, "postgres://localhost/menu", explicit.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", explicit.Addr)
}

func TestOrderConfigLimits(t *testing.T) {
	got := OrderConfig{MaxLines: 5, MaxQuantity: 10, MaxInstructionLength: 200}.Limits()
	require.Equal(t, order.Limits{MaxLines: 5, MaxQuantity: 10, MaxInstructionLength: 200}, got)
}
