// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration, loaded from environment variables.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"ADDR" envDefault:":8080"`

	// DBPath is the SQLite database file path.
	DBPath string `env:"DB_PATH" envDefault:"./data/rosca.db"`

	// JWTSecret signs session tokens.
	JWTSecret string `env:"JWT_SECRET,required"`

	// TokenTTL is how long session tokens remain valid.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// OverdueGraceDays is how long a late contribution stays payable
	// before the sweep resolves it into missed.
	OverdueGraceDays int `env:"OVERDUE_GRACE_DAYS" envDefault:"30"`

	// AdminToken guards the operational endpoints (sweep trigger,
	// identity verification). Empty disables them.
	AdminToken string `env:"ADMIN_TOKEN"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
