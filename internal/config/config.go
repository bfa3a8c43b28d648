// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration.
type Config struct {
	Addr   string `env:"ADDR" envDefault:":8080"`
	DBPath string `env:"DB_PATH" envDefault:"./data/roozterface.db"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// EventsToken is the shared secret the change-notification substrate must
	// present on the event intake route.
	EventsToken string `env:"EVENTS_TOKEN" envDefault:"dev-events-token-change-me"`

	// AdminUID is the only caller allowed to trigger reconciliation. Empty
	// means nobody; there is no safe default admin.
	AdminUID string `env:"ADMIN_UID"`

	// VerifierBaseURL is the subscription verification endpoint prefix; the
	// package name, product id and token are appended per request.
	VerifierBaseURL string `env:"VERIFIER_BASE_URL" envDefault:"https://androidpublisher.googleapis.com/androidpublisher/v3/applications"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
