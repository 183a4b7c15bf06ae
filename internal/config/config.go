// Package config loads process configuration from the environment.
//
// CONFIG STRATEGY:
// All runtime configuration comes from environment variables, parsed into a
// single struct with caarlos0/env. A local .env file is loaded first when it
// exists (godotenv) so development doesn't need exported shell variables —
// production deployments set real environment variables and ship no .env.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port   int    `env:"PORT"    envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/profilehub.db"`

	// GoogleClientID is the OAuth client id the frontend widget uses; ID
	// tokens are audience-checked against it.
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	// SessionSecret signs session JWTs. Generate with: openssl rand -hex 32
	SessionSecret string `env:"SESSION_SECRET"`

	// AllowedOrigin is the single origin permitted by CORS (the SPA's URL).
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"http://localhost:5173"`

	// Env selects deployment behaviour: "production" turns on Secure cookies.
	Env string `env:"APP_ENV" envDefault:"development"`

	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Production reports whether the process runs with production settings.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads a .env file if present, then parses the environment.
//
// A missing .env is not an error; a malformed one is. Validation here is
// limited to what the process cannot start without — the Google client id and
// the session secret.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// A missing .env is expected outside development; anything else
		// (unreadable file, bad syntax) is worth surfacing.
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.GoogleClientID == "" {
		return Config{}, fmt.Errorf("config: GOOGLE_CLIENT_ID must be set")
	}
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("config: SESSION_SECRET must be set")
	}

	return cfg, nil
}
