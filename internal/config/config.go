// Package config loads gateway configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment names. The environment selects the cookie Secure flag and the
// Solana chain advertised in sign-in challenges.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all gateway settings.
type Config struct {
	Environment string
	ListenAddr  string

	// Domain and Origin go into SIWS challenges and must match what the
	// browser sees, or wallets will refuse to sign.
	Domain string
	Origin string

	BackendBaseURL string
	BackendAPIKey  string

	RedisURL      string
	EventsEnabled bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getenv("D1C_ENV", EnvDevelopment),
		ListenAddr:     getenv("D1C_LISTEN_ADDR", ":8080"),
		Domain:         getenv("D1C_DOMAIN", "localhost:8080"),
		Origin:         getenv("D1C_ORIGIN", "http://localhost:8080"),
		BackendBaseURL: getenv("D1C_BACKEND_URL", ""),
		BackendAPIKey:  getenv("D1C_BACKEND_API_KEY", ""),
		RedisURL:       getenv("REDIS_URL", ""),
		EventsEnabled:  getbool("D1C_EVENTS_ENABLED"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("invalid D1C_ENV %q", c.Environment)
	}

	if c.BackendBaseURL == "" {
		return fmt.Errorf("D1C_BACKEND_URL is required")
	}

	if c.EventsEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when D1C_EVENTS_ENABLED is set")
	}

	return nil
}

// IsProduction reports whether cookies must carry the Secure flag.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ChainID returns the Solana chain identifier for sign-in challenges.
func (c *Config) ChainID() string {
	if c.Environment == EnvProduction {
		return "solana:mainnet"
	}
	return "solana:devnet"
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getbool(key string) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return value == "1" || value == "true" || value == "yes"
}
