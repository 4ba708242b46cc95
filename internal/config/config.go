package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath = "./quotes.db"
	defaultPort   = "8080"
	defaultEnv    = "production"

	envDevelopment = "development"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath   string
	Port     string
	Env      string
	SeedDemo bool
}

// Load reads envFile (".env" when empty) and the process environment and returns a
// validated Config. A missing env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := Config{
		DBPath: getenvWithDefault("DB_PATH", defaultDBPath),
		Port:   getenvWithDefault("PORT", defaultPort),
		Env:    strings.ToLower(getenvWithDefault("APP_ENV", defaultEnv)),
	}

	if raw := os.Getenv("SEED_DEMO"); raw != "" {
		seed, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("SEED_DEMO must be a boolean: %w", err)
		}
		cfg.SeedDemo = seed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether the application runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == envDevelopment
}

// Validate ensures that required configuration fields are populated.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
