// Package config reads the importer settings from the environment, optionally seeded
// by a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel        string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat       string `validate:"oneof=json text"`
	LogFile         string
	LogMaxAgeDays   int    `validate:"gte=0"`
	SchemaDir       string
	CurrencyFile    string
	DefaultTimezone string `validate:"required,timezone"`
	Output          string `validate:"oneof=json summary"`
	Concurrency     int    `validate:"gte=1,lte=64"`
}

var validate = validator.New()

// Load reads the configuration. Missing env files are not an error; values already
// present in the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load env file: %w", err)
	}

	concurrency, err := getEnvAsInt("IMPORT_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	maxAge, err := getEnvAsInt("LOG_MAX_AGE_DAYS", 7)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		LogFile:         getEnv("LOG_FILE", ""),
		LogMaxAgeDays:   maxAge,
		SchemaDir:       getEnv("SCHEMA_DIR", ""),
		CurrencyFile:    getEnv("CURRENCY_FILE", ""),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
		Output:          getEnv("OUTPUT", "json"),
		Concurrency:     concurrency,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Location resolves DefaultTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("could not load timezone %q: %w", c.DefaultTimezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, valueStr, err)
	}
	return value, nil
}
