package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"multihorizon/utils"
)

// Config holds the forecast session client settings.
type Config struct {
	APIBaseURL     string        `env:"FORECAST_API_BASE_URL"    envDefault:"http://localhost:5000"`
	RequestTimeout time.Duration `env:"FORECAST_REQUEST_TIMEOUT" envDefault:"30s"`
	SavePath       string        `env:"FORECAST_SAVE_PATH"       envDefault:"/forecast"`

	DefaultItem       string `env:"FORECAST_DEFAULT_ITEM"`
	DefaultHorizon    int    `env:"FORECAST_DEFAULT_HORIZON"    envDefault:"7"`
	Horizons          []int  `env:"FORECAST_HORIZONS"           envDefault:"7,14,30" envSeparator:","`
	RegressorCapacity int    `env:"FORECAST_REGRESSOR_CAPACITY" envDefault:"37"`
	HistoryDays       int    `env:"FORECAST_HISTORY_DAYS"       envDefault:"90"`

	// Empty keeps the token in memory only.
	TokenFile string `env:"FORECAST_TOKEN_FILE"`

	// Optional collaborators; empty disables them.
	DatabaseURL  string `env:"DATABASE_URL"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-lite"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3000"`
}

// AppConfig holds the application-wide configuration once Load has run.
var AppConfig Config

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	AppConfig = cfg
	return cfg, nil
}

// Parse builds a Config from an explicit environment instead of the process one.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the horizon settings are consistent.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("FORECAST_API_BASE_URL is not set")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("FORECAST_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	set := utils.HorizonSet(c.Horizons)
	if len(set) != len(c.Horizons) || len(set) == 0 {
		return fmt.Errorf("FORECAST_HORIZONS must be distinct positive day counts, got %v", c.Horizons)
	}
	if !set[c.DefaultHorizon] {
		return fmt.Errorf("FORECAST_DEFAULT_HORIZON %d is not one of %v", c.DefaultHorizon, utils.SortedHorizons(set))
	}
	if max := utils.MaxHorizon(set); c.RegressorCapacity < max {
		return fmt.Errorf("FORECAST_REGRESSOR_CAPACITY %d is shorter than the longest horizon %d", c.RegressorCapacity, max)
	}
	if c.HistoryDays <= 0 {
		return fmt.Errorf("FORECAST_HISTORY_DAYS must be positive, got %d", c.HistoryDays)
	}
	return nil
}
