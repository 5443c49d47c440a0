// Package config loads server configuration from the environment.
//
// LOADING ORDER:
//  1. A .env file in the working directory (optional, local development only)
//  2. Real environment variables (always win over .env values)
//  3. envDefault tags below for anything still unset
//
// Every setting lives in one struct so main.go can hand the pieces to the
// components that need them without each package reading os.Getenv itself.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/kitchi.db"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Auth
	JWTSecret          string        `env:"JWT_SECRET,required"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	GitHubClientID     string        `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `env:"GITHUB_CALLBACK_URL"`

	// Recipe API
	SpoonacularAPIKey  string        `env:"SPOONACULAR_API_KEY"`
	SpoonacularBaseURL string        `env:"SPOONACULAR_BASE_URL" envDefault:"https://api.spoonacular.com"`
	SpoonacularRPS     float64       `env:"SPOONACULAR_RPS" envDefault:"2"`
	SpoonacularTimeout time.Duration `env:"SPOONACULAR_TIMEOUT" envDefault:"10s"`

	// Serverless functions (image analysis, recipe generation)
	FunctionsBaseURL string        `env:"FUNCTIONS_BASE_URL"`
	FunctionsAPIKey  string        `env:"FUNCTIONS_API_KEY"`
	FunctionsTimeout time.Duration `env:"FUNCTIONS_TIMEOUT" envDefault:"60s"`
	ImageMaxBytes    int64         `env:"IMAGE_MAX_BYTES" envDefault:"10485760"`

	// Push notifications
	ExpoPushURL     string `env:"EXPO_PUSH_URL" envDefault:"https://exp.host/--/api/v2/push/send"`
	ExpoAccessToken string `env:"EXPO_ACCESS_TOKEN"`

	// Expiry notifier
	NotifierEnabled    bool          `env:"NOTIFIER_ENABLED" envDefault:"true"`
	NotifierInterval   time.Duration `env:"NOTIFIER_INTERVAL" envDefault:"1h"`
	NotifierWindowDays int           `env:"NOTIFIER_WINDOW_DAYS" envDefault:"2"`
	DeviceRetention    time.Duration `env:"DEVICE_RETENTION" envDefault:"2160h"`

	// Recipe cache (disabled when REDIS_URL is empty)
	RedisURL       string        `env:"REDIS_URL"`
	RecipeCacheTTL time.Duration `env:"RECIPE_CACHE_TTL" envDefault:"24h"`

	// Comma-separated, e.g. "http://localhost:8081,https://kitchi.app"
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"60"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}
	return Parse()
}

// Parse reads only the process environment. Tests use it with t.Setenv.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.NotifierWindowDays < 0 {
		return errors.New("config: NOTIFIER_WINDOW_DAYS must not be negative")
	}
	if c.ImageMaxBytes <= 0 {
		return errors.New("config: IMAGE_MAX_BYTES must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// GitHubEnabled reports whether GitHub sign-in credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// AllowedOrigins splits CORSAllowedOrigins into a trimmed slice.
func (c *Config) AllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
