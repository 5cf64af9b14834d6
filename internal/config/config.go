package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"backoffice"`
		Port      int    `envconfig:"PORT" default:"8080"`
		LogLevel  string `envconfig:"APP_LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"APP_LOG_FORMAT" default:"json"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"backoffice"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	// Storage is the bucket holding invoice PDFs.
	Storage struct {
		// Host receives the bearer token; documents elsewhere are fetched anonymously.
		Host  string `envconfig:"STORAGE_HOST"`
		Token string `envconfig:"STORAGE_TOKEN"`
	}

	Transitions struct {
		MaxAttempts int `envconfig:"TRANSITION_MAX_ATTEMPTS" default:"3"`
	}
}

func (c *Config) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     fmt.Sprintf("%s:%d", c.DB.Host, c.DB.Port),
		Path:     c.DB.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.DB.SSLMode),
	}

	return u.String()
}

// SlogLevel maps APP_LOG_LEVEL to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.App.LogLevel))); err != nil {
		return slog.LevelInfo
	}

	return lvl
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Transitions.MaxAttempts < 1 {
		return nil, fmt.Errorf("TRANSITION_MAX_ATTEMPTS must be at least 1, got %d", cfg.Transitions.MaxAttempts)
	}

	return &cfg, nil
}
