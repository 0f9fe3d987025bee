package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string   `env:"DATABASE_URL" envDefault:"chat_history.db"`
	HTTPPort           string   `env:"HTTP_PORT" envDefault:"3000"`
	HealthPort         string   `env:"HEALTH_PORT" envDefault:"3001"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"INFO"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	GeminiAPIKey       string   `env:"GEMINI_API_KEY"`
	GeminiModel        string   `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash-latest"`
}

// LoadConfig reads a .env file when present and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on environment variables")
	}

	return parse(env.ToMap(os.Environ()))
}

func parse(environment map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) ResponderEnabled() bool {
	return c.GeminiAPIKey != ""
}
