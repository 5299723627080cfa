// Package config loads application configuration from a .env file,
// environment variables, and an optional config.yaml, in that precedence
// order (environment overrides file values).
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration.
type Config struct {
	Port     int
	LogLevel slog.Level
	DBPath   string

	JWTSecret  string
	CronSecret string

	// Pipeline tuning.
	Lookahead       time.Duration
	ProviderTimeout time.Duration
	PublishTimeout  time.Duration
	EnableScheduler bool

	// Provider credentials. Empty keys leave the corresponding provider
	// degraded (the assembler substitutes placeholders).
	OpenAIKey    string
	OpenAIModel  string
	UnsplashKey  string
	PexelsKey    string
	GraphBaseURL string

	// Facebook Login app for the connect flow.
	FacebookClientID     string
	FacebookClientSecret string
	FacebookCallbackURL  string

	// SMTP notification. Empty SMTPAddr selects the log notifier.
	SMTPAddr     string
	SMTPFrom     string
	SMTPPassword string
	BaseURL      string
}

// Load reads .env (if present), config.yaml (if present), and the
// environment, and returns the resolved Config.
func Load() (*Config, error) {
	// .env is a developer convenience; absence is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "data/autopost.db")
	v.SetDefault("lookahead", "30m")
	v.SetDefault("provider_timeout", "30s")
	v.SetDefault("publish_timeout", "60s")
	v.SetDefault("enable_scheduler", true)
	v.SetDefault("base_url", "http://localhost:8080")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config.yaml: %w", err)
		}
	}

	cfg := &Config{
		Port:                 v.GetInt("port"),
		LogLevel:             parseLevel(v.GetString("log_level")),
		DBPath:               v.GetString("db_path"),
		JWTSecret:            v.GetString("jwt_secret"),
		CronSecret:           v.GetString("cron_secret"),
		Lookahead:            v.GetDuration("lookahead"),
		ProviderTimeout:      v.GetDuration("provider_timeout"),
		PublishTimeout:       v.GetDuration("publish_timeout"),
		EnableScheduler:      v.GetBool("enable_scheduler"),
		OpenAIKey:            v.GetString("openai_api_key"),
		OpenAIModel:          v.GetString("openai_model"),
		UnsplashKey:          v.GetString("unsplash_access_key"),
		PexelsKey:            v.GetString("pexels_api_key"),
		GraphBaseURL:         v.GetString("graph_base_url"),
		FacebookClientID:     v.GetString("facebook_client_id"),
		FacebookClientSecret: v.GetString("facebook_client_secret"),
		FacebookCallbackURL:  v.GetString("facebook_callback_url"),
		SMTPAddr:             v.GetString("smtp_addr"),
		SMTPFrom:             v.GetString("smtp_from"),
		SMTPPassword:         v.GetString("smtp_password"),
		BaseURL:              v.GetString("base_url"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
