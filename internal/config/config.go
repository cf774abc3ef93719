package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server
	Port           int      `env:"PORT" envDefault:"3000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	// Conversational backend
	BackendURL            string        `env:"BACKEND_URL" envDefault:"http://localhost:8000"`
	UpstreamTimeout       time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"90s"`
	QuickQuestionsTimeout time.Duration `env:"QUICK_QUESTIONS_TIMEOUT" envDefault:"4s"`
	QuickQuestionsTTL     time.Duration `env:"QUICK_QUESTIONS_CACHE_TTL" envDefault:"10m"`

	// Transcripts (Postgres when DATABASE_URL is set, in-memory otherwise)
	DatabaseURL   string        `env:"DATABASE_URL"`
	TranscriptTTL time.Duration `env:"TRANSCRIPT_TTL" envDefault:"24h"`

	// Rate limiting per client IP. X-Forwarded-For is only honoured from TRUSTED_PROXIES (IPs or CIDRs).
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
	TrustedProxies     []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Telegram ops logging
	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	LogTelegramChatID int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int    `env:"LOG_TOPIC_ERROR"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("parse config: BACKEND_URL is empty")
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) TelegramLoggingEnabled() bool {
	return c.TelegramBotToken != "" && c.LogTelegramChatID != 0
}

func (c *Config) IsAllowedOrigin(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
