package config

import "time"

const (
	// HTTP server timeouts
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 120 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 15 * time.Second

	// Inbound body limit for chat requests
	MaxChatBodyBytes = 1 << 20

	// Session history
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500

	// Housekeeping
	CleanupInterval = 5 * time.Minute
	LimiterIdleTTL  = 10 * time.Minute

	// Postgres pool sizing
	MaxDBConns = 10
	MinDBConns = 2

	// Telegram limits
	MaxTelegramMessageLen = 4096
	TelegramSendTimeout   = 10 * time.Second

	// Selection preview chip
	SelectionPreviewLen = 100

	// Streaming
	StreamScannerBuffer = 1 << 20
)
