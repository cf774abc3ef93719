package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/interiorchat/internal/config"
)

// TelegramLogger posts operational events to a Telegram chat topic.
// A nil *TelegramLogger is valid and drops everything.
type TelegramLogger struct {
	bot     *bot.Bot
	chatID  int64
	topicID int
	now     func() time.Time
}

// NewTelegramLogger returns nil when Telegram logging is not configured.
func NewTelegramLogger(cfg *config.Config, opts ...bot.Option) (*TelegramLogger, error) {
	if !cfg.TelegramLoggingEnabled() {
		return nil, nil
	}

	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramLogger{
		bot:     b,
		chatID:  cfg.LogTelegramChatID,
		topicID: cfg.LogTopicError,
		now:     time.Now,
	}, nil
}

type LogType string

const (
	LogTypeError LogType = "error"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil {
		return
	}

	// Truncate if too long
	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TelegramSendTimeout)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.chatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: l.topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, context string) {
	if l == nil || err == nil {
		return
	}
	// Backticks in the error would close the code span early.
	errText := strings.ReplaceAll(err.Error(), "`", "'")
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, errText, l.now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}
