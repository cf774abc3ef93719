package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/set-night/interiorchat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	path     string
	chatID   string
	threadID string
	text     string
}

func fakeTelegram(t *testing.T) (*httptest.Server, func() []sentMessage) {
	t.Helper()
	var (
		mu   sync.Mutex
		sent []sentMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			require.NoError(t, r.ParseForm())
		}
		mu.Lock()
		sent = append(sent, sentMessage{
			path:     r.URL.Path,
			chatID:   r.FormValue("chat_id"),
			threadID: r.FormValue("message_thread_id"),
			text:     r.FormValue("text"),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-100123,"type":"supergroup"}}}`)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []sentMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]sentMessage(nil), sent...)
	}
}

func TestNewTelegramLogger_Disabled(t *testing.T) {
	l, err := NewTelegramLogger(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, l)

	// A nil logger drops everything.
	l.LogError(errors.New("boom"), "chat relay")
	l.Log(LogTypeError, "ignored")
}

func TestTelegramLogger_LogError(t *testing.T) {
	srv, sent := fakeTelegram(t)
	cfg := &config.Config{
		TelegramBotToken:  "123:abc",
		LogTelegramChatID: -100123,
		LogTopicError:     7,
	}

	l, err := NewTelegramLogger(cfg, bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	require.NotNil(t, l)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	l.LogError(errors.New("backend error: `502`"), "chat relay")

	msgs := sent()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasSuffix(msgs[0].path, "/sendMessage"))
	assert.Equal(t, "-100123", msgs[0].chatID)
	assert.Equal(t, "7", msgs[0].threadID)
	assert.Contains(t, msgs[0].text, "*Context:* chat relay")
	assert.Contains(t, msgs[0].text, "backend error: '502'")
	assert.Contains(t, msgs[0].text, "2026-03-01 12:30:00")
}

func TestTelegramLogger_Truncates(t *testing.T) {
	srv, sent := fakeTelegram(t)
	cfg := &config.Config{TelegramBotToken: "123:abc", LogTelegramChatID: 1}

	l, err := NewTelegramLogger(cfg, bot.WithServerURL(srv.URL))
	require.NoError(t, err)

	l.Log(LogTypeError, strings.Repeat("x", config.MaxTelegramMessageLen+500))

	msgs := sent()
	require.Len(t, msgs, 1)
	assert.LessOrEqual(t, len([]rune(msgs[0].text)), config.MaxTelegramMessageLen)
	assert.True(t, strings.HasSuffix(msgs[0].text, "(truncated)"))
}
