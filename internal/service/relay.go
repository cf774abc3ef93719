package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/set-night/interiorchat/internal/domain"
)

// ErrorReporter receives upstream failures worth an operator's attention.
type ErrorReporter interface {
	LogError(err error, context string)
}

// ChatRelay forwards canonical envelopes to the conversational backend and shapes replies
// for the widget.
type ChatRelay struct {
	backend  Backend
	sessions *SessionService
	reporter ErrorReporter
}

func NewChatRelay(backend Backend, sessions *SessionService, reporter ErrorReporter) *ChatRelay {
	return &ChatRelay{
		backend:  backend,
		sessions: sessions,
		reporter: reporter,
	}
}

// Handle normalizes a raw inbound body and relays it.
func (r *ChatRelay) Handle(ctx context.Context, raw []byte) (domain.ChatReply, error) {
	env, err := Normalize(raw)
	if err != nil {
		return domain.ChatReply{}, err
	}
	turn, err := r.Relay(ctx, env)
	if err != nil {
		return domain.ChatReply{}, err
	}
	return domain.ChatReply{Messages: []domain.ChatTurn{turn}}, nil
}

// Relay sends env upstream and wraps the answer as a single assistant turn.
func (r *ChatRelay) Relay(ctx context.Context, env domain.RequestEnvelope) (domain.ChatTurn, error) {
	text, err := r.backend.Chat(ctx, env)
	if err != nil {
		r.fail(ctx, env, err)
		return domain.ChatTurn{}, fmt.Errorf("relay chat: %w", err)
	}
	turn := domain.NewTextTurn(domain.RoleAssistant, text)
	r.record(ctx, env, turn)
	return turn, nil
}

// Stream relays env to the backend's streaming endpoint, passing each chunk to emit.
// The returned turn holds the full reply.
func (r *ChatRelay) Stream(ctx context.Context, env domain.RequestEnvelope, emit func(delta string) error) (domain.ChatTurn, error) {
	text, err := r.backend.ChatStream(ctx, env, emit)
	if err != nil {
		r.fail(ctx, env, err)
		return domain.ChatTurn{}, fmt.Errorf("relay chat stream: %w", err)
	}
	turn := domain.NewTextTurn(domain.RoleAssistant, text)
	r.record(ctx, env, turn)
	return turn, nil
}

func (r *ChatRelay) record(ctx context.Context, env domain.RequestEnvelope, turn domain.ChatTurn) {
	if r.sessions == nil {
		return
	}
	if err := r.sessions.Record(context.WithoutCancel(ctx), env, turn); err != nil {
		slog.Warn("failed to record transcript",
			"session_id", domain.Deref(env.SessionID),
			"error", err,
		)
	}
}

func (r *ChatRelay) fail(ctx context.Context, env domain.RequestEnvelope, err error) {
	// Client went away; nothing for operators to see.
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		slog.Debug("chat relay cancelled", "session_id", domain.Deref(env.SessionID))
		return
	}
	slog.Error("chat relay failed",
		"session_id", domain.Deref(env.SessionID),
		"page_context", domain.Deref(env.PageContext),
		"error", err,
	)
	if r.reporter != nil {
		go r.reporter.LogError(err, "chat relay")
	}
}
