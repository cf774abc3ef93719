package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/interiorchat/internal/config"
	"github.com/set-night/interiorchat/internal/domain"
)

// TranscriptStore persists relayed exchanges per session.
type TranscriptStore interface {
	Name() string
	Create(ctx context.Context, sessionID, page string) error
	Append(ctx context.Context, entries ...domain.TranscriptEntry) error
	History(ctx context.Context, sessionID string, limit int) ([]domain.TranscriptEntry, error)
	Summary(ctx context.Context, sessionID string) (domain.SessionSummary, error)
	Delete(ctx context.Context, sessionID string) error
	Count(ctx context.Context) (int, error)
	Cleanup(ctx context.Context, idleBefore time.Time) (int64, error)
}

type SessionService struct {
	store TranscriptStore
}

func NewSessionService(store TranscriptStore) *SessionService {
	return &SessionService{store: store}
}

// Create registers a new server-issued session id.
func (s *SessionService) Create(ctx context.Context, page string) (string, error) {
	id := uuid.NewString()
	if err := s.store.Create(ctx, id, page); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Record appends a completed exchange. Exchanges without a session id are not kept.
func (s *SessionService) Record(ctx context.Context, env domain.RequestEnvelope, reply domain.ChatTurn) error {
	if env.SessionID == nil {
		return nil
	}
	page := domain.Deref(env.PageContext)
	now := time.Now()
	entries := []domain.TranscriptEntry{
		{SessionID: *env.SessionID, Role: domain.RoleUser, Content: env.Message, PageContext: page, CreatedAt: now},
		{SessionID: *env.SessionID, Role: domain.RoleAssistant, Content: reply.Text(), PageContext: page, CreatedAt: now},
	}
	if err := s.store.Append(ctx, entries...); err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// History returns at most limit of the latest entries, oldest first.
func (s *SessionService) History(ctx context.Context, sessionID string, limit int) ([]domain.TranscriptEntry, error) {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	if limit > config.MaxHistoryLimit {
		limit = config.MaxHistoryLimit
	}
	return s.store.History(ctx, sessionID, limit)
}

func (s *SessionService) Summary(ctx context.Context, sessionID string) (domain.SessionSummary, error) {
	return s.store.Summary(ctx, sessionID)
}

func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

func (s *SessionService) ActiveCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *SessionService) StoreName() string {
	return s.store.Name()
}

// ExpireIdle drops sessions untouched for longer than ttl.
func (s *SessionService) ExpireIdle(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	n, err := s.store.Cleanup(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return n, nil
}
