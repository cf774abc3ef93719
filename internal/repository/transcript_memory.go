package repository

import (
	"context"
	"sync"
	"time"

	"github.com/set-night/interiorchat/internal/domain"
)

type memorySession struct {
	createdAt time.Time
	updatedAt time.Time
	lastPage  string
	entries   []domain.TranscriptEntry
}

// MemoryTranscriptStore keeps transcripts in process memory. Used when no database is configured.
type MemoryTranscriptStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	nextID   int64
}

func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryTranscriptStore) Name() string {
	return "memory"
}

func (s *MemoryTranscriptStore) Create(_ context.Context, sessionID, page string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		return nil
	}
	now := time.Now()
	s.sessions[sessionID] = &memorySession{createdAt: now, updatedAt: now, lastPage: page}
	return nil
}

func (s *MemoryTranscriptStore) Append(_ context.Context, entries ...domain.TranscriptEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, e := range entries {
		sess, ok := s.sessions[e.SessionID]
		if !ok {
			sess = &memorySession{createdAt: now}
			s.sessions[e.SessionID] = sess
		}
		s.nextID++
		e.ID = s.nextID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		sess.entries = append(sess.entries, e)
		sess.updatedAt = now
		if e.PageContext != "" {
			sess.lastPage = e.PageContext
		}
	}
	return nil
}

func (s *MemoryTranscriptStore) History(_ context.Context, sessionID string, limit int) ([]domain.TranscriptEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	entries := sess.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]domain.TranscriptEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryTranscriptStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryTranscriptStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func (s *MemoryTranscriptStore) Cleanup(_ context.Context, idleBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, sess := range s.sessions {
		if sess.updatedAt.Before(idleBefore) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Summary reports aggregate information about one session.
func (s *MemoryTranscriptStore) Summary(_ context.Context, sessionID string) (domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}
	return domain.SessionSummary{
		SessionID:    sessionID,
		MessageCount: len(sess.entries),
		LastPage:     sess.lastPage,
		CreatedAt:    sess.createdAt,
		UpdatedAt:    sess.updatedAt,
	}, nil
}
