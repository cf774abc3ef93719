package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/interiorchat/internal/domain"
)

// PostgresTranscriptStore persists transcripts in the chat_sessions and chat_messages tables.
type PostgresTranscriptStore struct {
	db *pgxpool.Pool
}

func NewPostgresTranscriptStore(db *pgxpool.Pool) *PostgresTranscriptStore {
	return &PostgresTranscriptStore{db: db}
}

func (s *PostgresTranscriptStore) Name() string {
	return "postgres"
}

func (s *PostgresTranscriptStore) Create(ctx context.Context, sessionID, page string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO chat_sessions (session_id, last_page)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO NOTHING`,
		sessionID, page,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresTranscriptStore) Append(ctx context.Context, entries ...domain.TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_sessions (session_id, last_page, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (session_id) DO UPDATE SET
				updated_at = EXCLUDED.updated_at,
				last_page = COALESCE(NULLIF(EXCLUDED.last_page, ''), chat_sessions.last_page)`,
			e.SessionID, e.PageContext, createdAt,
		); err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_messages (session_id, role, content, page_context, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			e.SessionID, string(e.Role), e.Content, e.PageContext, createdAt,
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresTranscriptStore) History(ctx context.Context, sessionID string, limit int) ([]domain.TranscriptEntry, error) {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE session_id = $1)`, sessionID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, role, content, page_context, created_at FROM (
			SELECT id, session_id, role, content, page_context, created_at
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) latest
		ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []domain.TranscriptEntry
	for rows.Next() {
		var (
			e    domain.TranscriptEntry
			role string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &role, &e.Content, &e.PageContext, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		e.Role = domain.Role(role)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func (s *PostgresTranscriptStore) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM chat_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *PostgresTranscriptStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *PostgresTranscriptStore) Cleanup(ctx context.Context, idleBefore time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM chat_sessions WHERE updated_at < $1`, idleBefore)
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresTranscriptStore) Summary(ctx context.Context, sessionID string) (domain.SessionSummary, error) {
	sum := domain.SessionSummary{SessionID: sessionID}
	err := s.db.QueryRow(ctx, `
		SELECT s.last_page, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.session_id)
		FROM chat_sessions s
		WHERE s.session_id = $1`,
		sessionID,
	).Scan(&sum.LastPage, &sum.CreatedAt, &sum.UpdatedAt, &sum.MessageCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SessionSummary{}, domain.ErrSessionNotFound
		}
		return domain.SessionSummary{}, fmt.Errorf("get session summary: %w", err)
	}
	return sum, nil
}
