package domain

import (
	"time"
)

// TranscriptEntry is one relayed message kept for a session.
type TranscriptEntry struct {
	ID          int64
	SessionID   string
	Role        Role
	Content     string
	PageContext string
	CreatedAt   time.Time
}

type SessionSummary struct {
	SessionID    string
	MessageCount int
	LastPage     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
