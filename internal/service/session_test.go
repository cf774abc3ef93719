package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/set-night/interiorchat/internal/domain"
	"github.com/set-night/interiorchat/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_CreateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(repository.NewMemoryTranscriptStore())

	id, err := svc.Create(ctx, "/about")
	require.NoError(t, err)
	assert.Len(t, id, 36)

	sum, err := svc.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/about", sum.LastPage)
	assert.Zero(t, sum.MessageCount)

	n, err := svc.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.Delete(ctx, id))
	assert.ErrorIs(t, svc.Delete(ctx, id), domain.ErrSessionNotFound)
}

func TestSessionService_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(repository.NewMemoryTranscriptStore())

	env := domain.RequestEnvelope{SessionID: domain.StringPtr("s1"), PageContext: domain.StringPtr("/")}
	for i := range 30 {
		env.Message = fmt.Sprintf("question %d", i)
		require.NoError(t, svc.Record(ctx, env, domain.NewTextTurn(domain.RoleAssistant, fmt.Sprintf("answer %d", i))))
	}

	all, err := svc.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 50)
	assert.Equal(t, "answer 29", all[len(all)-1].Content)

	last, err := svc.History(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, last, 3)
	assert.Equal(t, "answer 28", last[0].Content)
	assert.Equal(t, "question 29", last[1].Content)
	assert.Equal(t, "answer 29", last[2].Content)

	_, err = svc.History(ctx, "missing", 10)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionService_ExpireIdle(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(repository.NewMemoryTranscriptStore())

	_, err := svc.Create(ctx, "/")
	require.NoError(t, err)

	n, err := svc.ExpireIdle(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	time.Sleep(5 * time.Millisecond)
	n, err = svc.ExpireIdle(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.ExpireIdle(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
