package repository

import (
	"context"
	"io/fs"
	"os"
	"testing"

	interiorchat "github.com/set-night/interiorchat"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when TRANSCRIPT_TEST_DSN is set.
func TestPostgresTranscriptStore(t *testing.T) {
	dsn := os.Getenv("TRANSCRIPT_TEST_DSN")
	if dsn == "" {
		t.Skip("TRANSCRIPT_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	migrations, err := fs.Sub(interiorchat.MigrationsFS, "migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(dsn, migrations))

	store := NewPostgresTranscriptStore(pool)
	require.Equal(t, "postgres", store.Name())
	testTranscriptStore(t, store)
}
