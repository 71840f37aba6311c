package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvander/murmur/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T, retentionDays int) *Store {
	t.Helper()
	cfg := config.HistoryConfig{
		Path:          filepath.Join(t.TempDir(), "history.db"),
		RetentionDays: retentionDays,
	}
	s, err := Open(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAppendAndTotals(t *testing.T) {
	s := openTestStore(t, 30)
	ctx := context.Background()

	require.NoError(t, s.AppendSession(ctx, SessionRecord{
		SessionID:    "s1",
		Mode:         "cloud",
		AudioSeconds: 2,
		Chars:        42,
		Cost:         0.0002,
	}))
	require.NoError(t, s.AppendSession(ctx, SessionRecord{
		SessionID:    "s2",
		Mode:         "local",
		AudioSeconds: 3.5,
		Chars:        80,
	}))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Sessions)
	assert.InDelta(t, 5.5, totals.AudioSeconds, 1e-9)
	assert.Equal(t, int64(122), totals.Chars)
	assert.InDelta(t, 0.0002, totals.Cost, 1e-9)
}

func TestStoreRecentSessionsNewestFirst(t *testing.T) {
	s := openTestStore(t, 30)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.AppendSession(ctx, SessionRecord{
			SessionID: id,
			Mode:      "cloud",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	records, err := s.RecentSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].SessionID)
	assert.Equal(t, "mid", records[1].SessionID)
}

func TestStorePruneDropsExpiredRows(t *testing.T) {
	s := openTestStore(t, 7)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.AppendSession(ctx, SessionRecord{SessionID: "stale", Mode: "cloud", CreatedAt: now.Add(-10 * 24 * time.Hour)}))
	require.NoError(t, s.AppendSession(ctx, SessionRecord{SessionID: "fresh", Mode: "cloud", CreatedAt: now}))
	require.NoError(t, s.AppendAttempt(ctx, AttemptRecord{SessionID: "stale", Method: "keystroke", CreatedAt: now.Add(-10 * 24 * time.Hour)}))

	require.NoError(t, s.Prune(ctx))

	records, err := s.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].SessionID)
}

func TestStoreWithoutPathIsNoop(t *testing.T) {
	s, err := Open(context.Background(), config.HistoryConfig{}, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, s.AppendSession(ctx, SessionRecord{SessionID: "x"}))
	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Zero(t, totals.Sessions)
	assert.NoError(t, s.Close())
}
