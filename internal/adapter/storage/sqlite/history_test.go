package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediagrab/internal/domain"
)

func newTestHistory(t *testing.T) (*History, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewHistory(store), dir
}

func record(id string, status domain.JobStatus, finished time.Time) domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:          id,
		URL:         "https://example.com/watch?v=" + id,
		FormatID:    "22",
		Status:      status,
		Title:       "Title " + id,
		SubmittedAt: finished.Add(-time.Minute),
		FinishedAt:  finished,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		_, err = os.Stat(filepath.Join(dir, DatabaseName))
		assert.NoError(t, err)
	})

	t.Run("reopens existing database", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, NewHistory(store).Record(context.Background(), record("a", domain.JobStatusCompleted, time.Now())))
		require.NoError(t, store.Close())

		store, err = NewStore(dir)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		recs, err := NewHistory(store).Recent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("fails on missing directory", func(t *testing.T) {
		_, err := NewStore(filepath.Join(t.TempDir(), "missing", "deeper"))
		assert.Error(t, err)
	})
}

func TestHistory_RecordAndRecent(t *testing.T) {
	h, _ := newTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	failed := record("b", domain.JobStatusError, base.Add(time.Minute))
	failed.Error = "download: HTTP Error 403: Forbidden"
	audio := record("c", domain.JobStatusCancelled, base.Add(2*time.Minute))
	audio.IsAudioOnly = true

	require.NoError(t, h.Record(ctx, record("a", domain.JobStatusCompleted, base)))
	require.NoError(t, h.Record(ctx, failed))
	require.NoError(t, h.Record(ctx, audio))

	recs, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "c", recs[0].ID)
	assert.True(t, recs[0].IsAudioOnly)
	assert.Equal(t, domain.JobStatusCancelled, recs[0].Status)

	assert.Equal(t, "b", recs[1].ID)
	assert.Equal(t, "download: HTTP Error 403: Forbidden", recs[1].Error)

	assert.Equal(t, "a", recs[2].ID)
	assert.Equal(t, "https://example.com/watch?v=a", recs[2].URL)
	assert.Equal(t, "22", recs[2].FormatID)
	assert.True(t, base.Equal(recs[2].FinishedAt))
	assert.True(t, base.Add(-time.Minute).Equal(recs[2].SubmittedAt))
}

func TestHistory_RecordIsIdempotent(t *testing.T) {
	h, _ := newTestHistory(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, h.Record(ctx, record("a", domain.JobStatusCompleted, now)))
	require.NoError(t, h.Record(ctx, record("a", domain.JobStatusError, now)))

	recs, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.JobStatusCompleted, recs[0].Status)
}

func TestHistory_RecentLimit(t *testing.T) {
	h, _ := newTestHistory(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		require.NoError(t, h.Record(ctx, record(fmt.Sprintf("job-%03d", i), domain.JobStatusCompleted, base.Add(time.Duration(i)*time.Second))))
	}

	recs, err := h.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, fmt.Sprintf("job-%03d", DefaultHistoryLimit+4), recs[0].ID)

	recs, err = h.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recs, DefaultHistoryLimit)
}

func TestHistory_RecentEmpty(t *testing.T) {
	h, _ := newTestHistory(t)

	recs, err := h.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
