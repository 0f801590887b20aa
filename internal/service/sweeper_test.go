package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediagrab/internal/domain"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	when := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, when, when))
}

func TestSweeper_Sweep(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "live"}, domain.NewJobState("", false)))
	require.NoError(t, reg.Register(domain.Job{ID: "done"}, domain.NewJobState("", false)))
	require.NoError(t, reg.Apply("done", complete))

	writeAged(t, dir, "video_old.mp4", 2*time.Hour)
	writeAged(t, dir, "old_final.mp3", 3*time.Hour)
	writeAged(t, dir, "video_new.mp4", time.Minute)
	writeAged(t, dir, "temp_video_live.webm.part", 2*time.Hour)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	sw := NewSweeper(reg, SweeperOptions{Dir: dir, Interval: time.Minute, FileMaxAge: time.Hour})
	res := sw.Sweep()

	assert.Equal(t, 2, res.FilesRemoved)
	assert.Equal(t, uint64(8), res.BytesFreed)
	assert.Equal(t, 1, res.JobsEvicted)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"video_new.mp4", "temp_video_live.webm.part", "subdir"}, names)

	_, err = reg.Get("done")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = reg.Get("live")
	assert.NoError(t, err)
}

func TestSweeper_RetentionWindow(t *testing.T) {
	now := time.Now()
	reg := NewRegistry(nil)
	reg.now = func() time.Time { return now }
	require.NoError(t, reg.Register(domain.Job{ID: "done"}, domain.NewJobState("", false)))
	require.NoError(t, reg.Apply("done", complete))

	sw := NewSweeper(reg, SweeperOptions{Dir: t.TempDir(), FileMaxAge: time.Hour, JobRetention: 10 * time.Minute})
	assert.Equal(t, 0, sw.Sweep().JobsEvicted)

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 1, sw.Sweep().JobsEvicted)
}

func TestSweeper_MissingDirectory(t *testing.T) {
	sw := NewSweeper(NewRegistry(nil), SweeperOptions{Dir: filepath.Join(t.TempDir(), "nope"), FileMaxAge: time.Hour})
	assert.Equal(t, SweepResult{}, sw.Sweep())
}

func TestSweeper_RunSweepsImmediatelyAndStops(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "video_old.mp4", 2*time.Hour)

	sw := NewSweeper(NewRegistry(nil), SweeperOptions{Dir: dir, Interval: time.Hour, FileMaxAge: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "video_old.mp4"))
		return os.IsNotExist(err)
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeper_CompletedJobBecomesNotFound(t *testing.T) {
	h := newHarness(t, nil)
	sc := newScript(t, step{ext: "mp4", content: mp4Bytes})
	sc.downloads(h.extractor)

	id, err := h.svc.Submit(context.Background(), testURL, "22")
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusCompleted, h.waitTerminal(t, id).Status)

	sw := NewSweeper(h.svc.Registry(), SweeperOptions{Dir: h.dir, FileMaxAge: time.Hour})
	assert.Equal(t, 1, sw.Sweep().JobsEvicted)

	_, err = h.svc.Status(id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
