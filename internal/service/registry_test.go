package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/port"
)

func complete(s *domain.JobState) error {
	s.Status = domain.JobStatusCompleted
	s.Progress = 100
	s.FinalPath = "/tmp/video.mp4"
	return nil
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("A", true)))
	assert.ErrorIs(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("A", true)), domain.ErrAlreadyExists)

	st, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusStarting, st.Status)
	assert.True(t, st.IsAudioOnly)

	_, err = reg.Get("b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, reg.Apply("b", complete), domain.ErrNotFound)
	assert.True(t, reg.Cancelled("b"))
}

func TestRegistry_ApplyRefusedAfterCancelAndTerminal(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))
	require.NoError(t, reg.Register(domain.Job{ID: "b"}, domain.NewJobState("", false)))

	_, _, err := reg.beginCancel("a")
	require.NoError(t, err)
	assert.ErrorIs(t, reg.Apply("a", complete), domain.ErrCancelled)

	require.NoError(t, reg.Apply("b", complete))
	assert.ErrorIs(t, reg.Apply("b", complete), errTerminal)

	_, _, err = reg.beginCancel("b")
	assert.ErrorIs(t, err, errTerminal)
	st, _ := reg.Get("b")
	assert.Equal(t, domain.JobStatusCompleted, st.Status)
}

func TestRegistry_ApplyKeepsMutationOnError(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))

	boom := errors.New("boom")
	err := reg.Apply("a", func(s *domain.JobState) error {
		s.Progress = 50
		return boom
	})
	assert.ErrorIs(t, err, boom)
	st, _ := reg.Get("a")
	assert.Zero(t, st.Progress)
}

func TestRegistry_StartProcess(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))

	p := newFakeProcess("")
	got, err := startProcess(reg, "a", func() (port.ProcessHandle, error) { return p, nil })
	require.NoError(t, err)
	assert.Same(t, p, got)

	proc, _, err := reg.beginCancel("a")
	require.NoError(t, err)
	assert.Same(t, p, proc)

	spawned := false
	_, err = startProcess(reg, "a", func() (port.ProcessHandle, error) {
		spawned = true
		return newFakeProcess(""), nil
	})
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.False(t, spawned)

	_, err = startProcess(reg, "missing", func() (port.ProcessHandle, error) { return p, nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_ReleaseProcess(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))

	first, second := newFakeProcess(""), newFakeProcess("")
	_, err := startProcess(reg, "a", func() (port.ProcessHandle, error) { return first, nil })
	require.NoError(t, err)
	_, err = startProcess(reg, "a", func() (port.ProcessHandle, error) { return second, nil })
	require.NoError(t, err)

	reg.ReleaseProcess("a", first)
	proc, _, err := reg.beginCancel("a")
	require.NoError(t, err)
	assert.Same(t, second, proc)
}

func TestRegistry_ClaimArtifact(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a", URL: "u"}, domain.NewJobState("", false)))

	_, _, err := reg.ClaimArtifact("a")
	assert.ErrorIs(t, err, domain.ErrNotReady)

	require.NoError(t, reg.Apply("a", complete))
	job, st, err := reg.ClaimArtifact("a")
	require.NoError(t, err)
	assert.Equal(t, "u", job.URL)
	assert.Equal(t, "/tmp/video.mp4", st.FinalPath)

	_, _, err = reg.ClaimArtifact("a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = reg.ClaimArtifact("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_ConcurrentClaimHandsOutOnce(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))
	require.NoError(t, reg.Apply("a", complete))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := reg.ClaimArtifact("a"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRegistry_EvictTerminal(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := NewRegistry(nil)
	reg.now = func() time.Time { return now }

	for _, id := range []string{"done", "failed", "running", "fresh"} {
		require.NoError(t, reg.Register(domain.Job{ID: id}, domain.NewJobState("", false)))
	}
	require.NoError(t, reg.Apply("done", complete))
	require.NoError(t, reg.Apply("failed", func(s *domain.JobState) error {
		s.Status = domain.JobStatusError
		return nil
	}))

	now = now.Add(10 * time.Minute)
	require.NoError(t, reg.Apply("fresh", complete))

	evicted := reg.EvictTerminal(5 * time.Minute)
	assert.ElementsMatch(t, []string{"done", "failed"}, evicted)
	assert.ElementsMatch(t, []string{"running"}, reg.LiveIDs())
	assert.Equal(t, 2, reg.Len())

	evicted = reg.EvictTerminal(0)
	assert.Equal(t, []string{"fresh"}, evicted)
}

func TestRegistry_EvictSkipsLockedEntries(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))
	require.NoError(t, reg.Apply("a", complete))

	e, ok := reg.lookup("a")
	require.True(t, ok)
	e.mu.Lock()
	assert.Empty(t, reg.EvictTerminal(0))
	e.mu.Unlock()

	assert.Equal(t, []string{"a"}, reg.EvictTerminal(0))
}

func TestRegistry_TerminalHookRunsOnce(t *testing.T) {
	reg := NewRegistry(nil)
	var got []domain.JobStatus
	reg.OnTerminal(func(_ domain.Job, st domain.JobState, _ time.Time) {
		got = append(got, st.Status)
	})

	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))
	require.NoError(t, reg.Register(domain.Job{ID: "b"}, domain.NewJobState("", false)))

	require.NoError(t, reg.Apply("a", complete))
	_ = reg.Apply("a", complete)

	_, _, err := reg.beginCancel("b")
	require.NoError(t, err)
	reg.finishCancel("b")
	reg.finishCancel("b")

	assert.Equal(t, []domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusCancelled}, got)
}

func TestRegistry_RemoveClosesSubscriptions(t *testing.T) {
	bus := NewEventBus()
	reg := NewRegistry(bus)
	require.NoError(t, reg.Register(domain.Job{ID: "a"}, domain.NewJobState("", false)))

	ch := bus.Subscribe("a")
	require.NoError(t, reg.Apply("a", func(s *domain.JobState) error {
		s.Status = domain.JobStatusVideoDownloading
		s.Progress = 10
		return nil
	}))

	ev := <-ch
	assert.Equal(t, "state", ev.Type)
	assert.Equal(t, 10.0, ev.State.Progress)

	reg.Remove("a")
	_, ok := <-ch
	assert.False(t, ok)
	_, err := reg.Get("a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
