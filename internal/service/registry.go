package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/port"
)

// errTerminal is returned by Apply when the job already reached a terminal
// status. Callers treat it as "nothing to do".
var errTerminal = errors.New("job is terminal")

type workerHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type jobEntry struct {
	mu         sync.Mutex
	job        domain.Job
	state      domain.JobState
	cancelled  bool
	claimed    bool
	process    port.ProcessHandle
	worker     *workerHandle
	startedAt  time.Time
	finishedAt time.Time
}

// TerminalFunc observes a job reaching a terminal status. It runs after the
// job lock is released.
type TerminalFunc func(job domain.Job, state domain.JobState, finishedAt time.Time)

// Registry is the in-memory job table. The map lock guards membership only;
// each entry has its own lock guarding its state, cancel flag and handles.
type Registry struct {
	mu         sync.RWMutex
	jobs       map[string]*jobEntry
	events     EventPublisher
	onTerminal TerminalFunc
	now        func() time.Time
}

func NewRegistry(events EventPublisher) *Registry {
	return &Registry{
		jobs:   make(map[string]*jobEntry),
		events: events,
		now:    time.Now,
	}
}

// OnTerminal installs the terminal-transition hook. It must be set before
// jobs are registered.
func (r *Registry) OnTerminal(fn TerminalFunc) {
	r.onTerminal = fn
}

func (r *Registry) Register(job domain.Job, state domain.JobState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.jobs[job.ID] = &jobEntry{
		job:       job,
		state:     state,
		startedAt: r.now(),
	}
	return nil
}

func (r *Registry) lookup(id string) (*jobEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	return e, ok
}

// Get returns a copy of the job's current state.
func (r *Registry) Get(id string) (domain.JobState, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.JobState{}, domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

func (r *Registry) Job(id string) (domain.Job, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return e.job, nil
}

func (r *Registry) StartedAt(id string) (time.Time, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return time.Time{}, false
	}
	return e.startedAt, true
}

// Apply mutates a job's state under its lock. The mutation is refused with
// ErrCancelled once the cancel flag is set and with errTerminal once the job
// is terminal, so the check and the commit are atomic. Progress never moves
// backwards through Apply.
func (r *Registry) Apply(id string, fn func(s *domain.JobState) error) error {
	e, ok := r.lookup(id)
	if !ok {
		return domain.ErrNotFound
	}

	e.mu.Lock()
	if e.cancelled {
		e.mu.Unlock()
		return domain.ErrCancelled
	}
	if e.state.Status.IsTerminal() {
		e.mu.Unlock()
		return errTerminal
	}

	next := e.state
	if err := fn(&next); err != nil {
		e.mu.Unlock()
		return err
	}
	if next.Progress < e.state.Progress {
		next.Progress = e.state.Progress
	}
	e.state = next

	terminal := next.Status.IsTerminal()
	if terminal {
		e.finishedAt = r.now()
		e.process = nil
	}
	finishedAt := e.finishedAt
	r.publish(id, next)
	e.mu.Unlock()

	if terminal {
		r.terminal(e.job, next, finishedAt)
	}
	return nil
}

// Cancelled reports whether the job's cancel flag is set. Unknown jobs
// report true so that a worker whose entry vanished stops.
func (r *Registry) Cancelled(id string) bool {
	e, ok := r.lookup(id)
	if !ok {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// startProcess spawns a process under the job lock and records its handle.
// Spawning is refused once the cancel flag is set, so a job can not acquire
// a process after its cancellation began.
func startProcess[H port.ProcessHandle](r *Registry, id string, start func() (H, error)) (H, error) {
	var zero H
	e, ok := r.lookup(id)
	if !ok {
		return zero, domain.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelled {
		return zero, domain.ErrCancelled
	}
	if e.state.Status.IsTerminal() {
		return zero, errTerminal
	}

	h, err := start()
	if err != nil {
		return zero, err
	}
	e.process = h
	return h, nil
}

// ReleaseProcess forgets h if it is still the job's current process.
func (r *Registry) ReleaseProcess(id string, h port.ProcessHandle) {
	e, ok := r.lookup(id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.process == h {
		e.process = nil
	}
}

func (r *Registry) AttachWorker(id string, w *workerHandle) {
	e, ok := r.lookup(id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.worker = w
}

func (r *Registry) DetachWorker(id string, w *workerHandle) {
	e, ok := r.lookup(id)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.worker == w {
		e.worker = nil
	}
}

// beginCancel sets the cancel flag, moves the job to cancelling and hands
// back whatever must be stopped. Terminal jobs return errTerminal.
func (r *Registry) beginCancel(id string) (port.ProcessHandle, *workerHandle, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, nil, domain.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Status.IsTerminal() {
		return nil, nil, errTerminal
	}

	e.cancelled = true
	e.state.Status = domain.JobStatusCancelling
	e.state.ClearTelemetry()
	r.publish(id, e.state)
	return e.process, e.worker, nil
}

// finishCancel commits the cancelled status and drops the job's handles.
func (r *Registry) finishCancel(id string) {
	e, ok := r.lookup(id)
	if !ok {
		return
	}

	e.mu.Lock()
	if e.state.Status == domain.JobStatusCancelled {
		e.mu.Unlock()
		return
	}
	e.cancelled = true
	e.state.Status = domain.JobStatusCancelled
	e.state.Progress = 0
	e.state.Error = ""
	e.state.FinalPath = ""
	e.state.ClearTelemetry()
	e.process = nil
	e.worker = nil
	e.finishedAt = r.now()
	state, finishedAt := e.state, e.finishedAt
	r.publish(id, state)
	e.mu.Unlock()

	r.terminal(e.job, state, finishedAt)
}

// ClaimArtifact hands out a completed job's state exactly once.
func (r *Registry) ClaimArtifact(id string) (domain.Job, domain.JobState, error) {
	e, ok := r.lookup(id)
	if !ok {
		return domain.Job{}, domain.JobState{}, domain.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.claimed {
		return domain.Job{}, domain.JobState{}, domain.ErrNotFound
	}
	if e.state.Status != domain.JobStatusCompleted {
		return domain.Job{}, domain.JobState{}, domain.ErrNotReady
	}
	e.claimed = true
	return e.job, e.state, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.jobs[id]
	delete(r.jobs, id)
	r.mu.Unlock()

	if ok && r.events != nil {
		r.events.Drop(id)
	}
}

// EvictTerminal removes terminal entries that finished at least olderThan
// ago. Entries whose lock is held are skipped until the next call.
func (r *Registry) EvictTerminal(olderThan time.Duration) []string {
	cutoff := r.now().Add(-olderThan)
	var evicted []string

	r.mu.Lock()
	for id, e := range r.jobs {
		if !e.mu.TryLock() {
			continue
		}
		expired := e.state.Status.IsTerminal() && !e.finishedAt.After(cutoff)
		e.mu.Unlock()
		if expired {
			delete(r.jobs, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	if r.events != nil {
		for _, id := range evicted {
			r.events.Drop(id)
		}
	}
	return evicted
}

// LiveIDs lists the jobs that have not reached a terminal status.
func (r *Registry) LiveIDs() []string {
	r.mu.RLock()
	entries := make(map[string]*jobEntry, len(r.jobs))
	for id, e := range r.jobs {
		entries[id] = e
	}
	r.mu.RUnlock()

	var ids []string
	for id, e := range entries {
		e.mu.Lock()
		live := !e.state.Status.IsTerminal()
		e.mu.Unlock()
		if live {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *Registry) publish(id string, state domain.JobState) {
	if r.events != nil {
		r.events.Publish(id, Event{Type: "state", State: state})
	}
}

func (r *Registry) terminal(job domain.Job, state domain.JobState, finishedAt time.Time) {
	if r.onTerminal != nil {
		r.onTerminal(job, state, finishedAt)
	}
}
