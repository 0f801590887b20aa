package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/port"
	"github.com/bnema/mediagrab/internal/port/mocks"
)

var (
	mp4Bytes  = pad([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'})
	m4aBytes  = pad([]byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'M', '4', 'A', ' '})
	webmBytes = pad([]byte{0x1A, 0x45, 0xDF, 0xA3})
	mp3Bytes  = pad([]byte{'I', 'D', '3', 0x04, 0x00, 0x00})
)

func pad(magic []byte) []byte {
	out := make([]byte, 256)
	copy(out, magic)
	return out
}

var pids atomic.Int32

// fakeProcess stands in for a supervised child. Wait blocks until the
// script finishes it or KillTree is called.
type fakeProcess struct {
	pid    int
	output string
	done   chan struct{}
	once   sync.Once
	err    error
	killed atomic.Bool
}

func newFakeProcess(output string) *fakeProcess {
	return &fakeProcess{
		pid:    int(pids.Add(1)) + 1000,
		output: output,
		done:   make(chan struct{}),
	}
}

func (p *fakeProcess) Pid() int           { return p.pid }
func (p *fakeProcess) OutputPath() string { return p.output }

func (p *fakeProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *fakeProcess) KillTree() error {
	p.killed.Store(true)
	p.finish(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// step scripts one adapter invocation.
type step struct {
	ext     string
	content []byte
	events  []domain.ProgressEvent
	// gate, when set, holds the script until it is closed.
	gate chan struct{}
	// block leaves a partial file and runs until killed.
	block bool
	err   error
}

type script struct {
	t       *testing.T
	mu      sync.Mutex
	steps   []step
	started chan *fakeProcess
	reqs    []port.DownloadRequest
}

func newScript(t *testing.T, steps ...step) *script {
	return &script{t: t, steps: steps, started: make(chan *fakeProcess, 8)}
}

func (s *script) next() step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !assert.NotEmpty(s.t, s.steps, "unexpected adapter invocation") {
		return step{err: errors.New("unexpected adapter invocation")}
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st
}

func (s *script) requests() []port.DownloadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]port.DownloadRequest(nil), s.reqs...)
}

// play runs a step against output, reporting through onEvent.
func (s *script) play(st step, output string, onEvent port.EventHandler) *fakeProcess {
	p := newFakeProcess(output)
	if st.block {
		assert.NoError(s.t, os.WriteFile(output+".part", []byte("partial"), 0o644))
	}
	s.started <- p

	go func() {
		if st.gate != nil {
			select {
			case <-st.gate:
			case <-p.done:
				return
			}
		}
		for _, ev := range st.events {
			if err := onEvent(ev); err != nil {
				p.finish(err)
				return
			}
		}
		if st.block {
			return
		}
		if st.err != nil {
			p.finish(st.err)
			return
		}
		if err := os.WriteFile(output, st.content, 0o644); err != nil {
			p.finish(err)
			return
		}
		p.finish(nil)
	}()
	return p
}

func (s *script) waitStarted(t *testing.T) *fakeProcess {
	t.Helper()
	select {
	case p := <-s.started:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("adapter was never invoked")
		return nil
	}
}

// downloads wires the script into an extractor mock.
func (s *script) downloads(m *mocks.ExtractorMock) {
	m.EXPECT().Download(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req port.DownloadRequest, onEvent port.EventHandler) (port.Download, error) {
			s.mu.Lock()
			s.reqs = append(s.reqs, req)
			s.mu.Unlock()
			st := s.next()
			out := strings.Replace(req.OutputTemplate, domain.ExtTemplate, "."+st.ext, 1)
			return s.play(st, out, onEvent), nil
		}).Maybe()
}

// merges wires the script into an encoder mock.
func (s *script) merges(m *mocks.EncoderMock) {
	m.EXPECT().Merge(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req port.MergeRequest) (port.ProcessHandle, error) {
			return s.play(s.next(), req.OutputPath, req.OnEvent), nil
		}).Maybe()
	m.EXPECT().ExtractAudio(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req port.AudioRequest) (port.ProcessHandle, error) {
			return s.play(s.next(), req.OutputPath, req.OnEvent), nil
		}).Maybe()
}

func testMetadata() *domain.Metadata {
	return &domain.Metadata{
		Title:           "Big Buck Bunny",
		DurationSeconds: 60,
		Formats: []domain.Format{
			{FormatID: "22", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a", Filesize: 5000},
			{FormatID: "137", Ext: "mp4", VCodec: "avc1", ACodec: "none", Filesize: 9000},
			{FormatID: "248", Ext: "webm", VCodec: "vp9", ACodec: "none", Filesize: 8000},
			{FormatID: "140", Ext: "m4a", VCodec: "none", ACodec: "mp4a", Filesize: 100},
			{FormatID: "251", Ext: "webm", VCodec: "none", ACodec: "opus", Filesize: 200},
		},
	}
}

type harness struct {
	svc       *JobService
	bus       *EventBus
	dir       string
	extractor *mocks.ExtractorMock
	encoder   *mocks.EncoderMock
}

func newHarness(t *testing.T, history port.JobHistory) *harness {
	t.Helper()
	h := &harness{
		bus:       NewEventBus(),
		dir:       t.TempDir(),
		extractor: mocks.NewExtractorMock(t),
		encoder:   mocks.NewEncoderMock(t),
	}
	h.extractor.EXPECT().FetchMetadata(mock.Anything, mock.Anything).Return(testMetadata(), nil).Maybe()
	h.svc = NewJobService(h.extractor, h.encoder, history, NewRegistry(h.bus), JobServiceOptions{
		DownloadDir:        h.dir,
		CancelWait:         2 * time.Second,
		DownloadNamePrefix: "mediagrab",
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.svc.Shutdown(ctx)
	})
	return h
}

func (h *harness) waitTerminal(t *testing.T, id string) domain.JobState {
	t.Helper()
	var state domain.JobState
	require.Eventually(t, func() bool {
		st, err := h.svc.Status(id)
		if err != nil {
			return false
		}
		state = st
		return st.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	return state
}

// leftovers lists the files in the download directory.
func (h *harness) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func downloading(done, total int64) domain.ProgressEvent {
	return domain.ProgressEvent{Status: domain.ProgressDownloading, DownloadedBytes: done, TotalBytes: total, Speed: 1 << 20}
}

func percent(p float64) domain.ProgressEvent {
	return domain.ProgressEvent{Status: domain.ProgressDownloading, Percent: p}
}
