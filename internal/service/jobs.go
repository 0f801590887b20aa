package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
	"github.com/bnema/mediagrab/internal/port"
	"github.com/bnema/mediagrab/internal/validation"
)

const (
	defaultCancelWait = 10 * time.Second
	historyTimeout    = 5 * time.Second
)

type JobServiceOptions struct {
	DownloadDir string
	// CancelWait bounds how long Cancel waits for the worker to unwind.
	CancelWait         time.Duration
	DownloadNamePrefix string
}

// JobService drives jobs from submission to a terminal status and owns
// their cancellation and artifact delivery.
type JobService struct {
	extractor port.Extractor
	encoder   port.Encoder
	history   port.JobHistory
	registry  *Registry
	tracker   *Tracker
	opts      JobServiceOptions

	baseCtx context.Context
	stop    context.CancelFunc
	workers sync.WaitGroup
}

// NewJobService wires the orchestrator. history may be nil.
func NewJobService(
	extractor port.Extractor,
	encoder port.Encoder,
	history port.JobHistory,
	registry *Registry,
	opts JobServiceOptions,
) *JobService {
	if opts.CancelWait <= 0 {
		opts.CancelWait = defaultCancelWait
	}
	ctx, stop := context.WithCancel(context.Background())
	s := &JobService{
		extractor: extractor,
		encoder:   encoder,
		history:   history,
		registry:  registry,
		tracker:   NewTracker(registry),
		opts:      opts,
		baseCtx:   ctx,
		stop:      stop,
	}
	registry.OnTerminal(s.recordHistory)
	return s
}

func (s *JobService) Registry() *Registry {
	return s.registry
}

// Info returns the source's metadata without starting a job.
func (s *JobService) Info(ctx context.Context, rawURL string) (*domain.Metadata, error) {
	sourceURL, err := validation.ValidateSourceURL(rawURL)
	if err != nil {
		return nil, err
	}
	meta, err := s.extractor.FetchMetadata(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	return meta, nil
}

// Submit validates the request, resolves the execution plan from the
// source's formats and starts a worker. It returns the new job id.
func (s *JobService) Submit(ctx context.Context, rawURL, formatID string) (string, error) {
	sourceURL, err := validation.ValidateSourceURL(rawURL)
	if err != nil {
		return "", err
	}
	formatID, err = validation.ValidateFormatID(formatID)
	if err != nil {
		return "", err
	}

	meta, err := s.extractor.FetchMetadata(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("fetch metadata: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}

	job := resolvePlan(meta, formatID)
	job.ID = id.String()
	job.URL = sourceURL
	job.SubmittedAt = time.Now()

	if err := os.MkdirAll(s.opts.DownloadDir, 0755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	state := domain.NewJobState(job.Title, job.Plan == domain.PlanAudioOnly)
	if err := s.registry.Register(job, state); err != nil {
		return "", err
	}

	workerCtx, cancel := context.WithCancel(s.baseCtx)
	w := &workerHandle{cancel: cancel, done: make(chan struct{})}
	s.registry.AttachWorker(job.ID, w)

	logger.L().Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("url", logger.SanitizeURL(sourceURL)),
		zap.String("format", formatID),
		zap.String("plan", string(job.Plan)),
		zap.String("selector", job.Selector),
	)

	s.workers.Add(1)
	go s.run(workerCtx, job, w)
	return job.ID, nil
}

// resolvePlan picks how a format id is fetched: audio-only streams are
// re-encoded to mp3, video-only streams are paired with the best audio and
// muxed, everything else is a single download.
func resolvePlan(meta *domain.Metadata, formatID string) domain.Job {
	job := domain.Job{
		FormatID: formatID,
		Title:    meta.Title,
		Duration: time.Duration(meta.DurationSeconds * float64(time.Second)),
	}

	if f, ok := meta.FindFormat(formatID); ok && f.IsAudioOnly() {
		job.Plan = domain.PlanAudioOnly
		job.Selector = formatID
		job.Container = "mp3"
		return job
	}

	job.Selector = domain.EnsureAudioVideo(formatID, meta.Formats)
	if video, _, ok := domain.SplitSelector(job.Selector); ok {
		f, _ := meta.FindFormat(video)
		job.Plan = domain.PlanMux
		job.Container = domain.MergeContainer(f.Ext)
		return job
	}
	job.Plan = domain.PlanSingle
	return job
}

// Status returns the job's current state.
func (s *JobService) Status(id string) (domain.JobState, error) {
	return s.registry.Get(id)
}

func (s *JobService) run(ctx context.Context, job domain.Job, w *workerHandle) {
	defer s.workers.Done()
	defer close(w.done)
	defer s.registry.DetachWorker(job.ID, w)
	defer w.cancel()

	paths := domain.NewJobPaths(s.opts.DownloadDir, job.ID)

	var err error
	switch job.Plan {
	case domain.PlanMux:
		err = s.runMux(ctx, job, paths)
	case domain.PlanAudioOnly:
		err = s.runAudio(ctx, job, paths)
	default:
		err = s.runSingle(ctx, job, paths)
	}
	s.settle(job, paths, err)
}

// settle turns the worker's outcome into a terminal status. A set cancel
// flag always wins: the job ends cancelled whatever the worker saw.
func (s *JobService) settle(job domain.Job, paths domain.JobPaths, err error) {
	log := logger.L().With(zap.String("job_id", job.ID))

	switch {
	case s.registry.Cancelled(job.ID):
		s.purge(paths)
		log.Info("job worker stopped after cancellation")
	case err == nil:
		state, _ := s.registry.Get(job.ID)
		log.Info("job completed",
			zap.String("status", string(state.Status)),
			zap.String("path", filepath.Base(state.FinalPath)),
		)
	case domain.IsCancellation(err):
		// Cancelled without a request, e.g. the child reported a
		// cancellation marker. Not an error.
		s.purge(paths)
		s.registry.finishCancel(job.ID)
		log.Info("job cancelled", zap.Error(err))
	default:
		msg := err.Error()
		applyErr := s.registry.Apply(job.ID, func(st *domain.JobState) error {
			st.Status = domain.JobStatusError
			st.Error = msg
			st.ClearTelemetry()
			return nil
		})
		s.purge(paths)
		if applyErr == nil {
			log.Error("job failed", zap.String("error", logger.SanitizeForLog(msg)))
		}
	}
}

func (s *JobService) runSingle(ctx context.Context, job domain.Job, paths domain.JobPaths) error {
	out, err := s.download(ctx, job, domain.StageSingle, paths.SingleTemplate(), job.Selector)
	if err != nil {
		return err
	}
	return s.tracker.OnEvent(job.ID, domain.StageSingle, domain.ProgressEvent{
		Status: domain.ProgressFinished,
		Path:   out,
	})
}

func (s *JobService) runMux(ctx context.Context, job domain.Job, paths domain.JobPaths) (err error) {
	videoSel, audioSel, _ := domain.SplitSelector(job.Selector)

	var videoPath, audioPath string
	defer func() {
		s.removeTemps(job.ID, paths.Dir, "temp_video_"+job.ID+".*", "temp_audio_"+job.ID+".*")
	}()

	videoPath, err = s.download(ctx, job, domain.StageVideo, paths.TempVideoTemplate(), videoSel)
	if err != nil {
		return err
	}
	if err := s.finishStage(job.ID, domain.StageVideo); err != nil {
		return err
	}

	audioPath, err = s.download(ctx, job, domain.StageAudio, paths.TempAudioTemplate(), audioSel)
	if err != nil {
		return err
	}
	if err := s.finishStage(job.ID, domain.StageAudio); err != nil {
		return err
	}

	output := paths.MuxOutput(job.Container)
	h, err := startProcess(s.registry, job.ID, func() (port.ProcessHandle, error) {
		return s.encoder.Merge(ctx, port.MergeRequest{
			VideoPath:  videoPath,
			AudioPath:  audioPath,
			OutputPath: output,
			Args:       domain.MergePreset(job.Container),
			Duration:   job.Duration,
			OnEvent:    s.tracker.Handler(job.ID, domain.StageMerge),
		})
	})
	if err != nil {
		return fmt.Errorf("start merge: %w", err)
	}
	err = h.Wait()
	s.registry.ReleaseProcess(job.ID, h)
	if err != nil {
		return err
	}

	return s.tracker.OnEvent(job.ID, domain.StageMerge, domain.ProgressEvent{
		Status: domain.ProgressFinished,
		Path:   output,
	})
}

func (s *JobService) runAudio(ctx context.Context, job domain.Job, paths domain.JobPaths) error {
	source, err := s.download(ctx, job, domain.StageAudioOnly, paths.AudioTemplate(), job.Selector)
	if err != nil {
		return err
	}
	encoded := paths.AudioEncoded()
	defer func() {
		s.removeFiles(job.ID, source, encoded)
	}()

	if err := s.finishStage(job.ID, domain.StageAudioOnly); err != nil {
		return err
	}

	// An mp3 source already has the target codec and is only renamed.
	if !strings.EqualFold(filepath.Ext(source), ".mp3") {
		h, err := startProcess(s.registry, job.ID, func() (port.ProcessHandle, error) {
			return s.encoder.ExtractAudio(ctx, port.AudioRequest{
				InputPath:  source,
				OutputPath: encoded,
				Args:       domain.AudioPreset(),
				Duration:   job.Duration,
				OnEvent:    s.tracker.Handler(job.ID, domain.StageMerge),
			})
		})
		if err != nil {
			return fmt.Errorf("start audio extraction: %w", err)
		}
		err = h.Wait()
		s.registry.ReleaseProcess(job.ID, h)
		if err != nil {
			return err
		}
	} else {
		encoded = source
	}

	final := paths.AudioFinal()
	if err := os.Rename(encoded, final); err != nil {
		return fmt.Errorf("move audio to final path: %w", err)
	}

	return s.tracker.OnEvent(job.ID, domain.StageMerge, domain.ProgressEvent{
		Status: domain.ProgressFinished,
		Path:   final,
	})
}

// download runs one extractor download to completion and returns the file
// it produced.
func (s *JobService) download(ctx context.Context, job domain.Job, stage domain.Stage, template, selector string) (string, error) {
	if err := s.tracker.Enter(job.ID, stage); err != nil {
		return "", err
	}

	dl, err := startProcess(s.registry, job.ID, func() (port.Download, error) {
		return s.extractor.Download(ctx, port.DownloadRequest{
			URL:            job.URL,
			Selector:       selector,
			OutputTemplate: template,
		}, s.tracker.Handler(job.ID, stage))
	})
	if err != nil {
		return "", fmt.Errorf("start %s download: %w", stage, err)
	}

	logger.L().Debug("download started",
		zap.String("job_id", job.ID),
		zap.String("stage", string(stage)),
		zap.Int("pid", dl.Pid()),
	)

	err = dl.Wait()
	s.registry.ReleaseProcess(job.ID, dl)
	if err != nil {
		return "", err
	}

	out := dl.OutputPath()
	if out == "" {
		return "", &domain.ExtractionError{Op: string(stage) + " download", Err: errors.New("no output file reported")}
	}
	if _, err := os.Stat(out); err != nil {
		return "", &domain.ExtractionError{Op: string(stage) + " download", Err: err}
	}
	return out, nil
}

func (s *JobService) finishStage(jobID string, stage domain.Stage) error {
	return s.tracker.OnEvent(jobID, stage, domain.ProgressEvent{Status: domain.ProgressFinished})
}

// Cancel stops a job: it sets the cancel flag, kills the job's process
// tree, waits for the worker to unwind, removes partial files and commits
// the cancelled status. Cancelling a terminal job is a no-op.
func (s *JobService) Cancel(id string) error {
	proc, w, err := s.registry.beginCancel(id)
	if errors.Is(err, errTerminal) {
		return nil
	}
	if err != nil {
		return err
	}

	log := logger.L().With(zap.String("job_id", id))
	log.Info("cancelling job")

	if proc != nil {
		if err := proc.KillTree(); err != nil {
			log.Warn("kill process tree", zap.Int("pid", proc.Pid()), zap.Error(err))
		}
	}

	if w != nil {
		w.cancel()
		select {
		case <-w.done:
		case <-time.After(s.opts.CancelWait):
			log.Warn("worker still unwinding after cancel", zap.Duration("waited", s.opts.CancelWait))
		}
	}

	s.purge(domain.NewJobPaths(s.opts.DownloadDir, id))
	s.registry.finishCancel(id)
	log.Info("job cancelled")
	return nil
}

// purge removes every file a job may have left in the download directory.
// Failures are logged only.
func (s *JobService) purge(paths domain.JobPaths) {
	var errs error
	for _, pattern := range paths.PartialPatterns() {
		matches, err := filepath.Glob(filepath.Join(paths.Dir, pattern))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, m := range matches {
			errs = multierr.Append(errs, removeIfExists(m))
		}
	}
	if errs != nil {
		logger.Warn.Printf("cleanup of job %s incomplete: %v", paths.ID, errs)
	}
}

func (s *JobService) removeTemps(jobID, dir string, patterns ...string) {
	var errs error
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, m := range matches {
			errs = multierr.Append(errs, removeIfExists(m))
		}
	}
	if errs != nil {
		logger.Warn.Printf("temp cleanup of job %s incomplete: %v", jobID, errs)
	}
}

func (s *JobService) removeFiles(jobID string, paths ...string) {
	var errs error
	for _, p := range paths {
		errs = multierr.Append(errs, removeIfExists(p))
	}
	if errs != nil {
		logger.Warn.Printf("temp cleanup of job %s incomplete: %v", jobID, errs)
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Shutdown cancels every live job and waits for the workers to return.
func (s *JobService) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	for _, id := range s.registry.LiveIDs() {
		g.Go(func() error {
			if err := s.Cancel(id); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("cancel job %s: %w", id, err)
			}
			return nil
		})
	}
	err := g.Wait()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return multierr.Append(err, ctx.Err())
	}
}

func (s *JobService) recordHistory(job domain.Job, state domain.JobState, finishedAt time.Time) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	rec := domain.HistoryRecord{
		ID:          job.ID,
		URL:         job.URL,
		FormatID:    job.FormatID,
		Status:      state.Status,
		Title:       state.Title,
		IsAudioOnly: state.IsAudioOnly,
		Error:       state.Error,
		SubmittedAt: job.SubmittedAt,
		FinishedAt:  finishedAt,
	}
	if err := s.history.Record(ctx, rec); err != nil {
		logger.Warn.Printf("record history for job %s: %v", job.ID, err)
	}
}

// History returns the most recent terminal jobs, newest first.
func (s *JobService) History(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(ctx, limit)
}
