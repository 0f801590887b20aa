package service

import (
	"errors"
	"time"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/port"
	"github.com/bnema/mediagrab/internal/validation"
)

// Tracker folds raw adapter events into a job's unified progress.
type Tracker struct {
	registry *Registry
	now      func() time.Time
}

func NewTracker(registry *Registry) *Tracker {
	return &Tracker{registry: registry, now: time.Now}
}

// Handler binds the tracker to one job stage for an adapter.
func (t *Tracker) Handler(jobID string, stage domain.Stage) port.EventHandler {
	return func(ev domain.ProgressEvent) error {
		return t.OnEvent(jobID, stage, ev)
	}
}

// OnEvent records one event. It returns ErrCancelled when the job's cancel
// flag is set, which makes the adapter abort the running process.
func (t *Tracker) OnEvent(jobID string, stage domain.Stage, ev domain.ProgressEvent) error {
	switch ev.Status {
	case domain.ProgressDownloading:
		return t.downloading(jobID, stage, ev)
	case domain.ProgressFinished:
		return t.finished(jobID, stage, ev)
	case domain.ProgressError:
		return t.failed(jobID, ev)
	}
	return nil
}

// Enter moves a job that has not started any stage into the stage's
// in-flight status.
func (t *Tracker) Enter(jobID string, stage domain.Stage) error {
	return t.commit(jobID, func(s *domain.JobState) error {
		if s.Status == domain.JobStatusStarting {
			s.Status = stage.DownloadingStatus()
		}
		return nil
	})
}

func (t *Tracker) downloading(jobID string, stage domain.Stage, ev domain.ProgressEvent) error {
	if t.registry.Cancelled(jobID) {
		return domain.ErrCancelled
	}

	startedAt, _ := t.registry.StartedAt(jobID)
	elapsed := t.now().Sub(startedAt).Seconds()

	err := t.commit(jobID, func(s *domain.JobState) error {
		s.Status = stage.DownloadingStatus()
		if ev.DownloadedBytes > 0 && ev.TotalBytes > 0 {
			s.Progress = domain.RoundProgress(stage.Scale(float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * 100))
		} else if ev.Percent > 0 {
			s.Progress = domain.RoundProgress(stage.Scale(ev.Percent))
		}
		if !s.Status.IsDownloading() {
			s.ClearTelemetry()
			return nil
		}

		s.ElapsedSeconds = domain.RoundProgress(elapsed)
		s.BytesDownloaded = ev.DownloadedBytes
		s.BytesTotal = ev.TotalBytes
		s.Downloaded = domain.Megabytes(ev.DownloadedBytes)
		s.TotalSize = domain.Megabytes(ev.TotalBytes)
		s.Speed = ""
		s.ETASeconds = 0
		if ev.Speed > 0 {
			s.Speed = domain.MegabytesPerSecond(ev.Speed)
			if remaining := ev.TotalBytes - ev.DownloadedBytes; ev.TotalBytes > 0 && remaining > 0 {
				s.ETASeconds = domain.RoundProgress(float64(remaining) / ev.Speed)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if t.registry.Cancelled(jobID) {
		return domain.ErrCancelled
	}
	return nil
}

// finished hands the job to the stage's successor status. A stage that
// completes the job requires ev.Path to be a real media file; the check
// happens under the job lock so it commits atomically with the cancel flag
// check.
func (t *Tracker) finished(jobID string, stage domain.Stage, ev domain.ProgressEvent) error {
	next, pin, pinned := stage.Finished()
	return t.commit(jobID, func(s *domain.JobState) error {
		if next == domain.JobStatusCompleted {
			if ev.Path == "" {
				return errors.New("finished without an output file")
			}
			if err := validation.VerifyArtifact(ev.Path); err != nil {
				return err
			}
			s.FinalPath = ev.Path
		}
		s.Status = next
		if pinned {
			s.Progress = pin
		}
		s.ClearTelemetry()
		return nil
	})
}

// failed records an error event. A message that only reports cancellation
// is not an error and is handed back as ErrCancelled.
func (t *Tracker) failed(jobID string, ev domain.ProgressEvent) error {
	cause := errors.New(ev.Message)
	if domain.IsCancellation(cause) {
		return domain.ErrCancelled
	}
	return t.commit(jobID, func(s *domain.JobState) error {
		s.Status = domain.JobStatusError
		s.Error = ev.Message
		s.ClearTelemetry()
		return nil
	})
}

// commit applies fn and hides the terminal refusal: events arriving after
// the job ended are ignored.
func (t *Tracker) commit(jobID string, fn func(s *domain.JobState) error) error {
	err := t.registry.Apply(jobID, fn)
	if errors.Is(err, errTerminal) {
		return nil
	}
	return err
}
