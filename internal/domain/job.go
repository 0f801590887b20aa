package domain

import (
	"time"
)

type JobStatus string

const (
	JobStatusStarting         JobStatus = "starting"
	JobStatusVideoDownloading JobStatus = "video_downloading"
	JobStatusDownloadingAudio JobStatus = "downloading_audio"
	JobStatusAudioDownloading JobStatus = "audio_downloading"
	JobStatusMerging          JobStatus = "merging"
	JobStatusCompleted        JobStatus = "completed"
	JobStatusError            JobStatus = "error"
	JobStatusCancelling       JobStatus = "cancelling"
	JobStatusCancelled        JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition may happen.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// IsDownloading reports whether transfer telemetry is meaningful.
func (s JobStatus) IsDownloading() bool {
	return s == JobStatusVideoDownloading || s == JobStatusAudioDownloading
}

// JobState is the pollable view of a job. Values are copied out of the
// registry, so callers may keep them.
type JobState struct {
	Status          JobStatus `json:"status"`
	Progress        float64   `json:"progress"`
	Speed           string    `json:"speed,omitempty"`
	ElapsedSeconds  float64   `json:"elapsed"`
	ETASeconds      float64   `json:"eta"`
	BytesDownloaded int64     `json:"bytes_downloaded"`
	BytesTotal      int64     `json:"bytes_total"`
	Downloaded      string    `json:"size_downloaded,omitempty"`
	TotalSize       string    `json:"size_total,omitempty"`
	IsAudioOnly     bool      `json:"is_audio_only"`
	Title           string    `json:"title"`
	FinalPath       string    `json:"-"`
	Error           string    `json:"error,omitempty"`
}

func NewJobState(title string, audioOnly bool) JobState {
	return JobState{
		Status:      JobStatusStarting,
		Title:       title,
		IsAudioOnly: audioOnly,
	}
}

// ClearTelemetry drops the transfer counters once a job leaves a
// downloading status.
func (s *JobState) ClearTelemetry() {
	s.Speed = ""
	s.ETASeconds = 0
	s.BytesDownloaded = 0
	s.BytesTotal = 0
	s.Downloaded = ""
	s.TotalSize = ""
}

// Job is the immutable submission record of a job.
type Job struct {
	ID          string
	URL         string
	FormatID    string
	Selector    string
	Plan        Plan
	Title       string
	Container   string
	Duration    time.Duration
	SubmittedAt time.Time
}

// Plan is the execution path chosen for a job at submission time.
type Plan string

const (
	// PlanSingle downloads one stream that already carries what is needed.
	PlanSingle Plan = "single"
	// PlanMux downloads video and audio separately and muxes them.
	PlanMux Plan = "mux"
	// PlanAudioOnly downloads an audio stream and re-encodes it to mp3.
	PlanAudioOnly Plan = "audio_only"
)

// HistoryRecord is the durable trace of a terminal job.
type HistoryRecord struct {
	ID          string
	URL         string
	FormatID    string
	Status      JobStatus
	Title       string
	IsAudioOnly bool
	Error       string
	SubmittedAt time.Time
	FinishedAt  time.Time
}
