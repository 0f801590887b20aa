package domain

// Stage is one slice of a job's overall progress.
type Stage string

const (
	StageVideo     Stage = "video"
	StageAudio     Stage = "audio"
	StageMerge     Stage = "merge"
	StageSingle    Stage = "single"
	StageAudioOnly Stage = "audio_only"
)

const noPin = -1

type stageSpec struct {
	base        float64
	weight      float64
	downloading JobStatus
	finished    JobStatus
	pin         float64
}

var stages = map[Stage]stageSpec{
	StageVideo:     {base: 0, weight: 0.45, downloading: JobStatusVideoDownloading, finished: JobStatusDownloadingAudio, pin: noPin},
	StageAudio:     {base: 45, weight: 0.45, downloading: JobStatusAudioDownloading, finished: JobStatusMerging, pin: 90},
	StageMerge:     {base: 90, weight: 0.10, downloading: JobStatusMerging, finished: JobStatusCompleted, pin: 100},
	StageSingle:    {base: 0, weight: 1.0, downloading: JobStatusVideoDownloading, finished: JobStatusCompleted, pin: 100},
	StageAudioOnly: {base: 0, weight: 0.90, downloading: JobStatusAudioDownloading, finished: JobStatusMerging, pin: 90},
}

func (s Stage) spec() stageSpec {
	if spec, ok := stages[s]; ok {
		return spec
	}
	return stages[StageSingle]
}

// Scale maps a raw stage percentage onto overall progress.
func (s Stage) Scale(rawPercent float64) float64 {
	spec := s.spec()
	return spec.base + rawPercent*spec.weight
}

func (s Stage) Base() float64 {
	return s.spec().base
}

// DownloadingStatus is the status reported while the stage is in flight.
func (s Stage) DownloadingStatus() JobStatus {
	return s.spec().downloading
}

// Finished returns the status a finished stage hands off to, and the
// progress value it pins, if any.
func (s Stage) Finished() (JobStatus, float64, bool) {
	spec := s.spec()
	if spec.pin == noPin {
		return spec.finished, 0, false
	}
	return spec.finished, spec.pin, true
}

// ProgressStatus is the low-level condition an adapter reports.
type ProgressStatus string

const (
	ProgressDownloading ProgressStatus = "downloading"
	ProgressFinished    ProgressStatus = "finished"
	ProgressError       ProgressStatus = "error"
)

// ProgressEvent is one raw observation from an extractor or encoder.
// Percent is used only when the byte counters are unknown.
type ProgressEvent struct {
	Status          ProgressStatus
	DownloadedBytes int64
	TotalBytes      int64
	Speed           float64
	Percent         float64
	Path            string
	Message         string
}
