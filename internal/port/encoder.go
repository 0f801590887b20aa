package port

import (
	"context"
	"time"
)

type MergeRequest struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
	Args       []string
	// Duration of the source, used to report progress. Zero disables it.
	Duration time.Duration
	OnEvent  EventHandler
}

type AudioRequest struct {
	InputPath  string
	OutputPath string
	Args       []string
	Duration   time.Duration
	OnEvent    EventHandler
}

type Encoder interface {
	Merge(ctx context.Context, req MergeRequest) (ProcessHandle, error)
	ExtractAudio(ctx context.Context, req AudioRequest) (ProcessHandle, error)
}
