package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/infrastructure/process"
	"github.com/bnema/mediagrab/internal/port"
)

const DefaultBinary = "ffmpeg"

var (
	ErrEmptyPath   = errors.New("path is empty")
	ErrInvalidPath = errors.New("path contains invalid characters")
)

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

type Config struct {
	Binary    string
	KillGrace time.Duration
}

type Encoder struct {
	binary    string
	killGrace time.Duration
}

func New(cfg Config) *Encoder {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return &Encoder{binary: binary, killGrace: cfg.KillGrace}
}

// Merge muxes a video and an audio stream into OutputPath.
func (e *Encoder) Merge(ctx context.Context, req port.MergeRequest) (port.ProcessHandle, error) {
	if err := validatePath(req.VideoPath); err != nil {
		return nil, fmt.Errorf("invalid video path: %w", err)
	}
	if err := validatePath(req.AudioPath); err != nil {
		return nil, fmt.Errorf("invalid audio path: %w", err)
	}
	if err := validatePath(req.OutputPath); err != nil {
		return nil, fmt.Errorf("invalid output path: %w", err)
	}
	return e.start(ctx, mergeArgs(req), req.Duration, req.OnEvent)
}

// ExtractAudio re-encodes the audio of InputPath into OutputPath.
func (e *Encoder) ExtractAudio(ctx context.Context, req port.AudioRequest) (port.ProcessHandle, error) {
	if err := validatePath(req.InputPath); err != nil {
		return nil, fmt.Errorf("invalid input path: %w", err)
	}
	if err := validatePath(req.OutputPath); err != nil {
		return nil, fmt.Errorf("invalid output path: %w", err)
	}
	return e.start(ctx, audioArgs(req), req.Duration, req.OnEvent)
}

func mergeArgs(req port.MergeRequest) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
	}
	args = append(args, req.Args...)
	return append(args, "-progress", "pipe:1", "-nostats", "-y", req.OutputPath)
}

func audioArgs(req port.AudioRequest) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-i", req.InputPath,
	}
	args = append(args, req.Args...)
	return append(args, "-progress", "pipe:1", "-nostats", "-y", req.OutputPath)
}

func (e *Encoder) start(ctx context.Context, args []string, duration time.Duration, onEvent port.EventHandler) (port.ProcessHandle, error) {
	h, err := process.Start(ctx, e.binary, args, process.Options{
		KillGrace: e.killGrace,
		OnStdout:  progressLine(duration, onEvent),
	})
	if err != nil {
		return nil, &domain.EncodingError{ExitCode: -1, Err: err}
	}
	return &encoding{Handle: h}, nil
}

type encoding struct {
	*process.Handle
}

// Wait maps an unsuccessful exit to an EncodingError carrying stderr.
func (e *encoding) Wait() error {
	err := e.Handle.Wait()
	var exitErr *process.ExitError
	if errors.As(err, &exitErr) {
		return &domain.EncodingError{ExitCode: exitErr.Code, Stderr: exitErr.Stderr, Err: exitErr.Err}
	}
	return err
}

// progressLine turns "-progress" key=value output into percent events.
// Without a known duration no progress is reported.
func progressLine(duration time.Duration, onEvent port.EventHandler) process.LineFunc {
	return func(line string) error {
		if onEvent == nil || duration <= 0 {
			return nil
		}
		pos, ok := parseOutTime(line)
		if !ok {
			return nil
		}
		pct := float64(pos) / float64(duration) * 100
		if pct > 100 {
			pct = 100
		}
		return onEvent(domain.ProgressEvent{Status: domain.ProgressDownloading, Percent: pct})
	}
}

// parseOutTime reads the encoded position. ffmpeg reports microseconds in
// both out_time_us and, despite its name, out_time_ms.
func parseOutTime(line string) (time.Duration, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok || (key != "out_time_us" && key != "out_time_ms") {
		return 0, false
	}
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}

var _ port.Encoder = (*Encoder)(nil)
