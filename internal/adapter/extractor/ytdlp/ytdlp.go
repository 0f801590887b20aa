// Package ytdlp implements the extractor port on top of the yt-dlp CLI.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
	"github.com/bnema/mediagrab/internal/infrastructure/process"
	"github.com/bnema/mediagrab/internal/port"
)

const (
	DefaultBinary = "yt-dlp"

	progressMarker = "mgprogress|"
	pathMarker     = "mgpath|"
	notAvailable   = "NA"
)

// progressTemplate makes yt-dlp print one parseable line per progress tick.
var progressTemplate = "download:" + progressMarker +
	"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|" +
	"%(progress.total_bytes_estimate)s|%(progress.speed)s"

type Config struct {
	Binary    string
	KillGrace time.Duration
}

type Extractor struct {
	binary    string
	killGrace time.Duration
}

func New(cfg Config) *Extractor {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return &Extractor{binary: binary, killGrace: cfg.KillGrace}
}

// FetchMetadata runs yt-dlp in JSON dump mode for a single video.
func (e *Extractor) FetchMetadata(ctx context.Context, url string) (*domain.Metadata, error) {
	cmd := exec.CommandContext(ctx, e.binary, metadataArgs(url)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ExtractionError{Op: "fetch metadata", Err: errors.New(errorMessage(stderr.String(), err))}
	}
	if stdout.Len() == 0 {
		return nil, &domain.ExtractionError{Op: "fetch metadata", Err: errors.New("yt-dlp returned empty output")}
	}

	meta, err := decodeMetadata(stdout.Bytes())
	if err != nil {
		return nil, &domain.ExtractionError{Op: "fetch metadata", Err: err}
	}
	return meta, nil
}

func metadataArgs(url string) []string {
	return []string{"-J", "--no-playlist", "--no-warnings", "--", url}
}

// Download starts yt-dlp for one selector. Progress lines are forwarded to
// onEvent; the file yt-dlp finally wrote is reported by OutputPath.
func (e *Extractor) Download(ctx context.Context, req port.DownloadRequest, onEvent port.EventHandler) (port.Download, error) {
	if req.URL == "" || req.OutputTemplate == "" {
		return nil, errors.New("download requires a url and an output template")
	}

	// --print implies --quiet, which moves progress output to stderr on
	// some yt-dlp versions, so both streams are parsed.
	d := &download{}
	handle := d.handleLine(onEvent)
	h, err := process.Start(ctx, e.binary, downloadArgs(req), process.Options{
		KillGrace: e.killGrace,
		OnStdout:  handle,
		OnStderr:  handle,
	})
	if err != nil {
		return nil, &domain.ExtractionError{Op: "start yt-dlp", Err: err}
	}
	d.Handle = h
	return d, nil
}

func downloadArgs(req port.DownloadRequest) []string {
	selector := req.Selector
	if selector == "" {
		selector = domain.FallbackSelector
	}
	return []string{
		"-f", selector,
		"-o", req.OutputTemplate,
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--progress",
		"--progress-template", progressTemplate,
		"--print", "after_move:" + pathMarker + "%(filepath)s",
		"--",
		req.URL,
	}
}

type download struct {
	*process.Handle

	mu   sync.Mutex
	path string
}

func (d *download) OutputPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Wait reports yt-dlp failures as extraction errors. Aborts requested by
// the event handler and context cancellation pass through unchanged.
func (d *download) Wait() error {
	err := d.Handle.Wait()
	if err == nil {
		return nil
	}
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	return &domain.ExtractionError{Op: "download", Err: errors.New(errorMessage(exitErr.Stderr, exitErr))}
}

func (d *download) handleLine(onEvent port.EventHandler) process.LineFunc {
	return func(line string) error {
		if path, ok := strings.CutPrefix(line, pathMarker); ok {
			d.mu.Lock()
			d.path = strings.TrimSpace(path)
			d.mu.Unlock()
			return nil
		}
		ev, ok := parseProgress(line)
		if !ok || onEvent == nil {
			return nil
		}
		return onEvent(ev)
	}
}

// parseProgress decodes a progress-template line. Only in-flight ticks are
// forwarded: per-file "finished" lines are not the end of a stage when
// yt-dlp post-processes.
func parseProgress(line string) (domain.ProgressEvent, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), progressMarker)
	if !ok {
		return domain.ProgressEvent{}, false
	}
	fields := strings.Split(rest, "|")
	if len(fields) != 5 || fields[0] != string(domain.ProgressDownloading) {
		return domain.ProgressEvent{}, false
	}

	total := parseInt(fields[2])
	if total <= 0 {
		total = parseInt(fields[3])
	}
	return domain.ProgressEvent{
		Status:          domain.ProgressDownloading,
		DownloadedBytes: parseInt(fields[1]),
		TotalBytes:      total,
		Speed:           parseFloat(fields[4]),
	}, true
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == notAvailable || s == "None" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	return int64(parseFloat(s))
}

// errorMessage prefers yt-dlp's own "ERROR:" line over the exit status.
func errorMessage(stderr string, fallback error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	return fallback.Error()
}

type infoJSON struct {
	Title       string             `json:"title"`
	Duration    float64            `json:"duration"`
	Thumbnails  []domain.Thumbnail `json:"thumbnails"`
	Formats     []formatJSON       `json:"formats"`
	Uploader    string             `json:"uploader"`
	UploaderURL string             `json:"uploader_url"`
	ViewCount   int64              `json:"view_count"`
	LikeCount   int64              `json:"like_count"`
	Description string             `json:"description"`
}

type formatJSON struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
	Resolution     string  `json:"resolution"`
	FormatNote     string  `json:"format_note"`
	FPS            float64 `json:"fps"`
}

func decodeMetadata(data []byte) (*domain.Metadata, error) {
	var info infoJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}

	meta := &domain.Metadata{
		Title:           info.Title,
		DurationSeconds: info.Duration,
		Thumbnails:      info.Thumbnails,
		Uploader:        info.Uploader,
		UploaderURL:     info.UploaderURL,
		ViewCount:       info.ViewCount,
		LikeCount:       info.LikeCount,
		Description:     info.Description,
		Formats:         make([]domain.Format, 0, len(info.Formats)),
	}
	domain.SortThumbnails(meta.Thumbnails)

	for _, f := range info.Formats {
		size := f.Filesize
		if size <= 0 {
			size = f.FilesizeApprox
		}
		meta.Formats = append(meta.Formats, domain.Format{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			VCodec:     f.VCodec,
			ACodec:     f.ACodec,
			Filesize:   int64(size),
			Resolution: f.Resolution,
			FormatNote: f.FormatNote,
			FPS:        f.FPS,
		})
	}

	logger.Debug.Printf("metadata for %q: %d formats", logger.SanitizeForLog(meta.Title), len(meta.Formats))
	return meta, nil
}

// DependencyReport tells whether the external tools resolve on PATH.
type DependencyReport struct {
	YTDLPFound  bool   `json:"yt_dlp_found"`
	YTDLPPath   string `json:"yt_dlp_path,omitempty"`
	FFmpegFound bool   `json:"ffmpeg_found"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
}

func DependencyStatus(ytdlpBinary, ffmpegBinary string) DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath(ytdlpBinary); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	if path, err := exec.LookPath(ffmpegBinary); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	return report
}

// CheckDependencies fails when either tool is missing.
func (r DependencyReport) CheckDependencies() error {
	if !r.YTDLPFound {
		return fmt.Errorf("missing dependency: yt-dlp is not installed or not on PATH")
	}
	if !r.FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is required to merge streams and was not found on PATH")
	}
	return nil
}

var _ port.Extractor = (*Extractor)(nil)
