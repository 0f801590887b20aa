//go:build !windows

package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/port"
)

// fakeBinary writes an executable shell script standing in for yt-dlp.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

const parseOutput = `out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
path=$(printf '%s' "$out" | sed 's/%(ext)s/mp4/')
`

type recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	err    error
}

func (r *recorder) handle(ev domain.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) snapshot() []domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProgressEvent(nil), r.events...)
}

func TestExtractor_Download(t *testing.T) {
	bin := fakeBinary(t, parseOutput+`
printf 'mgprogress|downloading|512|1024|NA|2048\n'
printf 'mgprogress|downloading|1024|NA|1024|NA\n'
printf 'mgprogress|finished|1024|1024|NA|NA\n'
printf 'data' > "$path"
printf 'mgpath|%s\n' "$path"
`)
	dir := t.TempDir()
	ext := New(Config{Binary: bin})
	rec := &recorder{}

	dl, err := ext.Download(context.Background(), port.DownloadRequest{
		URL:            "https://example.com/v",
		Selector:       "22",
		OutputTemplate: filepath.Join(dir, "video_job.%(ext)s"),
	}, rec.handle)
	require.NoError(t, err)
	require.NoError(t, dl.Wait())

	assert.Equal(t, filepath.Join(dir, "video_job.mp4"), dl.OutputPath())
	assert.FileExists(t, dl.OutputPath())
	assert.Equal(t, []domain.ProgressEvent{
		{Status: domain.ProgressDownloading, DownloadedBytes: 512, TotalBytes: 1024, Speed: 2048},
		{Status: domain.ProgressDownloading, DownloadedBytes: 1024, TotalBytes: 1024},
	}, rec.snapshot())
}

func TestExtractor_DownloadFailure(t *testing.T) {
	bin := fakeBinary(t, `echo "[youtube] x: Downloading webpage" >&2
echo "ERROR: [youtube] x: Private video" >&2
exit 1`)
	ext := New(Config{Binary: bin})

	dl, err := ext.Download(context.Background(), port.DownloadRequest{URL: "https://example.com/v", OutputTemplate: "/tmp/x.%(ext)s"}, nil)
	require.NoError(t, err)

	err = dl.Wait()
	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "download: ERROR: [youtube] x: Private video", err.Error())
	assert.Empty(t, dl.OutputPath())
}

func TestExtractor_DownloadAbortedByHandler(t *testing.T) {
	bin := fakeBinary(t, `printf 'mgprogress|downloading|1|100|NA|NA\n'
sleep 30`)
	ext := New(Config{Binary: bin, KillGrace: time.Second})
	rec := &recorder{err: domain.ErrCancelled}

	dl, err := ext.Download(context.Background(), port.DownloadRequest{URL: "https://example.com/v", OutputTemplate: "/tmp/x.%(ext)s"}, rec.handle)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- dl.Wait() }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrCancelled)
	case <-time.After(10 * time.Second):
		t.Fatal("download was not aborted")
	}
}

func TestExtractor_FetchMetadata(t *testing.T) {
	bin := fakeBinary(t, `printf '{"title":"Clip","duration":12,"formats":[{"format_id":"18","ext":"mp4","vcodec":"avc1","acodec":"mp4a"}]}'`)
	ext := New(Config{Binary: bin})

	meta, err := ext.FetchMetadata(context.Background(), "https://example.com/v")
	require.NoError(t, err)
	assert.Equal(t, "Clip", meta.Title)
	require.Len(t, meta.Formats, 1)
	assert.Equal(t, "18", meta.Formats[0].FormatID)
}

func TestExtractor_FetchMetadataFailure(t *testing.T) {
	bin := fakeBinary(t, `echo "ERROR: Unsupported URL: https://example.com/v" >&2
exit 1`)
	ext := New(Config{Binary: bin})

	_, err := ext.FetchMetadata(context.Background(), "https://example.com/v")
	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, err.Error(), "Unsupported URL")
}
