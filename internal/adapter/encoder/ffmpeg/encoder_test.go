package ffmpeg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/mediagrab/internal/port"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{
			name:    "valid path",
			path:    "/tmp/video.mp4",
			wantErr: nil,
		},
		{
			name:    "valid path with spaces",
			path:    "/tmp/my video.mp4",
			wantErr: nil,
		},
		{
			name:    "valid relative path",
			path:    "video.mp4",
			wantErr: nil,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: ErrEmptyPath,
		},
		{
			name:    "path with null byte at start",
			path:    "\x00/tmp/video.mp4",
			wantErr: ErrInvalidPath,
		},
		{
			name:    "path with null byte in middle",
			path:    "/tmp/\x00video.mp4",
			wantErr: ErrInvalidPath,
		},
		{
			name:    "path with multiple null bytes",
			path:    "/tmp/\x00video\x00.mp4",
			wantErr: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validatePath(%q) = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestEncoder_Merge_PathValidation(t *testing.T) {
	e := New(Config{})

	tests := []struct {
		name   string
		req    port.MergeRequest
		errMsg string
	}{
		{
			name:   "empty video path",
			req:    port.MergeRequest{AudioPath: "/tmp/a.m4a", OutputPath: "/tmp/out.mp4"},
			errMsg: "invalid video path",
		},
		{
			name:   "null byte in audio path",
			req:    port.MergeRequest{VideoPath: "/tmp/v.mp4", AudioPath: "/tmp/\x00a.m4a", OutputPath: "/tmp/out.mp4"},
			errMsg: "invalid audio path",
		},
		{
			name:   "empty output path",
			req:    port.MergeRequest{VideoPath: "/tmp/v.mp4", AudioPath: "/tmp/a.m4a"},
			errMsg: "invalid output path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Merge(context.Background(), tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEncoder_ExtractAudio_PathValidation(t *testing.T) {
	e := New(Config{})

	_, err := e.ExtractAudio(context.Background(), port.AudioRequest{OutputPath: "/tmp/out.mp3"})
	assert.ErrorIs(t, err, ErrEmptyPath)
	assert.Contains(t, err.Error(), "invalid input path")

	_, err = e.ExtractAudio(context.Background(), port.AudioRequest{InputPath: "/tmp/in.m4a", OutputPath: "/tmp/\x00out.mp3"})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestMergeArgs(t *testing.T) {
	args := mergeArgs(port.MergeRequest{
		VideoPath:  "/d/temp_video_x.mp4",
		AudioPath:  "/d/temp_audio_x.m4a",
		OutputPath: "/d/video_x.mp4",
		Args:       []string{"-c:v", "libx264"},
	})

	assert.Equal(t, []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-i", "/d/temp_video_x.mp4",
		"-i", "/d/temp_audio_x.m4a",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-progress", "pipe:1", "-nostats", "-y", "/d/video_x.mp4",
	}, args)
}

func TestAudioArgs(t *testing.T) {
	args := audioArgs(port.AudioRequest{
		InputPath:  "/d/x_temp.webm",
		OutputPath: "/d/x_temp.mp3",
		Args:       []string{"-vn", "-c:a", "libmp3lame", "-b:a", "192k"},
	})
	assert.Equal(t, "/d/x_temp.webm", args[5])
	assert.Equal(t, "/d/x_temp.mp3", args[len(args)-1])
	assert.Contains(t, args, "libmp3lame")
}

func TestParseOutTime(t *testing.T) {
	tests := []struct {
		line string
		want time.Duration
		ok   bool
	}{
		{line: "out_time_us=1500000", want: 1500 * time.Millisecond, ok: true},
		{line: "out_time_ms=30000000", want: 30 * time.Second, ok: true},
		{line: "out_time_us=N/A"},
		{line: "out_time=00:00:01.500000"},
		{line: "progress=continue"},
		{line: "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseOutTime(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
