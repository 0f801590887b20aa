package domain

import "strings"

// Encoder presets are fixed per output container.
var (
	h264Preset = []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
	}
	vp9Preset = []string{
		"-c:v", "libvpx-vp9",
		"-cpu-used", "4",
		"-deadline", "good",
		"-crf", "30",
		"-b:v", "0",
		"-c:a", "libopus",
		"-b:a", "128k",
	}
	mp3Preset = []string{
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
	}
)

// MergePreset returns the codec arguments used to mux into container.
// Unknown containers get the mp4 preset.
func MergePreset(container string) []string {
	switch container {
	case "webm":
		return clone(vp9Preset)
	case "mkv":
		return clone(h264Preset)
	}
	return append(clone(h264Preset), "-movflags", "+faststart")
}

// AudioPreset returns the codec arguments for audio-only extraction.
func AudioPreset() []string {
	return clone(mp3Preset)
}

// MergeContainer picks the output container for a muxed job from the
// video stream's extension. Anything but webm and mkv is muxed into mp4.
func MergeContainer(videoExt string) string {
	switch strings.ToLower(videoExt) {
	case "webm":
		return "webm"
	case "mkv":
		return "mkv"
	}
	return "mp4"
}

func clone(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	return out
}
