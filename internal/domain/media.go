package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	codecNone = "none"
	// FallbackSelector lets the extractor pick whatever it considers best.
	FallbackSelector = "best"
)

// Format is one stream variant advertised by the extractor.
type Format struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	Filesize   int64   `json:"filesize"`
	Resolution string  `json:"resolution"`
	FormatNote string  `json:"format_note"`
	FPS        float64 `json:"fps"`
}

func (f Format) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != codecNone
}

func (f Format) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != codecNone
}

// IsAudioOnly reports an audio stream without video. A format whose video
// codec is unknown is not considered audio-only.
func (f Format) IsAudioOnly() bool {
	return f.VCodec == codecNone && f.HasAudio()
}

func (f Format) IsVideoOnly() bool {
	return f.HasVideo() && !f.HasAudio()
}

func (f Format) IsCombined() bool {
	return f.HasVideo() && f.HasAudio()
}

// Quality is the display label of a format.
func (f Format) Quality() string {
	if f.Resolution != "" {
		return f.Resolution
	}
	if f.FormatNote != "" {
		return f.FormatNote
	}
	return "N/A"
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Metadata is what the extractor knows about a URL before downloading.
type Metadata struct {
	Title           string      `json:"title"`
	DurationSeconds float64     `json:"duration"`
	Thumbnails      []Thumbnail `json:"thumbnails"`
	Formats         []Format    `json:"formats"`
	Uploader        string      `json:"uploader"`
	UploaderURL     string      `json:"uploader_url"`
	ViewCount       int64       `json:"view_count"`
	LikeCount       int64       `json:"like_count"`
	Description     string      `json:"description"`
}

// FindFormat returns the format with the given id.
func (m *Metadata) FindFormat(formatID string) (Format, bool) {
	for _, f := range m.Formats {
		if f.FormatID == formatID {
			return f, true
		}
	}
	return Format{}, false
}

// BestAudio returns the audio-only stream with the largest file size.
// Streams without a known size rank lowest.
func BestAudio(formats []Format) (Format, bool) {
	var best Format
	found := false
	for _, f := range formats {
		if !f.IsAudioOnly() || f.FormatID == "" {
			continue
		}
		if !found || f.Filesize > best.Filesize {
			best = f
			found = true
		}
	}
	return best, found
}

// EnsureAudioVideo resolves a format id into a selector that yields both
// audio and video: the id itself when it is already combined, the id paired
// with the best audio stream when it is video only, and the fallback
// selector otherwise.
func EnsureAudioVideo(formatID string, formats []Format) string {
	var selected *Format
	for i := range formats {
		if formats[i].FormatID == formatID {
			selected = &formats[i]
			break
		}
	}
	if selected == nil {
		return FallbackSelector
	}
	if selected.IsCombined() {
		return formatID
	}
	if selected.IsVideoOnly() {
		if audio, ok := BestAudio(formats); ok {
			return fmt.Sprintf("%s+%s", formatID, audio.FormatID)
		}
	}
	return FallbackSelector
}

// SplitSelector splits a composite "video+audio" selector.
func SplitSelector(selector string) (video, audio string, ok bool) {
	video, audio, ok = strings.Cut(selector, "+")
	if !ok || video == "" || audio == "" {
		return "", "", false
	}
	return video, audio, true
}

// FormatOption is the display shape of a format in a listing.
type FormatOption struct {
	FormatID   string  `json:"itag"`
	Quality    string  `json:"quality"`
	Container  string  `json:"container"`
	Size       string  `json:"size"`
	RawSize    int64   `json:"raw_size"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	FPS        float64 `json:"fps"`
	FormatNote string  `json:"format_note"`
}

// FormatGroups buckets formats by the streams they carry.
type FormatGroups struct {
	Combined  []FormatOption `json:"combined"`
	VideoOnly []FormatOption `json:"videoOnly"`
	AudioOnly []FormatOption `json:"audioOnly"`
}

// GroupFormats de-duplicates formats by quality and container, groups
// them, and orders each group by size then frame rate, largest first.
func GroupFormats(formats []Format) FormatGroups {
	groups := FormatGroups{
		Combined:  []FormatOption{},
		VideoOnly: []FormatOption{},
		AudioOnly: []FormatOption{},
	}
	seen := make(map[string]struct{})

	for _, f := range formats {
		key := f.Quality() + "_" + f.Ext
		var target *[]FormatOption
		switch {
		case f.IsCombined():
			target = &groups.Combined
		case f.IsVideoOnly():
			target = &groups.VideoOnly
		case f.VCodec == codecNone && f.HasAudio():
			target = &groups.AudioOnly
		default:
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		*target = append(*target, toOption(f))
	}

	for _, g := range []*[]FormatOption{&groups.Combined, &groups.VideoOnly, &groups.AudioOnly} {
		opts := *g
		sort.SliceStable(opts, func(i, j int) bool {
			if opts[i].RawSize != opts[j].RawSize {
				return opts[i].RawSize > opts[j].RawSize
			}
			return opts[i].FPS > opts[j].FPS
		})
	}
	return groups
}

func toOption(f Format) FormatOption {
	size := "N/A"
	if f.Filesize > 0 {
		size = FormatSize(f.Filesize)
	}
	vcodec, acodec := f.VCodec, f.ACodec
	if vcodec == "" {
		vcodec = codecNone
	}
	if acodec == "" {
		acodec = codecNone
	}
	return FormatOption{
		FormatID:   f.FormatID,
		Quality:    f.Quality(),
		Container:  f.Ext,
		Size:       size,
		RawSize:    f.Filesize,
		VCodec:     vcodec,
		ACodec:     acodec,
		FPS:        f.FPS,
		FormatNote: f.FormatNote,
	}
}

// SortThumbnails orders thumbnails by pixel area, largest first.
func SortThumbnails(thumbs []Thumbnail) {
	sort.SliceStable(thumbs, func(i, j int) bool {
		return thumbs[i].Width*thumbs[i].Height > thumbs[j].Width*thumbs[j].Height
	})
}
