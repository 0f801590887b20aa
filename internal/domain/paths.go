package domain

import (
	"mime"
	"path/filepath"
	"strings"
	"unicode"
)

// ExtTemplate is the extractor placeholder for the real file extension.
const ExtTemplate = ".%(ext)s"

// JobPaths derives every on-disk name a job may produce. All names embed
// the job id so concurrent jobs never collide in the shared directory.
type JobPaths struct {
	Dir string
	ID  string
}

func NewJobPaths(dir, id string) JobPaths {
	return JobPaths{Dir: dir, ID: id}
}

func (p JobPaths) join(name string) string {
	return filepath.Join(p.Dir, name)
}

// SingleTemplate is the output template of a one-stream download.
func (p JobPaths) SingleTemplate() string {
	return p.join("video_" + p.ID + ExtTemplate)
}

func (p JobPaths) TempVideoTemplate() string {
	return p.join("temp_video_" + p.ID + ExtTemplate)
}

func (p JobPaths) TempAudioTemplate() string {
	return p.join("temp_audio_" + p.ID + ExtTemplate)
}

// MuxOutput is the final artifact of a two-stream job.
func (p JobPaths) MuxOutput(container string) string {
	return p.join("video_" + p.ID + "." + container)
}

// AudioTemplate is where the source stream of an audio-only job lands.
func (p JobPaths) AudioTemplate() string {
	return p.join(p.ID + "_temp" + ExtTemplate)
}

// AudioEncoded is the encoder output before it is renamed to its final name.
func (p JobPaths) AudioEncoded() string {
	return p.join(p.ID + "_temp.mp3")
}

func (p JobPaths) AudioFinal() string {
	return p.join(p.ID + "_final.mp3")
}

// PartialPatterns are the base-name globs of everything a job in flight
// may leave behind.
func (p JobPaths) PartialPatterns() []string {
	return []string{
		"video_" + p.ID + ".*",
		"audio_" + p.ID + ".*",
		"temp_video_" + p.ID + ".*",
		"temp_audio_" + p.ID + ".*",
		p.ID + "_final.*",
		p.ID + "_temp.*",
		p.ID + "_temp",
	}
}

// ArtifactVariants are the sibling files removed together with a served
// artifact.
func (p JobPaths) ArtifactVariants() []string {
	suffixes := []string{".mp3", ".webm", ".m4a", "_temp", "_temp.mp3", ".mp4"}
	paths := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		paths = append(paths, p.join(p.ID+s))
	}
	return paths
}

// MatchesPartial reports whether a base name belongs to this job.
func (p JobPaths) MatchesPartial(name string) bool {
	for _, pattern := range p.PartialPatterns() {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// SafeTitle keeps letters, digits, spaces and the characters "-_|." of a
// title and trims trailing whitespace.
func SafeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_|.", r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

// DownloadFilename builds the name an artifact is offered under.
func DownloadFilename(prefix, title, ext string) string {
	safe := SafeTitle(title)
	if safe == "" {
		safe = "download"
	}
	if prefix == "" {
		return safe + ext
	}
	return prefix + " | " + safe + ext
}

// artifactMIMETypes maps the containers the extractor and encoder are known
// to produce.
var artifactMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".3gp":  "video/3gpp",
	".flv":  "video/x-flv",
	".ts":   "video/mp2t",
	".avi":  "video/x-msvideo",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

// ArtifactType returns the mimetype and extension an artifact is served
// with. Audio-only jobs always produce mp3; other artifacts keep their own
// extension.
func ArtifactType(audioOnly bool, path string) (mimeType, ext string) {
	if audioOnly {
		return "audio/mpeg", ".mp3"
	}
	ext = strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "application/octet-stream", ""
	}
	if m, ok := artifactMIMETypes[ext]; ok {
		return m, ext
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return m, ext
	}
	return "application/octet-stream", ext
}
