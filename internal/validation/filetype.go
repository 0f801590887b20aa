// Package validation checks submission input and finished artifacts.
package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ErrNotMedia is returned when an artifact does not look like audio or video.
var ErrNotMedia = errors.New("artifact is not a recognized media file")

// mediaMIMETypes lists the containers a finished job may produce.
var mediaMIMETypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"video/x-flv":     true,
	"video/mp2t":      true,
	"video/avi":       true,
	"video/x-msvideo": true,
	"audio/mp4":       true,
	"audio/mpeg":      true,
	"audio/ogg":       true,
	"application/ogg": true,
	"audio/wav":       true,
	"audio/wave":      true,
	"audio/flac":      true,
}

const (
	magicBytesBufferSize = 512
	tsPacketSize         = 188
	tsSyncByte           = 0x47
)

// ValidateMagicBytes sniffs the content type of reader and rewinds it.
// allowed is true for audio and video containers only.
func ValidateMagicBytes(reader io.ReadSeeker) (mime string, allowed bool, err error) {
	buf := make([]byte, magicBytesBufferSize)
	n, err := io.ReadFull(reader, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false, err
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}
	if n == 0 {
		return "application/octet-stream", false, nil
	}
	buf = buf[:n]

	mime = detectMediaMagic(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}
	return mime, mediaMIMETypes[mime], nil
}

// VerifyArtifact checks that path exists, is a non-empty regular file and
// carries a media signature.
func VerifyArtifact(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("%w: empty or not a regular file", ErrNotMedia)
	}

	mime, allowed, err := ValidateMagicBytes(f)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: detected %s", ErrNotMedia, mime)
	}
	return nil
}

// detectMediaMagic recognizes containers http.DetectContentType misses or
// mislabels.
func detectMediaMagic(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	// EBML header, shared by WebM and Matroska.
	if buf[0] == 0x1A && buf[1] == 0x45 && buf[2] == 0xDF && buf[3] == 0xA3 {
		return "video/webm"
	}

	if string(buf[:3]) == "FLV" && buf[3] == 0x01 {
		return "video/x-flv"
	}

	// MPEG transport stream: sync byte at the start of two consecutive
	// packets.
	if buf[0] == tsSyncByte && len(buf) > tsPacketSize && buf[tsPacketSize] == tsSyncByte {
		return "video/mp2t"
	}

	if string(buf[:4]) == "fLaC" {
		return "audio/flac"
	}

	if string(buf[:3]) == "ID3" {
		return "audio/mpeg"
	}

	// MPEG audio frame sync without an ID3 tag.
	if buf[0] == 0xFF {
		switch buf[1] & 0xFE {
		case 0xFA, 0xF2:
			return "audio/mpeg"
		}
	}

	// ISO base media: [size]["ftyp"][brand].
	if len(buf) >= 12 && string(buf[4:8]) == "ftyp" {
		switch string(buf[8:12]) {
		case "M4A ", "M4B ":
			return "audio/mp4"
		case "qt  ":
			return "video/quicktime"
		default:
			return "video/mp4"
		}
	}

	return ""
}
