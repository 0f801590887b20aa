package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFilenameLength is the usual filesystem limit, in bytes.
const maxFilenameLength = 255

// dangerousChars break header quoting or act as path separators.
var dangerousChars = map[rune]bool{
	'"':  true,
	'\\': true,
	'/':  true,
	':':  true,
	'\n': true,
	'\r': true,
}

// SanitizeFilename makes a download name safe for headers and file
// systems. Unicode is preserved; the extension survives truncation.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))

	for _, r := range name {
		if r < 32 || r == 127 || dangerousChars[r] {
			sb.WriteRune('_')
			continue
		}
		sb.WriteRune(r)
	}

	result := strings.TrimSpace(sb.String())
	if strings.Trim(result, "_") == "" {
		return "download"
	}
	if len(result) > maxFilenameLength {
		result = truncatePreservingExtension(result)
	}
	return result
}

func truncatePreservingExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLength {
		return truncateToBytes(name, maxFilenameLength)
	}
	base := name[:len(name)-len(ext)]
	return truncateToBytes(base, maxFilenameLength-len(ext)) + ext
}

// truncateToBytes cuts s to at most maxBytes without splitting a rune.
func truncateToBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// asciiFallback replaces non-ASCII runes for the plain filename parameter.
func asciiFallback(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if r > 126 {
			sb.WriteRune('_')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ContentDisposition returns an attachment header value. Non-ASCII names
// are carried in the RFC 5987 filename* parameter with an ASCII fallback.
func ContentDisposition(filename string) string {
	sanitized := SanitizeFilename(filename)
	fallback := asciiFallback(sanitized)
	if fallback == sanitized {
		return fmt.Sprintf("attachment; filename=%q", sanitized)
	}
	encoded := strings.ReplaceAll(url.QueryEscape(sanitized), "+", "%20")
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", fallback, encoded)
}
