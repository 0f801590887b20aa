package validation

import (
	"net/url"
	"strings"

	"github.com/bnema/mediagrab/internal/domain"
)

const (
	maxURLLength      = 2048
	maxFormatIDLength = 64
)

// ValidateSourceURL accepts absolute http(s) URLs only. The extractor is
// never handed local paths or other schemes.
func ValidateSourceURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.NewValidationError("url", "is required")
	}
	if len(trimmed) > maxURLLength {
		return "", domain.NewValidationError("url", "is too long")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", domain.NewValidationError("url", "is malformed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", domain.NewValidationError("url", "must use http or https")
	}
	if u.Host == "" {
		return "", domain.NewValidationError("url", "has no host")
	}
	return trimmed, nil
}

// ValidateFormatID accepts extractor format identifiers such as "22",
// "137" or "hls-1080p". A leading dash would be read as a flag.
func ValidateFormatID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", domain.NewValidationError("itag", "is required")
	}
	if len(id) > maxFormatIDLength {
		return "", domain.NewValidationError("itag", "is too long")
	}
	if id[0] == '-' {
		return "", domain.NewValidationError("itag", "must not start with '-'")
	}
	for _, r := range id {
		if !isFormatRune(r) {
			return "", domain.NewValidationError("itag", "contains invalid characters")
		}
	}
	return id, nil
}

func isFormatRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return r == '-' || r == '_' || r == '.'
}
