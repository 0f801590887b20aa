package logger

import (
	"fmt"
	"net/url"
	"strings"
)

const maxLoggedURL = 256

// SanitizeForLog escapes control characters so untrusted text (titles,
// URLs, extractor output) cannot forge log lines or drive the terminal.
// Printable Unicode passes through untouched.
func SanitizeForLog(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 32 || r == 127:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeURL drops credentials from a URL before it is logged, truncates
// overly long input and escapes control characters.
func SanitizeURL(raw string) string {
	s := raw
	if u, err := url.Parse(raw); err == nil && u.User != nil {
		u.User = nil
		s = u.String()
	}
	if len(s) > maxLoggedURL {
		s = s[:maxLoggedURL] + "..."
	}
	return SanitizeForLog(s)
}
