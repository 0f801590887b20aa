package domain

import (
	"fmt"
	"math"
)

const (
	oneKilobyte = 1024
	oneMegabyte = oneKilobyte * 1024
	oneGigabyte = oneMegabyte * 1024
	oneTerabyte = oneGigabyte * 1024
)

// FormatDuration renders seconds as MM:SS, or HH:MM:SS past one hour.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "00:00"
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

func FormatSize(bytes int64) string {
	switch {
	case bytes < oneKilobyte:
		return fmt.Sprintf("%.1fB", float64(bytes))
	case bytes < oneMegabyte:
		return fmt.Sprintf("%.1fKB", float64(bytes)/oneKilobyte)
	case bytes < oneGigabyte:
		return fmt.Sprintf("%.1fMB", float64(bytes)/oneMegabyte)
	case bytes < oneTerabyte:
		return fmt.Sprintf("%.1fGB", float64(bytes)/oneGigabyte)
	}
	return fmt.Sprintf("%.1fTB", float64(bytes)/oneTerabyte)
}

// Megabytes renders a byte count the way progress telemetry reports it.
func Megabytes(bytes int64) string {
	return fmt.Sprintf("%.2fMB", float64(bytes)/oneMegabyte)
}

// MegabytesPerSecond renders a transfer speed given in bytes per second.
func MegabytesPerSecond(speed float64) string {
	return fmt.Sprintf("%.2f MB/s", speed/oneMegabyte)
}

// RoundProgress keeps two decimals so polled values stay stable.
func RoundProgress(p float64) float64 {
	return math.Round(p*100) / 100
}
