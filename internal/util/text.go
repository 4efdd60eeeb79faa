package util

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxFileNameLength matches the file_name column width.
const MaxFileNameLength = 255

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// SanitizeFileName reduces an uploaded file name to its base name, cleans it
// for storage and truncates it to MaxFileNameLength characters.
func SanitizeFileName(value string) string {
	value = SanitizePostgresText(value)
	value = strings.ReplaceAll(value, "\\", "/")
	if i := strings.LastIndex(value, "/"); i >= 0 {
		value = value[i+1:]
	}
	value = strings.TrimSpace(value)
	if value == "." || value == ".." {
		value = ""
	}
	if value == "" {
		return value
	}

	if utf8.RuneCountInString(value) <= MaxFileNameLength {
		return value
	}

	ext := path.Ext(value)
	if utf8.RuneCountInString(ext) >= MaxFileNameLength {
		ext = ""
	}
	runes := []rune(strings.TrimSuffix(value, ext))
	keep := MaxFileNameLength - utf8.RuneCountInString(ext)
	return string(runes[:keep]) + ext
}

// FormatDuration renders d as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
