package utils

import (
	"regexp"
	"strings"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*#&=\x00-\x1F]`)
	repeatedUnderscores  = regexp.MustCompile(`_+`)
)

const maxFilenameLength = 100

// SanitizeFilename turns name into a single safe path component, "untitled" if nothing is left
func SanitizeFilename(name string) string {
	s := invalidFilenameChars.ReplaceAllString(name, "_")
	s = repeatedUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_ ")

	if len(s) > maxFilenameLength {
		s = strings.Trim(s[:maxFilenameLength], "_ ")
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// URLFilename names the file a crawled page is saved to, e.g. "x.test_docs_intro" for
// "https://x.test/docs/intro/". The scheme is dropped; the host keeps pages of different sites apart.
func URLFilename(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		rawURL = rawURL[i+3:]
	}
	return SanitizeFilename(strings.TrimSuffix(rawURL, "/"))
}
