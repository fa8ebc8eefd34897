package util

import (
	"errors"
	"path"
	"strings"
)

// ErrInvalidFileName is returned for empty names and names with "." or ".." segments.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens a client file name into a single object name segment.
// Any "." or ".." segment in the original path is rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	segments := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' })
	if len(segments) == 0 {
		return "", ErrInvalidFileName
	}
	for _, seg := range segments {
		if seg == "." || seg == ".." {
			return "", ErrInvalidFileName
		}
	}
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s, nil
}

// AudioObjectName derives a per-request audio object name from the image name, e.g.
// "cat.jpg" with id "abc" and ext "mp3" becomes "audio/cat-abc.mp3".
func AudioObjectName(imageName, id, ext string) string {
	base := strings.TrimSuffix(imageName, path.Ext(imageName))
	if base == "" {
		base = "audio"
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp3"
	}
	return "audio/" + base + "-" + id + "." + ext
}
