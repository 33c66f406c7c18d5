package domain

import (
	"mime"
	"strings"
)

// IsImageMediaType reports whether a declared media type denotes an image.
// Parameters such as charset are ignored.
func IsImageMediaType(mediaType string) bool {
	mt := strings.TrimSpace(mediaType)
	if mt == "" {
		return false
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	mt = strings.ToLower(mt)
	return strings.HasPrefix(mt, "image/") && len(mt) > len("image/")
}

// FileExtension maps an image media type onto a download extension.
func FileExtension(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	switch mt {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/svg+xml":
		return "svg"
	}
	if ext, ok := strings.CutPrefix(mt, "image/"); ok && ext != "" {
		return ext
	}
	return "png"
}
