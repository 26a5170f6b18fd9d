package mimetypes

import (
	"mime"
	"strings"
)

type MIME string

const (
	Unknown MIME = "unknown"

	ApplicationPDF MIME = "application/pdf"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWebP MIME = "image/webp"
)

// Normalize strips parameters from a media type ("image/png; charset=x").
func Normalize(detected string) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return MIME(mt), true
}

// IsImage reports whether the media type belongs to the image/* family.
func IsImage(m MIME) bool {
	return strings.HasPrefix(string(m), "image/")
}

// Allowed checks a detected media type against an allow-list.
// Entries ending in "/*" match the whole family.
func Allowed(detected MIME, allowList []string) bool {
	for _, allowed := range allowList {
		if family, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(string(detected), family+"/") {
				return true
			}
			continue
		}
		if string(detected) == allowed {
			return true
		}
	}
	return false
}
