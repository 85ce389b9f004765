package conversion

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var targetFormats = map[Category]map[string]bool{
	CategoryImages: setOf("png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp", "svg", "heic", "heif", "avif"),
	CategorySounds: setOf("mp3", "wav", "ogg", "flac", "aac", "m4a"),
	CategoryVideos: setOf("mp4", "avi", "mkv", "mov", "flv", "webm"),
}

var sourceMIMETypes = map[Category]map[string]bool{
	CategoryImages: setOf(
		"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff", "image/webp",
		"image/svg", "image/svg+xml", "image/heic", "image/heif", "image/avif",
	),
	CategorySounds: setOf(
		"audio/mpeg", "audio/wav", "audio/ogg", "audio/flac", "audio/aac", "audio/mp4",
		"audio/x-m4a", "audio/m4a",
	),
	CategoryVideos: setOf("video/mp4", "video/x-msvideo", "video/x-matroska", "video/quicktime", "video/x-flv", "video/webm"),
}

// DefaultLegacyImageFormats are routed to the general-purpose image tool.
var DefaultLegacyImageFormats = []string{"bmp", "heic", "heif"}

// IsSupportedTarget reports whether format is offered for the category.
func IsSupportedTarget(category Category, format string) bool {
	return targetFormats[category][format]
}

// IsAllowedMIME reports whether a source MIME type is accepted for the
// category. Parameters such as "; charset=" are ignored.
func IsAllowedMIME(category Category, mimeType string) bool {
	value := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	allowed := sourceMIMETypes[category]
	if allowed[value] {
		return true
	}
	// Aliases such as audio/x-wav resolve to their canonical type.
	if known := mimetype.Lookup(value); known != nil {
		canonical, _, _ := strings.Cut(known.String(), ";")
		return allowed[strings.TrimSpace(canonical)]
	}
	return false
}

func setOf(values ...string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
