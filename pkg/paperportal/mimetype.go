package paperportal

import (
	"path/filepath"
	"strings"
)

// Extension-driven MIME resolution. The extension is the sole input: no
// content sniffing, so resolution stays O(1) and deterministic for records
// whose bytes may live in either backend.

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".zip":  "application/zip",
}

var previewableExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".txt":  true,
}

// Extensions accepted on upload. Serving is laxer than ingest: the MIME map
// above also covers gif/txt/zip for legacy records imported before the
// allow-list existed.
var uploadExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".doc":  true,
	".docx": true,
}

func normalizedExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// MimeType returns the content type for filename based on its extension,
// defaulting to application/octet-stream.
func MimeType(filename string) string {
	if mt, ok := mimeTypes[normalizedExt(filename)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// CanPreview reports whether filename can be rendered inline by a browser.
// Everything else gets a download affordance instead.
func CanPreview(filename string) bool {
	return previewableExtensions[normalizedExt(filename)]
}

// AllowedUpload reports whether filename's extension is accepted for new
// uploads.
func AllowedUpload(filename string) bool {
	return uploadExtensions[normalizedExt(filename)]
}
