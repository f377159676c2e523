package staticfile

import (
	"path/filepath"
	"strings"
)

// DefaultMIMEType is used for extensions missing from the table.
const DefaultMIMEType = "application/octet-stream"

var defaultMIMETypes = map[string]string{
	"gmi":  "text/gemini",
	"txt":  "text/plain",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// normalizeExt lowercases ext and strips a leading dot.
func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MIMEType infers the response MIME type from the file extension.
func (r *Resolver) MIMEType(path string) string {
	ext := normalizeExt(filepath.Ext(path))
	if ext == "" {
		return DefaultMIMEType
	}
	if mt, ok := r.mimeTypes[ext]; ok {
		return mt
	}
	return DefaultMIMEType
}
