package web

import "strings"

// MimeType names a content type and whether it is worth compressing.
type MimeType struct {
	Name         string
	Compressible bool
}

// MimeResolver maps a file extension (with leading dot) to an optional
// MimeType. An unresolvable extension makes the resource server decline.
type MimeResolver interface {
	Resolve(ext string) (MimeType, bool)
}

// MimeTable is a map-backed resolver.
type MimeTable map[string]MimeType

func (t MimeTable) Resolve(ext string) (MimeType, bool) {
	m, ok := t[strings.ToLower(ext)]
	return m, ok
}

// DefaultMimeTable covers the extensions the engine serves out of the box.
func DefaultMimeTable() MimeTable {
	return MimeTable{
		".html": {Name: "text/html; charset=utf-8", Compressible: true},
		".htm":  {Name: "text/html; charset=utf-8", Compressible: true},
		".css":  {Name: "text/css; charset=utf-8", Compressible: true},
		".js":   {Name: "application/javascript", Compressible: true},
		".json": {Name: "application/json", Compressible: true},
		".txt":  {Name: "text/plain; charset=utf-8", Compressible: true},
		".xml":  {Name: "application/xml", Compressible: true},
		".svg":  {Name: "image/svg+xml", Compressible: true},
		".csv":  {Name: "text/csv; charset=utf-8", Compressible: true},
		".png":  {Name: "image/png", Compressible: false},
		".jpg":  {Name: "image/jpeg", Compressible: false},
		".jpeg": {Name: "image/jpeg", Compressible: false},
		".gif":  {Name: "image/gif", Compressible: false},
		".ico":  {Name: "image/x-icon", Compressible: false},
		".woff": {Name: "font/woff", Compressible: false},
		".gz":   {Name: "application/gzip", Compressible: false},
		".pdf":  {Name: "application/pdf", Compressible: false},
	}
}
