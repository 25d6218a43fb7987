// Package mime maps file extensions to the Content-Type values sent with static files.
package mime

import "strings"

// DefaultType is returned for paths without an extension or with an unknown one.
const DefaultType = "text/plain"

// DefaultTypes is the built-in extension table. Keys are extensions without the dot
// and are matched case-sensitively.
var DefaultTypes = map[string]string{
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"ico":  "image/x-icon",
	"json": "application/json",
}

// Resolver looks up content types by extension.
// The zero value is not usable; create one with New.
type Resolver struct {
	types map[string]string
}

// New returns a Resolver seeded with DefaultTypes. Entries in overrides replace or
// extend the defaults; a leading dot on an override key is ignored.
func New(overrides map[string]string) *Resolver {
	types := make(map[string]string, len(DefaultTypes)+len(overrides))
	for ext, typ := range DefaultTypes {
		types[ext] = typ
	}
	for ext, typ := range overrides {
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" || typ == "" {
			continue
		}
		types[ext] = typ
	}
	return &Resolver{types: types}
}

// TypeOf returns the content type for path, judged by the text after its last dot.
//
// The dot search runs over the whole path, not just the final segment, so
// "/v1.2/readme" yields the extension "2/readme" and falls back to DefaultType.
func (r *Resolver) TypeOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return DefaultType
	}
	if typ, ok := r.types[path[i+1:]]; ok {
		return typ
	}
	return DefaultType
}

var defaultResolver = New(nil)

// TypeOf resolves path against DefaultTypes only.
func TypeOf(path string) string {
	return defaultResolver.TypeOf(path)
}
