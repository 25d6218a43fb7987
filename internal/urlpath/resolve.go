package urlpath

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultIndexFile replaces a bare "/" target.
const DefaultIndexFile = "index.html"

// Resolver converts raw request targets into decoded paths rooted at "/".
type Resolver struct {
	// IndexFile is served for the target "/". Empty means DefaultIndexFile.
	IndexFile string
	// NormalizeUnicode applies NFC to the decoded path, so that requests for
	// decomposed and precomposed spellings of a name open the same file.
	NormalizeUnicode bool
}

// Resolve strips scheme and authority from absolute-form targets, drops the
// query and fragment, maps "/" to the index file and percent-decodes the rest.
//
// Resolve never fails. Odd targets yield odd paths, e.g. "*" stays "*" and
// "?a=1" becomes "".
//
//	"/"               -> "/index.html"
//	"/a%20b.txt"      -> "/a b.txt"
//	"http://x/y.css"  -> "/y.css"
//	"/a?x=1#frag"     -> "/a"
func (r Resolver) Resolve(target string) string {
	p := stripAuthority(target)

	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	if p == "/" {
		index := r.IndexFile
		if index == "" {
			index = DefaultIndexFile
		}
		p = "/" + strings.TrimPrefix(index, "/")
	}

	p = Decode(p)
	if r.NormalizeUnicode {
		p = norm.NFC.String(p)
	}
	return p
}

// Resolve uses a zero Resolver.
func Resolve(target string) string {
	return Resolver{}.Resolve(target)
}

// stripAuthority removes "http://host" or "https://host" from target. When no
// '/' follows the host, the path is "/".
func stripAuthority(target string) string {
	for _, scheme := range []string{"http://", "https://"} {
		if !strings.HasPrefix(target, scheme) {
			continue
		}
		rest := target[len(scheme):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return rest[i:]
		}
		return "/"
	}
	return target
}

// Join prefixes a resolved path with the document root. It is plain
// concatenation, so Join(".", "/a") is "./a", and a trailing '/' on root is
// dropped first.
func Join(root, resolved string) string {
	return strings.TrimRight(root, "/") + resolved
}

// Contained reports whether fsPath, after cleaning, still lies inside root.
// The root itself counts as contained.
func Contained(root, fsPath string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(fsPath))
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}
