// Package safepath turns untrusted display names into safe file and entry names.
package safepath

import (
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fallback is returned by Sanitize when nothing usable is left of a name.
const Fallback = "file"

// MaxNameBytes caps the length of a sanitized name.
// Most filesystems reject single path components above 255 bytes, and staged
// names carry an extra prefix.
const MaxNameBytes = 200

// Sanitize reduces name to a single safe path component.
// Directory parts (either separator) are dropped, control characters and NUL
// bytes are removed, and "." or ".." collapse to Fallback.
func Sanitize(name string) string {
	// Keep only the last component of either separator style.
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	// Drive-relative names like "C:foo" would still resolve outside on Windows.
	if len(name) >= 2 && name[1] == ':' && isASCIILetter(name[0]) {
		name = name[2:]
	}

	if name == "" || name == "." || name == ".." {
		return Fallback
	}
	return truncate(name, MaxNameBytes)
}

// truncate shortens name to at most limit bytes, keeping the extension and
// never splitting a UTF-8 sequence.
func truncate(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= limit/2 {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	cut := limit - len(ext)
	for cut > 0 && !utf8.RuneStart(stem[cut]) {
		cut--
	}
	return stem[:cut] + ext
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Namer hands out unique names within one container.
// The zero value is not usable; create one with NewNamer.
type Namer struct {
	seen map[string]struct{}
}

// NewNamer creates an empty Namer.
func NewNamer() *Namer {
	return &Namer{seen: make(map[string]struct{})}
}

// Unique sanitizes name and, if it was already handed out, appends a
// " (2)", " (3)", ... suffix before the extension.
func (n *Namer) Unique(name string) string {
	name = Sanitize(name)
	if _, ok := n.seen[name]; !ok {
		n.seen[name] = struct{}{}
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := stem + " (" + strconv.Itoa(i) + ")" + ext
		if _, ok := n.seen[candidate]; !ok {
			n.seen[candidate] = struct{}{}
			return candidate
		}
	}
}
