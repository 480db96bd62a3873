package stash

import "strings"

// SanitizeFilename lowercases name and collapses anything outside
// [a-z0-9._-] into single dashes, suitable for use in URL path segments.
func SanitizeFilename(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// FileExtension returns the extension after the last dot, without the dot.
// Names with no extension yield "unk".
func FileExtension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return "unk"
	}
	return strings.TrimSpace(filename[i+1:])
}

// TrimExtension returns filename without its final extension.
func TrimExtension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return filename
	}
	return filename[:i]
}
