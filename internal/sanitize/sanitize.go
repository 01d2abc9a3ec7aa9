// Package sanitize produces filesystem-safe, collision-free output
// names for materialized files.
package sanitize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// maxNameLength caps sanitized names. Collision suffixes are added on
// top of this at save time.
const maxNameLength = 50

// defaultName is substituted when sanitization leaves nothing usable.
const defaultName = "untitled"

// illegalChars are rejected by one or another common filesystem.
const illegalChars = `<>:"|?*\/`

// Filename converts a raw string into a filesystem-safe name: illegal
// and control characters are removed, whitespace runs collapse to
// single spaces, leading and trailing spaces and periods are trimmed,
// reserved device names get a "_file" suffix, and the result is capped
// at 50 characters. An empty result becomes "untitled".
func Filename(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)

	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.Trim(cleaned, " .")

	if isReserved(cleaned) {
		cleaned += "_file"
	}

	if runes := []rune(cleaned); len(runes) > maxNameLength {
		cleaned = strings.Trim(string(runes[:maxNameLength]), " .")
	}

	if cleaned == "" {
		return defaultName
	}
	return cleaned
}

// UniquePath returns a path under dir for name that does not collide
// with an existing file. On collision, "_1", "_2", ... is inserted
// before the extension until an unused path is found. The sequential
// check-then-use is safe under the single-threaded processing model.
func UniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if !exists(path) {
		return path
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

// isReserved reports whether name matches a Windows reserved device
// name (CON, PRN, AUX, NUL, COM1-9, LPT1-9), case-insensitively.
func isReserved(name string) bool {
	upper := strings.ToUpper(name)
	switch upper {
	case "CON", "PRN", "AUX", "NUL":
		return true
	}
	if len(upper) == 4 {
		if strings.HasPrefix(upper, "COM") || strings.HasPrefix(upper, "LPT") {
			return upper[3] >= '1' && upper[3] <= '9'
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
