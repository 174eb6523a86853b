// Package sanitize cleans names coming from the processing service and from
// configuration files before they touch the local file system.
package sanitize

import (
	"path"
	"strings"
	"unicode"
)

// invisibleChars are removed from every field
var invisibleChars = []string{
	"\u200B", // Zero-width space
	"\u200C", // Zero-width non-joiner
	"\u200D", // Zero-width joiner
	"\uFEFF", // Zero-width no-break space (BOM)
	"\u00AD", // Soft hyphen
	"\u2060", // Word joiner
	"\u180E", // Mongolian vowel separator
}

// Device names Windows refuses as file names, with or without extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// maxFileNameLen keeps names well under the 255 byte limit of common file systems.
const maxFileNameLen = 200

// SanitizeField removes invisible characters and surrounding whitespace.
func SanitizeField(field string) string {
	if field == "" {
		return field
	}
	return strings.TrimSpace(removeInvisibleChars(field))
}

// SanitizeFileName turns a server-suggested name into a safe base name.
// Directory components are dropped and characters that are invalid on
// Windows are replaced with "_". An empty result yields fallback.
func SanitizeFileName(name, fallback string) string {
	name = SanitizeField(name)
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, name)

	// Windows strips trailing dots and spaces silently
	name = strings.TrimRight(name, ". ")
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return fallback
	}

	stem := name
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if reservedNames[strings.ToUpper(stem)] {
		name = "_" + name
	}

	if len(name) > maxFileNameLen {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = truncateUTF8(name[:len(name)-len(ext)], maxFileNameLen-len(ext)) + ext
	}
	return name
}

func removeInvisibleChars(s string) string {
	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
