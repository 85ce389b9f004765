package conversion

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxNameBytes = 200

var (
	formatPattern   = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
	unsafeNameChars = regexp.MustCompile(`[\x00-\x1f\x7f/\\:*?"<>|]+`)
)

// NormalizeFormat lowercases a target or source extension and strips a
// leading dot. It returns an empty string for anything that is not a plain
// alphanumeric extension.
func NormalizeFormat(raw string) string {
	value := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
	if !formatPattern.MatchString(value) {
		return ""
	}
	return value
}

// SanitizeName reduces a client supplied file name to a safe basename.
func SanitizeName(raw string) string {
	value := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	value = path.Base(value)
	value = unsafeNameChars.ReplaceAllString(value, "_")
	value = strings.Trim(value, ". ")
	if value == "" {
		return "file"
	}
	if len(value) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		value = value[:cut]
	}
	return value
}

// SourceFormat derives the detected source format from the file extension.
func SourceFormat(originalName string) string {
	return NormalizeFormat(path.Ext(SanitizeName(originalName)))
}

// BaseName returns the sanitized original name without its extension.
func BaseName(originalName string) string {
	name := SanitizeName(originalName)
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		return "file"
	}
	return base
}

// OutputName is "<sanitized basename>.<format>".
func OutputName(originalName, format string) string {
	return BaseName(originalName) + "." + format
}

// ArchiveEntryNames returns one unique entry name per original name, in the
// same order. The first occurrence of a name keeps "<base>.<format>"; later
// ones get "_2", "_3", ... appended to the base, skipping taken names.
func ArchiveEntryNames(originalNames []string, format string) []string {
	taken := make(map[string]bool, len(originalNames))
	out := make([]string, len(originalNames))
	for i, original := range originalNames {
		base := BaseName(original)
		name := base + "." + format
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = base + "_" + strconv.Itoa(n) + "." + format
		}
		taken[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}
