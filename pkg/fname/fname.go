// Package fname derives filesystem-safe artifact names and resolves the
// files external tools actually left on disk.
package fname

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxStemLen caps the sanitized stem length, in runes, so derived names
	// stay within filesystem limits once ids, tokens, part suffixes and
	// extensions are appended.
	MaxStemLen = 120

	partMarker = "_part"
	// partIndexWidth is the zero-padded index width in segment names.
	partIndexWidth = 3
	// partVerb is the printf verb matching partIndexWidth.
	partVerb = "%03d"

	fallbackStem = "media"
)

// forbidden holds characters that are unsafe in filenames on at least one
// supported filesystem.
const forbidden = `<>:"/\|?*`

// Sanitize normalizes an arbitrary origin-provided title into a stem that is
// safe to use as a filename on any supported filesystem.
func Sanitize(title string) string {
	var b strings.Builder

	b.Grow(len(title))

	for _, r := range title {
		if r < 0x20 || strings.ContainsRune(forbidden, r) {
			b.WriteRune('_')

			continue
		}

		b.WriteRune(r)
	}

	stem := strings.TrimSpace(b.String())
	stem = strings.Trim(stem, ".")

	if utf8.RuneCountInString(stem) > MaxStemLen {
		runes := []rune(stem)
		stem = strings.TrimSpace(string(runes[:MaxStemLen]))
	}

	if stem == "" {
		return fallbackStem
	}

	return stem
}

// Resolve maps a predicted stem and an ordered candidate extension set onto a
// directory listing, returning the first name that actually exists. It is
// pure: callers supply the listing, so the probing policy stays testable
// apart from the scanning mechanism.
func Resolve(stem string, exts []string, listing []string) (string, bool) {
	present := make(map[string]struct{}, len(listing))
	for _, name := range listing {
		present[name] = struct{}{}
	}

	for _, ext := range exts {
		candidate := stem + ext
		if _, ok := present[candidate]; ok {
			return candidate, true
		}
	}

	return "", false
}

// PartPattern returns the printf-style output pattern handed to the split
// tool, e.g. "clip_part%03d.mp4".
func PartPattern(stem, ext string) string {
	return stem + partMarker + partVerb + ext
}

// Segments filters a directory listing down to the segment names produced
// for stem, ordered numerically by the index embedded in each name. The
// split tool pads indices to partIndexWidth but grows wider past it, so
// anything from partIndexWidth digits up counts.
func Segments(listing []string, stem, ext string) []string {
	prefix := stem + partMarker

	type part struct {
		index int
		name  string
	}

	var parts []part

	for _, name := range listing {
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}

		idx := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		if len(idx) < partIndexWidth || strings.Trim(idx, "0123456789") != "" {
			continue
		}

		n, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}

		parts = append(parts, part{index: n, name: name})
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = p.name
	}

	return names
}
