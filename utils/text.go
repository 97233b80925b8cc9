package utils

import (
	"strings"
	"unicode"
)

// SplitMultiValue splits a multi-value cell or input on any of the supported
// delimiters (semicolon, comma, full-width comma, newline), trims each part and
// drops empties. Splitting the rejoined result reproduces the same list.
func SplitMultiValue(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == '、' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseBoolean accepts true/是/y/yes/1 (case-insensitive) as true, everything
// else as false.
func ParseBoolean(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "是", "y", "yes", "1":
		return true
	}
	return false
}

// isPureAlphabetic reports whether the label consists only of ASCII letters.
func isPureAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// NormalizeSizes uppercases pure-alphabetic size labels and deduplicates them
// case-insensitively; labels with digits or non-Latin characters are left
// untouched (a "0"/"2" numeric run or 均码 survives as entered, duplicates
// included).
func NormalizeSizes(sizes []string) []string {
	seen := make(map[string]bool, len(sizes))
	out := make([]string, 0, len(sizes))
	for _, s := range sizes {
		label := strings.TrimSpace(s)
		if label == "" {
			continue
		}
		if !isPureAlphabetic(label) {
			out = append(out, label)
			continue
		}
		label = strings.ToUpper(label)
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}

// TruncateRunes cuts a string to at most n runes. Used for archive entry names
// derived from long product titles.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// SanitizeFilename removes characters outside the permitted charset (letters,
// digits, CJK, dash, underscore) so detected brand names are safe in filenames.
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.Is(unicode.Han, r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectCommonBrand returns the most frequent non-empty brand name in the batch,
// or "" when no row carries one. Ties resolve to the brand seen first.
func DetectCommonBrand(brands []string) string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, raw := range brands {
		b := strings.TrimSpace(raw)
		if b == "" {
			continue
		}
		if counts[b] == 0 {
			order = append(order, b)
		}
		counts[b]++
	}
	best := ""
	bestCount := 0
	for _, b := range order {
		if counts[b] > bestCount {
			best = b
			bestCount = counts[b]
		}
	}
	return best
}
