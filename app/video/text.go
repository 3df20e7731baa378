package video

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Clean NFC-normalizes s, collapses runs of whitespace and trims it.
// Provider payloads mix composed and decomposed Cyrillic, which breaks
// exact title matching otherwise.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// SplitList splits a comma separated value list, cleaning every entry and
// dropping empty ones.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = Clean(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CleanList cleans every entry of items, dropping empty and duplicate ones.
func CleanList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = Clean(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
