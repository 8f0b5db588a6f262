// Package citation turns the free-form source labels emitted alongside
// generated answers into a deduplicated, display-ready reference list.
//
// The wire format is the literal label the context assembler plants in the
// prompt and instructs the model to repeat: "[Source: <filename>[, Page <n>]]".
// Model output is not trusted to reproduce it exactly, so parsing is tolerant:
// try a trailing "Page N" indicator first, then a first-comma split, and fall
// back to treating the whole string as a filename.
package citation

import (
	"sort"
	"strings"
	"unicode"
)

// Citation is one normalized reference: a base filename and the pages (or
// slides, or rows) cited from it. Pages is empty for formats without a
// positional unit.
type Citation struct {
	Filename string `json:"filename"`
	Pages    []int  `json:"pages"`
}

// Normalize groups raw citation strings by cleaned filename. Pages are merged,
// deduplicated and numerically sorted. Output preserves the order in which
// each filename first appeared, so the first-cited document is listed first.
func Normalize(raw []string) []Citation {
	order := make([]string, 0, len(raw))
	pages := make(map[string]map[int]bool)

	for _, r := range raw {
		name, page, hasPage := parse(r)
		if name == "" {
			continue
		}

		if _, seen := pages[name]; !seen {
			order = append(order, name)
			pages[name] = make(map[int]bool)
		}
		if hasPage {
			pages[name][page] = true
		}
	}

	out := make([]Citation, 0, len(order))
	for _, name := range order {
		ps := make([]int, 0, len(pages[name]))
		for p := range pages[name] {
			ps = append(ps, p)
		}
		sort.Ints(ps)
		out = append(out, Citation{Filename: name, Pages: ps})
	}
	return out
}

// parse extracts (filename, page) from one raw citation string.
func parse(raw string) (string, int, bool) {
	s := strings.TrimSpace(raw)

	// Strip the "[Source: ...]" wrapper when present.
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if rest, ok := cutPrefixFold(s, "source:"); ok {
		s = rest
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, false
	}

	if name, page, ok := trailingPage(s); ok {
		return baseName(name), page, true
	}

	// No page indicator: everything before the first comma is the filename.
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}
	return baseName(s), 0, false
}

// trailingPage matches a trailing "Page N", optionally preceded by a comma or
// an opening parenthesis, e.g. "report.pdf, Page 3" or "report.pdf (Page 3)".
func trailingPage(s string) (string, int, bool) {
	trimmed := strings.TrimRight(s, " )")

	idx := lastIndexFold(trimmed, "page")
	if idx < 0 {
		return "", 0, false
	}

	numPart := strings.TrimSpace(trimmed[idx+len("page"):])
	if numPart == "" {
		return "", 0, false
	}
	page := 0
	for _, r := range numPart {
		if !unicode.IsDigit(r) {
			return "", 0, false
		}
		page = page*10 + int(r-'0')
	}

	name := trimmed[:idx]
	name = strings.TrimRight(name, " ,(")
	if name == "" {
		return "", 0, false
	}
	return name, page, true
}

// baseName strips any path prefix, handling both separator styles.
func baseName(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexAny(s, `/\`); idx >= 0 {
		s = s[idx+1:]
	}
	return strings.TrimSpace(s)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func lastIndexFold(s, substr string) int {
	return strings.LastIndex(strings.ToLower(s), strings.ToLower(substr))
}
