// Package extract locates named sections in free-form model output and turns
// section bodies into typed values.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// generic words a model tends to append to a section title.
var headerSuffixes = []string{
	"assessment", "analysis", "classification", "conditions", "considerations",
	"overview", "summary", "signals", "levels",
}

// HeaderAlias canonical section name with the textual variants that denote it.
type HeaderAlias struct {
	Canonical string
	Variants  []string
}

// HeaderTable ordered set of header aliases.
type HeaderTable []HeaderAlias

// HeaderSet compiled, read-only form of a HeaderTable. Safe for concurrent use.
type HeaderSet struct {
	canonical []string
	matchers  []variantMatcher
}

type variantMatcher struct {
	canonical string
	length    int
	lineStart *regexp.Regexp
	inline    *regexp.Regexp
}

type candidate struct {
	canonical string
	length    int
	start     int
	end       int
}

// Sections canonical name -> section body.
type Sections map[string]string

// Lookup returns the body of a section and whether its header was found.
func (s Sections) Lookup(name string) (string, bool) {
	body, ok := s[name]
	return body, ok
}

// NewHeaderSet compiles a header table. Variants are matched longest first.
func NewHeaderSet(table HeaderTable) *HeaderSet {
	set := &HeaderSet{}
	suffix := `(?:[ \t]+(?:` + strings.Join(headerSuffixes, "|") + `))?`

	for _, alias := range table {
		set.canonical = append(set.canonical, alias.Canonical)
		for _, variant := range alias.Variants {
			variant = strings.TrimSpace(variant)
			if variant == "" {
				continue
			}
			v := variantPattern(variant)

			set.matchers = append(set.matchers, variantMatcher{
				canonical: alias.Canonical,
				length:    utf8.RuneCountInString(variant),
				lineStart: regexp.MustCompile(`(?im)^[ \t>]*(?:#{1,6}[ \t]*)?(?:[*_]{1,3}[ \t]*)?` +
					`(?:(?:\d{1,2}|[A-Za-z])[.)][ \t]*|[-*•+][ \t]+)?(?:[*_]{1,3}[ \t]*)?` +
					`(` + v + suffix + `)\b[ \t]*(?:[*_]{1,3})?[ \t]*(:|：)?[ \t]*(?:[*_]{1,3})?[ \t]*`),
				inline: regexp.MustCompile(`(?i)[.!?;][ \t]+(?:[*_]{1,3})?(` + v + suffix +
					`)\b[ \t]*(?:[*_]{1,3})?[ \t]*(?::|：)(?:[*_]{1,3})?[ \t]*`),
			})
		}
	}

	sort.SliceStable(set.matchers, func(i, j int) bool {
		return set.matchers[i].length > set.matchers[j].length
	})

	return set
}

// Extract is a convenience wrapper compiling table for a single use.
func Extract(text string, table HeaderTable) Sections {
	return NewHeaderSet(table).Extract(text)
}

// Canonical returns the canonical names in table order.
func (h *HeaderSet) Canonical() []string {
	out := make([]string, len(h.canonical))
	copy(out, h.canonical)
	return out
}

// Extract locates every known section in text. Canonical names whose headers
// never appear are absent from the result.
func (h *HeaderSet) Extract(text string) Sections {
	sections := Sections{}
	if strings.TrimSpace(text) == "" {
		return sections
	}

	var all []candidate
	for _, m := range h.matchers {
		all = append(all, m.find(text)...)
	}

	// longest variant claims its span first; equal lengths resolve by position
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].length != all[j].length {
			return all[i].length > all[j].length
		}
		return all[i].start < all[j].start
	})

	var claimed []candidate
	for _, c := range all {
		if overlapsAny(c, claimed) {
			continue
		}
		claimed = append(claimed, c)
	}

	sort.Slice(claimed, func(i, j int) bool { return claimed[i].start < claimed[j].start })

	// only the first occurrence of a canonical name is a boundary
	seen := make(map[string]bool, len(h.canonical))
	boundaries := claimed[:0]
	for _, c := range claimed {
		if seen[c.canonical] {
			continue
		}
		seen[c.canonical] = true
		boundaries = append(boundaries, c)
	}

	for i, b := range boundaries {
		end := len(text)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].start
		}
		body := ""
		if b.end < end {
			body = text[b.end:end]
		}
		sections[b.canonical] = strings.TrimSpace(body)
	}

	return sections
}

func (m variantMatcher) find(text string) []candidate {
	var out []candidate

	for _, loc := range m.lineStart.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		hasColon := loc[4] >= 0
		if !hasColon && !restOfLineBlank(text, end) {
			continue
		}
		out = append(out, candidate{canonical: m.canonical, length: m.length, start: start, end: end})
	}

	for _, loc := range m.inline.FindAllStringSubmatchIndex(text, -1) {
		// header starts at the title itself, after the sentence delimiter
		out = append(out, candidate{canonical: m.canonical, length: m.length, start: loc[2], end: loc[1]})
	}

	return out
}

func restOfLineBlank(text string, from int) bool {
	rest := text[from:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.Trim(rest, " \t\r*_#") == ""
}

func overlapsAny(c candidate, claimed []candidate) bool {
	for _, o := range claimed {
		if c.start < o.end && o.start < c.end {
			return true
		}
	}
	return false
}

// variantPattern quotes a variant and lets any run of blanks between its words match.
func variantPattern(variant string) string {
	words := strings.Fields(variant)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `[ \t]+`)
}
