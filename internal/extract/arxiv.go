// Copyright Cometadata Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// The four arXiv shapes that appear in reference text. Each pattern captures
// the full context in group 1 (the raw match) and the bare identifier in
// group 2.
var (
	// Modern IDs after an arxiv context token: "arXiv:2403.03542v2",
	// "ArXiv. 2206.15325". Punctuation or whitespace may follow "arxiv".
	arxivModernPattern = regexp.MustCompile(`(?i)(arxiv[.:\s]+(\d{4}\.\d{4,6}(?:v\d+)?))`)

	// Pre-2007 IDs: "arXiv:hep-ph/9901234", "arXiv:cs.DM/ 9910013".
	arxivOldPattern = regexp.MustCompile(`(?i)(arxiv[.:\s]+([a-z][a-z0-9.-]*/\s*\d{7}(?:v\d+)?))`)

	// The Crossref-issued arXiv DOI form.
	arxivDOIPattern = regexp.MustCompile(`(?i)(10\.48550/arxiv\.(\d{4}\.\d{4,6}(?:v\d+)?))`)

	// arxiv.org URLs, both abstract and PDF paths, both ID eras.
	arxivURLPattern = regexp.MustCompile(`(?i)(arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,6}(?:v\d+)?|[a-z][a-z0-9.-]*/\d{7}(?:v\d+)?))`)
)

var arxivPatterns = []*regexp.Regexp{
	arxivModernPattern,
	arxivOldPattern,
	arxivDOIPattern,
	arxivURLPattern,
}

// arXivDOIPrefix reconstructs the registered DOI form for an arXiv ID. The
// mixed casing is the form DataCite registers.
const arxivDOIPrefix = "10.48550/arXiv."

// ArxivMatch is a single mined arXiv ID with its reconstructed DOI form.
type ArxivMatch struct {
	ID       string
	Raw      string
	ArxivDOI string
}

// NewArxivMatch builds a match for a normalized ID, deriving the DOI form.
func NewArxivMatch(id, raw string) ArxivMatch {
	return ArxivMatch{ID: id, Raw: raw, ArxivDOI: arxivDOIPrefix + id}
}

// NormalizeArxivID lowercases, removes embedded whitespace, and strips a
// trailing version suffix when the suffix digits are purely numeric.
// Normalization is idempotent.
func NormalizeArxivID(id string) string {
	id = strings.ToLower(id)
	id = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, id)

	if pos := strings.IndexByte(id, 'v'); pos >= 0 && pos+1 < len(id) {
		if isAllDigits(id[pos+1:]) {
			return id[:pos]
		}
	}
	return id
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ExtractArxiv returns the arXiv IDs found in text, deduplicated by
// normalized form in first-seen order across all four pattern shapes.
// It never fails; unmatched text yields nil.
func ExtractArxiv(text string) []ArxivMatch {
	var matches []ArxivMatch
	seen := make(map[string]struct{})

	for _, pattern := range arxivPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			normalized := NormalizeArxivID(m[2])
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			matches = append(matches, NewArxivMatch(normalized, m[1]))
		}
	}

	return matches
}
