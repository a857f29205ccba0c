// Copyright Cometadata Inc., 2026. All rights reserved.

// Package extract mines scholarly identifiers (DOIs, arXiv IDs) out of
// structured reference fields and free-form citation text.
package extract

import (
	"regexp"
	"strings"
)

// doiPattern captures a DOI from bare, doi:-prefixed, and URL forms. The
// capture requires a non-whitespace tail so pathological inputs cannot
// produce unbounded matches.
var doiPattern = regexp.MustCompile(`(?i)(?:doi[:\s]*|(?:https?://)?(?:dx\.)?doi\.org/)?(10\.\d{4,}/[^\s\])>,;"']+)`)

// DOIMatch is a single mined DOI: the normalized form plus the verbatim
// substring that produced it.
type DOIMatch struct {
	DOI string
	Raw string
}

// trailingPunct lists characters stripped from the end of a captured DOI;
// they belong to the surrounding prose, not the identifier.
const trailingPunct = `.,;:)]>"' `

// percentDecoder rewrites the URL escapes that commonly leak into DOIs found
// in URLs, both cases.
var percentDecoder = strings.NewReplacer(
	"%2F", "/", "%2f", "/",
	"%3A", ":", "%3a", ":",
	"%28", "(", "%29", ")",
	"%3C", "<", "%3c", "<",
	"%3E", ">", "%3e", ">",
)

// trailingEntities are HTML entities that survive scraping and attach to the
// DOI tail.
var trailingEntities = []string{"&gt", "&lt", "&amp", "&quot"}

// NormalizeDOI cleans a captured DOI: decodes URL escapes, strips trailing
// punctuation and HTML entities, and lowercases. Normalization is
// idempotent.
func NormalizeDOI(doi string) string {
	result := percentDecoder.Replace(doi)

	// Trim punctuation and entities to a fixpoint; an entity strip can expose
	// more trailing punctuation (e.g. "10.1/x.&amp;").
	for {
		before := result
		result = strings.TrimRight(result, trailingPunct)
		for _, entity := range trailingEntities {
			if strings.HasSuffix(result, entity) {
				result = result[:len(result)-len(entity)]
			}
		}
		if result == before {
			break
		}
	}

	return strings.ToLower(result)
}

// ExtractDOIs returns the DOIs found in text, deduplicated by normalized
// form in first-seen order. It never fails; unmatched text yields nil.
func ExtractDOIs(text string) []DOIMatch {
	var matches []DOIMatch
	seen := make(map[string]struct{})

	for _, m := range doiPattern.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		normalized := NormalizeDOI(raw)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		matches = append(matches, DOIMatch{DOI: normalized, Raw: raw})
	}

	return matches
}

// DOIPrefix returns the registrant prefix (the part before the first slash)
// of a DOI, lowercased. A DOI without a slash has no prefix.
func DOIPrefix(doi string) (string, bool) {
	prefix, _, found := strings.Cut(doi, "/")
	if !found || !strings.HasPrefix(prefix, "10.") {
		return "", false
	}
	return strings.ToLower(prefix), true
}
