// Copyright Cometadata Inc., 2026. All rights reserved.

// Package partition shards exploded citation edges across per-key files and
// inverts them into a cited-to-citing index.
package partition

import (
	"strings"

	"github.com/cometadata/crossref-citation-extraction/internal/extract"
)

// Key derives the partition key for a cited identifier: the registrant
// prefix for DOIs, the first four characters for arXiv IDs with "/" remapped
// to "_". Keys are lowercased so they stay stable under case-folding, and
// contain no path separators.
func Key(citedID string) string {
	lower := strings.ToLower(citedID)
	if prefix, ok := extract.DOIPrefix(lower); ok {
		return prefix
	}

	runes := []rune(lower)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	for i, r := range runes {
		if r == '/' {
			runes[i] = '_'
		}
	}
	return string(runes)
}
