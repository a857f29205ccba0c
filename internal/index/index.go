// Copyright Cometadata Inc., 2026. All rights reserved.

// Package index maintains in-memory registries of known DOIs with their
// registrant prefixes, bulk-loaded from registry dumps and persistable as
// snapshots for warm starts.
package index

import (
	"sort"
	"strings"

	"github.com/cometadata/crossref-citation-extraction/internal/extract"
)

// Index is a set of known DOIs (lowercased) plus the set of their registrant
// prefixes. Membership is case-insensitive on input.
type Index struct {
	dois     map[string]struct{}
	prefixes map[string]struct{}
}

// New returns an empty index.
func New() *Index {
	return WithCapacity(0, 0)
}

// WithCapacity returns an empty index pre-sized for bulk loading. Sizing
// ahead avoids rehash churn during the initial tens-of-millions load.
func WithCapacity(doiCapacity, prefixCapacity int) *Index {
	return &Index{
		dois:     make(map[string]struct{}, doiCapacity),
		prefixes: make(map[string]struct{}, prefixCapacity),
	}
}

// Insert adds a DOI and its prefix to the index. A DOI without a registrant
// prefix (no slash) is ill-formed and discarded; Insert reports whether the
// DOI was kept.
func (ix *Index) Insert(doi string) bool {
	lower := strings.ToLower(doi)
	prefix, ok := extract.DOIPrefix(lower)
	if !ok {
		return false
	}
	ix.prefixes[prefix] = struct{}{}
	ix.dois[lower] = struct{}{}
	return true
}

// Contains reports whether the DOI is in the index.
func (ix *Index) Contains(doi string) bool {
	_, ok := ix.dois[strings.ToLower(doi)]
	return ok
}

// HasPrefix reports whether any indexed DOI carries the given registrant
// prefix.
func (ix *Index) HasPrefix(prefix string) bool {
	_, ok := ix.prefixes[strings.ToLower(prefix)]
	return ok
}

// Len returns the number of indexed DOIs.
func (ix *Index) Len() int {
	return len(ix.dois)
}

// PrefixCount returns the number of distinct registrant prefixes.
func (ix *Index) PrefixCount() int {
	return len(ix.prefixes)
}

// Merge adds every DOI and prefix from other into this index.
func (ix *Index) Merge(other *Index) {
	for doi := range other.dois {
		ix.dois[doi] = struct{}{}
	}
	for prefix := range other.prefixes {
		ix.prefixes[prefix] = struct{}{}
	}
}

// DOIs returns the indexed DOIs in sorted order.
func (ix *Index) DOIs() []string {
	out := make([]string, 0, len(ix.dois))
	for doi := range ix.dois {
		out = append(out, doi)
	}
	sort.Strings(out)
	return out
}

// Prefixes returns the indexed prefixes in sorted order.
func (ix *Index) Prefixes() []string {
	out := make([]string, 0, len(ix.prefixes))
	for prefix := range ix.prefixes {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}

// setRaw installs an already-normalized DOI without prefix derivation; the
// snapshot loader uses it when the prefix sidecar is present.
func (ix *Index) setRaw(doi string) {
	ix.dois[doi] = struct{}{}
}

// setRawPrefix installs an already-normalized prefix.
func (ix *Index) setRawPrefix(prefix string) {
	ix.prefixes[prefix] = struct{}{}
}
