// Copyright Cometadata Inc., 2026. All rights reserved.

// Package validate checks inverted citation records against identifier
// registries, with an optional HTTP resolution fallback.
package validate

import (
	"github.com/cometadata/crossref-citation-extraction/internal/index"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// LookupResult reports where a DOI was found, if anywhere.
type LookupResult struct {
	Found  bool
	Source types.Source
}

// LookupDOI consults the indexes the source mode allows. In All mode
// Crossref is consulted first, then DataCite; single-source modes consult
// only their own index. The arXiv mode resolves against DataCite, which
// registers the arXiv DOIs.
func LookupDOI(doi string, source types.Source, crossref, datacite *index.Index) LookupResult {
	checkCrossref := func() bool { return crossref != nil && crossref.Contains(doi) }
	checkDatacite := func() bool { return datacite != nil && datacite.Contains(doi) }

	switch source {
	case types.SourceCrossref:
		if checkCrossref() {
			return LookupResult{Found: true, Source: types.SourceCrossref}
		}
	case types.SourceDatacite, types.SourceArxiv:
		if checkDatacite() {
			return LookupResult{Found: true, Source: types.SourceDatacite}
		}
	default:
		if checkCrossref() {
			return LookupResult{Found: true, Source: types.SourceCrossref}
		}
		if checkDatacite() {
			return LookupResult{Found: true, Source: types.SourceDatacite}
		}
	}
	return LookupResult{}
}
