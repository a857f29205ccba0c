// Copyright Cometadata Inc., 2026. All rights reserved.

package types

import "github.com/segmentio/encoding/json"

// CitedBy is one citing-work descriptor inside an inverted entry. Reference
// carries the verbatim source reference object, embedded as raw JSON.
type CitedBy struct {
	DOI        string          `json:"doi"`
	RawMatch   string          `json:"raw_match"`
	Reference  json.RawMessage `json:"reference"`
	Provenance Provenance      `json:"provenance"`
}

// CitationRecord is one inverted entry: a cited identifier together with the
// works citing it. DOI-cited records carry DOI; arXiv-cited records carry
// ArxivDOI and ArxivID instead.
type CitationRecord struct {
	DOI            string    `json:"doi,omitempty"`
	ArxivDOI       string    `json:"arxiv_doi,omitempty"`
	ArxivID        string    `json:"arxiv_id,omitempty"`
	ReferenceCount int       `json:"reference_count"`
	CitationCount  int       `json:"citation_count"`
	CitedBy        []CitedBy `json:"cited_by"`
}

// Identifier returns the DOI used for validation lookups: the cited DOI for
// DOI records, the constructed arXiv DOI otherwise.
func (r *CitationRecord) Identifier() string {
	if r.DOI != "" {
		return r.DOI
	}
	return r.ArxivDOI
}
