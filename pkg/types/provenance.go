// Copyright Cometadata Inc., 2026. All rights reserved.

// Package types holds the record and configuration structs shared across
// pipeline stages.
package types

import (
	"database/sql/driver"
	"fmt"
)

// Provenance describes how a cited identifier was obtained. The numeric
// values establish a quality ordering used during deduplication:
// Publisher > Crossref > Mined.
type Provenance int

const (
	// ProvenanceMined marks identifiers recovered by regex from free text.
	ProvenanceMined Provenance = iota
	// ProvenanceCrossref marks DOIs the Crossref registry attributes.
	ProvenanceCrossref
	// ProvenancePublisher marks DOIs the source record asserts explicitly.
	ProvenancePublisher
)

func (p Provenance) String() string {
	switch p {
	case ProvenancePublisher:
		return "publisher"
	case ProvenanceCrossref:
		return "crossref"
	default:
		return "mined"
	}
}

// IsAsserted reports whether the provenance is publisher or crossref.
func (p Provenance) IsAsserted() bool {
	return p == ProvenancePublisher || p == ProvenanceCrossref
}

// ParseProvenance converts the wire string back to a Provenance.
func ParseProvenance(s string) (Provenance, error) {
	switch s {
	case "publisher":
		return ProvenancePublisher, nil
	case "crossref":
		return ProvenanceCrossref, nil
	case "mined":
		return ProvenanceMined, nil
	default:
		return ProvenanceMined, fmt.Errorf("invalid provenance: %q", s)
	}
}

// Value stores the provenance as its lowercase name.
func (p Provenance) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan restores a provenance stored by Value.
func (p *Provenance) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan provenance from %T", src)
	}
	parsed, err := ParseProvenance(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON serializes the provenance as its lowercase name.
func (p Provenance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON parses the lowercase name form.
func (p *Provenance) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid provenance JSON: %s", data)
	}
	parsed, err := ParseProvenance(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
