// Copyright Cometadata Inc., 2026. All rights reserved.

// Package output emits inverted citation records as line-delimited JSON,
// including the provenance-split sibling files.
package output

import (
	"path/filepath"
	"strings"
)

// SplitPaths are the three sibling outputs derived from one base path: all
// edges, the asserted subset, and the mined subset.
type SplitPaths struct {
	All      string
	Asserted string
	Mined    string
}

// SplitPathsFrom derives the sibling paths: "results.jsonl" yields
// "results_asserted.jsonl" and "results_mined.jsonl" next to it.
func SplitPathsFrom(base string) SplitPaths {
	dir := filepath.Dir(base)
	name := filepath.Base(base)

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	sibling := func(suffix string) string {
		return filepath.Join(dir, stem+"_"+suffix+ext)
	}

	return SplitPaths{
		All:      base,
		Asserted: sibling("asserted"),
		Mined:    sibling("mined"),
	}
}
