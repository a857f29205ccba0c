// Copyright Cometadata Inc., 2026. All rights reserved.

package output

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// WriteRecords writes records as line-delimited JSON, one record per line,
// preserving input order.
func WriteRecords(path string, records []types.CitationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			f.Close()
			return fmt.Errorf("encoding record for %s: %w", path, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing output %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output %s: %w", path, err)
	}
	return nil
}

// WriteSplit writes the combined records plus the two provenance-filtered
// siblings. Each filtered record keeps only the matching cited_by entries
// with its counts recomputed; records whose filtered list is empty are
// omitted from that sibling.
func WriteSplit(paths SplitPaths, records []types.CitationRecord) error {
	if err := WriteRecords(paths.All, records); err != nil {
		return err
	}
	if err := WriteRecords(paths.Asserted, FilterRecords(records, true)); err != nil {
		return err
	}
	return WriteRecords(paths.Mined, FilterRecords(records, false))
}

// FilterRecords keeps, per record, only the cited_by entries whose
// provenance matches (asserted means publisher or crossref). Counts are
// recomputed from the filtered list; emptied records are dropped.
func FilterRecords(records []types.CitationRecord, asserted bool) []types.CitationRecord {
	var out []types.CitationRecord
	for i := range records {
		if filtered, ok := filterRecord(&records[i], asserted); ok {
			out = append(out, filtered)
		}
	}
	return out
}

func filterRecord(record *types.CitationRecord, asserted bool) (types.CitationRecord, bool) {
	var citedBy []types.CitedBy
	for _, entry := range record.CitedBy {
		if entry.Provenance.IsAsserted() == asserted {
			citedBy = append(citedBy, entry)
		}
	}
	if len(citedBy) == 0 {
		return types.CitationRecord{}, false
	}

	distinct := make(map[string]struct{}, len(citedBy))
	for _, entry := range citedBy {
		distinct[strings.ToLower(entry.DOI)] = struct{}{}
	}

	filtered := *record
	filtered.CitedBy = citedBy
	filtered.ReferenceCount = len(citedBy)
	filtered.CitationCount = len(distinct)
	return filtered, true
}
