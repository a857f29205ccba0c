// Copyright Cometadata Inc., 2026. All rights reserved.

package validate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"

	"github.com/cometadata/crossref-citation-extraction/internal/httputil"
	"github.com/cometadata/crossref-citation-extraction/internal/index"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// defaultConcurrency bounds in-flight resolver requests when the config
// leaves it unset.
const defaultConcurrency = 50

// Results partitions the validated records: Valid passed an index lookup or
// resolved over HTTP, Failed did neither.
type Results struct {
	Valid  []types.CitationRecord
	Failed []types.CitationRecord
	Stats  types.MultiValidateStats
}

// Run validates records in two phases. Phase A looks each record's DOI up
// in the in-memory indexes. Phase B, when enabled, issues bounded-concurrency
// HEAD requests against the DOI resolver for everything phase A missed.
// A failed request classifies the record as unresolved; it never fails the
// run and is never retried.
func Run(ctx context.Context, records []types.CitationRecord, crossref, datacite *index.Index, cfg types.ValidationConfig, status io.Writer) (*Results, error) {
	results := &Results{}
	var holding []types.CitationRecord

	for _, record := range records {
		results.Stats.TotalRecords++

		lookup := LookupDOI(record.Identifier(), cfg.Source, crossref, datacite)
		if !lookup.Found {
			holding = append(holding, record)
			continue
		}

		switch lookup.Source {
		case types.SourceCrossref:
			results.Stats.CrossrefMatched++
		case types.SourceDatacite:
			results.Stats.DataciteMatched++
		}
		results.Valid = append(results.Valid, record)
	}

	if status != nil {
		fmt.Fprintf(status, "index lookup: %d matched, %d unmatched\n", len(results.Valid), len(holding))
	}

	if !cfg.HTTPFallback || len(holding) == 0 {
		for range holding {
			results.recordFailure(cfg.Source)
		}
		results.Failed = append(results.Failed, holding...)
		return results, nil
	}

	if status != nil {
		fmt.Fprintf(status, "checking resolution for %d unmatched DOIs...\n", len(holding))
	}
	if err := results.httpFallback(ctx, holding, cfg); err != nil {
		return nil, err
	}
	return results, nil
}

// httpFallback resolves the holding list against doi.org. Completion order
// is immaterial; a semaphore of Concurrency permits bounds the in-flight
// requests.
func (r *Results) httpFallback(ctx context.Context, holding []types.CitationRecord, cfg types.ValidationConfig) error {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	client := httputil.NewResolverClient()
	resolved := make([]bool, len(holding))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range holding {
		g.Go(func() error {
			resolved[i] = httputil.CheckDOIResolves(ctx, client, holding[i].Identifier(), cfg.UserAgent, cfg.Timeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, record := range holding {
		if resolved[i] {
			r.recordResolution(cfg.Source)
			r.Valid = append(r.Valid, record)
		} else {
			r.recordFailure(cfg.Source)
			r.Failed = append(r.Failed, record)
		}
	}
	return nil
}

// recordResolution attributes an HTTP resolution to the requested source;
// All-mode resolutions count against DataCite.
func (r *Results) recordResolution(source types.Source) {
	if source == types.SourceCrossref {
		r.Stats.CrossrefHTTPResolved++
		return
	}
	r.Stats.DataciteHTTPResolved++
}

func (r *Results) recordFailure(source types.Source) {
	if source == types.SourceCrossref {
		r.Stats.CrossrefFailed++
		return
	}
	r.Stats.DataciteFailed++
}

// ReadRecords loads inverted citation records from a line-delimited JSON
// file. A malformed line fails the pipeline; validation input is produced
// by the inverter and damage means the run is unsound.
func ReadRecords(path string) ([]types.CitationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input %s: %w", path, err)
	}
	defer f.Close()

	var records []types.CitationRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var record types.CitationRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parsing record at line %d of %s: %w", line, path, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input %s: %w", path, err)
	}
	return records, nil
}
