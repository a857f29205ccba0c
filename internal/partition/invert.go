// Copyright Cometadata Inc., 2026. All rights reserved.

package partition

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"

	"github.com/cometadata/crossref-citation-extraction/internal/checkpoint"
	"github.com/cometadata/crossref-citation-extraction/internal/extract"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// InvertedFileSuffix names the per-partition inversion results persisted
// next to the edge files.
const InvertedFileSuffix = ".inverted.jsonl"

// edgePair identifies one (citing, cited) relation for deduplication.
type edgePair struct {
	citing string
	cited  string
}

// InvertEdges groups edges by cited identifier. Duplicate (citing, cited)
// pairs collapse to the highest-provenance row, ties keeping the first
// occurrence. Because every row with a given cited id routes to one
// partition, per-partition grouping is globally complete.
func InvertEdges(edges []Edge) []types.CitationRecord {
	kept := make([]Edge, 0, len(edges))
	byPair := make(map[edgePair]int, len(edges))

	for _, edge := range edges {
		pair := edgePair{citing: strings.ToLower(edge.CitingDOI), cited: strings.ToLower(edge.CitedID)}
		if i, ok := byPair[pair]; ok {
			if edge.Provenance > kept[i].Provenance {
				kept[i] = edge
			}
			continue
		}
		byPair[pair] = len(kept)
		kept = append(kept, edge)
	}

	var citedOrder []string
	groups := make(map[string][]Edge)
	for _, edge := range kept {
		cited := edge.CitedID
		if _, ok := groups[cited]; !ok {
			citedOrder = append(citedOrder, cited)
		}
		groups[cited] = append(groups[cited], edge)
	}

	records := make([]types.CitationRecord, 0, len(citedOrder))
	for _, cited := range citedOrder {
		group := groups[cited]

		distinct := make(map[string]struct{}, len(group))
		citedBy := make([]types.CitedBy, 0, len(group))
		for _, edge := range group {
			distinct[strings.ToLower(edge.CitingDOI)] = struct{}{}
			citedBy = append(citedBy, types.CitedBy{
				DOI:        edge.CitingDOI,
				RawMatch:   edge.RawMatch,
				Reference:  referenceJSON(edge.RefJSON),
				Provenance: edge.Provenance,
			})
		}

		record := types.CitationRecord{
			ReferenceCount: len(citedBy),
			CitationCount:  len(distinct),
			CitedBy:        citedBy,
		}
		if _, ok := extract.DOIPrefix(cited); ok {
			record.DOI = cited
		} else {
			record.ArxivID = cited
			record.ArxivDOI = "10.48550/arXiv." + cited
		}
		records = append(records, record)
	}
	return records
}

// referenceJSON embeds the stored reference string as raw JSON, or null when
// it is not valid JSON.
func referenceJSON(refJSON string) json.RawMessage {
	if json.Valid([]byte(refJSON)) {
		return json.RawMessage(refJSON)
	}
	return json.RawMessage("null")
}

// InvertPartitions inverts every edge file in dir not already marked in the
// checkpoint, in parallel. Each partition's result is persisted as
// <key>.inverted.jsonl before the checkpoint marks it complete, so a crash
// between partitions resumes without losing work.
func InvertPartitions(dir string, cp *checkpoint.Checkpoint, checkpointPath string, workers int, status io.Writer) (types.InvertStats, error) {
	var stats types.InvertStats

	files, err := ListEdgeFiles(dir)
	if err != nil {
		return stats, err
	}

	var pending []string
	for _, file := range files {
		if cp.IsPartitionInverted(Stem(file)) {
			stats.PartitionsSkipped++
			continue
		}
		pending = append(pending, file)
	}

	if status != nil {
		fmt.Fprintf(status, "inverting %d partitions (%d already done)\n", len(pending), stats.PartitionsSkipped)
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)

	for _, file := range pending {
		g.Go(func() error {
			edges, err := ReadEdges(file)
			if err != nil {
				return fmt.Errorf("inverting partition %s: %w", Stem(file), err)
			}
			records := InvertEdges(edges)

			outPath := strings.TrimSuffix(file, EdgeFileExt) + InvertedFileSuffix
			if err := writeInvertedFile(outPath, records); err != nil {
				return fmt.Errorf("inverting partition %s: %w", Stem(file), err)
			}

			mu.Lock()
			defer mu.Unlock()
			cp.MarkPartitionInverted(Stem(file))
			return cp.Save(checkpointPath)
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.PartitionsProcessed = len(pending)
	return stats, nil
}

func writeInvertedFile(path string, records []types.CitationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating inverted file: %w", err)
	}
	w := bufio.NewWriter(f)

	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			f.Close()
			return fmt.Errorf("encoding inverted record: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing inverted file: %w", err)
	}
	return f.Close()
}

// Assemble concatenates every persisted per-partition inversion result and
// sorts globally: citation count descending, ties broken by cited
// identifier ascending.
func Assemble(dir string) ([]types.CitationRecord, types.InvertStats, error) {
	var stats types.InvertStats

	matches, err := filepath.Glob(filepath.Join(dir, "*"+InvertedFileSuffix))
	if err != nil {
		return nil, stats, fmt.Errorf("listing inverted files in %s: %w", dir, err)
	}
	sort.Strings(matches)

	var records []types.CitationRecord
	for _, path := range matches {
		if err := readInvertedFile(path, &records); err != nil {
			return nil, stats, err
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CitationCount != records[j].CitationCount {
			return records[i].CitationCount > records[j].CitationCount
		}
		return citedKey(&records[i]) < citedKey(&records[j])
	})

	stats.UniqueCitedWorks = len(records)
	for i := range records {
		stats.TotalCitations += records[i].CitationCount
	}
	return records, stats, nil
}

func citedKey(r *types.CitationRecord) string {
	if r.DOI != "" {
		return r.DOI
	}
	return r.ArxivID
}

func readInvertedFile(path string, out *[]types.CitationRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening inverted file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record types.CitationRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("parsing inverted record in %s: %w", path, err)
		}
		*out = append(*out, record)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading inverted file %s: %w", path, err)
	}
	return nil
}
