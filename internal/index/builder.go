// Copyright Cometadata Inc., 2026. All rights reserved.

package index

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/klauspost/pgzip"
	"github.com/miku/parallel"
	"github.com/segmentio/encoding/json"

	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// statusInterval is the number of inserted DOIs between progress lines.
const statusInterval = 500_000

// BuildFromJSONLGz builds an index from a gzip-compressed line-delimited
// JSON stream. Each line is parsed as an object and record[idField], when
// present as a string, is inserted. Malformed lines and records without a
// usable id are counted and skipped, never fatal.
//
// Lines are parsed on a worker pool; extracted ids funnel through a pipe to
// the single goroutine that owns the index, so the maps never see concurrent
// writes.
func BuildFromJSONLGz(path, idField string, status io.Writer) (*Index, types.IndexBuildStats, error) {
	var stats types.IndexBuildStats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("opening records file %s: %w", path, err)
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, stats, fmt.Errorf("reading gzip stream %s: %w", path, err)
	}
	defer gz.Close()

	var lines, malformed, dropped atomic.Int64

	pr, pw := io.Pipe()
	proc := parallel.NewProcessor(gz, pw, func(b []byte) ([]byte, error) {
		b = bytes.TrimSpace(b)
		if len(b) == 0 {
			return nil, nil
		}
		lines.Add(1)

		var record map[string]json.RawMessage
		if err := json.Unmarshal(b, &record); err != nil {
			malformed.Add(1)
			return nil, nil
		}

		raw, ok := record[idField]
		if !ok {
			dropped.Add(1)
			return nil, nil
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			dropped.Add(1)
			return nil, nil
		}
		return append([]byte(id), '\n'), nil
	})

	go func() {
		pw.CloseWithError(proc.Run())
	}()

	ix := WithCapacity(10_000_000, 100_000)
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if ix.Insert(scanner.Text()) {
			stats.Inserted++
			if status != nil && stats.Inserted%statusInterval == 0 {
				fmt.Fprintf(status, "  indexed %d DOIs...\n", stats.Inserted)
			}
		} else {
			dropped.Add(1)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("building index from %s: %w", path, err)
	}

	stats.Lines = int(lines.Load())
	stats.Malformed = int(malformed.Load())
	stats.Dropped = int(dropped.Load())

	if status != nil {
		fmt.Fprintf(status, "built index: %d DOIs, %d prefixes (%d lines, %d malformed, %d dropped)\n",
			ix.Len(), ix.PrefixCount(), stats.Lines, stats.Malformed, stats.Dropped)
	}

	return ix, stats, nil
}
