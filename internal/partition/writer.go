// Copyright Cometadata Inc., 2026. All rights reserved.

package partition

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// Writer buffers exploded edges per partition key and flushes any buffer
// that reaches the threshold, keeping live memory bounded by
// threshold x row size x active partitions.
type Writer struct {
	dir            string
	flushThreshold int
	buffers        map[string][]Edge
	totalWritten   int
}

// NewWriter creates the partition directory and returns a writer flushing
// each partition at flushThreshold buffered rows.
func NewWriter(dir string, flushThreshold int) (*Writer, error) {
	if flushThreshold < 1 {
		return nil, fmt.Errorf("flush threshold must be positive, got %d", flushThreshold)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating partition directory %s: %w", dir, err)
	}
	return &Writer{
		dir:            dir,
		flushThreshold: flushThreshold,
		buffers:        make(map[string][]Edge),
	}, nil
}

// Write routes one edge into its partition buffer, flushing the buffer when
// it reaches the threshold.
func (w *Writer) Write(edge Edge) error {
	key := Key(edge.CitedID)
	w.buffers[key] = append(w.buffers[key], edge)

	if len(w.buffers[key]) >= w.flushThreshold {
		return w.flush(key)
	}
	return nil
}

// WriteExtractedRef explodes one reference's matches into edges. The three
// slices must be parallel; a length mismatch is a bug, not bad input.
// Returns the number of edges written.
func (w *Writer) WriteExtractedRef(citingDOI string, refIndex uint32, refJSON string, rawMatches, citedIDs []string, provenances []types.Provenance) (int, error) {
	if len(rawMatches) != len(citedIDs) || len(citedIDs) != len(provenances) {
		return 0, fmt.Errorf("column length mismatch: %d raw matches, %d cited ids, %d provenances",
			len(rawMatches), len(citedIDs), len(provenances))
	}

	for i := range citedIDs {
		err := w.Write(Edge{
			CitingDOI:  citingDOI,
			RefIndex:   refIndex,
			RefJSON:    refJSON,
			RawMatch:   rawMatches[i],
			CitedID:    citedIDs[i],
			Provenance: provenances[i],
		})
		if err != nil {
			return i, err
		}
	}
	return len(citedIDs), nil
}

// FlushAll flushes every non-empty partition buffer.
func (w *Writer) FlushAll() error {
	for key := range w.buffers {
		if err := w.flush(key); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) flush(key string) error {
	buffer, ok := w.buffers[key]
	if !ok {
		return fmt.Errorf("partition buffer %s missing on flush", key)
	}
	if len(buffer) == 0 {
		return nil
	}

	path := filepath.Join(w.dir, key+EdgeFileExt)
	if err := AppendEdges(path, buffer); err != nil {
		return fmt.Errorf("flushing partition %s: %w", key, err)
	}

	w.totalWritten += len(buffer)
	w.buffers[key] = buffer[:0]
	return nil
}

// TotalWritten returns the number of edges flushed to disk so far.
func (w *Writer) TotalWritten() int {
	return w.totalWritten
}

// PartitionCount returns the number of partition keys seen so far.
func (w *Writer) PartitionCount() int {
	return len(w.buffers)
}
