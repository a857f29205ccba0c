// Copyright Cometadata Inc., 2026. All rights reserved.

package partition

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometadata/crossref-citation-extraction/internal/checkpoint"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

func TestInvertEdgesGroupsByCitedID(t *testing.T) {
	edges := []Edge{
		testEdge("10.1234/a", "2403.12345", types.ProvenanceMined),
		testEdge("10.1234/b", "2403.12345", types.ProvenanceMined),
		testEdge("10.1234/a", "2403.67890", types.ProvenanceMined),
	}

	records := InvertEdges(edges)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "2403.12345", first.ArxivID)
	assert.Equal(t, "10.48550/arXiv.2403.12345", first.ArxivDOI)
	assert.Equal(t, 2, first.CitationCount)
	assert.Equal(t, 2, first.ReferenceCount)
	assert.Len(t, first.CitedBy, 2)

	second := records[1]
	assert.Equal(t, "2403.67890", second.ArxivID)
	assert.Equal(t, 1, second.CitationCount)
}

func TestInvertEdgesSingleDOIEdge(t *testing.T) {
	edges := []Edge{{
		CitingDOI:  "10.1/a",
		RefIndex:   0,
		RefJSON:    `{"unstructured":"See 10.2/b for details."}`,
		RawMatch:   "10.2/b",
		CitedID:    "10.2/b",
		Provenance: types.ProvenanceMined,
	}}

	records := InvertEdges(edges)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "10.2/b", rec.DOI)
	assert.Empty(t, rec.ArxivDOI)
	assert.Equal(t, 1, rec.CitationCount)
	assert.Equal(t, 1, rec.ReferenceCount)
	require.Len(t, rec.CitedBy, 1)
	assert.Equal(t, "10.1/a", rec.CitedBy[0].DOI)
	assert.Equal(t, "10.2/b", rec.CitedBy[0].RawMatch)
	assert.Equal(t, types.ProvenanceMined, rec.CitedBy[0].Provenance)
	assert.JSONEq(t, `{"unstructured":"See 10.2/b for details."}`, string(rec.CitedBy[0].Reference))
}

func TestInvertEdgesDeduplicatesKeepingHighestProvenance(t *testing.T) {
	edges := []Edge{
		testEdge("10.1/a", "10.2/b", types.ProvenanceMined),
		testEdge("10.1/a", "10.2/b", types.ProvenancePublisher),
		testEdge("10.1/a", "10.2/b", types.ProvenanceCrossref),
	}

	records := InvertEdges(edges)
	require.Len(t, records, 1)
	require.Len(t, records[0].CitedBy, 1)
	assert.Equal(t, types.ProvenancePublisher, records[0].CitedBy[0].Provenance)
	assert.Equal(t, 1, records[0].CitationCount)
	assert.Equal(t, 1, records[0].ReferenceCount)
}

func TestInvertEdgesDedupIsCaseInsensitive(t *testing.T) {
	a := testEdge("10.1/A", "10.2/b", types.ProvenanceMined)
	b := testEdge("10.1/a", "10.2/B", types.ProvenanceMined)
	b.CitedID = "10.2/b"

	records := InvertEdges([]Edge{a, b})
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].ReferenceCount)
}

func TestInvertEdgesTieKeepsFirstOccurrence(t *testing.T) {
	first := testEdge("10.1/a", "10.2/b", types.ProvenanceMined)
	first.RawMatch = "first"
	second := testEdge("10.1/a", "10.2/b", types.ProvenanceMined)
	second.RawMatch = "second"

	records := InvertEdges([]Edge{first, second})
	require.Len(t, records, 1)
	require.Len(t, records[0].CitedBy, 1)
	assert.Equal(t, "first", records[0].CitedBy[0].RawMatch)
}

func TestInvertEdgesCountsDistinctCitingDOIs(t *testing.T) {
	// Two references in the same work plus one in another work. The two
	// same-work references target different cited ids, so nothing collapses.
	edges := []Edge{
		testEdge("10.1/a", "2403.1", types.ProvenanceMined),
		testEdge("10.1/b", "2403.1", types.ProvenanceMined),
		testEdge("10.1/c", "2403.1", types.ProvenanceMined),
	}
	records := InvertEdges(edges)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].CitationCount)
	assert.Equal(t, 3, records[0].ReferenceCount)
	assert.Equal(t, len(records[0].CitedBy), records[0].ReferenceCount)
}

func TestInvertEdgesInvalidRefJSONBecomesNull(t *testing.T) {
	edge := testEdge("10.1/a", "10.2/b", types.ProvenanceMined)
	edge.RefJSON = "not valid json"

	records := InvertEdges([]Edge{edge})
	require.Len(t, records, 1)
	assert.Equal(t, "null", string(records[0].CitedBy[0].Reference))
}

func writePartition(t *testing.T, dir, key string, edges []Edge) {
	t.Helper()
	require.NoError(t, AppendEdges(filepath.Join(dir, key+EdgeFileExt), edges))
}

func TestInvertPartitionsAndAssemble(t *testing.T) {
	dir := t.TempDir()
	cpPath := filepath.Join(dir, checkpoint.FileName)
	cp := checkpoint.New("test")

	writePartition(t, dir, "2403", []Edge{
		testEdge("10.1/a", "2403.1", types.ProvenanceMined),
		testEdge("10.1/b", "2403.1", types.ProvenanceMined),
	})
	writePartition(t, dir, "10.2", []Edge{
		testEdge("10.1/a", "10.2/b", types.ProvenancePublisher),
	})

	stats, err := InvertPartitions(dir, cp, cpPath, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PartitionsProcessed)
	assert.True(t, cp.IsPartitionInverted("2403"))
	assert.True(t, cp.IsPartitionInverted("10.2"))

	records, aggStats, err := Assemble(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, aggStats.UniqueCitedWorks)
	assert.Equal(t, 3, aggStats.TotalCitations)

	// Sorted by citation count descending.
	assert.Equal(t, "2403.1", records[0].ArxivID)
	assert.Equal(t, 2, records[0].CitationCount)
	assert.Equal(t, "10.2/b", records[1].DOI)
}

func TestInvertPartitionsSkipsCheckpointed(t *testing.T) {
	dir := t.TempDir()
	cpPath := filepath.Join(dir, checkpoint.FileName)
	cp := checkpoint.New("test")
	cp.MarkPartitionInverted("2403")

	writePartition(t, dir, "2403", []Edge{testEdge("10.1/a", "2403.1", types.ProvenanceMined)})
	writePartition(t, dir, "2404", []Edge{testEdge("10.1/a", "2404.1", types.ProvenanceMined)})

	stats, err := InvertPartitions(dir, cp, cpPath, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PartitionsProcessed)
	assert.Equal(t, 1, stats.PartitionsSkipped)

	// Only the pending partition produced a result file.
	assert.NoFileExists(t, filepath.Join(dir, "2403"+InvertedFileSuffix))
	assert.FileExists(t, filepath.Join(dir, "2404"+InvertedFileSuffix))
}

func TestAssembleSortTieBreak(t *testing.T) {
	dir := t.TempDir()
	cpPath := filepath.Join(dir, checkpoint.FileName)
	cp := checkpoint.New("test")

	writePartition(t, dir, "2404", []Edge{testEdge("10.1/a", "2404.9", types.ProvenanceMined)})
	writePartition(t, dir, "2403", []Edge{testEdge("10.1/a", "2403.1", types.ProvenanceMined)})

	_, err := InvertPartitions(dir, cp, cpPath, 1, nil)
	require.NoError(t, err)

	records, _, err := Assemble(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Equal citation counts: cited identifier ascending.
	assert.Equal(t, "2403.1", records[0].ArxivID)
	assert.Equal(t, "2404.9", records[1].ArxivID)
}
