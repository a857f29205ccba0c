// Copyright Cometadata Inc., 2026. All rights reserved.

package index

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInsertAndContains(t *testing.T) {
	ix := New()
	require.True(t, ix.Insert("10.1234/example"))

	assert.True(t, ix.Contains("10.1234/example"))
	assert.True(t, ix.Contains("10.1234/EXAMPLE"), "lookup should be case-insensitive")
	assert.False(t, ix.Contains("10.5678/other"))
	assert.Equal(t, 1, ix.Len())
}

func TestIndexDiscardsDOIWithoutPrefix(t *testing.T) {
	ix := New()
	assert.False(t, ix.Insert("not-a-doi"))
	assert.False(t, ix.Insert("10.1234"), "a DOI without a slash has no prefix")
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 0, ix.PrefixCount())
}

func TestIndexPrefixTracking(t *testing.T) {
	ix := New()
	ix.Insert("10.1234/example1")
	ix.Insert("10.1234/example2")
	ix.Insert("10.5678/other")

	assert.True(t, ix.HasPrefix("10.1234"))
	assert.True(t, ix.HasPrefix("10.5678"))
	assert.False(t, ix.HasPrefix("10.9999"))
	assert.Equal(t, 2, ix.PrefixCount())
}

func TestIndexContainsImpliesHasPrefix(t *testing.T) {
	ix := New()
	for _, doi := range []string{"10.1234/a", "10.48550/arXiv.2403.12345", "10.99999/X/Y"} {
		require.True(t, ix.Insert(doi))
	}
	for _, doi := range ix.DOIs() {
		prefix, ok := hasPrefixOf(doi)
		require.True(t, ok)
		assert.True(t, ix.HasPrefix(prefix), "contains(%q) must imply has_prefix(%q)", doi, prefix)
	}
}

func hasPrefixOf(doi string) (string, bool) {
	for i := 0; i < len(doi); i++ {
		if doi[i] == '/' {
			return doi[:i], true
		}
	}
	return "", false
}

func TestIndexMerge(t *testing.T) {
	a := New()
	a.Insert("10.1234/a")

	b := New()
	b.Insert("10.5678/b")

	a.Merge(b)

	assert.True(t, a.Contains("10.1234/a"))
	assert.True(t, a.Contains("10.5678/b"))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, a.PrefixCount())
}

func writeJSONLGz(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	for _, line := range lines {
		_, err := gz.Write(append([]byte(line), '\n'))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestBuildFromJSONLGz(t *testing.T) {
	path := writeJSONLGz(t, []string{
		`{"id": "10.1234/example1"}`,
		`{"id": "10.1234/EXAMPLE2"}`,
		`{"id": "10.5678/other"}`,
	})

	ix, stats, err := BuildFromJSONLGz(path, "id", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, ix.Len())
	assert.True(t, ix.Contains("10.1234/example1"))
	assert.True(t, ix.Contains("10.1234/example2"))
	assert.True(t, ix.Contains("10.5678/other"))
	assert.Equal(t, 2, ix.PrefixCount())
	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 3, stats.Inserted)
	assert.Zero(t, stats.Malformed)
	assert.Zero(t, stats.Dropped)
}

func TestBuildFromJSONLGzSkipsBadLines(t *testing.T) {
	path := writeJSONLGz(t, []string{
		`{"id": "10.1234/good"}`,
		`not json at all`,
		`{"other": "field"}`,
		`{"id": 42}`,
		`{"id": "no-slash"}`,
		``,
	})

	ix, stats, err := BuildFromJSONLGz(path, "id", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, 1, stats.Malformed)
	// Missing field, non-string field, and the prefix-less DOI all count as
	// dropped; the empty line is ignored entirely.
	assert.Equal(t, 3, stats.Dropped)
	assert.Equal(t, 5, stats.Lines)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	ix := New()
	ix.Insert("10.1234/example1")
	ix.Insert("10.1234/example2")
	ix.Insert("10.5678/other")

	require.NoError(t, Save(ix, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, loaded.Len())
	assert.True(t, loaded.Contains("10.1234/example1"))
	assert.True(t, loaded.Contains("10.5678/other"))
	assert.Equal(t, 2, loaded.PrefixCount())
	assert.True(t, loaded.HasPrefix("10.1234"))
}

func TestLoadRebuildsPrefixesWithoutSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	ix := New()
	ix.Insert("10.1234/a")
	ix.Insert("10.5678/b")
	require.NoError(t, Save(ix, path))
	require.NoError(t, os.Remove(path+".prefixes"))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, 2, loaded.PrefixCount())
	assert.True(t, loaded.HasPrefix("10.1234"))
	assert.True(t, loaded.HasPrefix("10.5678"))
}

func TestSaveOverwritesExistingSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	first := New()
	first.Insert("10.1111/old")
	require.NoError(t, Save(first, path))

	second := New()
	second.Insert("10.2222/new")
	require.NoError(t, Save(second, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	assert.True(t, loaded.Contains("10.2222/new"))
	assert.False(t, loaded.Contains("10.1111/old"))
}
