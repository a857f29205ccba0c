// Copyright Cometadata Inc., 2026. All rights reserved.

package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckpoint(t *testing.T) {
	cp := New("run123")
	assert.Equal(t, "run123", cp.RunID)
	assert.Equal(t, PhaseExtractPartition, cp.Phase)
	assert.Empty(t, cp.PartitionsInverted)
	assert.Zero(t, cp.TarEntriesProcessed)
}

func TestCheckpointSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cp := New("run123")
	cp.TarEntriesProcessed = 42
	cp.Stats.References = 1000
	cp.MarkPartitionInverted("2403")
	cp.MarkPartitionInverted("10.1234")
	require.NoError(t, cp.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "run123", loaded.RunID)
	assert.Equal(t, PhaseExtractPartition, loaded.Phase)
	assert.Equal(t, 42, loaded.TarEntriesProcessed)
	assert.Equal(t, 1000, loaded.Stats.References)
	assert.True(t, loaded.IsPartitionInverted("2403"))
	assert.True(t, loaded.IsPartitionInverted("10.1234"))
	assert.False(t, loaded.IsPartitionInverted("2404"))
}

func TestCheckpointLoadMissing(t *testing.T) {
	cp, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestCheckpointLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestCheckpointPhaseForwardOnly(t *testing.T) {
	cp := New("run")

	require.NoError(t, cp.Advance(PhaseInvert))
	assert.Equal(t, PhaseInvert, cp.Phase)

	assert.Error(t, cp.Advance(PhaseExtractPartition))
	assert.Equal(t, PhaseInvert, cp.Phase)

	require.NoError(t, cp.Advance(PhaseComplete))
	assert.Error(t, cp.Advance(PhaseInvert))
}

func TestCheckpointAdvanceSamePhase(t *testing.T) {
	cp := New("run")
	require.NoError(t, cp.Advance(PhaseExtractPartition))
	assert.Equal(t, PhaseExtractPartition, cp.Phase)
}

func TestMarkPartitionInvertedGrowsMonotonically(t *testing.T) {
	cp := New("run")
	cp.MarkPartitionInverted("a")
	cp.MarkPartitionInverted("b")
	cp.MarkPartitionInverted("a")

	assert.Len(t, cp.PartitionsInverted, 2)
	assert.True(t, cp.IsPartitionInverted("a"))
	assert.True(t, cp.IsPartitionInverted("b"))
}

func TestCheckpointSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cp := New("run")
	require.NoError(t, cp.Save(path))

	// No temp leftovers after a successful save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}
