// Copyright Cometadata Inc., 2026. All rights reserved.

// Package checkpoint persists pipeline progress so an interrupted run can
// resume without repeating completed work.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/segmentio/encoding/json"

	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// Phase is the pipeline stage a run has reached. Phases only advance
// forward.
type Phase string

const (
	// PhaseExtractPartition is the fused streaming extract+partition pass.
	PhaseExtractPartition Phase = "extract_partition"
	// PhaseInvert is the parallel partition-inversion pass.
	PhaseInvert Phase = "invert"
	// PhaseComplete marks a finished run.
	PhaseComplete Phase = "complete"
)

// rank orders phases for the forward-only invariant.
func (p Phase) rank() int {
	switch p {
	case PhaseInvert:
		return 1
	case PhaseComplete:
		return 2
	default:
		return 0
	}
}

// FileName is the checkpoint's name inside the partition directory.
const FileName = "checkpoint.json"

// Checkpoint records a run's durable progress: the phase, the tar entries
// already consumed, and the partitions already inverted.
type Checkpoint struct {
	RunID               string             `json:"run_id"`
	Phase               Phase              `json:"phase"`
	TarEntriesProcessed int                `json:"tar_entries_processed"`
	PartitionsInverted  []string           `json:"partitions_inverted"`
	Stats               types.ExtractStats `json:"stats"`

	inverted map[string]struct{}
}

// New returns a fresh checkpoint in the extract phase.
func New(runID string) *Checkpoint {
	return &Checkpoint{
		RunID:    runID,
		Phase:    PhaseExtractPartition,
		inverted: make(map[string]struct{}),
	}
}

// Load reads a checkpoint file. A missing file yields (nil, nil).
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parsing checkpoint %s: %w", path, err)
	}

	cp.inverted = make(map[string]struct{}, len(cp.PartitionsInverted))
	for _, p := range cp.PartitionsInverted {
		cp.inverted[p] = struct{}{}
	}
	return &cp, nil
}

// Save writes the checkpoint atomically: serialize to a temp file in the
// same directory, then rename over the target.
func (cp *Checkpoint) Save(path string) error {
	sort.Strings(cp.PartitionsInverted)

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing checkpoint %s: %w", path, err)
	}
	return nil
}

// Advance moves the checkpoint to the given phase. Moving backward is a bug
// and returns an error.
func (cp *Checkpoint) Advance(phase Phase) error {
	if phase.rank() < cp.Phase.rank() {
		return fmt.Errorf("checkpoint phase cannot move backward: %s -> %s", cp.Phase, phase)
	}
	cp.Phase = phase
	return nil
}

// MarkPartitionInverted records that a partition's inversion result is
// durable. The set only grows.
func (cp *Checkpoint) MarkPartitionInverted(partition string) {
	if cp.inverted == nil {
		cp.inverted = make(map[string]struct{})
	}
	if _, ok := cp.inverted[partition]; ok {
		return
	}
	cp.inverted[partition] = struct{}{}
	cp.PartitionsInverted = append(cp.PartitionsInverted, partition)
}

// IsPartitionInverted reports whether a partition was already inverted.
func (cp *Checkpoint) IsPartitionInverted(partition string) bool {
	_, ok := cp.inverted[partition]
	return ok
}
