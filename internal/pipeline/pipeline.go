// Copyright Cometadata Inc., 2026. All rights reserved.

// Package pipeline orchestrates the full run: fused streaming
// extract+partition, parallel inversion, multi-source validation, and
// split output emission, checkpointed end to end.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/cometadata/crossref-citation-extraction/internal/checkpoint"
	"github.com/cometadata/crossref-citation-extraction/internal/index"
	"github.com/cometadata/crossref-citation-extraction/internal/output"
	"github.com/cometadata/crossref-citation-extraction/internal/partition"
	"github.com/cometadata/crossref-citation-extraction/internal/stream"
	"github.com/cometadata/crossref-citation-extraction/internal/validate"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// crossrefSnapshotFile persists the Crossref index built during streaming so
// a resumed run that skips the streaming phase still has it.
const crossrefSnapshotFile = "crossref_index.db"

// Run executes the pipeline described by cfg. Configuration errors surface
// before any work starts; afterwards the run is resumable from its
// checkpoint at every phase boundary.
func Run(ctx context.Context, cfg types.PipelineConfig, status io.Writer) (*types.PipelineReport, error) {
	if cfg.Source == "" {
		cfg.Source = types.SourceAll
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	runID := cfg.RunID
	if runID == "" {
		id, err := newRunID()
		if err != nil {
			return nil, err
		}
		runID = id
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	partitionDir := filepath.Join(tempDir, runID)
	if err := os.MkdirAll(partitionDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating partition directory %s: %w", partitionDir, err)
	}
	checkpointPath := filepath.Join(partitionDir, checkpoint.FileName)

	cp, err := loadOrCreateCheckpoint(checkpointPath, runID, cfg.Resume)
	if err != nil {
		return nil, err
	}

	statusf(status, "run %s (source %s, partition dir %s)", runID, cfg.Source, partitionDir)

	var dataciteIdx *index.Index
	if cfg.Source.NeedsDatacite() {
		statusf(status, "building DataCite index from %s", cfg.DataciteRecords)
		idx, _, err := index.BuildFromJSONLGz(cfg.DataciteRecords, "id", status)
		if err != nil {
			return nil, err
		}
		dataciteIdx = idx
	}

	var crossrefIdx *index.Index
	if cfg.Source.NeedsCrossref() {
		crossrefIdx = index.New()
	}

	report := &types.PipelineReport{RunID: runID, Source: cfg.Source}

	if cp.Phase == checkpoint.PhaseExtractPartition {
		if err := runStreaming(&cfg, cp, checkpointPath, partitionDir, crossrefIdx, status); err != nil {
			return nil, err
		}
		if crossrefIdx != nil {
			if err := index.Save(crossrefIdx, filepath.Join(partitionDir, crossrefSnapshotFile)); err != nil {
				return nil, err
			}
		}
		if err := cp.Advance(checkpoint.PhaseInvert); err != nil {
			return nil, err
		}
		if err := cp.Save(checkpointPath); err != nil {
			return nil, err
		}
	} else if crossrefIdx != nil {
		// Streaming already ran in a previous attempt; the index it built
		// was snapshotted at the phase boundary.
		idx, err := index.Load(filepath.Join(partitionDir, crossrefSnapshotFile))
		if err != nil {
			return nil, fmt.Errorf("restoring Crossref index for resumed run: %w", err)
		}
		crossrefIdx = idx
	}
	report.Extract = cp.Stats

	invStats, err := partition.InvertPartitions(partitionDir, cp, checkpointPath, cfg.Workers, status)
	if err != nil {
		return nil, err
	}
	records, aggStats, err := partition.Assemble(partitionDir)
	if err != nil {
		return nil, err
	}
	invStats.UniqueCitedWorks = aggStats.UniqueCitedWorks
	invStats.TotalCitations = aggStats.TotalCitations
	report.Invert = invStats
	statusf(status, "inverted %d partitions: %d unique cited works", invStats.PartitionsProcessed, invStats.UniqueCitedWorks)

	vcfg := cfg.Validation
	if vcfg.Source == "" {
		vcfg.Source = cfg.Source
	}
	results, err := validate.Run(ctx, records, crossrefIdx, dataciteIdx, vcfg, status)
	if err != nil {
		return nil, err
	}
	report.Validate = results.Stats

	if err := output.WriteSplit(output.SplitPathsFrom(cfg.Output), results.Valid); err != nil {
		return nil, err
	}
	if cfg.OutputFailed != "" {
		if err := output.WriteRecords(cfg.OutputFailed, results.Failed); err != nil {
			return nil, err
		}
	}
	statusf(status, "validated: %d valid, %d failed", results.Stats.TotalValid(), results.Stats.TotalFailed())

	if err := cp.Advance(checkpoint.PhaseComplete); err != nil {
		return nil, err
	}
	if err := cp.Save(checkpointPath); err != nil {
		return nil, err
	}

	if !cfg.KeepIntermediates {
		if err := os.RemoveAll(partitionDir); err != nil {
			statusf(status, "warning: could not remove partition directory %s: %v", partitionDir, err)
		}
	} else {
		statusf(status, "keeping intermediates in %s", partitionDir)
	}

	if cfg.Report != "" {
		if err := writeReport(cfg.Report, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func runStreaming(cfg *types.PipelineConfig, cp *checkpoint.Checkpoint, checkpointPath, partitionDir string, crossrefIdx *index.Index, status io.Writer) error {
	input, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("opening input archive %s: %w", cfg.Input, err)
	}
	defer input.Close()

	writer, err := partition.NewWriter(partitionDir, cfg.FlushThreshold())
	if err != nil {
		return err
	}

	interval := cfg.CheckpointInterval
	if interval <= 0 {
		interval = 1000
	}

	driver := &stream.Driver{
		Writer:             writer,
		Checkpoint:         cp,
		CheckpointPath:     checkpointPath,
		CheckpointInterval: interval,
		Targets:            stream.TargetsFor(cfg.Source),
		CrossrefIndex:      crossrefIdx,
		Status:             status,
	}

	statusf(status, "streaming %s", cfg.Input)
	if err := driver.Run(input); err != nil {
		return fmt.Errorf("streaming extract failed: %w", err)
	}
	statusf(status, "extracted %d edges from %d references", cp.Stats.EdgesWritten, cp.Stats.References)
	return nil
}

func validateConfig(cfg *types.PipelineConfig) error {
	if cfg.Input == "" {
		return fmt.Errorf("input archive path is required")
	}
	if _, err := os.Stat(cfg.Input); err != nil {
		return fmt.Errorf("input archive: %w", err)
	}
	if cfg.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Source.NeedsDatacite() {
		if cfg.DataciteRecords == "" {
			return fmt.Errorf("datacite records path is required for source %s", cfg.Source)
		}
		if _, err := os.Stat(cfg.DataciteRecords); err != nil {
			return fmt.Errorf("datacite records: %w", err)
		}
	}
	if cfg.Resume && cfg.RunID == "" {
		return fmt.Errorf("resume requires the run id of the interrupted run")
	}
	return nil
}

func loadOrCreateCheckpoint(path, runID string, resume bool) (*checkpoint.Checkpoint, error) {
	if resume {
		cp, err := checkpoint.Load(path)
		if err != nil {
			return nil, err
		}
		if cp == nil {
			return nil, fmt.Errorf("no checkpoint found at %s", path)
		}
		if cp.RunID != runID {
			return nil, fmt.Errorf("checkpoint run id %s does not match %s", cp.RunID, runID)
		}
		return cp, nil
	}
	return checkpoint.New(runID), nil
}

func newRunID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating run id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func writeReport(path string, report *types.PipelineReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("serializing report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

func statusf(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, format+"\n", args...)
}
