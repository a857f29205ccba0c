// Copyright Cometadata Inc., 2026. All rights reserved.

// Pipeline CLI command wires the fused extract-invert-validate flow to the
// command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cometadata/crossref-citation-extraction/internal/httputil"
	"github.com/cometadata/crossref-citation-extraction/internal/pipeline"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

const (
	defaultTimeout            = 5 * time.Second
	defaultConcurrency        = 50
	defaultBatchSize          = 5_000_000
	defaultCheckpointInterval = 1000
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full extract, invert, and validate pipeline",
	Long: `Pipeline streams the Crossref snapshot tar.gz once, mining identifiers
from every reference, shards the exploded citation edges into partition
files, inverts them in parallel into a cited-to-citing index, validates
the result against the configured registries, and writes line-delimited
JSON outputs with provenance-split siblings.

Progress is checkpointed inside the run's partition directory; an
interrupted run resumes with --resume --run-id <id>.`,
	RunE: runPipeline,
}

func init() {
	pipelineCmd.Flags().StringP("input", "i", "", "Crossref snapshot tar.gz (required)")
	pipelineCmd.Flags().StringP("records", "r", "", "DataCite records.jsonl.gz for validation")
	pipelineCmd.Flags().StringP("output", "o", "", "output file for valid citations (required)")
	pipelineCmd.Flags().String("output-failed", "", "output file for failed validations")
	pipelineCmd.Flags().StringP("source", "s", "all", "identifier source: all, crossref, datacite, or arxiv")
	pipelineCmd.Flags().String("temp-dir", "", "directory for intermediate partition files (default: system temp)")
	pipelineCmd.Flags().String("run-id", "", "name for the run's partition directory")
	pipelineCmd.Flags().Bool("resume", false, "resume an interrupted run from its checkpoint")
	pipelineCmd.Flags().Bool("keep-intermediates", false, "keep partition files instead of deleting them")
	pipelineCmd.Flags().Int("batch-size", 0, "row budget for memory management during streaming")
	pipelineCmd.Flags().Int("checkpoint-interval", 0, "tar entries between checkpoint writes")
	pipelineCmd.Flags().Int("workers", 0, "partition inversion parallelism (default: all cores)")
	pipelineCmd.Flags().Bool("http-fallback", false, "resolve unmatched DOIs against doi.org")
	pipelineCmd.Flags().IntP("concurrency", "c", 0, "concurrent HTTP resolution requests")
	pipelineCmd.Flags().Duration("timeout", 0, "per-request resolution timeout")
	pipelineCmd.Flags().String("contact", "", "contact email for the resolver User-Agent (or .secrets/doi-contact-email)")
	pipelineCmd.Flags().String("report", "", "write the final per-stage counters as YAML")

	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}

	report, err := pipeline.Run(context.Background(), cfg, os.Stderr)
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

// pipelineConfig builds PipelineConfig from CLI flags and Viper config.
// CLI flags take precedence over config file and environment variables.
func pipelineConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	input, _ := cmd.Flags().GetString("input")
	records, _ := cmd.Flags().GetString("records")
	outputPath, _ := cmd.Flags().GetString("output")
	outputFailed, _ := cmd.Flags().GetString("output-failed")
	sourceStr, _ := cmd.Flags().GetString("source")
	tempDir, _ := cmd.Flags().GetString("temp-dir")
	runID, _ := cmd.Flags().GetString("run-id")
	resume, _ := cmd.Flags().GetBool("resume")
	keep, _ := cmd.Flags().GetBool("keep-intermediates")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	interval, _ := cmd.Flags().GetInt("checkpoint-interval")
	workers, _ := cmd.Flags().GetInt("workers")
	fallback, _ := cmd.Flags().GetBool("http-fallback")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	contact, _ := cmd.Flags().GetString("contact")
	reportPath, _ := cmd.Flags().GetString("report")

	source, err := types.ParseSource(sourceStr)
	if err != nil {
		return types.PipelineConfig{}, err
	}

	if batchSize <= 0 {
		batchSize = viper.GetInt("pipeline.batch_size")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if interval <= 0 {
		interval = viper.GetInt("pipeline.checkpoint_interval")
	}
	if interval <= 0 {
		interval = defaultCheckpointInterval
	}
	if tempDir == "" {
		tempDir = viper.GetString("pipeline.temp_dir")
	}
	if concurrency <= 0 {
		concurrency = viper.GetInt("validation.concurrency")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if timeout <= 0 {
		timeout = viper.GetDuration("validation.timeout")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	contact = secretDefault("doi-contact-email", contact)

	return types.PipelineConfig{
		Input:              input,
		DataciteRecords:    records,
		Output:             outputPath,
		OutputFailed:       outputFailed,
		Source:             source,
		TempDir:            tempDir,
		RunID:              runID,
		Resume:             resume,
		KeepIntermediates:  keep,
		BatchSize:          batchSize,
		CheckpointInterval: interval,
		Workers:            workers,
		Report:             reportPath,
		Validation: types.ValidationConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: httputil.UserAgent(version, contact),
			},
			Source:       source,
			HTTPFallback: fallback,
			Concurrency:  concurrency,
		},
	}, nil
}

func printReport(report *types.PipelineReport) {
	fmt.Printf("run %s complete\n\n", report.RunID)
	fmt.Println("Extract:")
	fmt.Printf("  JSON files processed:    %d\n", report.Extract.JSONFiles)
	fmt.Printf("  Records scanned:         %d\n", report.Extract.Records)
	fmt.Printf("  References scanned:      %d\n", report.Extract.References)
	fmt.Printf("  References with matches: %d\n", report.Extract.ReferencesWithMatches)
	fmt.Printf("  Edges written:           %d\n", report.Extract.EdgesWritten)
	fmt.Printf("  Self-citations dropped:  %d\n", report.Extract.SelfCitationsDropped)
	fmt.Println("Invert:")
	fmt.Printf("  Partitions inverted:     %d (%d resumed)\n", report.Invert.PartitionsProcessed, report.Invert.PartitionsSkipped)
	fmt.Printf("  Unique cited works:      %d\n", report.Invert.UniqueCitedWorks)
	fmt.Printf("  Total citations:         %d\n", report.Invert.TotalCitations)
	fmt.Println("Validate:")
	fmt.Printf("  Crossref matched:        %d\n", report.Validate.CrossrefMatched)
	fmt.Printf("  DataCite matched:        %d\n", report.Validate.DataciteMatched)
	fmt.Printf("  HTTP resolved:           %d\n", report.Validate.CrossrefHTTPResolved+report.Validate.DataciteHTTPResolved)
	fmt.Printf("  Total valid:             %d\n", report.Validate.TotalValid())
	fmt.Printf("  Total failed:            %d\n", report.Validate.TotalFailed())
}
