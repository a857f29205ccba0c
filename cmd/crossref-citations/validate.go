// Copyright Cometadata Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cometadata/crossref-citation-extraction/internal/httputil"
	"github.com/cometadata/crossref-citation-extraction/internal/index"
	"github.com/cometadata/crossref-citation-extraction/internal/output"
	"github.com/cometadata/crossref-citation-extraction/internal/validate"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an inverted citations file against identifier registries",
	Long: `Validate re-checks a previously generated inverted citations JSONL file
without re-running the pipeline. Records are looked up in the configured
registry indexes first; with --http-fallback, anything unmatched is
checked against the DOI resolver.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringP("input", "i", "", "inverted citations JSONL file (required)")
	validateCmd.Flags().StringP("records", "r", "", "DataCite records.jsonl.gz")
	validateCmd.Flags().String("crossref-index", "", "Crossref index snapshot to load")
	validateCmd.Flags().StringP("source", "s", "all", "identifier source: all, crossref, datacite, or arxiv")
	validateCmd.Flags().String("output-valid", "citations_valid.jsonl", "output file for valid records")
	validateCmd.Flags().String("output-failed", "citations_failed.jsonl", "output file for failed records")
	validateCmd.Flags().Bool("http-fallback", false, "resolve unmatched DOIs against doi.org")
	validateCmd.Flags().IntP("concurrency", "c", defaultConcurrency, "concurrent HTTP resolution requests")
	validateCmd.Flags().Duration("timeout", defaultTimeout, "per-request resolution timeout")
	validateCmd.Flags().String("contact", "", "contact email for the resolver User-Agent")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	records, _ := cmd.Flags().GetString("records")
	crossrefSnapshot, _ := cmd.Flags().GetString("crossref-index")
	sourceStr, _ := cmd.Flags().GetString("source")
	outputValid, _ := cmd.Flags().GetString("output-valid")
	outputFailed, _ := cmd.Flags().GetString("output-failed")
	fallback, _ := cmd.Flags().GetBool("http-fallback")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	contact, _ := cmd.Flags().GetString("contact")

	source, err := types.ParseSource(sourceStr)
	if err != nil {
		return err
	}
	if input == "" {
		return fmt.Errorf("input file required: use --input")
	}
	if source.NeedsDatacite() && records == "" {
		return fmt.Errorf("DataCite records required for source %s: use --records", source)
	}
	if source.NeedsCrossref() && crossrefSnapshot == "" && !fallback {
		return fmt.Errorf("source %s needs --crossref-index or --http-fallback", source)
	}

	var dataciteIdx *index.Index
	if records != "" {
		idx, _, err := index.BuildFromJSONLGz(records, "id", os.Stderr)
		if err != nil {
			return err
		}
		dataciteIdx = idx
	}

	var crossrefIdx *index.Index
	if crossrefSnapshot != "" {
		idx, err := index.Load(crossrefSnapshot)
		if err != nil {
			return err
		}
		crossrefIdx = idx
	}

	inputRecords, err := validate.ReadRecords(input)
	if err != nil {
		return err
	}

	cfg := types.ValidationConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: httputil.UserAgent(version, secretDefault("doi-contact-email", contact)),
		},
		Source:       source,
		HTTPFallback: fallback,
		Concurrency:  concurrency,
	}

	results, err := validate.Run(context.Background(), inputRecords, crossrefIdx, dataciteIdx, cfg, os.Stderr)
	if err != nil {
		return err
	}

	if err := output.WriteSplit(output.SplitPathsFrom(outputValid), results.Valid); err != nil {
		return err
	}
	if err := output.WriteRecords(outputFailed, results.Failed); err != nil {
		return err
	}

	fmt.Printf("%d records: %d valid, %d failed\n",
		results.Stats.TotalRecords, results.Stats.TotalValid(), results.Stats.TotalFailed())
	fmt.Printf("  crossref: %d matched, %d resolved\n", results.Stats.CrossrefMatched, results.Stats.CrossrefHTTPResolved)
	fmt.Printf("  datacite: %d matched, %d resolved\n", results.Stats.DataciteMatched, results.Stats.DataciteHTTPResolved)
	return nil
}
