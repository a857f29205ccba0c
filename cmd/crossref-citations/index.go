// Copyright Cometadata Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cometadata/crossref-citation-extraction/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect registry index snapshots",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a DOI index from a registry dump and save a snapshot",
	Long: `Build reads a gzip-compressed line-delimited JSON registry dump,
indexes the DOI carried in each record's id field, and saves the result
as a snapshot pair (<path> and <path>.prefixes) for fast warm starts.
Records whose id is missing or not a string are counted and skipped.`,
	RunE: runIndexBuild,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the size of an index snapshot",
	RunE:  runIndexStats,
}

func init() {
	indexBuildCmd.Flags().StringP("records", "r", "", "registry records.jsonl.gz (required)")
	indexBuildCmd.Flags().String("id-field", "id", "JSON field carrying the DOI")
	indexBuildCmd.Flags().String("save", "", "snapshot path to write (required)")

	indexStatsCmd.Flags().String("load", "", "snapshot path to read (required)")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	records, _ := cmd.Flags().GetString("records")
	idField, _ := cmd.Flags().GetString("id-field")
	savePath, _ := cmd.Flags().GetString("save")

	if records == "" {
		return fmt.Errorf("records file required: use --records")
	}
	if savePath == "" {
		return fmt.Errorf("snapshot path required: use --save")
	}

	ix, stats, err := index.BuildFromJSONLGz(records, idField, os.Stderr)
	if err != nil {
		return err
	}
	if err := index.Save(ix, savePath); err != nil {
		return err
	}

	fmt.Printf("indexed %d DOIs (%d prefixes) from %d lines\n", ix.Len(), ix.PrefixCount(), stats.Lines)
	if stats.Malformed > 0 || stats.Dropped > 0 {
		fmt.Printf("skipped %d malformed lines, dropped %d records without a usable id\n",
			stats.Malformed, stats.Dropped)
	}
	fmt.Printf("snapshot written to %s\n", savePath)
	return nil
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	loadPath, _ := cmd.Flags().GetString("load")
	if loadPath == "" {
		return fmt.Errorf("snapshot path required: use --load")
	}

	ix, err := index.Load(loadPath)
	if err != nil {
		return err
	}

	fmt.Printf("%d DOIs, %d prefixes\n", ix.Len(), ix.PrefixCount())
	return nil
}
