// Copyright Cometadata Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request wall-clock timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "crossref-citations/0.1 (mailto:ops@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ValidationConfig holds settings for the validation stage.
type ValidationConfig struct {
	HTTPConfig `yaml:",inline"`

	// Source selects which registries are consulted.
	Source Source `json:"source" yaml:"source"`

	// HTTPFallback enables HEAD resolution against doi.org for records no
	// index matched.
	HTTPFallback bool `json:"http_fallback" yaml:"http_fallback"`

	// Concurrency bounds the number of in-flight resolution requests
	// (default 50).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// PipelineConfig groups the settings for a full extract-invert-validate run.
type PipelineConfig struct {
	// Input is the Crossref snapshot tar.gz path.
	Input string `json:"input" yaml:"input"`

	// DataciteRecords is the gzipped JSONL DataCite dump used to build the
	// DataCite index. Required when Source consults DataCite.
	DataciteRecords string `json:"datacite_records" yaml:"datacite_records"`

	// Output receives valid citations as line-delimited JSON. The
	// provenance-split siblings are derived from it.
	Output string `json:"output" yaml:"output"`

	// OutputFailed optionally receives records that failed validation.
	OutputFailed string `json:"output_failed,omitempty" yaml:"output_failed,omitempty"`

	// Source selects extraction targets and validation registries.
	Source Source `json:"source" yaml:"source"`

	// TempDir is the base directory for the run's partition files
	// (default: system temp).
	TempDir string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`

	// RunID names the partition directory. Empty means a fresh random id;
	// pass the id of an interrupted run together with Resume to continue it.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Resume continues from an existing checkpoint instead of starting over.
	Resume bool `json:"resume" yaml:"resume"`

	// KeepIntermediates leaves the partition directory in place after the run.
	KeepIntermediates bool `json:"keep_intermediates" yaml:"keep_intermediates"`

	// BatchSize controls memory use during streaming; the per-partition
	// flush threshold is BatchSize / 50 rows (default 5,000,000).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// CheckpointInterval is the number of tar entries between checkpoint
	// writes (default 1000).
	CheckpointInterval int `json:"checkpoint_interval" yaml:"checkpoint_interval"`

	// Workers bounds partition-inversion parallelism (default: GOMAXPROCS).
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Validation configures the validation stage.
	Validation ValidationConfig `json:"validation" yaml:"validation"`

	// Report optionally writes the final per-stage counters as YAML.
	Report string `json:"report,omitempty" yaml:"report,omitempty"`
}

// FlushThresholdDivisor converts BatchSize into the per-partition flush
// threshold.
const FlushThresholdDivisor = 50

// FlushThreshold returns the per-partition buffer bound in rows.
func (c *PipelineConfig) FlushThreshold() int {
	batch := c.BatchSize
	if batch <= 0 {
		batch = 5_000_000
	}
	threshold := batch / FlushThresholdDivisor
	if threshold < 1 {
		threshold = 1
	}
	return threshold
}
