// Copyright Cometadata Inc., 2026. All rights reserved.

// Package stream fuses archive reading, identifier extraction, and
// partition writing into a single checkpointed pass over a Crossref
// snapshot.
package stream

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/segmentio/encoding/json"

	"github.com/cometadata/crossref-citation-extraction/internal/checkpoint"
	"github.com/cometadata/crossref-citation-extraction/internal/extract"
	"github.com/cometadata/crossref-citation-extraction/internal/index"
	"github.com/cometadata/crossref-citation-extraction/internal/partition"
	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// Targets selects which identifier families a run mines.
type Targets struct {
	DOI   bool
	Arxiv bool
}

// TargetsFor maps a source mode to its extraction targets: arXiv-only runs
// mine arXiv IDs, registry-specific runs mine DOIs, all mines both.
func TargetsFor(source types.Source) Targets {
	switch source {
	case types.SourceArxiv:
		return Targets{Arxiv: true}
	case types.SourceCrossref, types.SourceDatacite:
		return Targets{DOI: true}
	default:
		return Targets{DOI: true, Arxiv: true}
	}
}

// hintEnabled reports whether the cheap arXiv substring pre-filter may be
// applied. It is only sound when arXiv IDs are the sole target.
func (t Targets) hintEnabled() bool {
	return t.Arxiv && !t.DOI
}

// Driver runs the fused extract+partition pass. It owns the partition
// writer and the checkpoint; the Crossref index, when set, accumulates the
// DOI of every work record seen during the same pass.
type Driver struct {
	Writer             *partition.Writer
	Checkpoint         *checkpoint.Checkpoint
	CheckpointPath     string
	CheckpointInterval int
	Targets            Targets
	CrossrefIndex      *index.Index
	Status             io.Writer
}

// archiveFile is the shape of one JSON entry in the snapshot archive.
type archiveFile struct {
	Items []workItem `json:"items"`
}

// workItem is one Crossref work record: its DOI and its reference entries,
// kept raw so ref_json stays verbatim.
type workItem struct {
	DOI       string            `json:"DOI"`
	Reference []json.RawMessage `json:"reference"`
}

// refFields are the recognized reference fields; everything else rides
// along inside the raw entry.
type refFields struct {
	DOI           string `json:"DOI"`
	Unstructured  string `json:"unstructured"`
	ArticleTitle  string `json:"article-title"`
	JournalTitle  string `json:"journal-title"`
	URL           string `json:"URL"`
	DOIAssertedBy string `json:"doi-asserted-by"`
}

// unionText concatenates the text fields mined for identifiers.
func (r *refFields) unionText() string {
	return strings.Join([]string{r.DOI, r.Unstructured, r.ArticleTitle, r.JournalTitle, r.URL}, "\n")
}

// hasArxivHint is the cheap pre-filter: an "arxiv" substring in any text
// field, or the arXiv DOI prefix in the DOI field.
func (r *refFields) hasArxivHint() bool {
	if strings.Contains(r.DOI, "10.48550") {
		return true
	}
	return strings.Contains(strings.ToLower(r.unionText()), "arxiv")
}

// Run streams the gzipped tar archive once, extracting identifiers from
// every reference of every work record and routing the exploded edges to
// partition files. Progress is checkpointed every CheckpointInterval tar
// entries; entries at or below the checkpoint's high-water mark are skipped
// on resume.
func (d *Driver) Run(r io.Reader) error {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gz.Close()

	stats := d.Checkpoint.Stats
	tr := tar.NewReader(gz)
	ordinal := 0

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		ordinal++
		if !strings.HasSuffix(header.Name, ".json") {
			continue
		}
		if ordinal <= d.Checkpoint.TarEntriesProcessed {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("reading tar entry %s: %w", header.Name, err)
		}

		var file archiveFile
		if err := json.Unmarshal(content, &file); err != nil {
			d.warnf("skipping %s: %v", header.Name, err)
			stats.ParseFailures++
			continue
		}

		stats.JSONFiles++
		for _, item := range file.Items {
			stats.Records++
			if item.DOI == "" {
				continue
			}
			if err := d.processItem(&item, &stats); err != nil {
				return err
			}
			if d.CrossrefIndex != nil {
				d.CrossrefIndex.Insert(item.DOI)
			}
		}

		if d.CheckpointInterval > 0 && ordinal%d.CheckpointInterval == 0 {
			if err := d.commit(ordinal, stats); err != nil {
				return err
			}
		}
	}

	stats.TarEntries = ordinal
	return d.commit(ordinal, stats)
}

// commit makes all buffered edges durable, then records the high-water mark.
// Flushing first keeps the checkpoint honest: every entry it covers is on
// disk.
func (d *Driver) commit(ordinal int, stats types.ExtractStats) error {
	if err := d.Writer.FlushAll(); err != nil {
		return err
	}
	if ordinal > d.Checkpoint.TarEntriesProcessed {
		d.Checkpoint.TarEntriesProcessed = ordinal
	}
	d.Checkpoint.Stats = stats
	return d.Checkpoint.Save(d.CheckpointPath)
}

func (d *Driver) processItem(item *workItem, stats *types.ExtractStats) error {
	for refIndex, raw := range item.Reference {
		stats.References++

		var ref refFields
		if err := json.Unmarshal(raw, &ref); err != nil {
			continue
		}

		if d.Targets.hintEnabled() && !ref.hasArxivHint() {
			continue
		}

		rawMatches, citedIDs, provenances := d.mineReference(&ref)

		// Self-citation edges never enter the graph.
		kept := 0
		for i := range citedIDs {
			if strings.EqualFold(item.DOI, citedIDs[i]) {
				stats.SelfCitationsDropped++
				continue
			}
			rawMatches[kept] = rawMatches[i]
			citedIDs[kept] = citedIDs[i]
			provenances[kept] = provenances[i]
			kept++
		}
		if kept == 0 {
			continue
		}

		written, err := d.Writer.WriteExtractedRef(item.DOI, uint32(refIndex), string(raw),
			rawMatches[:kept], citedIDs[:kept], provenances[:kept])
		if err != nil {
			return fmt.Errorf("writing edges for %s: %w", item.DOI, err)
		}
		stats.ReferencesWithMatches++
		stats.EdgesWritten += written
	}
	return nil
}

// mineReference extracts identifiers from one reference and assigns
// provenance: a DOI field asserted by publisher or crossref carries that
// assertion, everything else is mined.
func (d *Driver) mineReference(ref *refFields) ([]string, []string, []types.Provenance) {
	var rawMatches, citedIDs []string
	var provenances []types.Provenance

	text := ref.unionText()

	if d.Targets.DOI {
		matches := extract.ExtractDOIs(text)

		if prov, ok := assertedProvenance(ref.DOIAssertedBy); ok && ref.DOI != "" {
			asserted := extract.NormalizeDOI(ref.DOI)
			upgraded := false
			for i := range matches {
				if matches[i].DOI == asserted {
					rawMatches = append(rawMatches, matches[i].Raw)
					citedIDs = append(citedIDs, matches[i].DOI)
					provenances = append(provenances, prov)
					matches[i].DOI = "" // consumed
					upgraded = true
					break
				}
			}
			if !upgraded && asserted != "" {
				rawMatches = append(rawMatches, ref.DOI)
				citedIDs = append(citedIDs, asserted)
				provenances = append(provenances, prov)
			}
		}

		for _, m := range matches {
			if m.DOI == "" {
				continue
			}
			rawMatches = append(rawMatches, m.Raw)
			citedIDs = append(citedIDs, m.DOI)
			provenances = append(provenances, types.ProvenanceMined)
		}
	}

	if d.Targets.Arxiv {
		for _, m := range extract.ExtractArxiv(text) {
			rawMatches = append(rawMatches, m.Raw)
			citedIDs = append(citedIDs, m.ID)
			provenances = append(provenances, types.ProvenanceMined)
		}
	}

	return rawMatches, citedIDs, provenances
}

// assertedProvenance maps the doi-asserted-by field to a provenance.
func assertedProvenance(assertedBy string) (types.Provenance, bool) {
	switch assertedBy {
	case "publisher":
		return types.ProvenancePublisher, true
	case "crossref":
		return types.ProvenanceCrossref, true
	default:
		return types.ProvenanceMined, false
	}
}

func (d *Driver) warnf(format string, args ...any) {
	if d.Status == nil {
		return
	}
	fmt.Fprintf(d.Status, "warning: "+format+"\n", args...)
}
