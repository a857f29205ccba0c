// Copyright Cometadata Inc., 2026. All rights reserved.

package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cometadata/crossref-citation-extraction/pkg/types"
)

// EdgeFileExt is the extension of partition edge files.
const EdgeFileExt = ".db"

// Edge is one exploded (citing, cited) pair together with the reference it
// came from. RefJSON is the verbatim serialized reference entry, carried
// opaquely end to end.
type Edge struct {
	CitingDOI  string           `db:"citing_doi"`
	RefIndex   uint32           `db:"ref_index"`
	RefJSON    string           `db:"ref_json"`
	RawMatch   string           `db:"raw_match"`
	CitedID    string           `db:"cited_id"`
	Provenance types.Provenance `db:"provenance"`
}

const edgeSchema = `CREATE TABLE IF NOT EXISTS edges (
	citing_doi TEXT NOT NULL,
	ref_index  INTEGER NOT NULL,
	ref_json   TEXT NOT NULL,
	raw_match  TEXT NOT NULL,
	cited_id   TEXT NOT NULL,
	provenance TEXT NOT NULL
)`

// AppendEdges commits a batch of edges to the partition file in a single
// transaction, creating the file and schema on first use. The commit is
// atomic: a crash mid-flush leaves the file at its previous state.
func AppendEdges(path string, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening partition file %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(edgeSchema); err != nil {
		return fmt.Errorf("creating edge schema in %s: %w", path, err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction on %s: %w", path, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT INTO edges
		(citing_doi, ref_index, ref_json, raw_match, cited_id, provenance)
		VALUES (:citing_doi, :ref_index, :ref_json, :raw_match, :cited_id, :provenance)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for _, edge := range edges {
		if _, err := stmt.Exec(edge); err != nil {
			return fmt.Errorf("inserting edge into %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing edges to %s: %w", path, err)
	}
	return nil
}

// ReadEdges loads every edge row from a partition file.
func ReadEdges(path string) ([]Edge, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening partition file %s: %w", path, err)
	}
	defer db.Close()

	var edges []Edge
	if err := db.Select(&edges,
		`SELECT citing_doi, ref_index, ref_json, raw_match, cited_id, provenance FROM edges`); err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", path, err)
	}
	return edges, nil
}

// ListEdgeFiles returns the partition edge files in dir, sorted by name.
func ListEdgeFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading partition directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), EdgeFileExt) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Stem returns the partition key encoded in an edge-file path.
func Stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), EdgeFileExt)
}
