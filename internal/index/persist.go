// Copyright Cometadata Inc., 2026. All rights reserved.

package index

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// insertBatchSize bounds the rows per transaction during snapshot writes.
const insertBatchSize = 50_000

// prefixSidecar derives the prefix snapshot path from the DOI snapshot path.
func prefixSidecar(path string) string {
	return path + ".prefixes"
}

// Save persists the index as a pair of SQLite snapshots: <path> with the doi
// column and <path>.prefixes with the prefix column, so Load need not rescan
// DOIs to rebuild prefixes. Existing snapshots are replaced.
func Save(ix *Index, path string) error {
	if err := writeColumn(path, "dois", "doi", ix.DOIs()); err != nil {
		return fmt.Errorf("saving DOI snapshot %s: %w", path, err)
	}
	if err := writeColumn(prefixSidecar(path), "prefixes", "prefix", ix.Prefixes()); err != nil {
		return fmt.Errorf("saving prefix snapshot %s: %w", prefixSidecar(path), err)
	}
	return nil
}

// Load restores an index from a snapshot written by Save. A missing prefix
// sidecar is tolerated: prefixes are rebuilt from the DOIs.
func Load(path string) (*Index, error) {
	dois, err := readColumn(path, "dois", "doi")
	if err != nil {
		return nil, fmt.Errorf("loading DOI snapshot %s: %w", path, err)
	}

	ix := WithCapacity(len(dois), len(dois)/100+1)

	sidecar := prefixSidecar(path)
	if _, err := os.Stat(sidecar); os.IsNotExist(err) {
		for _, doi := range dois {
			ix.Insert(doi)
		}
		return ix, nil
	}

	prefixes, err := readColumn(sidecar, "prefixes", "prefix")
	if err != nil {
		return nil, fmt.Errorf("loading prefix snapshot %s: %w", sidecar, err)
	}

	for _, doi := range dois {
		ix.setRaw(doi)
	}
	for _, prefix := range prefixes {
		ix.setRawPrefix(prefix)
	}
	return ix, nil
}

func writeColumn(path, table, column string, values []string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale snapshot: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s TEXT NOT NULL)", table, column)); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for start := 0; start < len(values); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(values) {
			end = len(values)
		}
		if err := insertBatch(db, table, column, values[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func insertBatch(db *sqlx.DB, table, column string, values []string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", table, column))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.Exec(v); err != nil {
			return fmt.Errorf("inserting value: %w", err)
		}
	}
	return tx.Commit()
}

func readColumn(path, table, column string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var values []string
	if err := db.Select(&values, fmt.Sprintf("SELECT %s FROM %s", column, table)); err != nil {
		return nil, fmt.Errorf("reading %s column: %w", column, err)
	}
	return values, nil
}
