// Package store holds the authoritative collection of canonical records and
// the ledger of source files already folded into it.
//
// The persisted snapshot is a flat UTF-8 CSV with the fixed canonical header;
// external reporting tooling reads it directly, so the format is a contract.
// A missing or corrupt snapshot degrades to an empty store (logged) rather
// than failing the run; losing the ability to ingest because the snapshot is
// damaged would be worse than starting over, and the operator is told.
package store

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/shadowops/shintel/internal/types"
)

// Store is the in-memory merge store: a growing, ordered collection of
// canonical records. Not safe for concurrent use; one ingestion process runs
// to completion before the next begins.
type Store struct {
	Records []types.Record
}

// Load reads a persisted snapshot. A missing file yields an empty store; a
// snapshot that cannot be parsed as CSV also yields an empty store, with the
// corruption logged for the operator. Other I/O failures are returned.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows from older tooling
	rows, err := reader.ReadAll()
	if err != nil {
		log.Printf("[STORE] snapshot %s is corrupt, starting from an empty store: %v", path, err)
		return &Store{}, nil
	}
	if len(rows) == 0 {
		return &Store{}, nil
	}

	s := &Store{Records: make([]types.Record, 0, len(rows)-1)}
	for _, row := range rows[1:] { // skip header
		s.Records = append(s.Records, types.FromRow(row))
	}
	return s, nil
}

// Append prepends a batch ahead of existing records. Newly ingested data
// sits closest to the top until the terminal sort; combined with the stable
// sort this makes insertion order the tie-break among equal timestamps.
func (s *Store) Append(batch []types.Record) {
	s.Records = append(batch, s.Records...)
}

// Sort orders the store by timestamp descending, nil timestamps last. The
// sort is stable: ties keep insertion order.
func (s *Store) Sort() {
	sort.SliceStable(s.Records, func(i, j int) bool {
		ti, tj := s.Records[i].Timestamp, s.Records[j].Timestamp
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	return len(s.Records)
}

// Persist writes the full store to path atomically: the snapshot is written
// to a temporary file in the same directory and renamed into place, so a
// failed write never truncates the previous snapshot. A persist failure is
// fatal to the caller's run; the ledger must not be advanced past it.
func (s *Store) Persist(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(types.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("writing store header: %w", err)
	}
	for i := range s.Records {
		if err := w.Write(s.Records[i].ToRow()); err != nil {
			tmp.Close()
			return fmt.Errorf("writing store row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing snapshot %s: %w", path, err)
	}
	return nil
}
