// Package store persists benchmark records in an embedded LevelDB database.
// Keys are dnsbench.StorageKey values, so a prefix scan over a run start timestamp
// returns the run's records in counter order.
package store

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/tantalor93/dnsperf/pkg/dnsbench"
)

// Store is a LevelDB backed dnsbench.ResultStore.
type Store struct {
	db   *leveldb.DB
	path string
}

var _ dnsbench.ResultStore = (*Store)(nil)

// Run summarises one run found in the store.
type Run struct {
	// Start is the run start timestamp, the key prefix of the run.
	Start string
	// RunID is the run id stored in the records.
	RunID string
	// Records is the number of records of the run.
	Records int
}

// Open opens the store at path, creating it when it does not exist.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{Compression: opt.NoCompression})
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open or create '%s': %w", dnsbench.ErrStore, path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the directory of the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Write commits batch atomically, either all or none of its entries become visible.
func (s *Store) Write(batch *leveldb.Batch) error {
	if err := s.db.Write(batch, &opt.WriteOptions{}); err != nil {
		return fmt.Errorf("%w: %w", dnsbench.ErrStore, err)
	}
	return nil
}

// HasPrefix reports whether any key starts with prefix.
func (s *Store) HasPrefix(prefix string) (bool, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	found := iter.First()
	if err := iter.Error(); err != nil {
		return false, fmt.Errorf("%w: %w", dnsbench.ErrStore, err)
	}
	return found, nil
}

// Scan calls fn for every record whose key starts with prefix, in ascending key order.
// Scanning stops at the first error returned by fn.
func (s *Store) Scan(prefix string, fn func(key string, rec dnsbench.ResultRecord) error) error {
	var rng *util.Range
	if prefix != "" {
		rng = util.BytesPrefix([]byte(prefix))
	}
	iter := s.db.NewIterator(rng, nil)
	defer iter.Release()

	for iter.Next() {
		// the returned slices are only valid until the next call to Next
		key := string(iter.Key())
		rec, err := dnsbench.UnmarshalRecord(bytes.Clone(iter.Value()))
		if err != nil {
			return fmt.Errorf("%w: could not decode record '%s': %w", dnsbench.ErrStore, key, err)
		}
		if err := fn(key, rec); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("%w: %w", dnsbench.ErrStore, err)
	}
	return nil
}

// Runs lists the runs in the store ordered by their start.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	err := s.Scan("", func(key string, rec dnsbench.ResultRecord) error {
		start, _, ok := strings.Cut(key, dnsbench.KeySeparator)
		if !ok {
			return fmt.Errorf("%w: malformed key '%s'", dnsbench.ErrStore, key)
		}
		if n := len(runs); n > 0 && runs[n-1].Start == start {
			runs[n-1].Records++
			return nil
		}
		runs = append(runs, Run{Start: start, RunID: rec.RunID, Records: 1})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Records returns the records of the run started at runStart in counter order.
func (s *Store) Records(runStart string) ([]dnsbench.ResultRecord, error) {
	var records []dnsbench.ResultRecord
	err := s.Scan(dnsbench.RunPrefix(runStart), func(_ string, rec dnsbench.ResultRecord) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}
