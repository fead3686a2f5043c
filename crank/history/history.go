// Package history implements the persistent store of scheduling cycle
// reports.
package history

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"go.uber.org/multierr"

	cmnBadger "github.com/switchboard-xyz/sbv2-solana-sub000/common/badger"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/cbor"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/keyformat"
	"github.com/switchboard-xyz/sbv2-solana-sub000/common/logging"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/history/config"
)

const dbVersion = 1

var (
	// metadataKeyFmt is the metadata key format.
	//
	// Value is CBOR-serialized dbMetadata.
	metadataKeyFmt = keyformat.New(0x01)
	// reportKeyFmt is the cycle report key format, keyed by the cycle's
	// start time in unix nanoseconds.
	//
	// Value is CBOR-serialized api.Report.
	reportKeyFmt = keyformat.New(0x02, int64(0))
)

type dbMetadata struct {
	// Version is the database schema version.
	Version uint64 `json:"version"`
	// Crank is the crank the history is for.
	Crank api.Reference `json:"crank"`
}

// Store is the cycle history store.
type Store struct {
	logger *logging.Logger

	db *badger.DB
	gc *cmnBadger.GCWorker

	retention time.Duration
}

// Record persists a cycle report.
func (s *Store) Record(report *api.Report) error {
	key := reportKeyFmt.Encode(report.Started.UnixNano())
	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(key, cbor.Marshal(report))
	})
}

// Latest returns up to n most recent reports, newest first.
func (s *Store) Latest(n int) ([]*api.Report, error) {
	var reports []*api.Report
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = reportKeyFmt.Encode()
		it := tx.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must start past the last key with the prefix.
		for it.Seek(reportKeyFmt.Encode(int64(1<<63 - 1))); it.Valid() && len(reports) < n; it.Next() {
			var report api.Report
			if err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &report)
			}); err != nil {
				return err
			}
			reports = append(reports, &report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crank/history: failed to read reports: %w", err)
	}
	return reports, nil
}

// Range returns the reports of the cycles started in [from, to), oldest
// first.
func (s *Store) Range(from, to time.Time) ([]*api.Report, error) {
	var reports []*api.Report
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = reportKeyFmt.Encode()
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(reportKeyFmt.Encode(from.UnixNano())); it.Valid(); it.Next() {
			var started int64
			if !reportKeyFmt.Decode(it.Item().Key(), &started) || started >= to.UnixNano() {
				break
			}

			var report api.Report
			if err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &report)
			}); err != nil {
				return err
			}
			reports = append(reports, &report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crank/history: failed to read reports: %w", err)
	}
	return reports, nil
}

// Prune removes the reports of cycles started before the given time and
// returns the number of removed reports.
func (s *Store) Prune(before time.Time) (int, error) {
	var keys [][]byte
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = reportKeyFmt.Encode()
		it := tx.NewIterator(opts)
		defer it.Close()

		limit := before.UnixNano()
		for it.Rewind(); it.Valid(); it.Next() {
			var started int64
			if !reportKeyFmt.Decode(it.Item().Key(), &started) || started >= limit {
				break
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("crank/history: failed to scan reports: %w", err)
	}

	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err = batch.Delete(key); err != nil {
			return 0, fmt.Errorf("crank/history: failed to prune reports: %w", err)
		}
	}
	if err = batch.Flush(); err != nil {
		return 0, fmt.Errorf("crank/history: failed to prune reports: %w", err)
	}

	if len(keys) > 0 {
		s.logger.Debug("pruned cycle reports",
			"count", len(keys),
			"before", before,
		)
	}
	return len(keys), nil
}

func (s *Store) pruneExpired() error {
	if s.retention <= 0 {
		return nil
	}
	_, err := s.Prune(time.Now().Add(-s.retention))
	return err
}

func (s *Store) queryGetMetadata(tx *badger.Txn) (*dbMetadata, error) {
	item, err := tx.Get(metadataKeyFmt.Encode())
	if err != nil {
		return nil, err
	}

	var meta dbMetadata
	err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) ensureMetadata(crank api.Reference) error {
	return s.db.Update(func(tx *badger.Txn) error {
		meta, err := s.queryGetMetadata(tx)
		switch err {
		case nil:
		case badger.ErrKeyNotFound:
			return tx.Set(metadataKeyFmt.Encode(), cbor.Marshal(dbMetadata{
				Version: dbVersion,
				Crank:   crank,
			}))
		default:
			return err
		}

		if meta.Version != dbVersion {
			return fmt.Errorf("crank/history: unsupported database version (expected: %d got: %d)",
				dbVersion,
				meta.Version,
			)
		}
		if meta.Crank != crank {
			return fmt.Errorf("crank/history: database for different crank (expected: %s got: %s)",
				crank,
				meta.Crank,
			)
		}
		return nil
	})
}

// Close closes the store.
func (s *Store) Close() error {
	s.gc.Close()
	return multierr.Combine(
		s.pruneExpired(),
		s.db.Close(),
	)
}

// New opens the history store for the given crank in the given directory.
//
// An empty directory opens an in-memory store.
func New(dir string, crank api.Reference, cfg *config.Config) (*Store, error) {
	logger := logging.GetLogger("crank/history").With("path", dir)

	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(cmnBadger.NewLogAdapter(logger))
	opts = opts.WithSyncWrites(true)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("crank/history: failed to open database: %w", err)
	}

	s := &Store{
		logger:    logger,
		db:        db,
		retention: cfg.Retention,
	}
	if err = s.ensureMetadata(crank); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.gc = cmnBadger.NewGCWorker(logger, db, cfg.PruneInterval, s.pruneExpired)

	return s, nil
}
