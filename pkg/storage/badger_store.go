package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/gowgit/site-crawler/pkg/log"
	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/utils"
)

const (
	urlKeyPrefix = "url:" // Prefix for URL record keys in DB
	docKeyPrefix = "doc:" // Prefix for document record keys in DB
)

// BadgerStore implements the Store interface using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	urlCount atomic.Int64 // Cached counts for O(1) URLCount/DocumentCount
	docCount atomic.Int64
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) the database in dir. Existing records are kept.
func NewBadgerStore(dir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	logger.Infof("Initializing crawl database at: %s", dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dir, err)
	}

	// Configure Badger options
	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger). // Use custom logrus adapter
		WithNumVersionsToKeep(1)  // Only keep the latest state of each record

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dir, err)
	}

	urls, err := store.countKeys(urlKeyPrefix)
	if err != nil {
		logger.Warnf("Failed to count existing URL keys: %v", err)
	}
	docs, err := store.countKeys(docKeyPrefix)
	if err != nil {
		logger.Warnf("Failed to count existing document keys: %v", err)
	}
	store.urlCount.Store(int64(urls))
	store.docCount.Store(int64(docs))

	logger.WithFields(logrus.Fields{"urls": urls, "documents": docs}).Info("Crawl database initialized successfully.")
	return store, nil
}

// countKeys performs a one-time key scan of a prefix (used only during initialization)
func (s *BadgerStore) countKeys(prefix string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// InsertURL implements the Store interface
func (s *BadgerStore) InsertURL(ctx context.Context, rec models.URLRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rec = prepareURLRecord(rec)
	key := []byte(urlKeyPrefix + rec.URL)
	val, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("%w: failed to marshal URLRecord for key '%s': %w", utils.ErrParsing, string(key), err)
	}

	added := false
	err = s.dbUpdate(func(txn *badger.Txn) error {
		added = false
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			added = true
			return txn.SetEntry(badger.NewEntry(key, val))
		}
		// Key already exists or another error occurred
		return errGet
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in InsertURL: %v", err)
		return false, fmt.Errorf("%w: inserting url key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if added {
		s.urlCount.Add(1)
	}
	return added, nil
}

// InsertURLs implements the Store interface
func (s *BadgerStore) InsertURLs(ctx context.Context, recs []models.URLRecord) (int, error) {
	added := 0
	for _, rec := range recs {
		ok, err := s.InsertURL(ctx, rec)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// UpdateURL implements the Store interface
func (s *BadgerStore) UpdateURL(ctx context.Context, rec models.URLRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := []byte(urlKeyPrefix + rec.URL)

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		isNew = false
		merged := rec
		item, errGet := txn.Get(key)
		switch {
		case errors.Is(errGet, badger.ErrKeyNotFound):
			isNew = true
		case errGet != nil:
			return errGet
		default:
			var existing models.URLRecord
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &existing) }); err != nil {
				s.log.Warnf("Failed to unmarshal URLRecord for key '%s': %v. Overwriting.", string(key), err)
			} else if !existing.InsertedAt.IsZero() {
				merged.InsertedAt = existing.InsertedAt
			}
		}
		merged = prepareURLRecord(merged)
		val, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal URLRecord for key '%s': %w", utils.ErrParsing, string(key), err)
		}
		return txn.SetEntry(badger.NewEntry(key, val))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in UpdateURL: %v", err)
		return fmt.Errorf("%w: failed setting url record for key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if isNew {
		s.urlCount.Add(1)
	}

	s.log.Debugf("Updated url record '%s' (status: %s)", rec.URL, rec.Status)
	return nil
}

// UncrawledURLs implements the Store interface
func (s *BadgerStore) UncrawledURLs(ctx context.Context, limit int) ([]models.URLRecord, error) {
	var pending []models.URLRecord
	err := s.EachURL(ctx, func(rec models.URLRecord) error {
		if !rec.Crawled {
			pending = append(pending, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].InsertedAt.Before(pending[j].InsertedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// EachURL implements the Store interface
func (s *BadgerStore) EachURL(ctx context.Context, fn func(models.URLRecord) error) error {
	scanErrors := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(urlKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			// Check context cancellation within the loop
			if err := ctx.Err(); err != nil {
				s.log.Warnf("URL scan interrupted by context cancellation: %v", err)
				return err
			}

			item := it.Item()
			var rec models.URLRecord
			errValue := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if errValue != nil {
				s.log.Errorf("URL scan: failed to decode '%s': %v. Skipping.", string(item.Key()), errValue)
				scanErrors++
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if scanErrors > 0 {
		s.log.Warnf("URL scan finished with %d undecodable records", scanErrors)
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("%w: %w", utils.ErrDatabase, err)
	}
	return err // Context and callback errors are returned as is
}

// URLCount implements the Store interface.
// Returns the cached key count maintained by atomic increments on writes.
func (s *BadgerStore) URLCount(context.Context) (int, error) {
	return int(s.urlCount.Load()), nil
}

// InsertDocument implements the Store interface
func (s *BadgerStore) InsertDocument(ctx context.Context, rec models.DocumentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := []byte(docKeyPrefix + rec.URL)
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal DocumentRecord for key '%s': %w", utils.ErrParsing, string(key), err)
	}

	err = s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errGet == nil {
			return utils.ErrAlreadyExists
		}
		if !errors.Is(errGet, badger.ErrKeyNotFound) {
			return errGet
		}
		return txn.SetEntry(badger.NewEntry(key, val))
	})
	if errors.Is(err, utils.ErrAlreadyExists) {
		return fmt.Errorf("document %s: %w", rec.URL, err)
	}
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in InsertDocument: %v", err)
		return fmt.Errorf("%w: inserting document key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	s.docCount.Add(1)
	return nil
}

// GetDocument implements the Store interface
func (s *BadgerStore) GetDocument(ctx context.Context, url string) (models.DocumentRecord, error) {
	var rec models.DocumentRecord
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	key := []byte(docKeyPrefix + url)

	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return fmt.Errorf("document %s: %w", url, utils.ErrNotFound)
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting document key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}
		return item.Value(func(val []byte) error {
			if errJson := json.Unmarshal(val, &rec); errJson != nil {
				return fmt.Errorf("%w: failed to unmarshal DocumentRecord for key '%s': %w", utils.ErrParsing, string(key), errJson)
			}
			return nil
		})
	})
	return rec, err
}

// DocumentCount implements the Store interface
func (s *BadgerStore) DocumentCount(context.Context) (int, error) {
	return int(s.docCount.Load()), nil
}

// Size implements the Store interface: LSM tree plus value log bytes
func (s *BadgerStore) Size(context.Context) (int64, error) {
	lsm, vlog := s.db.Size()
	return lsm + vlog, nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute // Default interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			s.runGCCycle()

		case <-ctx.Done(): // Check if stop signal received via context cancellation
			s.log.Infof("Stopping BadgerDB garbage collection goroutine due to context cancellation: %v", ctx.Err())
			return
		}
	}
}

func (s *BadgerStore) runGCCycle() {
	// Check if DB is valid before running GC
	if s.db == nil || s.db.IsClosed() {
		s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
		return
	}

	s.log.Debug("Running BadgerDB value log garbage collection...")
	var err error
	// Loop GC until it returns ErrNoRewrite or another error
	for {
		// Run GC if log is at least 50% reclaimable space
		if err = s.db.RunValueLogGC(0.5); err != nil {
			break
		}
		s.log.Debug("BadgerDB GC cycle completed.")
	}

	if errors.Is(err, badger.ErrNoRewrite) {
		s.log.Debug("BadgerDB GC finished (no rewrite needed).")
	} else {
		s.log.Errorf("BadgerDB GC error: %v", err)
	}
}

// Close implements the Store interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Info("Closing crawl DB...")
		err := s.db.Close()
		if err != nil {
			s.log.Errorf("Error closing crawl DB: %v", err)
			return err
		}
		s.log.Info("Crawl DB closed.")
		return nil
	}
	s.log.Info("Crawl DB already closed or was not initialized.")
	return nil
}

// prepareURLRecord fills the insertion time and status of a record about to be stored
func prepareURLRecord(rec models.URLRecord) models.URLRecord {
	if rec.InsertedAt.IsZero() {
		rec.InsertedAt = time.Now().UTC()
	}
	if rec.Status == models.PageStatusUnset {
		rec.Status = models.PageStatusPending
	}
	return rec
}
