package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"records-scraper/pkg/log"
	"records-scraper/pkg/models"
	"records-scraper/pkg/utils"
)

const (
	docKeyPrefix  = "doc:"        // Prefix for document URL keys in DB
	manifestDBDir = "manifest_db" // Subdirectory name within stateDir
)

// BadgerManifest implements ManifestStore using BadgerDB
type BadgerManifest struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached key count for O(1) Count
}

// NewBadgerManifest opens (or creates) the manifest database under stateDir.
// The manifest always persists across runs; it is what makes reruns
// idempotent beyond the on-disk file check.
func NewBadgerManifest(stateDir string, logger *logrus.Entry) (*BadgerManifest, error) {
	dbPath := filepath.Join(stateDir, manifestDBDir)
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}
	logger.Infof("Opening retrieval manifest at: %s", dbPath)

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Only the latest outcome per document matters

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest database at %s: %w", dbPath, err)
	}

	store := &BadgerManifest{db: db, log: logger}
	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count existing manifest keys: %v", err)
	} else {
		store.keyCount.Store(int64(count))
		if count > 0 {
			logger.Infof("Manifest holds %d previously recorded documents", count)
		}
	}
	return store, nil
}

// countKeys performs a one-time full key scan (used only at open)
func (s *BadgerManifest) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
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

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction
// conflicts. Concurrent transactions on overlapping keys can return
// badger.ErrConflict; these resolve in microseconds.
func (s *BadgerManifest) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// CheckDocument implements ManifestStore
func (s *BadgerManifest) CheckDocument(normalizedURL string) (models.TaskStatus, *models.DocumentDBEntry, error) {
	if s.db == nil {
		return "", nil, errors.New("manifest DB not initialized")
	}
	key := []byte(docKeyPrefix + normalizedURL)

	var entry models.DocumentDBEntry
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: checking document '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}
	if !found {
		return "", nil, nil
	}
	return entry.Status, &entry, nil
}

// UpdateDocument implements ManifestStore
func (s *BadgerManifest) UpdateDocument(normalizedURL string, entry *models.DocumentDBEntry) error {
	if s.db == nil {
		return errors.New("manifest DB not initialized")
	}
	key := []byte(docKeyPrefix + normalizedURL)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: marshaling entry for '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}

	added := false
	err = s.dbUpdate(func(txn *badger.Txn) error {
		if _, errGet := txn.Get(key); errors.Is(errGet, badger.ErrKeyNotFound) {
			added = true
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("%w: updating document '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}
	if added {
		s.keyCount.Add(1)
	}
	return nil
}

// EachDocument implements ManifestStore
func (s *BadgerManifest) EachDocument(fn func(normalizedURL string, entry *models.DocumentDBEntry) error) error {
	if s.db == nil {
		return errors.New("manifest DB not initialized")
	}
	prefix := []byte(docKeyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			url := string(item.Key()[len(prefix):])
			var entry models.DocumentDBEntry
			if errVal := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); errVal != nil {
				s.log.Warnf("Skipping unreadable manifest entry '%s': %v", url, errVal)
				continue
			}
			if errFn := fn(url, &entry); errFn != nil {
				return errFn
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: iterating manifest: %w", utils.ErrDatabase, err)
	}
	return nil
}

// Count implements ManifestStore
func (s *BadgerManifest) Count() (int, error) {
	if s.db == nil {
		return 0, errors.New("manifest DB not initialized")
	}
	return int(s.keyCount.Load()), nil
}

// RunGC implements ManifestStore. Badger's value log needs periodic
// garbage collection; run this in its own goroutine.
func (s *BadgerManifest) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break // ErrNoRewrite means nothing to collect
				}
			}
		case <-ctx.Done():
			s.log.Debugf("Stopping manifest GC: %v", ctx.Err())
			return
		}
	}
}

// Close implements ManifestStore
func (s *BadgerManifest) Close() error {
	if s.db == nil {
		return nil
	}
	s.log.Debug("Closing manifest database")
	return s.db.Close()
}
