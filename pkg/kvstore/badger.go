package kvstore

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/pinax-network/token-api-scraper/pkg/common/logger"
)

// BadgerStore backs Store with an embedded Badger database. Keys are
// namespaced with a prefix so multiple caches can share one database
// directory.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

// NewBadgerStore opens (or creates) a Badger database at dir.
func NewBadgerStore(dir, prefix string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db, prefix: prefix}, nil
}

// NewBadgerStoreInMemory opens an in-memory store, used in tests.
func NewBadgerStoreInMemory(prefix string) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerStore{db: db, prefix: prefix}, nil
}

func (s *BadgerStore) key(key string) []byte {
	if s.prefix == "" {
		return []byte(key)
	}
	return []byte(s.prefix + ":" + key)
}

func (s *BadgerStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BadgerStore) Set(key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(s.key(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *BadgerStore) Delete(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
}

func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		logger.Error("failed to close badger store", "error", err)
		return err
	}
	return nil
}
