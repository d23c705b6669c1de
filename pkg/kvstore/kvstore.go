package kvstore

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrKeyEmpty    = errors.New("key is empty")
	ErrKeyNotFound = errors.New("key not found")
)

// Store is a small persistent key-value surface used as a local cache for
// resolved token records, so re-runs don't refetch the world.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Close() error
}

// GetJSON reads and unmarshals a cached value into out.
func GetJSON(s Store, key string, out any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// SetJSON marshals and stores a value.
func SetJSON(s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(key, raw, ttl)
}
