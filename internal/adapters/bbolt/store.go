// Package bbolt implements ports.KeyValueStore using bbolt (embedded B+ tree).
// Each browser profile gets its own top-level bucket holding opaque values.
// Every Set is one transaction, so values written together are committed
// together; a crash mid-write cannot leave one half of a pair behind.
package bbolt

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/idletab/internal/ports"
)

// DefaultProfile is the bucket used when a single browser is managed.
const DefaultProfile = "default"

// Store owns the bbolt database.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path. If another
// process holds the file lock, it gives up after one second.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Profile returns a key-value view scoped to one profile bucket.
func (s *Store) Profile(name string) *Bucket {
	return &Bucket{db: s.db, name: []byte(name)}
}

// DeleteProfile removes all data for a profile.
// Idempotent: deleting a nonexistent profile is not an error.
func (s *Store) DeleteProfile(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(name)); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		} else {
			return err
		}
	})
}

// Bucket implements ports.KeyValueStore on one profile bucket.
type Bucket struct {
	db   *bolt.DB
	name []byte
}

var _ ports.KeyValueStore = (*Bucket)(nil)

// Get returns the values stored under keys. Missing keys are absent from the
// result; a missing bucket yields an empty map.
func (b *Bucket) Get(keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			return nil
		}
		for _, k := range keys {
			// Copy bytes out of the transaction (bbolt slices are only valid within tx)
			if v := bk.Get([]byte(k)); v != nil {
				buf := make([]byte, len(v))
				copy(buf, v)
				out[k] = buf
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bbolt get: %w", err)
	}
	return out, nil
}

// Set writes all values in one transaction. A nil value deletes the key.
func (b *Bucket) Set(values map[string][]byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists(b.name)
		if err != nil {
			return err
		}
		for k, v := range values {
			if v == nil {
				if err := bk.Delete([]byte(k)); err != nil {
					return err
				}
				continue
			}
			if err := bk.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bbolt set: %w", err)
	}
	return nil
}

// Keys lists every key in the bucket, in byte order.
func (b *Bucket) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.name)
		if bk == nil {
			return nil
		}
		return bk.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
