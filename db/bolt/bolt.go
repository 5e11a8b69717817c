// Package bolt wraps bbolt with JSON helpers for small local stores.
package bolt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a bucket or key is missing.
var ErrNotFound = errors.New("not found")

// DB wraps a bbolt database.
type DB struct {
	*bolt.DB
}

// Open opens or creates a bbolt database and makes sure buckets exist.
func Open(path string, buckets ...string) (*DB, error) {
	boltDB, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	db := &DB{boltDB}
	for _, name := range buckets {
		if err := db.CreateBucket(name); err != nil {
			_ = boltDB.Close()
			return nil, err
		}
	}
	return db, nil
}

// CreateBucket creates a bucket if it doesn't exist.
func (db *DB) CreateBucket(name string) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		return nil
	})
}

func bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("bucket %s: %w", name, ErrNotFound)
	}
	return b, nil
}

// PutJSON stores value as JSON under key.
func (db *DB) PutJSON(name, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

// GetJSON decodes the value stored under key.
func (db *DB) GetJSON(name, key string, value interface{}) error {
	return db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("key %s: %w", key, ErrNotFound)
		}
		return json.Unmarshal(data, value)
	})
}

// Delete removes key.
func (db *DB) Delete(name, key string) error {
	return db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
}

// Range calls fn for every key in [from, to) in key order. An empty to means
// no upper bound. Returning a non-nil error from fn stops the iteration.
func (db *DB) Range(name, from, to string, fn func(key string, value []byte) error) error {
	return db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		c := b.Cursor()
		upper := []byte(to)
		for k, v := c.Seek([]byte(from)); k != nil; k, v = c.Next() {
			if to != "" && bytes.Compare(k, upper) >= 0 {
				break
			}
			if err := fn(string(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of keys in a bucket.
func (db *DB) Count(name string) (int, error) {
	n := 0
	err := db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}
