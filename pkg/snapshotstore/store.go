// Package snapshotstore persists snapshot payloads across runs. Snapshot
// blobs are opaque to the store: each owner (CPU, memory, environment)
// serializes its own state and the store content-addresses the bytes. This
// is the one component shared between otherwise independent VM instances
// (parallel fuzzing runs persisting their findings), so it carries its own
// locking.
package snapshotstore

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"golang.org/x/crypto/blake2b"
)

// Snapshot kinds, recorded in the first key byte so one database can hold
// every owner's payloads.
const (
	KindCpu byte = 1
	KindMem byte = 2
	KindEnv byte = 3
)

// KeySize is the fixed length of a snapshot key: one kind byte followed by
// the first 30 bytes of the payload's blake2b digest.
const KeySize = 31

type Key [KeySize]byte

// MakeKey builds the content-addressed key for a payload of the given kind.
func MakeKey(kind byte, payload []byte) Key {
	var key Key
	h := blake2b.Sum256(payload)
	key[0] = kind
	copy(key[1:], h[:KeySize-1])
	return key
}

// Store is a pebble-backed snapshot repository with optional batch
// transactions.
type Store struct {
	mu    sync.Mutex
	db    *pebble.DB
	batch *pebble.Batch
}

// Open opens (or creates) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save writes a payload of the given kind and returns its key. Writes go
// through the active transaction when one is open.
func (s *Store) Save(kind byte, payload []byte) (Key, error) {
	key := MakeKey(kind, payload)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		return key, s.batch.Set(key[:], payload, nil)
	}
	return key, s.db.Set(key[:], payload, pebble.Sync)
}

// Load returns a copy of the payload stored under key.
func (s *Store) Load(key Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		value  []byte
		closer interface{ Close() error }
		err    error
	)
	if s.batch != nil {
		value, closer, err = s.batch.Get(key[:])
	} else {
		value, closer, err = s.db.Get(key[:])
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, closer.Close()
}

// Delete removes the payload stored under key.
func (s *Store) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		return s.batch.Delete(key[:], nil)
	}
	return s.db.Delete(key[:], pebble.Sync)
}

// List returns every key of the given kind.
func (s *Store) List(kind byte) ([]Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := []byte{kind}
	upper := []byte{kind + 1}
	opts := &pebble.IterOptions{LowerBound: lower, UpperBound: upper}

	var iter *pebble.Iterator
	var err error
	if s.batch != nil {
		iter, err = s.batch.NewIter(opts)
	} else {
		iter, err = s.db.NewIter(opts)
	}
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []Key
	for iter.First(); iter.Valid(); iter.Next() {
		raw := iter.Key()
		if len(raw) != KeySize {
			continue
		}
		var key Key
		copy(key[:], raw)
		keys = append(keys, key)
	}
	return keys, iter.Error()
}

// BeginTransaction starts a batch; subsequent Save/Delete calls accumulate
// until CommitTransaction or RollbackTransaction.
func (s *Store) BeginTransaction() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		return fmt.Errorf("transaction already in progress")
	}
	s.batch = s.db.NewIndexedBatch()
	return nil
}

// CommitTransaction durably applies the open batch.
func (s *Store) CommitTransaction() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return fmt.Errorf("no transaction in progress")
	}
	err := s.batch.Commit(pebble.Sync)
	s.batch = nil
	return err
}

// RollbackTransaction discards the open batch.
func (s *Store) RollbackTransaction() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return fmt.Errorf("no transaction in progress")
	}
	s.batch.Close()
	s.batch = nil
	return nil
}

// Close closes the store, discarding any open transaction.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		s.batch.Close()
		s.batch = nil
	}
	return s.db.Close()
}
