/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDataStore implements the github.com/ipfs/go-datastore.Batching interface
// over an in-memory LevelDB.
type levelDataStore struct {
	db *leveldb.DB
}

func newLevelDataStore() (*levelDataStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "error opening LevelDB")
	}

	return &levelDataStore{db: db}, nil
}

// Get retrieves the value named by `key`. ErrNotFound is returned if the key is not mapped to a value.
func (s *levelDataStore) Get(key datastore.Key) ([]byte, error) {
	v, err := s.db.Get(key.Bytes(), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, datastore.ErrNotFound
		}
		return nil, err
	}

	return v, nil
}

// Has returns whether the `key` is mapped to a `value`.
func (s *levelDataStore) Has(key datastore.Key) (bool, error) {
	return s.db.Has(key.Bytes(), nil)
}

// GetSize returns the size of the `value` named by `key`.
func (s *levelDataStore) GetSize(key datastore.Key) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return -1, err
	}

	return len(v), nil
}

// Put stores the object `value` named by `key`.
func (s *levelDataStore) Put(key datastore.Key, value []byte) error {
	return s.db.Put(key.Bytes(), value, nil)
}

// Delete removes the value for given `key`.
func (s *levelDataStore) Delete(key datastore.Key) error {
	return s.db.Delete(key.Bytes(), nil)
}

// Query returns the entries under the query prefix. Filters, orders, offset and limit are applied naively.
func (s *levelDataStore) Query(q query.Query) (query.Results, error) {
	prefix := datastore.NewKey(q.Prefix).String()
	if prefix != "/" {
		prefix += "/"
	}

	it := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()

	var entries []query.Entry
	for it.Next() {
		e := query.Entry{Key: string(it.Key())}
		if !q.KeysOnly {
			e.Value = append([]byte(nil), it.Value()...)
		}
		entries = append(entries, e)
	}

	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "error iterating LevelDB")
	}

	qNaive := q
	qNaive.Prefix = ""

	return query.NaiveQueryApply(qNaive, query.ResultsWithEntries(q, entries)), nil
}

// Sync does nothing.
func (s *levelDataStore) Sync(prefix datastore.Key) error {
	// No-op
	return nil
}

// Close closes the LevelDB
func (s *levelDataStore) Close() error {
	return s.db.Close()
}

// Batch returns a batch that is applied atomically on Commit
func (s *levelDataStore) Batch() (datastore.Batch, error) {
	return &levelBatch{db: s.db, batch: new(leveldb.Batch)}, nil
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key datastore.Key, value []byte) error {
	b.batch.Put(key.Bytes(), value)
	return nil
}

func (b *levelBatch) Delete(key datastore.Key) error {
	b.batch.Delete(key.Bytes())
	return nil
}

func (b *levelBatch) Commit() error {
	return b.db.Write(b.batch, nil)
}
