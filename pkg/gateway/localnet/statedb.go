/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"encoding/json"

	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dshelp "github.com/ipfs/go-ipfs-ds-help"
	"github.com/pkg/errors"
)

// KVWrite is a write (or delete) of one key
type KVWrite struct {
	Key      string
	Value    []byte
	IsDelete bool
}

// WriteSet is the ordered set of writes produced by simulating a transaction in one namespace
type WriteSet struct {
	Namespace string
	Writes    []*KVWrite
}

// Empty returns true if there are no writes
func (ws *WriteSet) Empty() bool {
	return ws == nil || len(ws.Writes) == 0
}

// StateDB is the world state of a peer. Keys are namespaced by channel and chaincode.
type StateDB struct {
	ds datastore.Batching
}

// NewStateDB returns a new in-memory world state
func NewStateDB() (*StateDB, error) {
	ds, err := newLevelDataStore()
	if err != nil {
		return nil, err
	}

	return &StateDB{ds: ds}, nil
}

// Namespace returns the state namespace of a chaincode on a channel
func Namespace(channelID, ccName string) string {
	return channelID + "/" + ccName
}

// GetState returns the committed value of the key or nil if the key does not exist
func (db *StateDB) GetState(ns, key string) ([]byte, error) {
	v, err := db.ds.Get(stateKey(ns, key))
	if err != nil {
		if err == datastore.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "error getting state for key [%s] in namespace [%s]", key, ns)
	}

	return v, nil
}

// Query returns the committed JSON records in the namespace whose string fields equal the selector values
func (db *StateDB) Query(ns string, selector map[string]string) ([]*queryresult.KV, error) {
	results, err := db.ds.Query(query.Query{Prefix: datastore.NewKey(ns).String()})
	if err != nil {
		return nil, errors.Wrapf(err, "error querying namespace [%s]", ns)
	}
	defer results.Close()

	entries, err := results.Rest()
	if err != nil {
		return nil, errors.Wrapf(err, "error querying namespace [%s]", ns)
	}

	var kvs []*queryresult.KV
	for _, e := range entries {
		if !matches(e.Value, selector) {
			continue
		}

		key, err := dshelp.BinaryFromDsKey(datastore.NewKey(datastore.RawKey(e.Key).BaseNamespace()))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid state key [%s]", e.Key)
		}

		kvs = append(kvs, &queryresult.KV{Namespace: ns, Key: string(key), Value: e.Value})
	}

	return kvs, nil
}

// Apply commits the write set atomically
func (db *StateDB) Apply(ws *WriteSet) error {
	if ws.Empty() {
		return nil
	}

	batch, err := db.ds.Batch()
	if err != nil {
		return errors.Wrap(err, "error creating batch")
	}

	for _, w := range ws.Writes {
		k := stateKey(ws.Namespace, w.Key)

		if w.IsDelete {
			err = batch.Delete(k)
		} else {
			err = batch.Put(k, w.Value)
		}

		if err != nil {
			return errors.Wrapf(err, "error adding key [%s] to batch", w.Key)
		}
	}

	return batch.Commit()
}

// Close closes the world state
func (db *StateDB) Close() error {
	return db.ds.Close()
}

func stateKey(ns, key string) datastore.Key {
	return datastore.NewKey(ns).Child(dshelp.NewKeyFromBinary([]byte(key)))
}

func matches(value []byte, selector map[string]string) bool {
	doc := make(map[string]interface{})
	if err := json.Unmarshal(value, &doc); err != nil {
		return false
	}

	for field, expected := range selector {
		v, ok := doc[field].(string)
		if !ok || v != expected {
			return false
		}
	}

	return true
}
