/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"testing"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/stretchr/testify/require"
)

const (
	ns1 = "channel1/cc1"
	ns2 = "channel1/cc2"
)

func TestLevelDataStore(t *testing.T) {
	ds, err := newLevelDataStore()
	require.NoError(t, err)
	defer func() { require.NoError(t, ds.Close()) }()

	k1 := datastore.NewKey("/a/k1")
	k2 := datastore.NewKey("/a/k2")
	k3 := datastore.NewKey("/b/k3")

	_, err = ds.Get(k1)
	require.Equal(t, datastore.ErrNotFound, err)

	require.NoError(t, ds.Put(k1, []byte("v1")))
	require.NoError(t, ds.Put(k2, []byte("v22")))
	require.NoError(t, ds.Put(k3, []byte("v333")))

	v, err := ds.Get(k1)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	has, err := ds.Has(k2)
	require.NoError(t, err)
	require.True(t, has)

	size, err := ds.GetSize(k3)
	require.NoError(t, err)
	require.Equal(t, 4, size)

	results, err := ds.Query(query.Query{Prefix: "/a"})
	require.NoError(t, err)
	entries, err := results.Rest()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, ds.Delete(k1))
	has, err = ds.Has(k1)
	require.NoError(t, err)
	require.False(t, has)

	t.Run("Batch", func(t *testing.T) {
		b, err := ds.Batch()
		require.NoError(t, err)

		require.NoError(t, b.Put(k1, []byte("v1")))
		require.NoError(t, b.Delete(k2))

		has, err := ds.Has(k1)
		require.NoError(t, err)
		require.False(t, has, "batch must not be visible before commit")

		require.NoError(t, b.Commit())

		has, err = ds.Has(k1)
		require.NoError(t, err)
		require.True(t, has)

		has, err = ds.Has(k2)
		require.NoError(t, err)
		require.False(t, has)
	})
}

func TestStateDB(t *testing.T) {
	db, err := NewStateDB()
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	v, err := db.GetState(ns1, "1001")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, db.Apply(&WriteSet{
		Namespace: ns1,
		Writes: []*KVWrite{
			{Key: "1001", Value: []byte(`{"docType":"org","org_name":"bupt"}`)},
			{Key: "1002", Value: []byte(`{"docType":"org","org_name":"pku"}`)},
			{Key: "1003", Value: []byte(`{"docType":"org","org_name":"bupt"}`)},
			{Key: "raw", Value: []byte("not json")},
		},
	}))
	require.NoError(t, db.Apply(&WriteSet{
		Namespace: ns2,
		Writes:    []*KVWrite{{Key: "1001", Value: []byte(`{"docType":"org","org_name":"bupt"}`)}},
	}))
	require.NoError(t, db.Apply(&WriteSet{Namespace: ns1}))

	v, err = db.GetState(ns1, "1002")
	require.NoError(t, err)
	require.Equal(t, `{"docType":"org","org_name":"pku"}`, string(v))

	t.Run("Query", func(t *testing.T) {
		kvs, err := db.Query(ns1, map[string]string{"docType": "org", "org_name": "bupt"})
		require.NoError(t, err)
		require.Len(t, kvs, 2)

		keys := []string{kvs[0].Key, kvs[1].Key}
		require.ElementsMatch(t, []string{"1001", "1003"}, keys)

		kvs, err = db.Query(ns1, map[string]string{"org_name": "tsinghua"})
		require.NoError(t, err)
		require.Empty(t, kvs)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.Apply(&WriteSet{Namespace: ns1, Writes: []*KVWrite{{Key: "1003", IsDelete: true}}}))

		v, err := db.GetState(ns1, "1003")
		require.NoError(t, err)
		require.Nil(t, v)

		kvs, err := db.Query(ns1, map[string]string{"org_name": "bupt"})
		require.NoError(t, err)
		require.Len(t, kvs, 1)
		require.Equal(t, "1001", kvs[0].Key)
	})
}

func TestStub(t *testing.T) {
	db, err := NewStateDB()
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	ns := Namespace("channel1", "cc1")
	require.NoError(t, db.Apply(&WriteSet{Namespace: ns, Writes: []*KVWrite{{Key: "k1", Value: []byte("v1")}}}))

	transient := map[string][]byte{"method": []byte("TransactionProposalRequest")}
	stub := NewStub(db, "channel1", "cc1", "tx1", [][]byte{[]byte("fcn"), []byte("arg1")}, transient)

	fcn, args := stub.GetFunctionAndParameters()
	require.Equal(t, "fcn", fcn)
	require.Equal(t, []string{"arg1"}, args)
	require.Equal(t, []string{"fcn", "arg1"}, stub.GetStringArgs())
	require.Equal(t, "tx1", stub.GetTxID())
	require.Equal(t, "channel1", stub.GetChannelID())

	tm, err := stub.GetTransient()
	require.NoError(t, err)
	require.Equal(t, transient, tm)

	require.Error(t, stub.PutState("", []byte("v")))
	require.NoError(t, stub.PutState("k2", []byte("v2")))
	require.NoError(t, stub.PutState("k2", []byte("v2-2")))
	require.NoError(t, stub.DelState("k1"))

	v, err := stub.GetState("k2")
	require.NoError(t, err)
	require.Equal(t, []byte("v2-2"), v)

	v, err = stub.GetState("k1")
	require.NoError(t, err)
	require.Nil(t, v)

	ws := stub.WriteSet()
	require.Equal(t, ns, ws.Namespace)
	require.Len(t, ws.Writes, 2)
	require.Equal(t, "k2", ws.Writes[0].Key)
	require.Equal(t, []byte("v2-2"), ws.Writes[0].Value)
	require.True(t, ws.Writes[1].IsDelete)

	v, err = db.GetState(ns, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v, "simulation must not modify committed state")

	_, err = stub.GetQueryResult("{}")
	require.Error(t, err)
}
