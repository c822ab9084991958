/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package richquery

import (
	"encoding/json"
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	query := Selector(map[string]string{"docType": "org", "org_name": "bupt"})
	require.Equal(t, `{"selector":{"docType":"org","org_name":"bupt"}}`, query)

	q, err := Parse(query)
	require.NoError(t, err)
	require.Equal(t, "bupt", q.Selector["org_name"])

	_, err = Parse("{")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid query")

	_, err = Parse(`{"selector":{}}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "selector is required")
}

func TestExecute(t *testing.T) {
	query := Selector(map[string]string{"docType": "identity"})

	t.Run("Results", func(t *testing.T) {
		stub := newQueryStub(&queryresult.KV{Key: "bupt/123", Value: []byte(`{"identifier":"bupt/123"}`)})

		bytes, err := Execute(stub, query)
		require.NoError(t, err)

		var results []*Result
		require.NoError(t, json.Unmarshal(bytes, &results))
		require.Len(t, results, 1)
		require.Equal(t, "bupt/123", results[0].Key)
		require.JSONEq(t, `{"identifier":"bupt/123"}`, string(results[0].Record))
		require.True(t, stub.it.closed)
	})

	t.Run("No results", func(t *testing.T) {
		bytes, err := Execute(newQueryStub(), query)
		require.NoError(t, err)
		require.Equal(t, "[]", string(bytes))
	})

	t.Run("Query error", func(t *testing.T) {
		stub := newQueryStub()
		stub.err = errors.New("injected query error")

		_, err := Execute(stub, query)
		require.Error(t, err)
		require.Contains(t, err.Error(), "injected query error")
	})

	t.Run("Iterator error", func(t *testing.T) {
		stub := newQueryStub(&queryresult.KV{Key: "k1"})
		stub.it.err = errors.New("injected iterator error")

		_, err := Execute(stub, query)
		require.Error(t, err)
		require.Contains(t, err.Error(), "injected iterator error")
	})
}

type queryStub struct {
	*shimtest.MockStub
	it  *iterator
	err error
}

func newQueryStub(kvs ...*queryresult.KV) *queryStub {
	return &queryStub{
		MockStub: shimtest.NewMockStub("cc1", nil),
		it:       &iterator{kvs: kvs},
	}
}

func (s *queryStub) GetQueryResult(string) (shim.StateQueryIteratorInterface, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.it, nil
}

type iterator struct {
	kvs    []*queryresult.KV
	err    error
	closed bool
}

func (it *iterator) HasNext() bool {
	return len(it.kvs) > 0
}

func (it *iterator) Next() (*queryresult.KV, error) {
	if it.err != nil {
		return nil, it.err
	}

	kv := it.kvs[0]
	it.kvs = it.kvs[1:]

	return kv, nil
}

func (it *iterator) Close() error {
	it.closed = true
	return nil
}
