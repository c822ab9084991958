/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/chaincode/richquery"
)

// Stub simulates a chaincode invocation against a peer's committed world state. Writes are
// collected in a write set and are visible to subsequent reads of the same invocation.
// Functions not implemented here are served by the embedded mock stub.
type Stub struct {
	*shimtest.MockStub

	state     *StateDB
	ns        string
	channelID string
	txID      string
	args      [][]byte
	transient map[string][]byte
	writes    map[string]*KVWrite
	writeSet  *WriteSet
}

// NewStub returns a new simulation stub
func NewStub(state *StateDB, channelID, ccName, txID string, args [][]byte, transient map[string][]byte) *Stub {
	ns := Namespace(channelID, ccName)

	return &Stub{
		MockStub:  shimtest.NewMockStub(ccName, nil),
		state:     state,
		ns:        ns,
		channelID: channelID,
		txID:      txID,
		args:      args,
		transient: transient,
		writes:    make(map[string]*KVWrite),
		writeSet:  &WriteSet{Namespace: ns},
	}
}

// WriteSet returns the writes of the invocation, in order
func (s *Stub) WriteSet() *WriteSet {
	return s.writeSet
}

// GetArgs returns the invocation arguments
func (s *Stub) GetArgs() [][]byte {
	return s.args
}

// GetStringArgs returns the invocation arguments as strings
func (s *Stub) GetStringArgs() []string {
	strArgs := make([]string, len(s.args))
	for i, a := range s.args {
		strArgs[i] = string(a)
	}
	return strArgs
}

// GetFunctionAndParameters returns the first argument as the function and the rest as parameters
func (s *Stub) GetFunctionAndParameters() (string, []string) {
	allArgs := s.GetStringArgs()
	if len(allArgs) == 0 {
		return "", []string{}
	}
	return allArgs[0], allArgs[1:]
}

// GetTxID returns the transaction ID
func (s *Stub) GetTxID() string {
	return s.txID
}

// GetChannelID returns the channel ID
func (s *Stub) GetChannelID() string {
	return s.channelID
}

// GetTransient returns the transient data of the proposal
func (s *Stub) GetTransient() (map[string][]byte, error) {
	return s.transient, nil
}

// GetState returns the value of the key, including writes made by this invocation
func (s *Stub) GetState(key string) ([]byte, error) {
	if w, ok := s.writes[key]; ok {
		if w.IsDelete {
			return nil, nil
		}
		return w.Value, nil
	}

	return s.state.GetState(s.ns, key)
}

// PutState adds the write to the write set. An empty value deletes the key.
func (s *Stub) PutState(key string, value []byte) error {
	if key == "" {
		return errors.New("key must not be an empty string")
	}

	if len(value) == 0 {
		return s.DelState(key)
	}

	s.write(&KVWrite{Key: key, Value: append([]byte(nil), value...)})

	return nil
}

// DelState adds the delete to the write set
func (s *Stub) DelState(key string) error {
	if key == "" {
		return errors.New("key must not be an empty string")
	}

	s.write(&KVWrite{Key: key, IsDelete: true})

	return nil
}

// GetQueryResult executes a rich query against the committed state
func (s *Stub) GetQueryResult(query string) (shim.StateQueryIteratorInterface, error) {
	q, err := richquery.Parse(query)
	if err != nil {
		return nil, err
	}

	kvs, err := s.state.Query(s.ns, q.Selector)
	if err != nil {
		return nil, err
	}

	return &queryIterator{kvs: kvs}, nil
}

func (s *Stub) write(w *KVWrite) {
	if existing, ok := s.writes[w.Key]; ok {
		*existing = *w
		return
	}

	s.writes[w.Key] = w
	s.writeSet.Writes = append(s.writeSet.Writes, w)
}

type queryIterator struct {
	kvs []*queryresult.KV
	idx int
}

func (it *queryIterator) HasNext() bool {
	return it.idx < len(it.kvs)
}

func (it *queryIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("no more results")
	}

	kv := it.kvs[it.idx]
	it.idx++

	return kv, nil
}

func (it *queryIterator) Close() error {
	return nil
}
