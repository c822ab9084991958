/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"
	"sync"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

// MockChannel is a mock implementation of api.Channel
type MockChannel struct {
	mutex sync.RWMutex

	ChannelName string
	Peers       []api.PeerEndpoint
	Orderers    []api.OrdererEndpoint
	Initialized bool
	Closed      bool

	AddPeerErr     error
	AddOrdererErr  error
	InitializeErr  error
	Responses      []*api.EndorsementResponse
	Err            error
	QueryResponses [][]*api.EndorsementResponse
	QueryErr       error

	Proposals []*api.TransactionProposal
	Queries   [][]string
	queryIdx  int
}

// NewMockChannel returns a new mock channel
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{ChannelName: name}
}

// WithResponses sets the responses returned by SendTransactionProposal
func (c *MockChannel) WithResponses(responses []*api.EndorsementResponse) *MockChannel {
	c.Responses = responses
	return c
}

// WithQueryResponses sets the responses returned by successive calls to QueryByChaincode.
// The last set is repeated once exhausted.
func (c *MockChannel) WithQueryResponses(responses ...[]*api.EndorsementResponse) *MockChannel {
	c.QueryResponses = responses
	return c
}

// WithError sets the error returned by SendTransactionProposal
func (c *MockChannel) WithError(err error) *MockChannel {
	c.Err = err
	return c
}

// Name returns the channel name
func (c *MockChannel) Name() string {
	return c.ChannelName
}

// AddPeer records the peer
func (c *MockChannel) AddPeer(peer api.PeerEndpoint) error {
	if c.AddPeerErr != nil {
		return c.AddPeerErr
	}
	c.Peers = append(c.Peers, peer)
	return nil
}

// AddOrderer records the orderer
func (c *MockChannel) AddOrderer(orderer api.OrdererEndpoint) error {
	if c.AddOrdererErr != nil {
		return c.AddOrdererErr
	}
	c.Orderers = append(c.Orderers, orderer)
	return nil
}

// Initialize marks the channel as initialized
func (c *MockChannel) Initialize(context.Context) error {
	if c.InitializeErr != nil {
		return c.InitializeErr
	}
	c.Initialized = true
	return nil
}

// SendTransactionProposal records the proposal and returns the configured responses
func (c *MockChannel) SendTransactionProposal(_ context.Context, proposal *api.TransactionProposal) ([]*api.EndorsementResponse, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.Proposals = append(c.Proposals, proposal)

	return c.Responses, c.Err
}

// QueryByChaincode records the query and returns the configured responses
func (c *MockChannel) QueryByChaincode(_ context.Context, chaincodeID, fcn string, args []string) ([]*api.EndorsementResponse, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.Queries = append(c.Queries, append([]string{chaincodeID, fcn}, args...))

	if c.QueryErr != nil {
		return nil, c.QueryErr
	}

	if len(c.QueryResponses) == 0 {
		return nil, nil
	}

	resp := c.QueryResponses[c.queryIdx]
	if c.queryIdx < len(c.QueryResponses)-1 {
		c.queryIdx++
	}

	return resp, nil
}

// Close marks the channel as closed
func (c *MockChannel) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.Closed = true
}

// IsClosed returns true if the channel was closed
func (c *MockChannel) IsClosed() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.Closed
}
