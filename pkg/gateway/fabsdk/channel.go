/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

const (
	// commitTimeout bounds the wait for the block event of an ordered transaction
	commitTimeout = 30 * time.Second

	// collectMargin is kept between the endorsement wait time and the caller's deadline so that
	// the responses are collected before the SDK gives up on the request
	collectMargin = 100 * time.Millisecond
)

type channelClient interface {
	InvokeHandler(handler invoke.Handler, request channel.Request, options ...channel.RequestOption) (channel.Response, error)
}

type ledgerClient interface {
	QueryInfo(options ...ledger.RequestOption) (*fab.BlockchainInfoResponse, error)
}

type connector func() (channelClient, ledgerClient, error)

// Channel implements api.Channel with the SDK channel and ledger clients
type Channel struct {
	name     string
	waitTime time.Duration
	names    map[string]string
	connect  connector

	mutex   sync.RWMutex
	peers   []api.PeerEndpoint
	orderer *api.OrdererEndpoint
	client  channelClient
	closed  bool
}

func newChannel(name string, waitTime time.Duration, names map[string]string, connect connector) *Channel {
	if waitTime <= 0 {
		waitTime = api.DefaultProposalWaitTime
	}

	return &Channel{name: name, waitTime: waitTime, names: names, connect: connect}
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// AddPeer registers a peer. The peer must be defined in the connection profile.
func (c *Channel) AddPeer(peer api.PeerEndpoint) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if name, ok := c.names[peer.Address]; !ok || name != peer.Name {
		return errors.Errorf("peer [%s] at [%s] is not in the connection profile", peer.Name, peer.Address)
	}

	for _, p := range c.peers {
		if p.Name == peer.Name {
			return errors.Errorf("peer [%s] is already registered", peer.Name)
		}
	}

	c.peers = append(c.peers, peer)

	return nil
}

// AddOrderer registers the orderer. Only one orderer may be registered.
func (c *Channel) AddOrderer(orderer api.OrdererEndpoint) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.orderer != nil {
		return errors.Errorf("orderer [%s] is already registered", c.orderer.Name)
	}

	c.orderer = &orderer

	return nil
}

// Initialize connects to the channel and queries the ledger height from the registered peers
func (c *Channel) Initialize(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.peers) == 0 || c.orderer == nil {
		return errors.New("at least one peer and an orderer must be registered")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	cc, lc, err := c.connect()
	if err != nil {
		return err
	}

	info, err := lc.QueryInfo(ledger.WithTargetEndpoints(c.peerNames()...))
	if err != nil {
		return errors.WithMessagef(err, "error querying info of channel [%s]", c.name)
	}

	if info != nil && info.BCI != nil {
		logger.Infof("[%s] Channel initialized at height %d by [%s]", c.name, info.BCI.Height, info.Endorser)
	}

	c.client = cc

	return nil
}

// SendTransactionProposal collects an endorsement from every registered peer within the wait
// time and, if the proposal's policy is satisfied, sends the transaction to the orderer and
// waits for it to be committed. One response is returned per registered peer, also when the
// request fails after the endorsements were collected.
func (c *Channel) SendTransactionProposal(ctx context.Context, proposal *api.TransactionProposal) ([]*api.EndorsementResponse, error) {
	waitTime := proposal.WaitTime
	if waitTime <= 0 {
		waitTime = c.waitTime
	}
	waitTime = endorsementWaitTime(ctx, waitTime)

	h := newEndorseHandler(proposal.Policy, waitTime, c.names, &commitHandler{})

	err := c.invoke(ctx, h, proposal.ChaincodeID, proposal.Fcn, proposal.ArgBytes(), proposal.TransientData, waitTime+commitTimeout)

	return h.awaitResponses(collectMargin), err
}

// QueryByChaincode evaluates the chaincode function on every registered peer. Nothing is ordered.
// If the SDK times out after the responses were collected, the responses are returned without error.
func (c *Channel) QueryByChaincode(ctx context.Context, chaincodeID, fcn string, args []string) ([]*api.EndorsementResponse, error) {
	waitTime := endorsementWaitTime(ctx, c.waitTime)

	h := newEndorseHandler(nil, waitTime, c.names)

	err := c.invoke(ctx, h, chaincodeID, fcn, api.AsBytes(args), nil, waitTime+collectMargin)

	responses := h.awaitResponses(collectMargin)
	if err != nil && isTimeout(err) && len(responses) > 0 {
		logger.Debugf("[%s] Query timed out after %d response(s) were collected: %s", c.name, len(responses), err)
		return responses, nil
	}

	return responses, err
}

// Close closes the channel
func (c *Channel) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = true
	c.client = nil
}

func (c *Channel) invoke(ctx context.Context, h *endorseHandler, ccID, fcn string, args [][]byte, transient map[string][]byte, timeout time.Duration) error {
	client, targets, err := c.state()
	if err != nil {
		h.markCollected()
		return err
	}

	_, err = client.InvokeHandler(h,
		channel.Request{
			ChaincodeID:  ccID,
			Fcn:          fcn,
			Args:         args,
			TransientMap: transient,
		},
		channel.WithTargetEndpoints(targets...),
		channel.WithTimeout(fab.Execute, timeout),
		channel.WithParentContext(ctx),
	)

	return err
}

// endorsementWaitTime returns the wait time bounded so that the endorsements are collected
// before the context's deadline
func endorsementWaitTime(ctx context.Context, waitTime time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return waitTime
	}

	remaining := time.Until(deadline)
	if remaining > 2*collectMargin {
		remaining -= collectMargin
	} else {
		remaining /= 2
	}

	if remaining < waitTime {
		return remaining
	}

	return waitTime
}

func (c *Channel) state() (channelClient, []string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.closed {
		return nil, nil, errors.Errorf("channel [%s] is closed", c.name)
	}

	if c.client == nil {
		return nil, nil, errors.Errorf("channel [%s] is not initialized", c.name)
	}

	return c.client, c.peerNames(), nil
}

func (c *Channel) peerNames() []string {
	names := make([]string, len(c.peers))
	for i, p := range c.peers {
		names[i] = p.Name
	}
	return names
}
