/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrUnreachable is returned when a node cannot be contacted
var ErrUnreachable = errors.New("node is unreachable")

// Simulation is the result of simulating a proposal on a peer
type Simulation struct {
	Response *pb.Response
	WriteSet *WriteSet
}

// Peer is an in-process endorsing peer. It holds its own world state.
type Peer struct {
	name    string
	address string
	state   *StateDB

	mutex      sync.RWMutex
	chaincodes map[string]shim.Chaincode
	channels   map[string]struct{}

	unreachable atomic.Bool
	latency     atomic.Duration
}

func newPeer(name, address string) (*Peer, error) {
	state, err := NewStateDB()
	if err != nil {
		return nil, errors.WithMessagef(err, "error creating state database for peer [%s]", name)
	}

	return &Peer{
		name:       name,
		address:    address,
		state:      state,
		chaincodes: make(map[string]shim.Chaincode),
		channels:   make(map[string]struct{}),
	}, nil
}

// Name returns the name of the peer
func (p *Peer) Name() string {
	return p.name
}

// Address returns the address of the peer
func (p *Peer) Address() string {
	return p.address
}

// State returns the world state of the peer
func (p *Peer) State() *StateDB {
	return p.state
}

// SetUnreachable simulates a peer that is down or partitioned
func (p *Peer) SetUnreachable(unreachable bool) {
	p.unreachable.Store(unreachable)
}

// SetLatency delays every response of the peer
func (p *Peer) SetLatency(latency time.Duration) {
	p.latency.Store(latency)
}

func (p *Peer) joinChannel(channelID string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.channels[channelID] = struct{}{}
}

func (p *Peer) install(channelID, ccName string, cc shim.Chaincode) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.chaincodes[Namespace(channelID, ccName)] = cc
}

func (p *Peer) chaincode(channelID, ccName string) (shim.Chaincode, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if _, ok := p.channels[channelID]; !ok {
		return nil, errors.Errorf("peer [%s] has not joined channel [%s]", p.name, channelID)
	}

	cc, ok := p.chaincodes[Namespace(channelID, ccName)]
	if !ok {
		return nil, errors.Errorf("chaincode [%s] is not installed on peer [%s] for channel [%s]", ccName, p.name, channelID)
	}

	return cc, nil
}

// Simulate executes the chaincode against the peer's committed state without committing the writes
func (p *Peer) Simulate(ctx context.Context, channelID, txID, ccName string, args [][]byte, transient map[string][]byte) (*Simulation, error) {
	if err := p.await(ctx); err != nil {
		return nil, err
	}

	cc, err := p.chaincode(channelID, ccName)
	if err != nil {
		return nil, err
	}

	stub := NewStub(p.state, channelID, ccName, txID, args, transient)
	resp := cc.Invoke(stub)

	logger.Debugf("[%s] Peer [%s] simulated tx [%s] on chaincode [%s]: status %d", channelID, p.name, txID, ccName, resp.Status)

	return &Simulation{Response: &resp, WriteSet: stub.WriteSet()}, nil
}

// commit applies the write set if the peer is reachable
func (p *Peer) commit(channelID, txID string, ws *WriteSet) error {
	if p.unreachable.Load() {
		return ErrUnreachable
	}

	if ws.Empty() {
		return nil
	}

	if err := p.state.Apply(ws); err != nil {
		return errors.WithMessagef(err, "peer [%s] failed to commit tx [%s]", p.name, txID)
	}

	logger.Debugf("[%s] Peer [%s] committed tx [%s] with %d write(s)", channelID, p.name, txID, len(ws.Writes))

	return nil
}

func (p *Peer) await(ctx context.Context) error {
	if p.unreachable.Load() {
		return ErrUnreachable
	}

	latency := p.latency.Load()
	if latency <= 0 {
		return nil
	}

	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Peer) close() {
	if err := p.state.Close(); err != nil {
		logger.Warnf("Error closing state database of peer [%s]: %s", p.name, err)
	}
}
