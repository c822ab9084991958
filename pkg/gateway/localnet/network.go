/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"sync"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("idl_localnet")

type user struct {
	secret string
	mspID  string
}

type channelDef struct {
	name       string
	peers      []*Peer
	orderer    *Orderer
	chaincodes map[string]string
}

// Chaincode is a chaincode that can be installed on the network's channels
type Chaincode interface {
	Name() string
	Version() string
	Chaincode() shim.Chaincode
}

// Network is an in-process ledger network of peers, orderers and channels
type Network struct {
	mutex    sync.RWMutex
	users    map[string]*user
	peers    map[string]*Peer
	orderers map[string]*Orderer
	channels map[string]*channelDef
}

// New returns an empty network
func New() *Network {
	return &Network{
		users:    make(map[string]*user),
		peers:    make(map[string]*Peer),
		orderers: make(map[string]*Orderer),
		channels: make(map[string]*channelDef),
	}
}

// RegisterUser registers a user that may enroll with the given secret
func (n *Network) RegisterUser(name, secret, mspID string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.users[name] = &user{secret: secret, mspID: mspID}
}

// AddPeer adds a peer to the network
func (n *Network) AddPeer(name, address string) (*Peer, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if _, exists := n.peers[name]; exists {
		return nil, errors.Errorf("peer [%s] already exists", name)
	}

	p, err := newPeer(name, address)
	if err != nil {
		return nil, err
	}

	n.peers[name] = p

	return p, nil
}

// AddOrderer adds an orderer to the network
func (n *Network) AddOrderer(name, address string) (*Orderer, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if _, exists := n.orderers[name]; exists {
		return nil, errors.Errorf("orderer [%s] already exists", name)
	}

	o := newOrderer(name, address)
	n.orderers[name] = o

	return o, nil
}

// CreateChannel creates a channel served by the given orderer and joins the given peers to it
func (n *Network) CreateChannel(channelID, ordererName string, peerNames ...string) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if _, exists := n.channels[channelID]; exists {
		return errors.Errorf("channel [%s] already exists", channelID)
	}

	o, ok := n.orderers[ordererName]
	if !ok {
		return errors.Errorf("orderer [%s] not found", ordererName)
	}

	ch := &channelDef{name: channelID, orderer: o, chaincodes: make(map[string]string)}

	for _, name := range peerNames {
		p, ok := n.peers[name]
		if !ok {
			return errors.Errorf("peer [%s] not found", name)
		}

		p.joinChannel(channelID)
		ch.peers = append(ch.peers, p)
	}

	n.channels[channelID] = ch

	logger.Infof("[%s] Created channel with orderer [%s] and %d peer(s)", channelID, ordererName, len(ch.peers))

	return nil
}

// InstallChaincode installs the chaincode on every peer of the channel under the chaincode's name.
// Installing another version of an installed chaincode upgrades it.
func (n *Network) InstallChaincode(channelID string, cc Chaincode) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	ch, ok := n.channels[channelID]
	if !ok {
		return errors.Errorf("channel [%s] not found", channelID)
	}

	if cc.Name() == "" {
		return errors.New("chaincode name is required")
	}

	if version, exists := ch.chaincodes[cc.Name()]; exists && version == cc.Version() {
		return errors.Errorf("chaincode [%s:%s] is already installed on channel [%s]", cc.Name(), version, channelID)
	}

	for _, p := range ch.peers {
		p.install(channelID, cc.Name(), cc.Chaincode())
	}

	ch.chaincodes[cc.Name()] = cc.Version()

	logger.Infof("[%s] Installed chaincode [%s:%s]", channelID, cc.Name(), cc.Version())

	return nil
}

// ChaincodeVersion returns the version of the chaincode installed on the channel
func (n *Network) ChaincodeVersion(channelID, ccName string) (string, bool) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	ch, ok := n.channels[channelID]
	if !ok {
		return "", false
	}

	version, ok := ch.chaincodes[ccName]
	return version, ok
}

// Peer returns the peer with the given name
func (n *Network) Peer(name string) (*Peer, bool) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	p, ok := n.peers[name]
	return p, ok
}

// Orderer returns the orderer with the given name
func (n *Network) Orderer(name string) (*Orderer, bool) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	o, ok := n.orderers[name]
	return o, ok
}

// Close releases the world state of all peers
func (n *Network) Close() {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for _, p := range n.peers {
		p.close()
	}
}

func (n *Network) authenticate(name, secret string) (*user, error) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	u, ok := n.users[name]
	if !ok || u.secret != secret {
		return nil, errors.Errorf("authentication failure for [%s]", name)
	}

	return u, nil
}

func (n *Network) channel(channelID string) (*channelDef, error) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	ch, ok := n.channels[channelID]
	if !ok {
		return nil, errors.Errorf("channel [%s] not found", channelID)
	}

	return ch, nil
}

func (n *Network) resolvePeer(ep string, address string) (*Peer, error) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	p, ok := n.peers[ep]
	if !ok || p.address != address {
		return nil, errors.Wrapf(ErrUnreachable, "peer [%s] at [%s]", ep, address)
	}

	return p, nil
}

func (n *Network) resolveOrderer(name, address string) (*Orderer, error) {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	o, ok := n.orderers[name]
	if !ok || o.address != address {
		return nil, errors.Wrapf(ErrUnreachable, "orderer [%s] at [%s]", name, address)
	}

	return o, nil
}
