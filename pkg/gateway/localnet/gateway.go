/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/common/fanout"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

const nonceSize = 24

// Gateway implements the ledger network gateway over an in-process network
type Gateway struct {
	network *Network
}

// NewGateway returns a gateway to the given network
func NewGateway(network *Network) *Gateway {
	return &Gateway{network: network}
}

// Enroll authenticates the identity against the users registered on the network
func (g *Gateway) Enroll(_ context.Context, req *api.EnrollmentRequest) (*api.IdentityContext, error) {
	u, err := g.network.authenticate(req.Name, req.Secret)
	if err != nil {
		return nil, err
	}

	if req.MSPID != "" && req.MSPID != u.mspID {
		return nil, errors.Errorf("identity [%s] is not a member of MSP [%s]", req.Name, req.MSPID)
	}

	return &api.IdentityContext{
		Name:        req.Name,
		Affiliation: req.Affiliation,
		MSPID:       u.mspID,
		Credential:  []byte(fmt.Sprintf("%s@%s", req.Name, u.mspID)),
	}, nil
}

// NewChannel returns an uninitialized channel bound to the identity
func (g *Gateway) NewChannel(identity *api.IdentityContext, channelName string) (api.Channel, error) {
	if !identity.Enrolled() {
		return nil, errors.New("identity is not enrolled")
	}

	return &Channel{network: g.network, identity: identity, name: channelName}, nil
}

// Channel implements api.Channel over an in-process network
type Channel struct {
	network  *Network
	identity *api.IdentityContext
	name     string

	mutex       sync.RWMutex
	peers       []api.PeerEndpoint
	orderer     *api.OrdererEndpoint
	initialized bool
	closed      bool
}

// Name returns the channel name
func (c *Channel) Name() string {
	return c.name
}

// AddPeer registers a peer. The peer is resolved when it is contacted.
func (c *Channel) AddPeer(peer api.PeerEndpoint) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

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

// Initialize verifies that the channel exists and that its orderer can be contacted
func (c *Channel) Initialize(context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.peers) == 0 || c.orderer == nil {
		return errors.New("at least one peer and an orderer must be registered")
	}

	if _, err := c.network.channel(c.name); err != nil {
		return err
	}

	o, err := c.network.resolveOrderer(c.orderer.Name, c.orderer.Address)
	if err != nil {
		return err
	}

	if o.unreachable.Load() {
		return errors.Wrapf(ErrUnreachable, "orderer [%s]", o.Name())
	}

	c.initialized = true

	return nil
}

// SendTransactionProposal collects an endorsement from every registered peer within the wait time
// and, if the proposal's policy is satisfied, sends the first endorsed write set for ordering.
// One response is returned per registered peer.
func (c *Channel) SendTransactionProposal(ctx context.Context, proposal *api.TransactionProposal) ([]*api.EndorsementResponse, error) {
	peers, orderer, err := c.state()
	if err != nil {
		return nil, err
	}

	txID, err := newTxID(c.identity)
	if err != nil {
		return nil, err
	}

	waitTime := proposal.WaitTime
	if waitTime <= 0 {
		waitTime = api.DefaultProposalWaitTime
	}

	responses, simulations := c.endorse(ctx, peers, txID, proposal.ChaincodeID, proposal.Fcn, proposal.Args, proposal.TransientData, waitTime)

	if proposal.Policy == nil || !proposal.Policy.Satisfied(responses) {
		logger.Debugf("[%s] Tx [%s] not sent for ordering", c.name, txID)
		return responses, nil
	}

	var ws *WriteSet
	for _, sim := range simulations {
		if sim != nil {
			ws = sim.WriteSet
			break
		}
	}

	if err := c.order(orderer, txID, ws); err != nil {
		return responses, errors.WithMessagef(err, "error ordering tx [%s]", txID)
	}

	return responses, nil
}

// QueryByChaincode evaluates the chaincode function on every registered peer. Nothing is ordered.
func (c *Channel) QueryByChaincode(ctx context.Context, chaincodeID, fcn string, args []string) ([]*api.EndorsementResponse, error) {
	peers, _, err := c.state()
	if err != nil {
		return nil, err
	}

	txID, err := newTxID(c.identity)
	if err != nil {
		return nil, err
	}

	waitTime := api.DefaultProposalWaitTime
	if deadline, ok := ctx.Deadline(); ok {
		waitTime = time.Until(deadline)
	}

	responses, _ := c.endorse(ctx, peers, txID, chaincodeID, fcn, args, nil, waitTime)

	return responses, nil
}

// Close closes the channel
func (c *Channel) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = true
}

func (c *Channel) state() ([]api.PeerEndpoint, api.OrdererEndpoint, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.closed {
		return nil, api.OrdererEndpoint{}, errors.Errorf("channel [%s] is closed", c.name)
	}

	if !c.initialized {
		return nil, api.OrdererEndpoint{}, errors.Errorf("channel [%s] is not initialized", c.name)
	}

	return c.peers, *c.orderer, nil
}

func (c *Channel) endorse(ctx context.Context, peers []api.PeerEndpoint, txID, ccID, fcn string, args []string, transient map[string][]byte, waitTime time.Duration) ([]*api.EndorsementResponse, []*Simulation) {
	wireArgs := api.AsBytes(append([]string{fcn}, args...))

	fo := fanout.New()
	for _, ep := range peers {
		ep := ep
		fo.Add(ep.Name, func(ctx context.Context) (interface{}, error) {
			p, err := c.network.resolvePeer(ep.Name, ep.Address)
			if err != nil {
				return nil, err
			}

			return p.Simulate(ctx, c.name, txID, ccID, wireArgs, transient)
		})
	}

	results := fo.Execute(ctx, waitTime)

	responses := make([]*api.EndorsementResponse, len(results))
	simulations := make([]*Simulation, len(results))

	for i, r := range results {
		responses[i], simulations[i] = toEndorsementResponse(r, waitTime)
	}

	return responses, simulations
}

func (c *Channel) order(ep api.OrdererEndpoint, txID string, ws *WriteSet) error {
	o, err := c.network.resolveOrderer(ep.Name, ep.Address)
	if err != nil {
		return err
	}

	ch, err := c.network.channel(c.name)
	if err != nil {
		return err
	}

	return o.broadcast(c.name, txID, ws, ch.peers)
}

// toEndorsementResponse converts the result of one peer. The simulation is only returned on success.
func toEndorsementResponse(r *fanout.Response, waitTime time.Duration) (*api.EndorsementResponse, *Simulation) {
	if r.TimedOut {
		return &api.EndorsementResponse{
			Endorser: r.RequestID,
			Status:   api.StatusUndefined,
			Message:  fmt.Sprintf("no response within %s", waitTime),
		}, nil
	}

	if r.Err != nil {
		return &api.EndorsementResponse{
			Endorser: r.RequestID,
			Status:   api.StatusFailure,
			Message:  r.Err.Error(),
		}, nil
	}

	sim := r.Value.(*Simulation)

	prp, err := newProposalResponsePayload(sim.Response)
	if err != nil {
		return &api.EndorsementResponse{
			Endorser: r.RequestID,
			Status:   api.StatusFailure,
			Message:  err.Error(),
		}, nil
	}

	resp := &api.EndorsementResponse{
		Endorser: r.RequestID,
		ProposalResponse: &pb.ProposalResponse{
			Version:     1,
			Response:    sim.Response,
			Payload:     prp,
			Endorsement: &pb.Endorsement{Endorser: []byte(r.RequestID)},
		},
	}

	if sim.Response.Status >= shim.ERRORTHRESHOLD {
		resp.Status = api.StatusFailure
		resp.Message = sim.Response.Message
		return resp, nil
	}

	resp.Status = api.StatusSuccess
	resp.Payload = sim.Response.Payload

	return resp, sim
}

// newProposalResponsePayload returns the marshalled proposal response payload whose extension
// holds the chaincode response
func newProposalResponsePayload(resp *pb.Response) ([]byte, error) {
	ext, err := proto.Marshal(&pb.ChaincodeAction{Response: resp})
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling chaincode action")
	}

	prp, err := proto.Marshal(&pb.ProposalResponsePayload{Extension: ext})
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling proposal response payload")
	}

	return prp, nil
}

// newTxID returns the hex encoded SHA256 of a random nonce and the creator
func newTxID(identity *api.IdentityContext) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "error creating nonce")
	}

	digest := sha256.Sum256(append(nonce, []byte(identity.Name+identity.MSPID)...))

	return hex.EncodeToString(digest[:]), nil
}
