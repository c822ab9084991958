/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"context"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

var logger = flogging.MustGetLogger("idl_client")

// ChannelHandle is an initialized channel bound to an enrolled identity. It is read-only after
// Initialize returns and may be shared by concurrent invocations.
type ChannelHandle struct {
	channelName string
	identity    *api.IdentityContext
	peers       []api.PeerEndpoint
	orderer     api.OrdererEndpoint
	channel     api.Channel
	counter     *counter
}

// Enroll enrolls the identity with the gateway's certificate authority
func Enroll(ctx context.Context, gw api.Gateway, req *api.EnrollmentRequest) (*api.IdentityContext, error) {
	if req == nil || req.Name == "" {
		return nil, api.NewError(api.BootstrapError, "", errors.New("identity name is required"))
	}

	identity, err := gw.Enroll(ctx, req)
	if err != nil {
		logger.Errorf("Error enrolling [%s] with MSP [%s]: %s", req.Name, req.MSPID, err)
		return nil, api.NewError(api.BootstrapError, req.Name, errors.WithMessage(err, "enrollment failed"))
	}

	if !identity.Enrolled() {
		return nil, api.NewError(api.BootstrapError, req.Name, errors.New("enrollment returned no credential"))
	}

	logger.Infof("Enrolled [%s] with MSP [%s]", identity.Name, identity.MSPID)

	return identity, nil
}

// Initialize registers the peers and the orderer against the named channel and performs the
// one-time initialization call against the gateway. No retry is attempted.
func Initialize(ctx context.Context, gw api.Gateway, identity *api.IdentityContext, channelName string, peers []api.PeerEndpoint, orderer api.OrdererEndpoint) (*ChannelHandle, error) {
	if !identity.Enrolled() {
		return nil, api.NewError(api.BootstrapError, channelName, errors.New("identity is not enrolled"))
	}

	if channelName == "" {
		return nil, api.NewError(api.BootstrapError, channelName, errors.New("channel name is required"))
	}

	if len(peers) == 0 {
		return nil, api.NewError(api.BootstrapError, channelName, errors.New("at least one peer is required"))
	}

	if orderer.Name == "" || orderer.Address == "" {
		return nil, api.NewError(api.BootstrapError, channelName, errors.New("an orderer is required"))
	}

	ch, err := gw.NewChannel(identity, channelName)
	if err != nil {
		return nil, api.NewError(api.BootstrapError, channelName, errors.WithMessage(err, "error creating channel client"))
	}

	if err := register(ch, peers, orderer); err != nil {
		ch.Close()
		return nil, api.NewError(api.BootstrapError, channelName, err)
	}

	if err := ch.Initialize(ctx); err != nil {
		logger.Errorf("[%s] Channel initialization failed: %s", channelName, err)
		ch.Close()
		return nil, api.NewError(api.BootstrapError, channelName, errors.WithMessage(err, "channel initialization failed"))
	}

	logger.Infof("[%s] Channel initialized for [%s] with %d peer(s) and orderer [%s]", channelName, identity.Name, len(peers), orderer.Name)

	h := &ChannelHandle{
		channelName: channelName,
		identity:    identity,
		peers:       append([]api.PeerEndpoint(nil), peers...),
		orderer:     orderer,
		channel:     ch,
	}
	h.counter = newCounter(func() {
		logger.Debugf("[%s] Closing channel", channelName)
		ch.Close()
	})

	return h, nil
}

func register(ch api.Channel, peers []api.PeerEndpoint, orderer api.OrdererEndpoint) error {
	for _, p := range peers {
		if p.Name == "" || p.Address == "" {
			return errors.Errorf("invalid peer endpoint [%s@%s]", p.Name, p.Address)
		}

		if err := ch.AddPeer(p); err != nil {
			return errors.WithMessagef(err, "error adding peer [%s]", p.Name)
		}
	}

	if err := ch.AddOrderer(orderer); err != nil {
		return errors.WithMessagef(err, "error adding orderer [%s]", orderer.Name)
	}

	return nil
}

// ChannelName returns the name of the channel
func (h *ChannelHandle) ChannelName() string {
	return h.channelName
}

// Identity returns the identity bound to the channel
func (h *ChannelHandle) Identity() *api.IdentityContext {
	return h.identity
}

// Peers returns the peers registered on the channel
func (h *ChannelHandle) Peers() []api.PeerEndpoint {
	return append([]api.PeerEndpoint(nil), h.peers...)
}

// Orderer returns the orderer registered on the channel
func (h *ChannelHandle) Orderer() api.OrdererEndpoint {
	return h.orderer
}

// Initialized returns true if the handle may be used for invocations and queries
func (h *ChannelHandle) Initialized() bool {
	return h != nil && h.channel != nil && !h.counter.closed()
}

// Acquire returns the underlying channel. The returned release function must be invoked when
// the operation completes. An EnrollmentNotReady error is returned if the handle is not usable.
func (h *ChannelHandle) Acquire(key string) (api.Channel, func(), error) {
	if h == nil || h.channel == nil {
		return nil, nil, api.NewError(api.EnrollmentNotReady, key, errors.New("channel handle is not initialized"))
	}

	if err := h.counter.increment(); err != nil {
		return nil, nil, api.NewError(api.EnrollmentNotReady, key, err)
	}

	return h.channel, h.counter.decrement, nil
}

// Close closes the channel once all in-flight operations have completed
func (h *ChannelHandle) Close() {
	if h == nil || h.counter == nil {
		return
	}

	h.counter.closeWhenIdle()
}
