/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"context"

	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	mspclient "github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	sdkconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/config"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

var logger = flogging.MustGetLogger("idl_fabsdk")

const profileFormat = "yaml"

type sdk interface {
	enroll(org string, req *api.EnrollmentRequest) (msp.SigningIdentity, error)
	connect(channelID string, identity msp.SigningIdentity) (channelClient, ledgerClient, error)
	close()
}

// Gateway implements the ledger network gateway on top of fabric-sdk-go
type Gateway struct {
	cfg   *config.Config
	sdk   sdk
	names map[string]string
}

// New creates an SDK instance from a connection profile generated from the configuration
func New(cfg *config.Config) (*Gateway, error) {
	profile, err := newProfile(cfg)
	if err != nil {
		return nil, err
	}

	s, err := newSDK(profile)
	if err != nil {
		return nil, err
	}

	return newGateway(cfg, s), nil
}

func newGateway(cfg *config.Config, s sdk) *Gateway {
	names := make(map[string]string)
	for _, p := range cfg.Channel.Peers {
		names[p.Address] = p.Name
	}

	return &Gateway{cfg: cfg, sdk: s, names: names}
}

// Enroll enrolls the identity with the certificate authority of the configured organization
func (g *Gateway) Enroll(ctx context.Context, req *api.EnrollmentRequest) (*api.IdentityContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	si, err := g.sdk.enroll(g.cfg.Identity.Org, req)
	if err != nil {
		return nil, errors.WithMessagef(err, "error enrolling [%s]", req.Name)
	}

	mspID := req.MSPID
	if id := si.Identifier(); id != nil && id.MSPID != "" {
		mspID = id.MSPID
	}

	return &api.IdentityContext{
		Name:        req.Name,
		Affiliation: req.Affiliation,
		MSPID:       mspID,
		Credential:  si,
	}, nil
}

// NewChannel returns an uninitialized channel bound to the enrolled identity
func (g *Gateway) NewChannel(identity *api.IdentityContext, channelName string) (api.Channel, error) {
	if !identity.Enrolled() {
		return nil, errors.New("identity is not enrolled")
	}

	si, ok := identity.Credential.(msp.SigningIdentity)
	if !ok {
		return nil, errors.Errorf("unexpected credential type [%T]", identity.Credential)
	}

	return newChannel(channelName, g.cfg.Txn.ProposalWaitTime, g.names, func() (channelClient, ledgerClient, error) {
		return g.sdk.connect(channelName, si)
	}), nil
}

// Close releases the SDK
func (g *Gateway) Close() {
	g.sdk.close()
}

type fabricSDK struct {
	*fabsdk.FabricSDK
}

var newSDK = func(profile []byte) (sdk, error) {
	s, err := fabsdk.New(sdkconfig.FromRaw(profile, profileFormat))
	if err != nil {
		return nil, errors.WithMessage(err, "error creating SDK")
	}

	return &fabricSDK{FabricSDK: s}, nil
}

func (s *fabricSDK) enroll(org string, req *api.EnrollmentRequest) (msp.SigningIdentity, error) {
	mc, err := mspclient.New(s.Context(), mspclient.WithOrg(org))
	if err != nil {
		return nil, errors.WithMessagef(err, "error creating MSP client for org [%s]", org)
	}

	if err := mc.Enroll(req.Name, mspclient.WithSecret(req.Secret)); err != nil {
		return nil, err
	}

	return mc.GetSigningIdentity(req.Name)
}

func (s *fabricSDK) connect(channelID string, identity msp.SigningIdentity) (channelClient, ledgerClient, error) {
	provider := s.ChannelContext(channelID, fabsdk.WithIdentity(identity))

	cc, err := channel.New(provider)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "error creating channel client for [%s]", channelID)
	}

	lc, err := ledger.New(provider)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "error creating ledger client for [%s]", channelID)
	}

	return cc, lc, nil
}

func (s *fabricSDK) close() {
	s.Close()
}
