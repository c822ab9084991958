/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/chaincode/authoritycc"
	"github.com/bupt-fnl/idledger/pkg/chaincode/hashcc"
	"github.com/bupt-fnl/idledger/pkg/config"
)

// NewFromConfig returns a network with the channel topology of the given configuration. The
// configured identity is registered, every configured peer joins the channel and the authority
// and hash chaincodes are installed.
func NewFromConfig(cfg *config.Config) (*Network, error) {
	n := New()

	n.RegisterUser(cfg.Identity.Name, cfg.Identity.Secret, cfg.Identity.MSPID)

	if _, err := n.AddOrderer(cfg.Channel.Orderer.Name, cfg.Channel.Orderer.Address); err != nil {
		return nil, err
	}

	var peerNames []string
	for _, ep := range cfg.Channel.Peers {
		if _, err := n.AddPeer(ep.Name, ep.Address); err != nil {
			n.Close()
			return nil, err
		}

		peerNames = append(peerNames, ep.Name)
	}

	if err := n.CreateChannel(cfg.Channel.Name, cfg.Channel.Orderer.Name, peerNames...); err != nil {
		n.Close()
		return nil, err
	}

	if err := n.InstallChaincode(cfg.Channel.Name, authoritycc.New(cfg.Chaincode.Authority)); err != nil {
		n.Close()
		return nil, errors.WithMessage(err, "error installing authority chaincode")
	}

	if err := n.InstallChaincode(cfg.Channel.Name, hashcc.New(cfg.Chaincode.Hash)); err != nil {
		n.Close()
		return nil, errors.WithMessage(err, "error installing hash chaincode")
	}

	return n, nil
}
