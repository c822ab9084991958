/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"context"
)

// EnrollmentRequest contains the data required to enroll an identity with the certificate authority
type EnrollmentRequest struct {
	Name        string
	Secret      string
	Affiliation string
	MSPID       string
}

// Gateway is the ledger network gateway through which identities are enrolled and channels are created
type Gateway interface {
	// Enroll enrolls the given identity with the certificate authority
	Enroll(ctx context.Context, req *EnrollmentRequest) (*IdentityContext, error)

	// NewChannel creates an uninitialized channel bound to the given identity
	NewChannel(identity *IdentityContext, channelName string) (Channel, error)
}

// Channel is a logical channel exposed by the gateway. Peers and the orderer must be added
// before Initialize is invoked.
type Channel interface {
	Name() string
	AddPeer(peer PeerEndpoint) error
	AddOrderer(orderer OrdererEndpoint) error

	// Initialize performs the one-time initialization call against the network
	Initialize(ctx context.Context) error

	// SendTransactionProposal sends the proposal to every peer on the channel and returns one
	// response per peer. If the proposal's policy is satisfied by the responses then the
	// successful endorsements are sent to the orderer.
	SendTransactionProposal(ctx context.Context, proposal *TransactionProposal) ([]*EndorsementResponse, error)

	// QueryByChaincode sends a read-only proposal to every peer on the channel and returns one
	// response per peer
	QueryByChaincode(ctx context.Context, chaincodeID, fcn string, args []string) ([]*EndorsementResponse, error)

	Close()
}

// EndorsementPolicy decides whether a set of endorsements is sufficient for a write to be accepted
type EndorsementPolicy interface {
	Name() string
	Satisfied(responses []*EndorsementResponse) bool
}
