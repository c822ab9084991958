/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// DefaultProposalWaitTime bounds how long the client waits for peer endorsements
const DefaultProposalWaitTime = 1000 * time.Millisecond

// IdentityContext is an enrolled caller identity. It is immutable once created and is owned
// by the session that enrolled it.
type IdentityContext struct {
	Name        string
	Affiliation string
	MSPID       string

	// Credential is the signing material produced by enrollment. The concrete type
	// depends on the gateway that performed the enrollment.
	Credential interface{}
}

// Enrolled returns true if the identity holds credential material from a successful enrollment
func (c *IdentityContext) Enrolled() bool {
	return c != nil && c.Name != "" && c.Credential != nil
}

// PeerEndpoint identifies an endorsing peer
type PeerEndpoint struct {
	Name    string
	Address string
}

// OrdererEndpoint identifies an ordering service node
type OrdererEndpoint struct {
	Name    string
	Address string
}

// Status is the endorsement status returned by a single peer
type Status int32

const (
	// StatusUndefined indicates that the peer did not answer within the wait window
	StatusUndefined Status = iota
	// StatusSuccess indicates that the peer endorsed the proposal
	StatusSuccess
	// StatusFailure indicates that the peer rejected the proposal or could not be reached
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNDEFINED"
	}
}

// EndorsementResponse is the response of one endorsing peer. Payload is only set on success.
type EndorsementResponse struct {
	Endorser string
	Status   Status
	Payload  []byte
	Message  string

	// ProposalResponse is the raw proposal response, if the gateway provides one
	ProposalResponse *pb.ProposalResponse
}

// TransactionProposal is a chaincode invocation to be endorsed by the channel's peers
type TransactionProposal struct {
	ChaincodeID string
	Fcn         string

	// Args are positional. Their number and meaning depend on Fcn.
	Args []string

	// TransientData is traceability metadata that is not persisted on the ledger
	TransientData map[string][]byte

	// WaitTime bounds how long the gateway waits for endorsements
	WaitTime time.Duration

	// Policy decides whether the collected endorsements are sent for ordering.
	// If nil then the endorsements are never ordered.
	Policy EndorsementPolicy
}

// ArgBytes returns the arguments in wire format
func (p *TransactionProposal) ArgBytes() [][]byte {
	return AsBytes(p.Args)
}

// AsBytes converts positional string arguments to wire format
func AsBytes(args []string) [][]byte {
	b := make([][]byte, len(args))
	for i, a := range args {
		b[i] = []byte(a)
	}
	return b
}

// Request contains the data required to invoke or query a chaincode
type Request struct {
	// ChaincodeID identifies the chaincode to invoke
	ChaincodeID string

	// Fcn is the chaincode function
	Fcn string

	// Args to pass to the chaincode, in positional order
	Args []string

	// TransientTag (optional) is attached to the transient metadata of a write
	TransientTag string

	// Key is the business key (organization name, identifier) used for diagnostics
	Key string
}

// PeerStatus is the status reported by one peer for a logical write
type PeerStatus struct {
	Peer    string
	Status  Status
	Message string
}

// Outcome is the aggregated result of a logical write
type Outcome struct {
	Key      string
	Policy   string
	Accepted bool
	Statuses []PeerStatus
}

// Successes returns the number of peers that endorsed the write
func (o *Outcome) Successes() int {
	n := 0
	for _, s := range o.Statuses {
		if s.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// QueryResult is the canonical payload chosen from the responses to a query
type QueryResult struct {
	Key      string
	Endorser string
	Payload  []byte
}
