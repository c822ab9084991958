/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

// EndorsementResponsesBuilder builds a slice of mock endorsement responses
type EndorsementResponsesBuilder struct {
	responses []*api.EndorsementResponse
}

// NewEndorsementResponsesBuilder returns a mock endorsement responses builder
func NewEndorsementResponsesBuilder() *EndorsementResponsesBuilder {
	return &EndorsementResponsesBuilder{}
}

// Success adds a successful response with the given payload
func (b *EndorsementResponsesBuilder) Success(endorser string, payload []byte) *EndorsementResponsesBuilder {
	b.responses = append(b.responses, &api.EndorsementResponse{
		Endorser: endorser,
		Status:   api.StatusSuccess,
		Payload:  payload,
		ProposalResponse: &pb.ProposalResponse{
			Version:  1,
			Response: &pb.Response{Status: 200, Payload: payload},
		},
	})
	return b
}

// Failure adds a failed response with the given message
func (b *EndorsementResponsesBuilder) Failure(endorser, msg string) *EndorsementResponsesBuilder {
	b.responses = append(b.responses, &api.EndorsementResponse{
		Endorser: endorser,
		Status:   api.StatusFailure,
		Message:  msg,
		ProposalResponse: &pb.ProposalResponse{
			Version:  1,
			Response: &pb.Response{Status: 500, Message: msg},
		},
	})
	return b
}

// Undefined adds a response for a peer that did not answer within the wait window
func (b *EndorsementResponsesBuilder) Undefined(endorser string) *EndorsementResponsesBuilder {
	b.responses = append(b.responses, &api.EndorsementResponse{
		Endorser: endorser,
		Status:   api.StatusUndefined,
	})
	return b
}

// Build returns the responses
func (b *EndorsementResponsesBuilder) Build() []*api.EndorsementResponse {
	return b.responses
}
