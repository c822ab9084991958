/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import (
	"context"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

// MockGateway is a mock implementation of api.Gateway
type MockGateway struct {
	EnrollErr     error
	NewChannelErr error
	Channel       *MockChannel

	Enrollments []*api.EnrollmentRequest
}

// NewMockGateway returns a mock gateway that creates the given channel
func NewMockGateway(ch *MockChannel) *MockGateway {
	return &MockGateway{Channel: ch}
}

// Enroll returns an identity with mock credentials
func (g *MockGateway) Enroll(_ context.Context, req *api.EnrollmentRequest) (*api.IdentityContext, error) {
	g.Enrollments = append(g.Enrollments, req)

	if g.EnrollErr != nil {
		return nil, g.EnrollErr
	}

	return &api.IdentityContext{
		Name:        req.Name,
		Affiliation: req.Affiliation,
		MSPID:       req.MSPID,
		Credential:  []byte("credential"),
	}, nil
}

// NewChannel returns the configured mock channel
func (g *MockGateway) NewChannel(_ *api.IdentityContext, channelName string) (api.Channel, error) {
	if g.NewChannelErr != nil {
		return nil, g.NewChannelErr
	}

	if g.Channel == nil {
		g.Channel = NewMockChannel(channelName)
	}

	return g.Channel, nil
}
