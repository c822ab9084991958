/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"time"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/metrics"
	"github.com/bupt-fnl/idledger/pkg/txn/aggregator"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

var logger = flogging.MustGetLogger("idl_txn")

// Service submits writes and queries over an initialized channel handle. A Service holds no
// mutable state and may be used concurrently.
type Service struct {
	policy      api.EndorsementPolicy
	queryPolicy aggregator.QueryPolicy
	waitTime    time.Duration
	metrics     *metrics.Metrics
}

// Option configures the service
type Option func(s *Service)

// WithEndorsementPolicy sets the policy that decides whether a write is accepted
func WithEndorsementPolicy(policy api.EndorsementPolicy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithQueryPolicy sets the policy that chooses the canonical payload of a query
func WithQueryPolicy(policy aggregator.QueryPolicy) Option {
	return func(s *Service) {
		s.queryPolicy = policy
	}
}

// WithWaitTime sets the proposal wait time
func WithWaitTime(waitTime time.Duration) Option {
	return func(s *Service) {
		s.waitTime = waitTime
	}
}

// WithMetrics sets the metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New returns a new transaction service. By default a write is accepted if any peer endorses it
// and a query returns the payload of the last responding peer.
func New(opts ...Option) *Service {
	s := &Service{
		policy:      aggregator.AnySuccessPolicy{},
		queryPolicy: aggregator.LastResponderWins,
		waitTime:    api.DefaultProposalWaitTime,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.Disabled()
	}

	return s
}

// Policy returns the endorsement policy
func (s *Service) Policy() api.EndorsementPolicy {
	return s.policy
}

// QueryPolicy returns the query policy
func (s *Service) QueryPolicy() aggregator.QueryPolicy {
	return s.queryPolicy
}

// WaitTime returns the proposal wait time
func (s *Service) WaitTime() time.Duration {
	return s.waitTime
}

func validate(req *api.Request) error {
	if req == nil {
		return api.NewError(api.InvalidRequest, "", errors.New("request is required"))
	}

	if req.ChaincodeID == "" {
		return api.NewError(api.InvalidRequest, req.Key, errors.New("chaincode ID is required"))
	}

	if req.Fcn == "" {
		return api.NewError(api.InvalidRequest, req.Key, errors.New("function is required"))
	}

	return nil
}
