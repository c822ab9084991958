/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/txn/aggregator"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
	"github.com/bupt-fnl/idledger/pkg/txn/client"
)

const outcomeAccepted = "accepted"

// Invoke submits a write proposal to every peer registered on the channel and aggregates the
// endorsement responses. The write is not retried.
func (s *Service) Invoke(ctx context.Context, h *client.ChannelHandle, req *api.Request) (*api.Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ch, release, err := h.Acquire(req.Key)
	if err != nil {
		logger.Errorf("[%s %s] Channel is not ready: %s", req.Fcn, req.Key, err)
		s.metrics.Proposals.With(req.ChaincodeID, req.Fcn, string(api.EnrollmentNotReady)).Add(1)
		return nil, err
	}
	defer release()

	proposal := &api.TransactionProposal{
		ChaincodeID:   req.ChaincodeID,
		Fcn:           req.Fcn,
		Args:          req.Args,
		TransientData: newTransientData(req.TransientTag),
		WaitTime:      s.waitTime,
		Policy:        s.policy,
	}

	logger.Debugf("[%s %s] Sending proposal to chaincode [%s] on channel [%s] with wait time %s", req.Fcn, req.Key, req.ChaincodeID, ch.Name(), s.waitTime)

	start := time.Now()
	responses, sendErr := ch.SendTransactionProposal(ctx, proposal)
	s.metrics.ProposalDuration.With(req.ChaincodeID, req.Fcn).Observe(time.Since(start).Seconds())

	outcome, err := s.aggregate(req, responses, sendErr)
	if err != nil {
		kind, _ := api.KindOf(err)
		logger.Errorf("[%s %s] Write failed: %s", req.Fcn, req.Key, err)
		s.metrics.Proposals.With(req.ChaincodeID, req.Fcn, string(kind)).Add(1)
		return nil, err
	}

	s.metrics.Proposals.With(req.ChaincodeID, req.Fcn, outcomeAccepted).Add(1)

	logger.Infof("[%s %s] Write accepted under policy [%s] with %d of %d endorsements", req.Fcn, req.Key, outcome.Policy, outcome.Successes(), len(outcome.Statuses))

	return outcome, nil
}

func (s *Service) aggregate(req *api.Request, responses []*api.EndorsementResponse, sendErr error) (*api.Outcome, error) {
	summary := aggregator.Summarize(responses)

	for _, st := range summary.Statuses {
		logger.Infof("[%s %s] - %s: %s", req.Fcn, req.Key, st.Peer, st.Status)
		s.metrics.Endorsements.With(st.Peer, st.Status.String()).Add(1)
	}

	if !summary.AnySuccess() {
		if sendErr != nil && summary.Total() == 0 && !isTimeout(sendErr) {
			return nil, api.NewError(api.EndorsementFailure, req.Key, sendErr)
		}

		if summary.AllUndefined() {
			return nil, api.NewError(api.ProposalTimeout, req.Key,
				errors.Errorf("no peer responded within %s", s.waitTime)).WithResponses(responses)
		}

		return nil, api.NewError(api.EndorsementFailure, req.Key, summary.FailureReasons()).WithResponses(responses)
	}

	outcome := &api.Outcome{
		Key:      req.Key,
		Policy:   s.policy.Name(),
		Accepted: s.policy.Satisfied(responses),
		Statuses: summary.Statuses,
	}

	if !outcome.Accepted {
		return nil, api.NewError(api.EndorsementFailure, req.Key,
			errors.Errorf("endorsement policy [%s] not satisfied by %d of %d endorsements: %s",
				outcome.Policy, summary.Successes(), summary.Total(), summary.FailureReasons()),
		).WithResponses(responses)
	}

	if sendErr != nil {
		return nil, api.NewError(api.CommitFailure, req.Key, sendErr).WithResponses(responses)
	}

	return outcome, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || api.IsKind(err, api.ProposalTimeout)
}
