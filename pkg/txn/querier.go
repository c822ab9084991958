/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/bupt-fnl/idledger/pkg/txn/aggregator"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
	"github.com/bupt-fnl/idledger/pkg/txn/client"
)

const outcomeFound = "found"

// Query evaluates a read-only proposal on the channel's peers. A NotFound error is returned if the
// chosen payload is an empty-result marker.
func (s *Service) Query(ctx context.Context, h *client.ChannelHandle, req *api.Request) (*api.QueryResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	result, err := s.query(ctx, h, req)
	if err != nil {
		kind, _ := api.KindOf(err)
		s.metrics.Queries.With(req.ChaincodeID, req.Fcn, string(kind)).Add(1)

		if api.IsNotFound(err) {
			logger.Infof("[%s %s] Not registered", req.Fcn, req.Key)
		} else {
			logger.Errorf("[%s %s] Query failed: %s", req.Fcn, req.Key, err)
		}

		return nil, err
	}

	s.metrics.Queries.With(req.ChaincodeID, req.Fcn, outcomeFound).Add(1)

	return result, nil
}

// QueryInto evaluates the query and decodes the JSON payload into v
func (s *Service) QueryInto(ctx context.Context, h *client.ChannelHandle, req *api.Request, v interface{}) error {
	result, err := s.Query(ctx, h, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(result.Payload, v); err != nil {
		logger.Errorf("[%s %s] Error decoding payload from [%s]: %s", req.Fcn, req.Key, result.Endorser, err)
		return api.NewError(api.QueryFailure, req.Key, errors.Wrapf(err, "error decoding payload from [%s]", result.Endorser))
	}

	return nil
}

func (s *Service) query(ctx context.Context, h *client.ChannelHandle, req *api.Request) (*api.QueryResult, error) {
	ch, release, err := h.Acquire(req.Key)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.waitTime)
	defer cancel()

	responses, err := ch.QueryByChaincode(ctx, req.ChaincodeID, req.Fcn, req.Args)
	if err != nil {
		if len(responses) == 0 {
			return nil, api.NewError(api.QueryFailure, req.Key, err)
		}

		logger.Warnf("[%s %s] Query returned an error with %d response(s): %s", req.Fcn, req.Key, len(responses), err)
	}

	if logger.IsEnabledFor(zapcore.DebugLevel) {
		for _, st := range aggregator.Summarize(responses).Statuses {
			logger.Debugf("[%s %s] - %s: %s", req.Fcn, req.Key, st.Peer, st.Status)
		}
	}

	resp, err := aggregator.SelectPayload(responses, s.queryPolicy)
	if err != nil {
		return nil, api.NewError(api.QueryFailure, req.Key, err).WithResponses(responses)
	}

	if aggregator.IsEmptyResult(resp.Payload) {
		return nil, api.NewError(api.NotFound, req.Key, errors.Errorf("[%s] is not registered", req.Key))
	}

	return &api.QueryResult{
		Key:      req.Key,
		Endorser: resp.Endorser,
		Payload:  resp.Payload,
	}, nil
}

