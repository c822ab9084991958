/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aggregator

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

// EmptyResultThreshold is the maximum length of a raw query payload that denotes an empty result (e.g. "[]")
const EmptyResultThreshold = 2

// IsEmptyResult returns true if the raw payload is the minimal empty-result marker
func IsEmptyResult(payload []byte) bool {
	return len(bytes.TrimSpace(payload)) <= EmptyResultThreshold
}

// QueryPolicy chooses the canonical payload from a set of query responses
type QueryPolicy int

const (
	// LastResponderWins returns the payload of the last successful response, in iteration order.
	// No cross-peer consistency check is performed.
	LastResponderWins QueryPolicy = iota

	// RequireAgreement returns the payload only if all successful responses carry identical payloads
	RequireAgreement
)

func (p QueryPolicy) String() string {
	if p == RequireAgreement {
		return "agree"
	}
	return "last"
}

// QueryPolicyFromString returns the query policy with the given name: last or agree.
// An empty name selects LastResponderWins.
func QueryPolicyFromString(name string) (QueryPolicy, error) {
	switch name {
	case "", "last":
		return LastResponderWins, nil
	case "agree":
		return RequireAgreement, nil
	default:
		return LastResponderWins, errors.Errorf("unsupported query consistency [%s]", name)
	}
}

// SelectPayload returns the canonical successful response according to the policy.
// It has no side effects.
func SelectPayload(responses []*api.EndorsementResponse, policy QueryPolicy) (*api.EndorsementResponse, error) {
	var selected *api.EndorsementResponse

	for _, r := range responses {
		if r == nil || r.Status != api.StatusSuccess {
			continue
		}

		if policy == RequireAgreement && selected != nil && !bytes.Equal(selected.Payload, r.Payload) {
			return nil, errors.Errorf("payload from [%s] does not match payload from [%s]", r.Endorser, selected.Endorser)
		}

		selected = r
	}

	if selected == nil {
		reasons := Summarize(responses).FailureReasons()
		if reasons == nil {
			return nil, errors.New("no responses")
		}
		return nil, errors.WithMessage(reasons, "no successful response")
	}

	return selected, nil
}
