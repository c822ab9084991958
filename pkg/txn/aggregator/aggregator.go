/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aggregator

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/willf/bitset"
	"go.uber.org/multierr"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

// Summary is the interpretation of the responses to a single proposal
type Summary struct {
	Statuses  []api.PeerStatus
	successes *bitset.BitSet
	undefined *bitset.BitSet
}

// Summarize records the status of each peer. It has no side effects.
func Summarize(responses []*api.EndorsementResponse) *Summary {
	s := &Summary{
		Statuses:  make([]api.PeerStatus, 0, len(responses)),
		successes: bitset.New(uint(len(responses))),
		undefined: bitset.New(uint(len(responses))),
	}

	for i, r := range responses {
		if r == nil {
			s.Statuses = append(s.Statuses, api.PeerStatus{Status: api.StatusUndefined, Message: "no response"})
			s.undefined.Set(uint(i))
			continue
		}

		s.Statuses = append(s.Statuses, api.PeerStatus{Peer: r.Endorser, Status: r.Status, Message: r.Message})

		switch r.Status {
		case api.StatusSuccess:
			s.successes.Set(uint(i))
		case api.StatusUndefined:
			s.undefined.Set(uint(i))
		}
	}

	return s
}

// Total returns the number of responses
func (s *Summary) Total() int {
	return len(s.Statuses)
}

// Successes returns the number of successful responses
func (s *Summary) Successes() int {
	return int(s.successes.Count())
}

// AnySuccess returns true if at least one peer endorsed the proposal
func (s *Summary) AnySuccess() bool {
	return s.successes.Any()
}

// AllUndefined returns true if there were no responses or if no peer answered within the wait window
func (s *Summary) AllUndefined() bool {
	return s.undefined.Count() == uint(len(s.Statuses))
}

// FailureReasons combines the reasons reported by the peers that did not endorse the proposal
func (s *Summary) FailureReasons() error {
	var err error
	for i, st := range s.Statuses {
		if s.successes.Test(uint(i)) {
			continue
		}
		err = multierr.Append(err, errors.Errorf("%s: %s %s", st.Peer, st.Status, st.Message))
	}
	return err
}

// AnySuccessPolicy accepts a write as soon as one peer endorses it. No quorum is enforced.
type AnySuccessPolicy struct{}

// Name returns the policy name
func (p AnySuccessPolicy) Name() string { return "any" }

// Satisfied returns true if at least one response is successful
func (p AnySuccessPolicy) Satisfied(responses []*api.EndorsementResponse) bool {
	return Summarize(responses).AnySuccess()
}

// AllSuccessPolicy accepts a write only if every addressed peer endorsed it
type AllSuccessPolicy struct{}

// Name returns the policy name
func (p AllSuccessPolicy) Name() string { return "all" }

// Satisfied returns true if there is at least one response and all responses are successful
func (p AllSuccessPolicy) Satisfied(responses []*api.EndorsementResponse) bool {
	s := Summarize(responses)
	return s.Total() > 0 && s.Successes() == s.Total()
}

// QuorumPolicy accepts a write if at least Min peers endorsed it
type QuorumPolicy struct {
	Min int
}

// Name returns the policy name
func (p QuorumPolicy) Name() string { return "quorum:" + strconv.Itoa(p.Min) }

// Satisfied returns true if at least Min responses are successful
func (p QuorumPolicy) Satisfied(responses []*api.EndorsementResponse) bool {
	s := Summarize(responses)
	return s.AnySuccess() && s.Successes() >= p.Min
}

// PolicyFromString returns the endorsement policy with the given name: any, all or quorum:N.
// An empty name selects AnySuccessPolicy.
func PolicyFromString(name string) (api.EndorsementPolicy, error) {
	switch {
	case name == "" || name == "any":
		return AnySuccessPolicy{}, nil
	case name == "all":
		return AllSuccessPolicy{}, nil
	case strings.HasPrefix(name, "quorum:"):
		n, err := strconv.Atoi(strings.TrimPrefix(name, "quorum:"))
		if err != nil || n < 1 {
			return nil, errors.Errorf("invalid quorum in endorsement policy [%s]", name)
		}
		return QuorumPolicy{Min: n}, nil
	default:
		return nil, errors.Errorf("unsupported endorsement policy [%s]", name)
	}
}
