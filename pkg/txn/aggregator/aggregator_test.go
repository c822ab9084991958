/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bupt-fnl/idledger/pkg/txn/api"
	"github.com/bupt-fnl/idledger/pkg/txn/mocks"
)

func TestSummarize(t *testing.T) {
	t.Run("Mixed responses", func(t *testing.T) {
		responses := mocks.NewEndorsementResponsesBuilder().
			Success("peer0", []byte("p0")).
			Failure("peer1", "chaincode error").
			Undefined("peer2").
			Build()

		s := Summarize(responses)
		require.Equal(t, 3, s.Total())
		require.Equal(t, 1, s.Successes())
		require.True(t, s.AnySuccess())
		require.False(t, s.AllUndefined())
		require.Len(t, s.Statuses, 3)
		require.Equal(t, "peer1", s.Statuses[1].Peer)
		require.Equal(t, api.StatusFailure, s.Statuses[1].Status)

		err := s.FailureReasons()
		require.Error(t, err)
		require.Contains(t, err.Error(), "peer1: FAILURE chaincode error")
		require.Contains(t, err.Error(), "peer2: UNDEFINED")
		require.NotContains(t, err.Error(), "peer0")
	})

	t.Run("No responses", func(t *testing.T) {
		s := Summarize(nil)
		require.Equal(t, 0, s.Total())
		require.False(t, s.AnySuccess())
		require.True(t, s.AllUndefined())
		require.NoError(t, s.FailureReasons())
	})

	t.Run("Nil response", func(t *testing.T) {
		s := Summarize([]*api.EndorsementResponse{nil})
		require.Equal(t, 1, s.Total())
		require.True(t, s.AllUndefined())
	})

	t.Run("Pure", func(t *testing.T) {
		responses := mocks.NewEndorsementResponsesBuilder().Failure("peer0", "x").Build()
		Summarize(responses)
		require.Equal(t, api.StatusFailure, responses[0].Status)
		require.Equal(t, "x", responses[0].Message)
	})
}

func TestPolicies(t *testing.T) {
	oneOfTwo := mocks.NewEndorsementResponsesBuilder().
		Success("peer0", nil).
		Failure("peer1", "down").
		Build()
	twoOfTwo := mocks.NewEndorsementResponsesBuilder().
		Success("peer0", nil).
		Success("peer1", nil).
		Build()
	noneOfTwo := mocks.NewEndorsementResponsesBuilder().
		Failure("peer0", "down").
		Undefined("peer1").
		Build()

	t.Run("AnySuccess", func(t *testing.T) {
		p := AnySuccessPolicy{}
		require.Equal(t, "any", p.Name())
		require.True(t, p.Satisfied(oneOfTwo))
		require.True(t, p.Satisfied(twoOfTwo))
		require.False(t, p.Satisfied(noneOfTwo))
		require.False(t, p.Satisfied(nil))
	})

	t.Run("AllSuccess", func(t *testing.T) {
		p := AllSuccessPolicy{}
		require.Equal(t, "all", p.Name())
		require.False(t, p.Satisfied(oneOfTwo))
		require.True(t, p.Satisfied(twoOfTwo))
		require.False(t, p.Satisfied(noneOfTwo))
		require.False(t, p.Satisfied(nil))
	})

	t.Run("Quorum", func(t *testing.T) {
		p := QuorumPolicy{Min: 2}
		require.Equal(t, "quorum:2", p.Name())
		require.False(t, p.Satisfied(oneOfTwo))
		require.True(t, p.Satisfied(twoOfTwo))
		require.False(t, p.Satisfied(noneOfTwo))
	})
}

func TestPolicyFromString(t *testing.T) {
	p, err := PolicyFromString("")
	require.NoError(t, err)
	require.Equal(t, AnySuccessPolicy{}, p)

	p, err = PolicyFromString("all")
	require.NoError(t, err)
	require.Equal(t, AllSuccessPolicy{}, p)

	p, err = PolicyFromString("quorum:3")
	require.NoError(t, err)
	require.Equal(t, QuorumPolicy{Min: 3}, p)

	_, err = PolicyFromString("quorum:0")
	require.Error(t, err)

	_, err = PolicyFromString("quorum:x")
	require.Error(t, err)

	_, err = PolicyFromString("majority")
	require.EqualError(t, err, "unsupported endorsement policy [majority]")
}
