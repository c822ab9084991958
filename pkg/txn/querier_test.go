/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/bupt-fnl/idledger/pkg/txn/aggregator"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
	"github.com/bupt-fnl/idledger/pkg/txn/mocks"
)

const (
	cc2          = "cc_hash"
	hashRecords  = `[{"Key":"bupt/123","Record":{"docType":"identity","identifier":"bupt/123","mappingData_hash":"s7ehdnj3"}}]`
	otherRecords = `[{"Key":"bupt/123","Record":{"docType":"identity","identifier":"bupt/123","mappingData_hash":"xxxxxxxx"}}]`
)

func newHashQuery() *api.Request {
	return &api.Request{
		ChaincodeID: cc2,
		Fcn:         "queryHashByIdentifier",
		Args:        []string{"bupt/123"},
		Key:         "bupt/123",
	}
}

type hashRecord struct {
	Key    string
	Record struct {
		Identifier      string `json:"identifier"`
		MappingDataHash string `json:"mappingData_hash"`
	}
}

func TestService_Query(t *testing.T) {
	t.Run("Last responder wins", func(t *testing.T) {
		ch := mocks.NewMockChannel(channel1).WithQueryResponses(
			mocks.NewEndorsementResponsesBuilder().
				Success(peer0, []byte(otherRecords)).
				Success(peer1, []byte(hashRecords)).
				Build(),
		)

		m, fm := newFakeMetrics()

		result, err := New(WithMetrics(m)).Query(context.Background(), newHandle(t, ch), newHashQuery())
		require.NoError(t, err)
		require.Equal(t, peer1, result.Endorser)
		require.Equal(t, "bupt/123", result.Key)
		require.Equal(t, []byte(hashRecords), result.Payload)

		require.Equal(t, []string{cc2, "queryHashByIdentifier", "bupt/123"}, ch.Queries[0])
		require.Equal(t, [][]string{{cc2, "queryHashByIdentifier", outcomeFound}}, fm.labels())
	})

	t.Run("Require agreement -> mismatch error", func(t *testing.T) {
		ch := mocks.NewMockChannel(channel1).WithQueryResponses(
			mocks.NewEndorsementResponsesBuilder().
				Success(peer0, []byte(otherRecords)).
				Success(peer1, []byte(hashRecords)).
				Build(),
		)

		_, err := New(WithQueryPolicy(aggregator.RequireAgreement)).Query(context.Background(), newHandle(t, ch), newHashQuery())
		require.True(t, api.IsKind(err, api.QueryFailure))
		require.Contains(t, err.Error(), "does not match")
	})

	t.Run("Empty result -> NotFound", func(t *testing.T) {
		for _, payload := range []string{"", "[]", "{}", " [] "} {
			ch := mocks.NewMockChannel(channel1).WithQueryResponses(
				mocks.NewEndorsementResponsesBuilder().Success(peer0, []byte(payload)).Build(),
			)

			m, fm := newFakeMetrics()

			_, err := New(WithMetrics(m)).Query(context.Background(), newHandle(t, ch), newHashQuery())
			require.Truef(t, api.IsNotFound(err), "expecting NotFound for payload [%s]", payload)
			require.Equal(t, [][]string{{cc2, "queryHashByIdentifier", string(api.NotFound)}}, fm.labels())

			var records []hashRecord
			err = New().QueryInto(context.Background(), newHandle(t, ch), newHashQuery(), &records)
			require.True(t, api.IsNotFound(err))
			require.Empty(t, records)
		}
	})

	t.Run("No success -> QueryFailure", func(t *testing.T) {
		ch := mocks.NewMockChannel(channel1).WithQueryResponses(
			mocks.NewEndorsementResponsesBuilder().Failure(peer0, "chaincode error").Undefined(peer1).Build(),
		)

		_, err := New().Query(context.Background(), newHandle(t, ch), newHashQuery())
		require.True(t, api.IsKind(err, api.QueryFailure))
		require.Contains(t, err.Error(), "chaincode error")
	})

	t.Run("No responses -> QueryFailure", func(t *testing.T) {
		_, err := New().Query(context.Background(), newHandle(t, mocks.NewMockChannel(channel1)), newHashQuery())
		require.True(t, api.IsKind(err, api.QueryFailure))
	})

	t.Run("Gateway error -> QueryFailure", func(t *testing.T) {
		ch := mocks.NewMockChannel(channel1)
		ch.QueryErr = errors.New("injected query error")

		_, err := New().Query(context.Background(), newHandle(t, ch), newHashQuery())
		require.True(t, api.IsKind(err, api.QueryFailure))
		require.Contains(t, err.Error(), "injected query error")
	})

	t.Run("Invalid request -> InvalidRequest", func(t *testing.T) {
		_, err := New().Query(context.Background(), newHandle(t, mocks.NewMockChannel(channel1)), &api.Request{})
		require.True(t, api.IsKind(err, api.InvalidRequest))
	})

	t.Run("Closed handle -> EnrollmentNotReady", func(t *testing.T) {
		h := newHandle(t, mocks.NewMockChannel(channel1))
		h.Close()

		_, err := New().Query(context.Background(), h, newHashQuery())
		require.True(t, api.IsKind(err, api.EnrollmentNotReady))
	})
}

func TestService_QueryInto(t *testing.T) {
	t.Run("Decoded", func(t *testing.T) {
		ch := mocks.NewMockChannel(channel1).WithQueryResponses(
			mocks.NewEndorsementResponsesBuilder().Success(peer0, []byte(hashRecords)).Build(),
		)
		h := newHandle(t, ch)

		var first, second []hashRecord
		require.NoError(t, New().QueryInto(context.Background(), h, newHashQuery(), &first))
		require.NoError(t, New().QueryInto(context.Background(), h, newHashQuery(), &second))
		require.Len(t, first, 1)
		require.Equal(t, "s7ehdnj3", first[0].Record.MappingDataHash)
		require.Equal(t, first, second)
	})

	t.Run("Decode error -> QueryFailure", func(t *testing.T) {
		ch := mocks.NewMockChannel(channel1).WithQueryResponses(
			mocks.NewEndorsementResponsesBuilder().Success(peer0, []byte("not json")).Build(),
		)

		var records []hashRecord
		err := New().QueryInto(context.Background(), newHandle(t, ch), newHashQuery(), &records)
		require.True(t, api.IsKind(err, api.QueryFailure))
		require.Contains(t, err.Error(), "error decoding payload from [peer0.org1.example.com]")
	})
}
