/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type requestTest struct {
	id    string
	err   error
	value interface{}
	delay time.Duration
}

func TestExecute(t *testing.T) {
	t.Parallel()

	errExpected := errors.New("injected error")

	f := New()

	requests := []requestTest{
		{id: "peer0", value: "value0"},
		{id: "peer1", err: errExpected},
		{id: "peer2", value: "value2", delay: 10 * time.Millisecond},
		{id: "peer3"},
	}

	for _, r := range requests {
		f.Add(r.id, getRequestFunc(r))
	}

	responses := f.Execute(context.Background(), time.Second)
	require.Len(t, responses, 4)

	require.Equal(t, "peer0", responses[0].RequestID)
	require.Equal(t, "value0", responses[0].Value)
	require.NoError(t, responses[0].Err)
	require.False(t, responses[0].TimedOut)

	require.Equal(t, "peer1", responses[1].RequestID)
	require.Equal(t, errExpected, responses[1].Err)
	require.False(t, responses[1].TimedOut)

	require.Equal(t, "value2", responses[2].Value)

	require.Nil(t, responses[3].Value)
	require.NoError(t, responses[3].Err)
	require.False(t, responses[3].TimedOut)
}

func TestExecute_Timeout(t *testing.T) {
	t.Parallel()

	f := New()
	f.Add("peer0", getRequestFunc(requestTest{id: "peer0", value: "value0"}))
	f.Add("peer1", getRequestFunc(requestTest{id: "peer1", value: "value1", delay: 5 * time.Second}))

	start := time.Now()
	responses := f.Execute(context.Background(), 100*time.Millisecond)
	require.True(t, time.Since(start) < 5*time.Second)

	require.Len(t, responses, 2)
	require.Equal(t, "value0", responses[0].Value)
	require.False(t, responses[0].TimedOut)

	require.True(t, responses[1].TimedOut)
	require.Nil(t, responses[1].Value)
	require.Equal(t, context.DeadlineExceeded, responses[1].Err)
}

func TestExecute_Cancel(t *testing.T) {
	t.Parallel()

	f := New()
	f.Add("peer0", getRequestFunc(requestTest{id: "peer0", delay: 5 * time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	responses := f.Execute(ctx, time.Second)
	require.Len(t, responses, 1)
	require.True(t, responses[0].TimedOut)
	require.Equal(t, context.Canceled, responses[0].Err)
}

func TestExecute_NoRequests(t *testing.T) {
	require.Empty(t, New().Execute(context.Background(), time.Second))
}

func getRequestFunc(r requestTest) Request {
	return func(ctxt context.Context) (interface{}, error) {
		if r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-ctxt.Done():
				return nil, ctxt.Err()
			}
		}
		return r.value, r.err
	}
}
