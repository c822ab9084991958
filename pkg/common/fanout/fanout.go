/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fanout

import (
	"context"
	"time"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("idl_fanout")

// Request is the request to execute against one target
type Request func(ctxt context.Context) (interface{}, error)

type req struct {
	id      string
	execute Request
}

type res struct {
	idx   int
	value interface{}
	err   error
}

// Response contains the response of a given target. TimedOut is set if the target did not
// respond before the deadline, in which case Err holds the context error.
type Response struct {
	RequestID string
	Value     interface{}
	Err       error
	TimedOut  bool
}

// FanOut executes a request against multiple targets concurrently and collects every response
type FanOut struct {
	requests []*req
}

// New returns a new FanOut
func New() *FanOut {
	return &FanOut{}
}

// Add adds a request function for the given target
func (f *FanOut) Add(id string, execute Request) {
	f.requests = append(f.requests, &req{id: id, execute: execute})
}

// Execute executes the requests concurrently and waits until all of them have responded or
// until the wait time elapses. One response is returned per request, in the order the
// requests were added.
func (f *FanOut) Execute(ctxt context.Context, waitTime time.Duration) []*Response {
	respChan := make(chan *res, len(f.requests))

	cctxt, cancel := context.WithTimeout(ctxt, waitTime)
	defer cancel()

	for i, request := range f.requests {
		go func(idx int, r *req) {
			value, err := r.execute(cctxt)
			respChan <- &res{idx: idx, value: value, err: err}
		}(i, request)
	}

	responses := make([]*Response, len(f.requests))
	for i, r := range f.requests {
		responses[i] = &Response{RequestID: r.id, TimedOut: true}
	}

	defer markAborted(cctxt, responses)

	received := 0
	for received < len(f.requests) {
		select {
		case r := <-respChan:
			received++
			setResponse(responses[r.idx], r)

		case <-cctxt.Done():
			logger.Debugf("Received %d of %d responses before the deadline: %s", received, len(f.requests), cctxt.Err())

			for len(respChan) > 0 {
				r := <-respChan
				setResponse(responses[r.idx], r)
			}

			for _, r := range responses {
				if r.TimedOut {
					r.Err = cctxt.Err()
				}
			}

			return responses
		}
	}

	return responses
}

func setResponse(resp *Response, r *res) {
	resp.TimedOut = false
	resp.Value = r.value
	resp.Err = r.err

	if r.err != nil {
		logger.Debugf("Error response was received from [%s]: %s", resp.RequestID, r.err)
	}
}

// markAborted flags the requests that gave up because the deadline passed
func markAborted(ctxt context.Context, responses []*Response) {
	if ctxt.Err() == nil {
		return
	}

	for _, r := range responses {
		if r.Err != nil && errors.Is(r.Err, ctxt.Err()) {
			r.TimedOut = true
		}
	}
}
