/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"errors"

	"go.uber.org/atomic"
)

const (
	statusReady        = 0
	statusClosePending = 1
	statusClosed       = 2
)

var errClosed = errors.New("attempt to increment count on closed resource")

// counter counts the in-flight operations on a channel handle. When the counter is closed
// then the close func is invoked only after the count reaches 0.
type counter struct {
	count  atomic.Int32
	status atomic.Uint32
	close  func()
}

func newCounter(closer func()) *counter {
	return &counter{close: closer}
}

func (c *counter) increment() error {
	if c.status.Load() != statusReady {
		return errClosed
	}

	c.count.Inc()

	// Close may have been invoked between the status check and the increment
	if c.status.Load() != statusReady {
		c.decrement()
		return errClosed
	}

	return nil
}

func (c *counter) decrement() {
	if c.count.Dec() <= 0 && c.status.Load() == statusClosePending {
		c.notifyClosed()
	}
}

func (c *counter) closed() bool {
	return c.status.Load() != statusReady
}

func (c *counter) closeWhenIdle() {
	if !c.status.CAS(statusReady, statusClosePending) {
		return
	}

	if c.count.Load() == 0 {
		c.notifyClosed()
	}
}

func (c *counter) notifyClosed() {
	if c.status.CAS(statusClosePending, statusClosed) {
		c.close()
	}
}
