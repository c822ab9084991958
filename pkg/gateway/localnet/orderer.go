/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localnet

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Orderer is an in-process ordering node. Each transaction is delivered to every peer of the
// channel in submission order.
type Orderer struct {
	name    string
	address string

	mutex       sync.Mutex
	unreachable atomic.Bool
	height      atomic.Uint64
}

func newOrderer(name, address string) *Orderer {
	return &Orderer{name: name, address: address}
}

// Name returns the name of the orderer
func (o *Orderer) Name() string {
	return o.name
}

// Address returns the address of the orderer
func (o *Orderer) Address() string {
	return o.address
}

// Height returns the number of transactions ordered
func (o *Orderer) Height() uint64 {
	return o.height.Load()
}

// SetUnreachable simulates an orderer that is down
func (o *Orderer) SetUnreachable(unreachable bool) {
	o.unreachable.Store(unreachable)
}

// broadcast orders the write set and delivers it to the given peers. Peers that are unreachable
// miss the transaction. An error is returned only if the orderer itself cannot accept it.
func (o *Orderer) broadcast(channelID, txID string, ws *WriteSet, peers []*Peer) error {
	if o.unreachable.Load() {
		return errors.Wrapf(ErrUnreachable, "orderer [%s]", o.name)
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.height.Inc()

	var deliveryErr error
	for _, p := range peers {
		if err := p.commit(channelID, txID, ws); err != nil {
			deliveryErr = multierr.Append(deliveryErr, errors.WithMessagef(err, "peer [%s]", p.Name()))
		}
	}

	if deliveryErr != nil {
		logger.Warnf("[%s] Tx [%s] was not delivered to all peers: %s", channelID, txID, deliveryErr)
	}

	return nil
}
