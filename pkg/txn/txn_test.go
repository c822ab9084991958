/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"testing"

	"github.com/hyperledger/fabric/common/metrics/metricsfakes"
	"github.com/stretchr/testify/require"

	"github.com/bupt-fnl/idledger/pkg/metrics"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
	"github.com/bupt-fnl/idledger/pkg/txn/client"
	"github.com/bupt-fnl/idledger/pkg/txn/mocks"
)

const (
	channel1 = "mychannel"
	cc1      = "cc_authority"
	peer0    = "peer0.org1.example.com"
	peer1    = "peer1.org1.example.com"
)

func newHandle(t *testing.T, ch *mocks.MockChannel) *client.ChannelHandle {
	identity := &api.IdentityContext{Name: "admin", MSPID: "Org1MSP", Credential: []byte("cred")}

	h, err := client.Initialize(context.Background(), mocks.NewMockGateway(ch), identity, channel1,
		[]api.PeerEndpoint{
			{Name: peer0, Address: "grpc://localhost:7051"},
			{Name: peer1, Address: "grpc://localhost:8051"},
		},
		api.OrdererEndpoint{Name: "orderer.example.com", Address: "grpc://localhost:7050"},
	)
	require.NoError(t, err)

	return h
}

type fakeMetrics struct {
	provider  *metricsfakes.Provider
	counter   *metricsfakes.Counter
	histogram *metricsfakes.Histogram
}

func newFakeMetrics() (*metrics.Metrics, *fakeMetrics) {
	f := &fakeMetrics{
		provider:  &metricsfakes.Provider{},
		counter:   &metricsfakes.Counter{},
		histogram: &metricsfakes.Histogram{},
	}

	f.counter.WithReturns(f.counter)
	f.histogram.WithReturns(f.histogram)
	f.provider.NewCounterReturns(f.counter)
	f.provider.NewHistogramReturns(f.histogram)

	return metrics.New(f.provider), f
}

// labels returns the label values passed to the counter, in call order
func (f *fakeMetrics) labels() [][]string {
	var labels [][]string
	for i := 0; i < f.counter.WithCallCount(); i++ {
		labels = append(labels, f.counter.WithArgsForCall(i))
	}
	return labels
}
