/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/hyperledger/fabric/common/metrics"
	"github.com/hyperledger/fabric/common/metrics/disabled"
	"github.com/hyperledger/fabric/common/metrics/prometheus"
	"github.com/pkg/errors"
)

const (
	// DisabledProvider discards all metrics
	DisabledProvider = "disabled"
	// PrometheusProvider exposes metrics to a Prometheus scraper
	PrometheusProvider = "prometheus"

	namespace = "idledger"
)

var (
	proposalsTotal = metrics.CounterOpts{
		Namespace:    namespace,
		Name:         "proposals_total",
		Help:         "The number of transaction proposals submitted, by outcome.",
		LabelNames:   []string{"chaincode", "function", "outcome"},
		StatsdFormat: "%{#fqname}.%{chaincode}.%{function}.%{outcome}",
	}
	endorsementsTotal = metrics.CounterOpts{
		Namespace:    namespace,
		Name:         "endorsements_total",
		Help:         "The number of endorsement responses received, by peer and status.",
		LabelNames:   []string{"peer", "status"},
		StatsdFormat: "%{#fqname}.%{peer}.%{status}",
	}
	proposalDuration = metrics.HistogramOpts{
		Namespace:    namespace,
		Name:         "proposal_duration_seconds",
		Help:         "The time taken to collect endorsements and commit a transaction.",
		LabelNames:   []string{"chaincode", "function"},
		StatsdFormat: "%{#fqname}.%{chaincode}.%{function}",
	}
	queriesTotal = metrics.CounterOpts{
		Namespace:    namespace,
		Name:         "queries_total",
		Help:         "The number of chaincode queries, by outcome.",
		LabelNames:   []string{"chaincode", "function", "outcome"},
		StatsdFormat: "%{#fqname}.%{chaincode}.%{function}.%{outcome}",
	}
)

// Metrics holds the transaction client metrics
type Metrics struct {
	Proposals        metrics.Counter
	Endorsements     metrics.Counter
	ProposalDuration metrics.Histogram
	Queries          metrics.Counter
}

// New creates the transaction client metrics from the given provider
func New(p metrics.Provider) *Metrics {
	return &Metrics{
		Proposals:        p.NewCounter(proposalsTotal),
		Endorsements:     p.NewCounter(endorsementsTotal),
		ProposalDuration: p.NewHistogram(proposalDuration),
		Queries:          p.NewCounter(queriesTotal),
	}
}

// Disabled returns metrics that are discarded
func Disabled() *Metrics {
	return New(&disabled.Provider{})
}

// NewProvider returns the metrics provider for the given name. The Prometheus provider registers
// its collectors with the default registry so it should only be created once per process.
func NewProvider(name string) (metrics.Provider, error) {
	switch name {
	case "", DisabledProvider:
		return &disabled.Provider{}, nil
	case PrometheusProvider:
		return &prometheus.Provider{}, nil
	default:
		return nil, errors.Errorf("unsupported metrics provider [%s]", name)
	}
}
