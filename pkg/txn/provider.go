/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

import (
	"context"
	"time"

	"github.com/bluele/gcache"

	"github.com/bupt-fnl/idledger/pkg/config"
	"github.com/bupt-fnl/idledger/pkg/metrics"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
	"github.com/bupt-fnl/idledger/pkg/txn/client"
)

// Session binds an enrolled identity and an initialized channel handle to a transaction service.
// It is owned by the caller and may be shared by concurrent operations.
type Session struct {
	*Service
	handle *client.ChannelHandle
}

// NewSession returns a session for the given channel handle
func NewSession(handle *client.ChannelHandle, svc *Service) *Session {
	return &Session{Service: svc, handle: handle}
}

// Handle returns the channel handle
func (s *Session) Handle() *client.ChannelHandle {
	return s.handle
}

// Invoke submits a write over the session's channel
func (s *Session) Invoke(ctx context.Context, req *api.Request) (*api.Outcome, error) {
	return s.Service.Invoke(ctx, s.handle, req)
}

// Query evaluates a query over the session's channel
func (s *Session) Query(ctx context.Context, req *api.Request) (*api.QueryResult, error) {
	return s.Service.Query(ctx, s.handle, req)
}

// QueryInto evaluates a query over the session's channel and decodes the JSON payload into v
func (s *Session) QueryInto(ctx context.Context, req *api.Request, v interface{}) error {
	return s.Service.QueryInto(ctx, s.handle, req, v)
}

// Close closes the session's channel once in-flight operations complete
func (s *Session) Close() {
	s.handle.Close()
}

// Provider lazily bootstraps one session per channel from the configuration
type Provider struct {
	cfg      *config.Config
	sessions gcache.Cache
}

// NewProvider returns a new session provider
func NewProvider(cfg *config.Config, gw api.Gateway, m *metrics.Metrics) *Provider {
	logger.Info("Creating transaction session provider")

	svc := New(
		WithEndorsementPolicy(cfg.EndorsementPolicy()),
		WithQueryPolicy(cfg.QueryPolicy()),
		WithWaitTime(cfg.Txn.ProposalWaitTime),
		WithMetrics(m),
	)

	return &Provider{
		cfg: cfg,
		sessions: gcache.New(0).LoaderFunc(func(chID interface{}) (interface{}, error) {
			channelName := chID.(string)

			logger.Debugf("[%s] Bootstrapping session for [%s]", channelName, cfg.Identity.Name)

			ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout(cfg))
			defer cancel()

			identity, err := client.Enroll(ctx, gw, cfg.EnrollmentRequest())
			if err != nil {
				return nil, err
			}

			h, err := client.Initialize(ctx, gw, identity, channelName, cfg.PeerEndpoints(), cfg.OrdererEndpoint())
			if err != nil {
				return nil, err
			}

			return NewSession(h, svc), nil
		}).Build(),
	}
}

// Session returns the session for the configured channel
func (p *Provider) Session() (*Session, error) {
	return p.ForChannel(p.cfg.Channel.Name)
}

// ForChannel returns the session for the given channel, bootstrapping it if necessary.
// A failed bootstrap is not cached so a later call starts from scratch.
func (p *Provider) ForChannel(channelName string) (*Session, error) {
	s, err := p.sessions.Get(channelName)
	if err != nil {
		return nil, err
	}

	return s.(*Session), nil
}

// Close closes all of the sessions
func (p *Provider) Close() {
	logger.Debug("Closing transaction sessions...")

	for _, channelName := range p.sessions.Keys(false) {
		s, err := p.sessions.Get(channelName)
		if err != nil {
			logger.Warnf("Unable to close session for channel [%s]: %s", channelName, err)
			continue
		}

		logger.Debugf("... closing session for channel [%s]", channelName)
		s.(*Session).Close()
	}

	p.sessions.Purge()
}

func bootstrapTimeout(cfg *config.Config) time.Duration {
	const minTimeout = 30 * time.Second

	if t := 10 * cfg.Txn.ProposalWaitTime; t > minTimeout {
		return t
	}

	return minTimeout
}

