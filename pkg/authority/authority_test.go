/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package authority

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/bupt-fnl/idledger/pkg/chaincode/authoritycc"
	"github.com/bupt-fnl/idledger/pkg/config"
	"github.com/bupt-fnl/idledger/pkg/gateway/localnet"
	"github.com/bupt-fnl/idledger/pkg/metrics"
	"github.com/bupt-fnl/idledger/pkg/txn"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

const peer1 = "peer1.org1.example.com"

func TestRegistration_Validate(t *testing.T) {
	var reg *Registration
	require.True(t, api.IsKind(reg.Validate(), api.InvalidRequest))

	reg = &Registration{ItemNum: "0", OrgName: "bupt", IdentityPrefix: "bupt", PublicKey: "0", Authority: "1001"}
	require.NoError(t, reg.Validate())
	require.Equal(t, []string{"0", "bupt", "bupt", "0", "1001"}, reg.args())

	reg.PublicKey = " "
	err := reg.Validate()
	require.True(t, api.IsKind(err, api.InvalidRequest))
	require.Contains(t, err.Error(), "public key is required")
}

func TestClient(t *testing.T) {
	cfg, n, s := newLocalSession(t)
	defer n.Close()

	c := New(s, cfg.Chaincode.Authority)

	t.Run("Register and lookup", func(t *testing.T) {
		outcome, err := c.RegisterOrganization(context.Background(), &Registration{
			ItemNum:        "0",
			OrgName:        "bupt",
			IdentityPrefix: "bupt",
			PublicKey:      "0",
			Authority:      "1001",
		})
		require.NoError(t, err)
		require.True(t, outcome.Accepted)
		require.Len(t, outcome.Statuses, len(cfg.Channel.Peers))
		require.Equal(t, len(cfg.Channel.Peers), outcome.Successes())

		records, err := c.LookupOrganizationAuthority(context.Background(), "bupt")
		require.NoError(t, err)
		require.Len(t, records, 1)

		expected := &authoritycc.OrgRecord{
			ObjectType:     "org",
			ItemNum:        "0",
			OrgName:        "bupt",
			IdentityPrefix: "bupt",
			PublicKey:      "0",
			Authority:      "1001",
		}
		if diff := cmp.Diff(expected, records[0]); diff != "" {
			t.Fatalf("unexpected record (-want +got):\n%s", diff)
		}

		again, err := c.LookupOrganizationAuthority(context.Background(), "BUPT")
		require.NoError(t, err)
		require.Equal(t, records, again)
	})

	t.Run("Not registered", func(t *testing.T) {
		records, err := c.LookupOrganizationAuthority(context.Background(), "pku")
		require.NoError(t, err)
		require.Empty(t, records)
	})

	t.Run("Invalid request", func(t *testing.T) {
		_, err := c.RegisterOrganization(context.Background(), &Registration{OrgName: "bupt"})
		require.True(t, api.IsKind(err, api.InvalidRequest))

		_, err = c.LookupOrganizationAuthority(context.Background(), "")
		require.True(t, api.IsKind(err, api.InvalidRequest))
	})

	t.Run("All peers unreachable", func(t *testing.T) {
		for _, ep := range cfg.Channel.Peers {
			p, ok := n.Peer(ep.Name)
			require.True(t, ok)
			p.SetUnreachable(true)
		}
		defer func() {
			for _, ep := range cfg.Channel.Peers {
				p, _ := n.Peer(ep.Name)
				p.SetUnreachable(false)
			}
		}()

		outcome, err := c.RegisterOrganization(context.Background(), &Registration{
			ItemNum: "1", OrgName: "pku", IdentityPrefix: "pku", PublicKey: "1", Authority: "1000",
		})
		require.Error(t, err)
		require.Nil(t, outcome)
		require.True(t, api.IsKind(err, api.EndorsementFailure) || api.IsKind(err, api.ProposalTimeout))

		_, err = c.LookupOrganizationAuthority(context.Background(), "bupt")
		require.True(t, api.IsKind(err, api.QueryFailure))
	})
}

func TestClient_QueryError(t *testing.T) {
	s := &mockSession{queryErr: api.NewError(api.QueryFailure, "bupt", errors.New("injected error"))}

	c := New(s, "")
	require.Equal(t, authoritycc.DefaultName, c.chaincodeID)

	_, err := c.LookupOrganizationAuthority(context.Background(), "bupt")
	require.True(t, api.IsKind(err, api.QueryFailure))
	require.Equal(t, authoritycc.QueryInfoByOrgFunc, s.req.Fcn)
	require.Equal(t, []string{"bupt"}, s.req.Args)
}

func newLocalSession(t *testing.T) (*config.Config, *localnet.Network, *txn.Session) {
	cfg := config.Default()
	cfg.Channel.Peers = append(cfg.Channel.Peers, config.Endpoint{Name: peer1, Address: "grpc://localhost:8051"})

	n, err := localnet.NewFromConfig(cfg)
	require.NoError(t, err)

	p := txn.NewProvider(cfg, localnet.NewGateway(n), metrics.Disabled())
	t.Cleanup(p.Close)

	s, err := p.Session()
	require.NoError(t, err)

	return cfg, n, s
}

type mockSession struct {
	req      *api.Request
	queryErr error
}

func (m *mockSession) Invoke(_ context.Context, req *api.Request) (*api.Outcome, error) {
	m.req = req
	return &api.Outcome{Key: req.Key, Accepted: true}, nil
}

func (m *mockSession) QueryInto(_ context.Context, req *api.Request, _ interface{}) error {
	m.req = req
	return m.queryErr
}
