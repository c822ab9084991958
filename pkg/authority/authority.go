/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package authority

import (
	"context"
	"strings"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/chaincode/authoritycc"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

var logger = flogging.MustGetLogger("idl_authority")

// Session submits transactions and queries over an initialized channel
type Session interface {
	Invoke(ctx context.Context, req *api.Request) (*api.Outcome, error)
	QueryInto(ctx context.Context, req *api.Request, v interface{}) error
}

// Registration is the request to register an organization
type Registration struct {
	ItemNum        string `json:"item_num"`
	OrgName        string `json:"org_name"`
	IdentityPrefix string `json:"identity_prefix"`
	PublicKey      string `json:"public_key"`
	Authority      string `json:"authority"`
}

// Validate returns an InvalidRequest error if a field is missing
func (r *Registration) Validate() error {
	if r == nil {
		return api.NewError(api.InvalidRequest, "", errors.New("registration is required"))
	}

	for _, f := range []struct{ name, value string }{
		{"item number", r.ItemNum},
		{"organization name", r.OrgName},
		{"identity prefix", r.IdentityPrefix},
		{"public key", r.PublicKey},
		{"authority", r.Authority},
	} {
		if strings.TrimSpace(f.value) == "" {
			return api.NewError(api.InvalidRequest, r.OrgName, errors.Errorf("%s is required", f.name))
		}
	}

	return nil
}

// args returns the positional arguments of the initOrg function
func (r *Registration) args() []string {
	return []string{r.ItemNum, r.OrgName, r.IdentityPrefix, r.PublicKey, r.Authority}
}

type orgResult struct {
	Key    string                 `json:"Key"`
	Record *authoritycc.OrgRecord `json:"Record"`
}

// Client registers and looks up organizations on the authority chaincode
type Client struct {
	session     Session
	chaincodeID string
}

// New returns a new authority client
func New(session Session, chaincodeID string) *Client {
	if chaincodeID == "" {
		chaincodeID = authoritycc.DefaultName
	}

	return &Client{session: session, chaincodeID: chaincodeID}
}

// RegisterOrganization records the organization's identity prefix, public key and authority.
// The outcome holds the status of every peer.
func (c *Client) RegisterOrganization(ctx context.Context, reg *Registration) (*api.Outcome, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	logger.Debugf("Registering organization [%s] as item [%s]", reg.OrgName, reg.ItemNum)

	return c.session.Invoke(ctx, &api.Request{
		ChaincodeID: c.chaincodeID,
		Fcn:         authoritycc.InitOrgFunc,
		Args:        reg.args(),
		Key:         reg.OrgName,
	})
}

// LookupOrganizationAuthority returns the records of the organization. An empty slice is
// returned if the organization is not registered.
func (c *Client) LookupOrganizationAuthority(ctx context.Context, orgName string) ([]*authoritycc.OrgRecord, error) {
	if strings.TrimSpace(orgName) == "" {
		return nil, api.NewError(api.InvalidRequest, "", errors.New("organization name is required"))
	}

	var results []*orgResult

	err := c.session.QueryInto(ctx, &api.Request{
		ChaincodeID: c.chaincodeID,
		Fcn:         authoritycc.QueryInfoByOrgFunc,
		Args:        []string{orgName},
		Key:         orgName,
	}, &results)
	if err != nil {
		if api.IsNotFound(err) {
			return []*authoritycc.OrgRecord{}, nil
		}

		return nil, err
	}

	records := make([]*authoritycc.OrgRecord, 0, len(results))
	for _, r := range results {
		if r.Record == nil {
			return nil, api.NewError(api.QueryFailure, orgName, errors.Errorf("missing record for key [%s]", r.Key))
		}

		records = append(records, r.Record)
	}

	return records, nil
}
