/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mapping

import (
	"context"
	"strings"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/chaincode/hashcc"
	"github.com/bupt-fnl/idledger/pkg/common/cas"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

var logger = flogging.MustGetLogger("idl_mapping")

// NotRegistered is returned by lookups of identifiers that have no mapping-data hash
const NotRegistered = "not registered"

// OperationKind is the DHT operation that produced the mapping data
type OperationKind string

const (
	// Write is a new mapping
	Write OperationKind = "write"
	// Delete is a removed mapping
	Delete OperationKind = "delete"
	// Update is a changed mapping
	Update OperationKind = "update"
)

// OperationKindFromString returns the operation kind for the given name. The default is Write.
func OperationKindFromString(name string) (OperationKind, error) {
	switch OperationKind(strings.ToLower(name)) {
	case "", Write:
		return Write, nil
	case Delete:
		return Delete, nil
	case Update:
		return Update, nil
	default:
		return "", errors.Errorf("unsupported operation kind [%s]", name)
	}
}

// Session submits transactions and queries over an initialized channel
type Session interface {
	Invoke(ctx context.Context, req *api.Request) (*api.Outcome, error)
	QueryInto(ctx context.Context, req *api.Request, v interface{}) error
}

// Record is the request to record the mapping-data hash of an identifier
type Record struct {
	Identifier      string        `json:"identifier"`
	MappingDataHash string        `json:"mappingData_hash"`
	Kind            OperationKind `json:"type,omitempty"`
}

// Validate returns an InvalidRequest error if a field is missing or the kind is unknown.
// An empty kind is set to Write.
func (r *Record) Validate() error {
	if r == nil {
		return api.NewError(api.InvalidRequest, "", errors.New("record is required"))
	}

	if strings.TrimSpace(r.Identifier) == "" {
		return api.NewError(api.InvalidRequest, "", errors.New("identifier is required"))
	}

	if strings.TrimSpace(r.MappingDataHash) == "" {
		return api.NewError(api.InvalidRequest, r.Identifier, errors.New("mapping data hash is required"))
	}

	kind, err := OperationKindFromString(string(r.Kind))
	if err != nil {
		return api.NewError(api.InvalidRequest, r.Identifier, err)
	}

	r.Kind = kind

	return nil
}

type hashResult struct {
	Key    string             `json:"Key"`
	Record *hashcc.HashRecord `json:"Record"`
}

// Option is a client option
type Option func(c *Client)

// WithHashFormat sets the format of mapping-data hashes computed by the client
func WithHashFormat(format cas.Format) Option {
	return func(c *Client) {
		c.format = format
	}
}

// Client records and looks up the mapping-data hashes of DHT identifiers on the hash chaincode
type Client struct {
	session     Session
	chaincodeID string
	format      cas.Format
}

// New returns a new mapping client
func New(session Session, chaincodeID string, opts ...Option) *Client {
	if chaincodeID == "" {
		chaincodeID = hashcc.DefaultName
	}

	c := &Client{session: session, chaincodeID: chaincodeID, format: cas.FormatCAS}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RecordMappingHash records the mapping-data hash of the identifier. The operation kind is
// attached to the proposal as transient metadata.
func (c *Client) RecordMappingHash(ctx context.Context, rec *Record) (*api.Outcome, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	logger.Debugf("Recording mapping data hash [%s] for [%s] on %s", rec.MappingDataHash, rec.Identifier, rec.Kind)

	return c.session.Invoke(ctx, &api.Request{
		ChaincodeID:  c.chaincodeID,
		Fcn:          hashcc.InvokeMappingDataHashFunc,
		Args:         []string{rec.Identifier, rec.MappingDataHash},
		TransientTag: string(rec.Kind),
		Key:          rec.Identifier,
	})
}

// RecordMappingData hashes the mapping data in the client's format and records the hash
func (c *Client) RecordMappingData(ctx context.Context, identifier string, data []byte, kind OperationKind) (string, *api.Outcome, error) {
	if len(data) == 0 {
		return "", nil, api.NewError(api.InvalidRequest, identifier, errors.New("mapping data is required"))
	}

	hash, err := cas.Hash(c.format, data)
	if err != nil {
		return "", nil, api.NewError(api.InvalidRequest, identifier, err)
	}

	outcome, err := c.RecordMappingHash(ctx, &Record{Identifier: identifier, MappingDataHash: hash, Kind: kind})
	if err != nil {
		return "", nil, err
	}

	return hash, outcome, nil
}

// LookupMappingHash returns the mapping-data hash of the identifier. A NotFound error is
// returned if the identifier is not registered.
func (c *Client) LookupMappingHash(ctx context.Context, identifier string) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", api.NewError(api.InvalidRequest, "", errors.New("identifier is required"))
	}

	var results []*hashResult

	err := c.session.QueryInto(ctx, &api.Request{
		ChaincodeID: c.chaincodeID,
		Fcn:         hashcc.QueryHashByIdentifierFunc,
		Args:        []string{identifier},
		Key:         identifier,
	}, &results)
	if err != nil {
		return "", err
	}

	// The identifier is the state key so there is at most one record. The last one wins otherwise.
	var hash string
	for _, r := range results {
		if r.Record != nil {
			hash = r.Record.MappingDataHash
		}
	}

	if hash == "" {
		return "", api.NewError(api.NotFound, identifier, errors.Errorf("[%s] is %s", identifier, NotRegistered))
	}

	return hash, nil
}
