/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bupt-fnl/idledger/pkg/authority"
	"github.com/bupt-fnl/idledger/pkg/chaincode/authoritycc"
	"github.com/bupt-fnl/idledger/pkg/mapping"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

var logger = flogging.MustGetLogger("idl_rest")

const (
	apiVersion = "/v1"

	maxRequestSize    = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

// OrgRegistry registers and looks up organizations
type OrgRegistry interface {
	RegisterOrganization(ctx context.Context, reg *authority.Registration) (*api.Outcome, error)
	LookupOrganizationAuthority(ctx context.Context, orgName string) ([]*authoritycc.OrgRecord, error)
}

// HashRegistry records and looks up mapping-data hashes
type HashRegistry interface {
	RecordMappingHash(ctx context.Context, rec *mapping.Record) (*api.Outcome, error)
	RecordMappingData(ctx context.Context, identifier string, data []byte, kind mapping.OperationKind) (string, *api.Outcome, error)
	LookupMappingHash(ctx context.Context, identifier string) (string, error)
}

// MappingRequest records a mapping-data hash. If Data is set then the hash is computed from it.
type MappingRequest struct {
	Identifier      string `json:"identifier"`
	MappingDataHash string `json:"mappingDataHash,omitempty"`
	Data            []byte `json:"data,omitempty"`
	Kind            string `json:"kind,omitempty"`
}

// MappingResponse holds the hash of an identifier and, for writes, the outcome
type MappingResponse struct {
	Identifier      string           `json:"identifier"`
	MappingDataHash string           `json:"mappingDataHash"`
	Outcome         *OutcomeResponse `json:"outcome,omitempty"`
}

// OutcomeResponse is the outcome of a write
type OutcomeResponse struct {
	Key      string       `json:"key"`
	Policy   string       `json:"policy"`
	Accepted bool         `json:"accepted"`
	Peers    []PeerStatus `json:"peers"`
}

// PeerStatus is the status reported by one peer
type PeerStatus struct {
	Peer    string `json:"peer"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is returned on failure
type ErrorResponse struct {
	Kind   string       `json:"kind,omitempty"`
	Key    string       `json:"key,omitempty"`
	Reason string       `json:"reason"`
	Peers  []PeerStatus `json:"peers,omitempty"`
}

// Server serves the organization and mapping-hash operations over HTTP
type Server struct {
	router  *mux.Router
	orgs    OrgRegistry
	hashes  HashRegistry
	timeout time.Duration
	server  *http.Server
}

// Option is a server option
type Option func(s *Server)

// WithRequestTimeout bounds the time spent on the ledger for each request
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.timeout = timeout
	}
}

// New returns a new server listening on the given address
func New(address string, orgs OrgRegistry, hashes HashRegistry, opts ...Option) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		orgs:    orgs,
		hashes:  hashes,
		timeout: time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	v1 := s.router.PathPrefix(apiVersion).Subrouter()
	v1.HandleFunc("/orgs", s.registerOrganization).Methods(http.MethodPost)
	v1.HandleFunc("/orgs/{org}", s.lookupOrganization).Methods(http.MethodGet)
	v1.HandleFunc("/mappings", s.recordMapping).Methods(http.MethodPost)
	v1.HandleFunc("/mappings/{identifier:.+}", s.lookupMapping).Methods(http.MethodGet)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// ServeHTTP dispatches the request to the matching route
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(w, req)
}

// Start serves requests until Stop is called
func (s *Server) Start() error {
	logger.Infof("Starting REST server on [%s]", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "error serving on [%s]", s.server.Addr)
	}

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Stopping REST server")

	return s.server.Shutdown(ctx)
}

func (s *Server) registerOrganization(w http.ResponseWriter, req *http.Request) {
	reg := &authority.Registration{}
	if !decode(w, req, reg) {
		return
	}

	ctx, cancel := s.context(req)
	defer cancel()

	outcome, err := s.orgs.RegisterOrganization(ctx, reg)
	if err != nil {
		sendError(w, err)
		return
	}

	send(w, http.StatusOK, toOutcomeResponse(outcome))
}

func (s *Server) lookupOrganization(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := s.context(req)
	defer cancel()

	records, err := s.orgs.LookupOrganizationAuthority(ctx, mux.Vars(req)["org"])
	if err != nil {
		sendError(w, err)
		return
	}

	send(w, http.StatusOK, records)
}

func (s *Server) recordMapping(w http.ResponseWriter, req *http.Request) {
	mreq := &MappingRequest{}
	if !decode(w, req, mreq) {
		return
	}

	ctx, cancel := s.context(req)
	defer cancel()

	if len(mreq.Data) > 0 {
		s.recordMappingData(ctx, w, mreq)
		return
	}

	outcome, err := s.hashes.RecordMappingHash(ctx, &mapping.Record{
		Identifier:      mreq.Identifier,
		MappingDataHash: mreq.MappingDataHash,
		Kind:            mapping.OperationKind(mreq.Kind),
	})
	if err != nil {
		sendError(w, err)
		return
	}

	send(w, http.StatusOK, &MappingResponse{
		Identifier:      mreq.Identifier,
		MappingDataHash: mreq.MappingDataHash,
		Outcome:         toOutcomeResponse(outcome),
	})
}

func (s *Server) recordMappingData(ctx context.Context, w http.ResponseWriter, mreq *MappingRequest) {
	if mreq.MappingDataHash != "" {
		sendError(w, api.NewError(api.InvalidRequest, mreq.Identifier, errors.New("only one of data and mappingDataHash may be specified")))
		return
	}

	kind, err := mapping.OperationKindFromString(mreq.Kind)
	if err != nil {
		sendError(w, api.NewError(api.InvalidRequest, mreq.Identifier, err))
		return
	}

	hash, outcome, err := s.hashes.RecordMappingData(ctx, mreq.Identifier, mreq.Data, kind)
	if err != nil {
		sendError(w, err)
		return
	}

	send(w, http.StatusOK, &MappingResponse{
		Identifier:      mreq.Identifier,
		MappingDataHash: hash,
		Outcome:         toOutcomeResponse(outcome),
	})
}

func (s *Server) lookupMapping(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := s.context(req)
	defer cancel()

	identifier := mux.Vars(req)["identifier"]

	hash, err := s.hashes.LookupMappingHash(ctx, identifier)
	if err != nil {
		sendError(w, err)
		return
	}

	send(w, http.StatusOK, &MappingResponse{Identifier: identifier, MappingDataHash: hash})
}

func (s *Server) context(req *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(req.Context(), s.timeout)
}

func decode(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, req.Body, maxRequestSize))
	if err != nil {
		sendError(w, api.NewError(api.InvalidRequest, "", errors.Wrap(err, "failed reading request")))
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		sendError(w, api.NewError(api.InvalidRequest, "", errors.Wrap(err, "failed parsing request")))
		return false
	}

	return true
}

// statusCode maps the failure kind to an HTTP status. Ledger failures are reported as a bad gateway.
func statusCode(err error) int {
	kind, _ := api.KindOf(err)

	switch kind {
	case api.NotFound:
		return http.StatusNotFound
	case api.InvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func sendError(w http.ResponseWriter, err error) {
	code := statusCode(err)

	resp := &ErrorResponse{Reason: err.Error()}

	var e *api.Error
	if errors.As(err, &e) {
		resp.Kind = string(e.Kind)
		resp.Key = e.Key
		resp.Peers = toPeerStatuses(e.Responses)
	}

	if code == http.StatusBadGateway {
		logger.Warnf("Failed processing request: %s", err)
	} else {
		logger.Debugf("Rejected request: %s", err)
	}

	send(w, code, resp)
}

func send(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed encoding response: %s", err)
	}
}

func toOutcomeResponse(o *api.Outcome) *OutcomeResponse {
	if o == nil {
		return nil
	}

	resp := &OutcomeResponse{Key: o.Key, Policy: o.Policy, Accepted: o.Accepted, Peers: []PeerStatus{}}
	for _, s := range o.Statuses {
		resp.Peers = append(resp.Peers, PeerStatus{Peer: s.Peer, Status: s.Status.String(), Message: s.Message})
	}

	return resp
}

func toPeerStatuses(responses []*api.EndorsementResponse) []PeerStatus {
	var statuses []PeerStatus
	for _, r := range responses {
		if r == nil {
			continue
		}
		statuses = append(statuses, PeerStatus{Peer: r.Endorser, Status: r.Status.String(), Message: r.Message})
	}
	return statuses
}
