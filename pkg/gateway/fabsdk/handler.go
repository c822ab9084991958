/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/txn"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/common/fanout"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

// errorThreshold is the lowest chaincode response status that indicates an error
const errorThreshold = 400

type proposalCreator func(txh fab.TransactionHeader, request fab.ChaincodeInvokeRequest) (*fab.TransactionProposal, error)

var newProposal proposalCreator = txn.CreateChaincodeInvokeProposal

// endorseHandler sends the proposal to each target peer individually so that every peer's
// status is recorded, even if some of the peers fail or do not respond within the wait time.
// The next handler is invoked only if the endorsement policy is satisfied.
type endorseHandler struct {
	next           invoke.Handler
	policy         api.EndorsementPolicy
	waitTime       time.Duration
	names          map[string]string
	createProposal proposalCreator

	mutex     sync.RWMutex
	responses []*api.EndorsementResponse
	collected chan struct{}
	once      sync.Once
}

// newEndorseHandler returns a new endorsement handler. The names map peer URLs to peer names.
func newEndorseHandler(policy api.EndorsementPolicy, waitTime time.Duration, names map[string]string, next ...invoke.Handler) *endorseHandler {
	return &endorseHandler{
		next:           getNext(next),
		policy:         policy,
		waitTime:       waitTime,
		names:          names,
		createProposal: newProposal,
		collected:      make(chan struct{}),
	}
}

// Handle collects the endorsements. The SDK runs handlers in their own goroutine and may return
// to the caller before Handle completes, so the responses are published through setResponses.
func (h *endorseHandler) Handle(requestContext *invoke.RequestContext, clientContext *invoke.ClientContext) {
	defer h.markCollected()

	txh, err := clientContext.Transactor.CreateTransactionHeader()
	if err != nil {
		requestContext.Error = errors.WithMessage(err, "error creating transaction header")
		return
	}

	proposal, err := h.createProposal(txh, fab.ChaincodeInvokeRequest{
		ChaincodeID:  requestContext.Request.ChaincodeID,
		Fcn:          requestContext.Request.Fcn,
		Args:         requestContext.Request.Args,
		TransientMap: requestContext.Request.TransientMap,
	})
	if err != nil {
		requestContext.Error = errors.WithMessage(err, "error creating transaction proposal")
		return
	}

	fo := fanout.New()
	for _, target := range requestContext.Opts.Targets {
		target := target
		fo.Add(target.URL(), func(context.Context) (interface{}, error) {
			resps, err := clientContext.Transactor.SendTransactionProposal(proposal, []fab.ProposalProcessor{target})
			if err != nil {
				return nil, err
			}

			if len(resps) == 0 {
				return nil, errors.Errorf("no response from [%s]", target.URL())
			}

			return resps[0], nil
		})
	}

	results := fo.Execute(requestContext.Ctx, h.waitTime)

	responses := make([]*api.EndorsementResponse, len(results))

	var endorsements []*fab.TransactionProposalResponse
	for i, r := range results {
		responses[i] = h.toEndorsementResponse(r)

		if responses[i].Status == api.StatusSuccess {
			endorsements = append(endorsements, r.Value.(*fab.TransactionProposalResponse))
		}
	}

	requestContext.Response.Proposal = proposal
	requestContext.Response.TransactionID = proposal.TxnID
	requestContext.Response.Responses = endorsements

	if len(endorsements) > 0 {
		requestContext.Response.Payload = endorsements[0].GetResponse().GetPayload()
		requestContext.Response.ChaincodeStatus = endorsements[0].ChaincodeStatus
	}

	h.setResponses(responses)

	if h.policy == nil || !h.policy.Satisfied(responses) {
		logger.Debugf("[txID %s] Endorsement policy not satisfied. Not delegating to next handler.", proposal.TxnID)
		return
	}

	if h.next != nil {
		h.next.Handle(requestContext, clientContext)
	}
}

// Responses returns one response per target peer, or nil if the endorsements have not
// been collected yet
func (h *endorseHandler) Responses() []*api.EndorsementResponse {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.responses
}

// awaitResponses waits up to the given time for the endorsements to be collected and
// returns whatever is available
func (h *endorseHandler) awaitResponses(timeout time.Duration) []*api.EndorsementResponse {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.collected:
	case <-timer.C:
		logger.Debugf("Endorsements were not collected within %s", timeout)
	}

	return h.Responses()
}

func (h *endorseHandler) setResponses(responses []*api.EndorsementResponse) {
	h.mutex.Lock()
	h.responses = responses
	h.mutex.Unlock()

	h.markCollected()
}

func (h *endorseHandler) markCollected() {
	h.once.Do(func() { close(h.collected) })
}

func (h *endorseHandler) toEndorsementResponse(r *fanout.Response) *api.EndorsementResponse {
	resp := &api.EndorsementResponse{Endorser: h.peerName(r.RequestID)}

	if r.TimedOut || isTimeout(r.Err) {
		resp.Status = api.StatusUndefined
		resp.Message = fmt.Sprintf("no response within %s", h.waitTime)
		return resp
	}

	if r.Err != nil {
		resp.Status = api.StatusFailure
		resp.Message = r.Err.Error()
		return resp
	}

	tpr := r.Value.(*fab.TransactionProposalResponse)
	resp.ProposalResponse = tpr.ProposalResponse

	if tpr.ProposalResponse == nil || tpr.ProposalResponse.Response == nil {
		resp.Status = api.StatusFailure
		resp.Message = "empty proposal response"
		return resp
	}

	if tpr.Status >= errorThreshold || tpr.ProposalResponse.Response.Status >= errorThreshold {
		resp.Status = api.StatusFailure
		resp.Message = tpr.ProposalResponse.Response.Message
		return resp
	}

	resp.Status = api.StatusSuccess
	resp.Payload = tpr.ProposalResponse.Response.Payload

	return resp
}

func (h *endorseHandler) peerName(url string) string {
	if name, ok := h.names[url]; ok {
		return name
	}
	return url
}

// commitHandler orders the endorsed proposal and waits for the block event that carries the
// validation code of the transaction
type commitHandler struct{}

// Handle sends the transaction to the orderer. The request fails if the transaction is
// invalidated or if no block event arrives before the request context is done.
func (c *commitHandler) Handle(requestContext *invoke.RequestContext, clientContext *invoke.ClientContext) {
	txID := string(requestContext.Response.TransactionID)

	reg, events, err := clientContext.EventService.RegisterTxStatusEvent(txID)
	if err != nil {
		requestContext.Error = errors.Wrapf(err, "error registering for status event of tx [%s]", txID)
		return
	}
	defer clientContext.EventService.Unregister(reg)

	if err := order(clientContext.Transactor, requestContext.Response.Proposal, requestContext.Response.Responses); err != nil {
		requestContext.Error = errors.WithMessagef(err, "error ordering tx [%s]", txID)
		return
	}

	select {
	case event := <-events:
		requestContext.Response.TxValidationCode = event.TxValidationCode

		if event.TxValidationCode != pb.TxValidationCode_VALID {
			logger.Warnf("[txID %s] Transaction was invalidated: %s", txID, event.TxValidationCode)
			requestContext.Error = status.New(status.EventServerStatus, int32(event.TxValidationCode), "transaction was invalidated", nil)
		}

	case <-requestContext.Ctx.Done():
		logger.Warnf("[txID %s] No block event before the deadline", txID)
		requestContext.Error = status.New(status.ClientStatus, status.Timeout.ToInt32(), "no block event received for the transaction", nil)
	}
}

// order builds the transaction from the successful endorsements and sends it to the orderer
func order(sender fab.Sender, proposal *fab.TransactionProposal, endorsements []*fab.TransactionProposalResponse) error {
	tx, err := sender.CreateTransaction(fab.TransactionRequest{Proposal: proposal, ProposalResponses: endorsements})
	if err != nil {
		return errors.WithMessage(err, "error creating transaction")
	}

	if _, err := sender.SendTransaction(tx); err != nil {
		return errors.WithMessage(err, "error sending transaction")
	}

	return nil
}

func getNext(next []invoke.Handler) invoke.Handler {
	if len(next) > 0 {
		return next[0]
	}
	return nil
}
