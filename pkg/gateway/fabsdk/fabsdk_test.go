/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"context"
	"sync"
	"time"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/channel/invoke"
	"github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	sdkmocks "github.com/hyperledger/fabric-sdk-go/pkg/fab/mocks"
	"github.com/pkg/errors"

	"github.com/bupt-fnl/idledger/pkg/config"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

const (
	channel1 = "idchannel"
	txID1    = "tx1"
	peer0    = "peer0.org1.example.com"
	peer0URL = "grpc://peer0.org1.example.com:7051"
	peer1    = "peer1.org1.example.com"
	peer1URL = "grpc://peer1.org1.example.com:7051"
)

func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Channel.Name = channel1
	cfg.Channel.Peers = []config.Endpoint{
		{Name: peer0, Address: peer0URL},
		{Name: peer1, Address: peer1URL},
	}
	return cfg
}

// peerBehavior is the response of a fake peer
type peerBehavior struct {
	status  int32
	payload []byte
	message string
	err     error
	delay   time.Duration
}

// fakeTransactor implements fab.Transactor. Proposal responses are keyed by peer URL.
type fakeTransactor struct {
	mutex     sync.Mutex
	peers     map[string]*peerBehavior
	headerErr error
	createErr error
	sendErr   error
	sent      []*fab.Transaction
}

func newFakeTransactor() *fakeTransactor {
	return &fakeTransactor{peers: make(map[string]*peerBehavior)}
}

func (f *fakeTransactor) withPeer(url string, b *peerBehavior) *fakeTransactor {
	f.peers[url] = b
	return f
}

func (f *fakeTransactor) CreateTransactionHeader(...fab.TxnHeaderOpt) (fab.TransactionHeader, error) {
	return nil, f.headerErr
}

func (f *fakeTransactor) SendTransactionProposal(_ *fab.TransactionProposal, targets []fab.ProposalProcessor) ([]*fab.TransactionProposalResponse, error) {
	url := targets[0].(fab.Peer).URL()

	f.mutex.Lock()
	b, ok := f.peers[url]
	f.mutex.Unlock()

	if !ok {
		return nil, errors.Errorf("unknown peer [%s]", url)
	}

	if b.delay > 0 {
		time.Sleep(b.delay)
	}

	if b.err != nil {
		return nil, b.err
	}

	return []*fab.TransactionProposalResponse{
		{
			Endorser:        url,
			Status:          200,
			ChaincodeStatus: b.status,
			ProposalResponse: &pb.ProposalResponse{
				Response: &pb.Response{Status: b.status, Payload: b.payload, Message: b.message},
			},
		},
	}, nil
}

func (f *fakeTransactor) CreateTransaction(fab.TransactionRequest) (*fab.Transaction, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &fab.Transaction{}, nil
}

func (f *fakeTransactor) SendTransaction(tx *fab.Transaction) (*fab.TransactionResponse, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.sent = append(f.sent, tx)

	return &fab.TransactionResponse{}, nil
}

func (f *fakeTransactor) numSent() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return len(f.sent)
}

// fakeChannelClient runs the handler the way the SDK channel client does: in its own goroutine,
// returning a timeout error as soon as the request context is done
type fakeChannelClient struct {
	targets    []fab.Peer
	transactor *fakeTransactor
	events     *sdkmocks.MockEventService
	err        error
	requests   []channel.Request

	// parent is the context the request context derives from. The SDK takes it from the
	// WithParentContext option, which cannot be read outside of the SDK.
	parent context.Context
}

func newFakeChannelClient(transactor *fakeTransactor, urls ...string) *fakeChannelClient {
	c := &fakeChannelClient{transactor: transactor, events: sdkmocks.NewMockEventService(), parent: context.Background()}
	for _, url := range urls {
		c.targets = append(c.targets, sdkmocks.NewMockPeer(url, url))
	}
	return c
}

func (f *fakeChannelClient) InvokeHandler(h invoke.Handler, request channel.Request, _ ...channel.RequestOption) (channel.Response, error) {
	f.requests = append(f.requests, request)

	if f.err != nil {
		return channel.Response{}, f.err
	}

	ctx, cancel := context.WithCancel(f.parent)
	defer cancel()

	reqCtx := &invoke.RequestContext{
		Request: invoke.Request{
			ChaincodeID:  request.ChaincodeID,
			Fcn:          request.Fcn,
			Args:         request.Args,
			TransientMap: request.TransientMap,
		},
		Opts: invoke.Opts{Targets: f.targets},
		Ctx:  ctx,
	}

	complete := make(chan struct{})
	go func() {
		h.Handle(reqCtx, &invoke.ClientContext{Transactor: f.transactor, EventService: f.events})
		close(complete)
	}()

	select {
	case <-complete:
		return channel.Response{Payload: reqCtx.Response.Payload, TransactionID: reqCtx.Response.TransactionID}, reqCtx.Error
	case <-ctx.Done():
		return channel.Response{}, status.New(status.ClientStatus, status.Timeout.ToInt32(), "request timed out or been cancelled", nil)
	}
}

type fakeLedgerClient struct {
	err error
}

func (f *fakeLedgerClient) QueryInfo(...ledger.RequestOption) (*fab.BlockchainInfoResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fab.BlockchainInfoResponse{Endorser: peer0}, nil
}

type fakeSDK struct {
	identity   msp.SigningIdentity
	enrollErr  error
	connectErr error
	cc         *fakeChannelClient
	lc         *fakeLedgerClient
	closed     bool
}

func (f *fakeSDK) enroll(string, *api.EnrollmentRequest) (msp.SigningIdentity, error) {
	return f.identity, f.enrollErr
}

func (f *fakeSDK) connect(string, msp.SigningIdentity) (channelClient, ledgerClient, error) {
	if f.connectErr != nil {
		return nil, nil, f.connectErr
	}
	return f.cc, f.lc, nil
}

func (f *fakeSDK) close() {
	f.closed = true
}

// fakeProposal replaces the SDK proposal builder so that no signing identity is required
func fakeProposal(fab.TransactionHeader, fab.ChaincodeInvokeRequest) (*fab.TransactionProposal, error) {
	return &fab.TransactionProposal{TxnID: txID1, Proposal: &pb.Proposal{}}, nil
}

// recordingHandler records whether it was invoked
type recordingHandler struct {
	invoked bool
}

func (h *recordingHandler) Handle(*invoke.RequestContext, *invoke.ClientContext) {
	h.invoked = true
}
