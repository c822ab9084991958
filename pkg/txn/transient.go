/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package txn

// Transient metadata keys attached to every write for traceability. The values are never
// persisted on the ledger.
const (
	TransientClientKey = "HyperLedgerFabric"
	TransientMethodKey = "method"
	TransientResultKey = "result"
	TransientEventKey  = "event"
	TransientTagKey    = "tag"

	transientClientValue = "TransactionProposalRequest:idledger"
	transientMethodValue = "TransactionProposalRequest"
	transientResultValue = ":)"
	transientEventValue  = "!"
)

func newTransientData(tag string) map[string][]byte {
	m := map[string][]byte{
		TransientClientKey: []byte(transientClientValue),
		TransientMethodKey: []byte(transientMethodValue),
		TransientResultKey: []byte(transientResultValue),
		TransientEventKey:  []byte(transientEventValue),
	}

	if tag != "" {
		m[TransientTagKey] = []byte(tag)
	}

	return m
}
