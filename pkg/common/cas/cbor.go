/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cas

import (
	"bytes"

	cbornode "github.com/ipfs/go-ipld-cbor"
	mh "github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

// GetCBORCID converts the JSON content to a DAG-CBOR node and returns the node's CID. Equivalent
// JSON documents that differ only in whitespace or key order have the same CID.
func GetCBORCID(content []byte) (string, error) {
	nd, err := cbornode.FromJSON(bytes.NewReader(content), mh.SHA2_256, -1)
	if err != nil {
		return "", errors.Wrap(err, "content is not valid JSON")
	}

	return nd.Cid().String(), nil
}
