/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cas

import (
	"crypto"
	"encoding/base64"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

// Format is the format of a content hash
type Format string

const (
	// FormatCAS is base58(base64url(sha256(content)))
	FormatCAS Format = "cas"
	// FormatCID is a CIDv1 over the raw content using sha2-256
	FormatCID Format = "cid"
	// FormatDAG is the root CID of the UnixFS DAG for the content, as produced by an IPFS add
	FormatDAG Format = "dag"
	// FormatCBOR is the CID of the DAG-CBOR node for JSON content
	FormatCBOR Format = "cbor"
)

// FormatFromString returns the hash format for the given name. The default is FormatCAS.
func FormatFromString(name string) (Format, error) {
	switch Format(name) {
	case "", FormatCAS:
		return FormatCAS, nil
	case FormatCID:
		return FormatCID, nil
	case FormatDAG:
		return FormatDAG, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", errors.Errorf("unsupported hash format [%s]", name)
	}
}

// Hash returns the hash of the content in the given format
func Hash(format Format, content []byte) (string, error) {
	switch format {
	case FormatCAS:
		return GetCASKey(content), nil
	case FormatCID:
		return GetCID(content, cid.Raw, mh.SHA2_256)
	case FormatDAG:
		return GetDAGCID(content)
	case FormatCBOR:
		return GetCBORCID(content)
	default:
		return "", errors.Errorf("unsupported hash format [%s]", format)
	}
}

// GetCASKey returns the content-addressable key for the given content.
func GetCASKey(content []byte) string {
	address := calculateAddress(content)

	// The address is a base64 URL encoding which may start with _ so it is
	// encoded again to be usable as a ledger key
	return base58.Encode(address)
}

// GetCID returns the version 1 content identifier of the content for the given codec and
// multihash type
func GetCID(content []byte, codec, mhType uint64) (string, error) {
	if _, ok := mh.Codes[mhType]; !ok {
		return "", errors.Errorf("invalid multihash code %d", mhType)
	}

	c, err := cid.Prefix{Version: 1, Codec: codec, MhType: mhType, MhLength: -1}.Sum(content)
	if err != nil {
		return "", errors.WithMessagef(err, "error computing CID")
	}

	return c.String(), nil
}

func calculateAddress(content []byte) []byte {
	hash := getHash(content)
	buf := make([]byte, base64.URLEncoding.EncodedLen(len(hash)))
	base64.URLEncoding.Encode(buf, hash)

	return buf
}

func getHash(bytes []byte) []byte {
	h := crypto.SHA256.New()
	h.Write(bytes) //nolint
	return h.Sum(nil)
}
