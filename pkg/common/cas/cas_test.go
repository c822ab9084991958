/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cas

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"
)

const (
	value1CASKey = "T77kxb5RNT74VybFKvMgv8NAVDVYHKSo1j9Bk14Q2QWGLEK8BpLwXAjmSwBz"
	value1CID    = "bafkreib4s2bqc746jpzt2d563utl6fb724w6too5crkedn27aycai7vcry"
)

func TestGetCASKey(t *testing.T) {
	require.Equal(t, value1CASKey, GetCASKey([]byte("value1")))
	require.Equal(t, GetCASKey([]byte("value2")), GetCASKey([]byte("value2")))
	require.NotEqual(t, GetCASKey([]byte("value1")), GetCASKey([]byte("value2")))
}

func TestGetCID(t *testing.T) {
	t.Run("Raw", func(t *testing.T) {
		cID, err := GetCID([]byte("value1"), cid.Raw, mh.SHA2_256)
		require.NoError(t, err)
		require.Equal(t, value1CID, cID)
		requireCIDv1(t, cID)
	})

	t.Run("DAG-CBOR codec", func(t *testing.T) {
		cID, err := GetCID([]byte("value1"), cid.DagCBOR, mh.SHA2_256)
		require.NoError(t, err)
		require.NotEqual(t, value1CID, cID)
		requireCIDv1(t, cID)
	})

	t.Run("Invalid multihash type", func(t *testing.T) {
		cID, err := GetCID([]byte("value1"), cid.Raw, 989898)
		require.EqualError(t, err, "invalid multihash code 989898")
		require.Empty(t, cID)
	})
}

func TestGetDAGCID(t *testing.T) {
	t.Run("Single chunk", func(t *testing.T) {
		c, err := GetDAGCID([]byte("value1"))
		require.NoError(t, err)
		require.Equal(t, value1CID, c)
	})

	t.Run("Multiple chunks", func(t *testing.T) {
		content := bytes.Repeat([]byte("0123456789abcdef"), 40000)

		c1, err := GetDAGCID(content)
		require.NoError(t, err)
		requireCIDv1(t, c1)

		raw, err := GetCID(content, cid.Raw, mh.SHA2_256)
		require.NoError(t, err)
		require.NotEqual(t, raw, c1)

		c2, err := GetDAGCID(content)
		require.NoError(t, err)
		require.Equal(t, c1, c2)
	})
}

func TestHash(t *testing.T) {
	h, err := Hash(FormatCAS, []byte("value1"))
	require.NoError(t, err)
	require.Equal(t, value1CASKey, h)

	h, err = Hash(FormatCID, []byte("value1"))
	require.NoError(t, err)
	require.Equal(t, value1CID, h)

	h, err = Hash(FormatDAG, []byte("value1"))
	require.NoError(t, err)
	require.Equal(t, value1CID, h)

	_, err = Hash("md5", []byte("value1"))
	require.EqualError(t, err, "unsupported hash format [md5]")
}

func TestGetCBORCID(t *testing.T) {
	c1, err := Hash(FormatCBOR, []byte(`{"identifier":"bupt/123","peers":["p1","p2"]}`))
	require.NoError(t, err)
	requireCIDv1(t, c1)

	c2, err := GetCBORCID([]byte(`{ "peers": ["p1", "p2"], "identifier": "bupt/123" }`))
	require.NoError(t, err)
	require.Equal(t, c1, c2)

	c3, err := GetCBORCID([]byte(`{"identifier":"bupt/456"}`))
	require.NoError(t, err)
	require.NotEqual(t, c1, c3)

	_, err = GetCBORCID([]byte("value1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "content is not valid JSON")
}

func TestFormatFromString(t *testing.T) {
	f, err := FormatFromString("")
	require.NoError(t, err)
	require.Equal(t, FormatCAS, f)

	for _, name := range []string{"cas", "cid", "dag", "cbor"} {
		f, err := FormatFromString(name)
		require.NoError(t, err)
		require.Equal(t, Format(name), f)
	}

	_, err = FormatFromString("md5")
	require.EqualError(t, err, "unsupported hash format [md5]")
}

func requireCIDv1(t *testing.T, s string) {
	c, err := cid.Decode(s)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.Version())
}
