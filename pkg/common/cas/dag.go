/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cas

import (
	"bytes"

	"github.com/ipfs/go-blockservice"
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
	chunker "github.com/ipfs/go-ipfs-chunker"
	ipld "github.com/ipfs/go-ipld-format"
	"github.com/ipfs/go-merkledag"
	"github.com/ipfs/go-unixfs/importer/balanced"
	"github.com/ipfs/go-unixfs/importer/helpers"
	mh "github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

// GetDAGCID chunks the content and returns the root CID of the resulting balanced UnixFS DAG.
// The DAG is built in memory and discarded.
func GetDAGCID(content []byte) (string, error) {
	nd, err := buildDAG(newDAGService(), content)
	if err != nil {
		return "", err
	}

	return nd.Cid().String(), nil
}

func newDAGService() ipld.DAGService {
	bs := blockstore.NewBlockstore(dssync.MutexWrap(datastore.NewMapDatastore()))
	return merkledag.NewDAGService(blockservice.New(bs, nil))
}

func buildDAG(dagServ ipld.DAGService, content []byte) (ipld.Node, error) {
	params := helpers.DagBuilderParams{
		Dagserv:    dagServ,
		Maxlinks:   helpers.DefaultLinksPerBlock,
		RawLeaves:  true,
		CidBuilder: cid.Prefix{Version: 1, Codec: cid.DagProtobuf, MhType: mh.SHA2_256, MhLength: -1},
	}

	db, err := params.New(chunker.DefaultSplitter(bytes.NewReader(content)))
	if err != nil {
		return nil, errors.WithMessage(err, "error creating DAG builder")
	}

	nd, err := balanced.Layout(db)
	if err != nil {
		return nil, errors.WithMessage(err, "error building DAG")
	}

	return nd, nil
}
