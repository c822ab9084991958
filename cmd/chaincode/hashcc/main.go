/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// The hashcc chaincode stores the mapping-data hashes of DHT identifiers.
package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/bupt-fnl/idledger/pkg/chaincode/hashcc"
)

func main() {
	if err := shim.Start(hashcc.New(hashcc.DefaultName)); err != nil {
		fmt.Printf("Error starting hashcc chaincode: %s\n", err)
		os.Exit(1)
	}
}
