/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// The authoritycc chaincode stores the public key, identity prefix and access authority of registered organizations.
package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/bupt-fnl/idledger/pkg/chaincode/authoritycc"
)

func main() {
	if err := shim.Start(authoritycc.New(authoritycc.DefaultName)); err != nil {
		fmt.Printf("Error starting authoritycc chaincode: %s\n", err)
		os.Exit(1)
	}
}
