/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hashcc

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/bupt-fnl/idledger/pkg/chaincode/richquery"
)

type invokeFunc func(stub shim.ChaincodeStubInterface, args []string) pb.Response
type funcMap map[string]invokeFunc

const (
	v1 = "v1"

	// DefaultName is the default name of the chaincode
	DefaultName = "cc_hash"

	// InvokeMappingDataHashFunc records the mapping-data hash of an identifier
	InvokeMappingDataHashFunc = "invokeMappingDataHash"
	// QueryHashByIdentifierFunc returns the mapping-data hash records of an identifier
	QueryHashByIdentifierFunc = "queryHashByIdentifier"

	docType = "identity"
)

// HashRecord is the on-ledger record of a mapping-data hash
type HashRecord struct {
	ObjectType      string `json:"docType"`
	Identifier      string `json:"identifier"`
	MappingDataHash string `json:"mappingData_hash"`
}

// HashCC stores the mapping-data hashes of DHT identifiers
type HashCC struct {
	name         string
	funcRegistry funcMap
}

// New returns a new hash chaincode instance
func New(name string) *HashCC {
	cc := &HashCC{name: name}
	cc.initRegistry()
	return cc
}

// Name returns the name of this chaincode
func (cc *HashCC) Name() string { return cc.name }

// Version returns the version of the chaincode
func (cc *HashCC) Version() string { return v1 }

// Chaincode returns the chaincode
func (cc *HashCC) Chaincode() shim.Chaincode { return cc }

// Init is not used
func (cc *HashCC) Init(stub shim.ChaincodeStubInterface) pb.Response {
	return shim.Success(nil)
}

// Invoke invokes the chaincode with a given function
func (cc *HashCC) Invoke(stub shim.ChaincodeStubInterface) pb.Response {
	function, args := stub.GetFunctionAndParameters()
	if function == "" {
		return shim.Error("Expecting function")
	}

	f, ok := cc.funcRegistry[function]
	if !ok {
		return shim.Error(fmt.Sprintf("Unknown function [%s]. Expecting one of: %v", function, cc.functions()))
	}

	return f(stub, args)
}

func (cc *HashCC) invokeMappingDataHash(stub shim.ChaincodeStubInterface, args []string) pb.Response {
	if len(args) != 2 {
		return shim.Error("Invalid args. Expecting identifier and mapping data hash")
	}

	if args[0] == "" || args[1] == "" {
		return shim.Error("Invalid args. Identifier and mapping data hash must be non-empty strings")
	}

	record := &HashRecord{
		ObjectType:      docType,
		Identifier:      args[0],
		MappingDataHash: args[1],
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return shim.Error(fmt.Sprintf("Error marshalling hash record for [%s]: %s", record.Identifier, err))
	}

	if err := stub.PutState(record.Identifier, recordBytes); err != nil {
		return shim.Error(fmt.Sprintf("Error putting hash record for [%s]: %s", record.Identifier, err))
	}

	return shim.Success(nil)
}

func (cc *HashCC) queryHashByIdentifier(stub shim.ChaincodeStubInterface, args []string) pb.Response {
	if len(args) < 1 || args[0] == "" {
		return shim.Error("Invalid args. Expecting identifier")
	}

	results, err := richquery.Execute(stub, QueryByIdentifier(args[0]))
	if err != nil {
		return shim.Error(err.Error())
	}

	return shim.Success(results)
}

// QueryByIdentifier returns the rich query that selects the hash records of the given identifier
func QueryByIdentifier(identifier string) string {
	return richquery.Selector(map[string]string{
		"docType":    docType,
		"identifier": identifier,
	})
}

func (cc *HashCC) initRegistry() {
	cc.funcRegistry = make(map[string]invokeFunc)
	cc.funcRegistry[InvokeMappingDataHashFunc] = cc.invokeMappingDataHash
	cc.funcRegistry[QueryHashByIdentifierFunc] = cc.queryHashByIdentifier
}

func (cc *HashCC) functions() []string {
	var funcs []string
	for key := range cc.funcRegistry {
		funcs = append(funcs, key)
	}
	return funcs
}
