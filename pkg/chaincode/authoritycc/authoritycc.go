/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package authoritycc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	pb "github.com/hyperledger/fabric-protos-go/peer"

	"github.com/bupt-fnl/idledger/pkg/chaincode/richquery"
)

type invokeFunc func(stub shim.ChaincodeStubInterface, args []string) pb.Response
type funcMap map[string]invokeFunc

const (
	v1 = "v1"

	// DefaultName is the default name of the chaincode
	DefaultName = "cc_authority"

	// InitOrgFunc registers an organization
	InitOrgFunc = "initOrg"
	// QueryInfoByOrgFunc returns the records of an organization
	QueryInfoByOrgFunc = "queryInfoByOrg"

	docType = "org"
)

// OrgRecord is the on-ledger record of an organization
type OrgRecord struct {
	ObjectType     string `json:"docType"`
	ItemNum        string `json:"item_num"`
	OrgName        string `json:"org_name"`
	IdentityPrefix string `json:"identity_prefix"`
	PublicKey      string `json:"public_key"`
	Authority      string `json:"authority"`
}

// AuthorityCC stores the public key, identity prefix and access authority of organizations
type AuthorityCC struct {
	name         string
	funcRegistry funcMap
}

// New returns a new authority chaincode instance
func New(name string) *AuthorityCC {
	cc := &AuthorityCC{name: name}
	cc.initRegistry()
	return cc
}

// Name returns the name of this chaincode
func (cc *AuthorityCC) Name() string { return cc.name }

// Version returns the version of the chaincode
func (cc *AuthorityCC) Version() string { return v1 }

// Chaincode returns the chaincode
func (cc *AuthorityCC) Chaincode() shim.Chaincode { return cc }

// Init is not used
func (cc *AuthorityCC) Init(stub shim.ChaincodeStubInterface) pb.Response {
	return shim.Success(nil)
}

// Invoke invokes the chaincode with a given function
func (cc *AuthorityCC) Invoke(stub shim.ChaincodeStubInterface) pb.Response {
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

func (cc *AuthorityCC) initOrg(stub shim.ChaincodeStubInterface, args []string) pb.Response {
	if len(args) != 5 {
		return shim.Error("Invalid args. Expecting item number, organization name, identity prefix, public key and authority")
	}

	for i, arg := range args {
		if arg == "" {
			return shim.Error(fmt.Sprintf("Invalid args. Argument %d must be a non-empty string", i+1))
		}
	}

	org := &OrgRecord{
		ObjectType:     docType,
		ItemNum:        args[0],
		OrgName:        strings.ToLower(args[1]),
		IdentityPrefix: args[2],
		PublicKey:      args[3],
		Authority:      args[4],
	}

	orgBytes, err := json.Marshal(org)
	if err != nil {
		return shim.Error(fmt.Sprintf("Error marshalling organization [%s]: %s", org.OrgName, err))
	}

	if err := stub.PutState(org.ItemNum, orgBytes); err != nil {
		return shim.Error(fmt.Sprintf("Error putting organization [%s] for item [%s]: %s", org.OrgName, org.ItemNum, err))
	}

	return shim.Success(nil)
}

func (cc *AuthorityCC) queryInfoByOrg(stub shim.ChaincodeStubInterface, args []string) pb.Response {
	if len(args) < 1 || args[0] == "" {
		return shim.Error("Invalid args. Expecting organization name")
	}

	results, err := richquery.Execute(stub, QueryByOrg(args[0]))
	if err != nil {
		return shim.Error(err.Error())
	}

	return shim.Success(results)
}

// QueryByOrg returns the rich query that selects the records of the given organization
func QueryByOrg(orgName string) string {
	return richquery.Selector(map[string]string{
		"docType":  docType,
		"org_name": strings.ToLower(orgName),
	})
}

func (cc *AuthorityCC) initRegistry() {
	cc.funcRegistry = make(map[string]invokeFunc)
	cc.funcRegistry[InitOrgFunc] = cc.initOrg
	cc.funcRegistry[QueryInfoByOrgFunc] = cc.queryInfoByOrg
}

func (cc *AuthorityCC) functions() []string {
	var funcs []string
	for key := range cc.funcRegistry {
		funcs = append(funcs, key)
	}
	return funcs
}
