/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package richquery

import (
	"encoding/json"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"
)

var logger = flogging.MustGetLogger("idl_richquery")

// Query is a rich query with an equality selector
type Query struct {
	Selector map[string]string `json:"selector"`
}

// Result is one record returned by a rich query
type Result struct {
	Key    string
	Record json.RawMessage
}

// Selector returns the query string that selects the records whose fields equal the given values
func Selector(fields map[string]string) string {
	q, err := json.Marshal(&Query{Selector: fields})
	if err != nil {
		// A map of strings always marshals
		panic(err)
	}
	return string(q)
}

// Parse parses a query string created by Selector
func Parse(query string) (*Query, error) {
	q := &Query{}
	if err := json.Unmarshal([]byte(query), q); err != nil {
		return nil, errors.Wrapf(err, "invalid query [%s]", query)
	}

	if len(q.Selector) == 0 {
		return nil, errors.Errorf("selector is required in query [%s]", query)
	}

	return q, nil
}

// Execute runs the query and returns the results as a JSON array of {"Key","Record"} objects.
// An empty array is returned if there are no matches.
func Execute(stub shim.ChaincodeStubInterface, query string) ([]byte, error) {
	it, err := stub.GetQueryResult(query)
	if err != nil {
		return nil, errors.WithMessagef(err, "error executing query [%s]", query)
	}
	defer func() {
		if err := it.Close(); err != nil {
			logger.Warnf("Error closing query iterator: %s", err)
		}
	}()

	results := []*Result{}
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, errors.WithMessage(err, "error accessing query results")
		}

		results = append(results, &Result{Key: kv.Key, Record: kv.Value})
	}

	return json.Marshal(results)
}
