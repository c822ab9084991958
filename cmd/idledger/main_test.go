/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bupt-fnl/idledger/pkg/common/cas"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

func TestRegisterOrg(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		out, err := execute("register-org", "--local",
			"--item", "1001", "--org", "bupt", "--prefix", "bupt", "--public-key", "pk1", "--authority", "read")
		require.NoError(t, err)
		require.Contains(t, out, "peer0.org1.example.com: SUCCESS")
		require.Contains(t, out, "[bupt] accepted by 1 of 1 peers (policy any)")
	})

	t.Run("Missing flag", func(t *testing.T) {
		_, err := execute("register-org", "--local", "--org", "bupt")
		require.Error(t, err)
		require.True(t, api.IsKind(err, api.InvalidRequest))
		require.Contains(t, err.Error(), "item number is required")
	})
}

func TestLookupOrg(t *testing.T) {
	out, err := execute("lookup-org", "--local", "bupt")
	require.NoError(t, err)
	require.Equal(t, "[]", strings.TrimSpace(out))

	_, err = execute("lookup-org", "--local")
	require.Error(t, err)
}

func TestRecordHash(t *testing.T) {
	t.Run("Hash", func(t *testing.T) {
		out, err := execute("record-hash", "--local", "bupt/123", "--hash", "s7ehdnj3", "--kind", "update")
		require.NoError(t, err)
		require.Contains(t, out, "[bupt/123] accepted by 1 of 1 peers")
	})

	t.Run("Data file", func(t *testing.T) {
		dir, err := ioutil.TempDir("", "idledger")
		require.NoError(t, err)
		defer func() { require.NoError(t, os.RemoveAll(dir)) }()

		data := []byte("mapping data of bupt/123")
		path := filepath.Join(dir, "mapping.json")
		require.NoError(t, ioutil.WriteFile(path, data, 0600))

		expected, err := cas.Hash(cas.FormatCAS, data)
		require.NoError(t, err)

		out, err := execute("record-hash", "--local", "bupt/123", "--data-file", path)
		require.NoError(t, err)
		require.Contains(t, out, expected)
	})

	t.Run("Hash and data file", func(t *testing.T) {
		_, err := execute("record-hash", "--local", "bupt/123")
		require.Error(t, err)
		require.Contains(t, err.Error(), "exactly one of --hash and --data-file")

		_, err = execute("record-hash", "--local", "bupt/123", "--hash", "h", "--data-file", "f")
		require.Error(t, err)
	})

	t.Run("Invalid kind", func(t *testing.T) {
		_, err := execute("record-hash", "--local", "bupt/123", "--hash", "s7ehdnj3", "--kind", "rename")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported operation kind [rename]")
	})

	t.Run("Missing data file", func(t *testing.T) {
		_, err := execute("record-hash", "--local", "bupt/123", "--data-file", "./testdata/missing")
		require.Error(t, err)
	})
}

func TestLookupHash(t *testing.T) {
	_, err := execute("lookup-hash", "--local", "bupt/999")
	require.Error(t, err)
	require.True(t, api.IsNotFound(err))
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute("lookup-hash", "--local", "--config", "./testdata/missing.yaml", "bupt/123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "error reading config file")
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(ioutil.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}
