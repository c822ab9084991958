/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperledger/fabric/common/flogging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bupt-fnl/idledger/pkg/authority"
	"github.com/bupt-fnl/idledger/pkg/config"
	"github.com/bupt-fnl/idledger/pkg/gateway/fabsdk"
	"github.com/bupt-fnl/idledger/pkg/gateway/localnet"
	"github.com/bupt-fnl/idledger/pkg/mapping"
	"github.com/bupt-fnl/idledger/pkg/metrics"
	"github.com/bupt-fnl/idledger/pkg/txn"
	"github.com/bupt-fnl/idledger/pkg/txn/api"
)

var logger = flogging.MustGetLogger("idl_cli")

const (
	configFlag  = "config"
	localFlag   = "local"
	timeoutFlag = "timeout"

	defaultTimeout = time.Minute
)

type globalFlags struct {
	configPath string
	local      bool
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "idledger",
		Short: "Identity ledger client.",
		Long:  "Registers organizations and records the mapping-data hashes of DHT identifiers on the identity ledger.",
	}

	pflags := rootCmd.PersistentFlags()
	pflags.StringVarP(&flags.configPath, configFlag, "c", "", "Path of the YAML configuration file. IDLEDGER_* environment variables override its values.")
	pflags.BoolVar(&flags.local, localFlag, false, "Run against an in-process ledger network instead of the configured peers.")
	pflags.DurationVar(&flags.timeout, timeoutFlag, defaultTimeout, "Maximum time to spend on the ledger.")

	rootCmd.AddCommand(
		registerOrgCmd(flags),
		lookupOrgCmd(flags),
		recordHashCmd(flags),
		lookupHashCmd(flags),
		serveCmd(flags),
	)

	return rootCmd
}

// cmdFactory holds the clients used by the commands. Close releases the session and the gateway.
type cmdFactory struct {
	cfg       *config.Config
	provider  *txn.Provider
	authority *authority.Client
	mapping   *mapping.Client
	closers   []func()
}

func newCmdFactory(flags *globalFlags) (*cmdFactory, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	mp, err := metrics.NewProvider(cfg.Metrics.Provider)
	if err != nil {
		return nil, err
	}

	f := &cmdFactory{cfg: cfg}

	var gw api.Gateway
	if flags.local {
		logger.Infof("Using an in-process ledger network for channel [%s]", cfg.Channel.Name)

		n, err := localnet.NewFromConfig(cfg)
		if err != nil {
			return nil, err
		}

		f.closers = append(f.closers, n.Close)
		gw = localnet.NewGateway(n)
	} else {
		g, err := fabsdk.New(cfg)
		if err != nil {
			return nil, err
		}

		f.closers = append(f.closers, g.Close)
		gw = g
	}

	f.provider = txn.NewProvider(cfg, gw, metrics.New(mp))
	f.closers = append(f.closers, f.provider.Close)

	session, err := f.provider.Session()
	if err != nil {
		f.Close()
		return nil, err
	}

	f.authority = authority.New(session, cfg.Chaincode.Authority)
	f.mapping = mapping.New(session, cfg.Chaincode.Hash, mapping.WithHashFormat(cfg.HashFormat()))

	return f, nil
}

// Close closes the resources in the reverse order of their creation
func (f *cmdFactory) Close() {
	for i := len(f.closers) - 1; i >= 0; i-- {
		f.closers[i]()
	}
}

// withFactory runs the command function with a new factory and a context bounded by the timeout flag
func withFactory(flags *globalFlags, run func(ctx context.Context, cmd *cobra.Command, f *cmdFactory) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		f, err := newCmdFactory(flags)
		if err != nil {
			return errors.WithMessage(err, "error initializing client")
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
		defer cancel()

		return run(ctx, cmd, f)
	}
}

func printOutcome(w io.Writer, outcome *api.Outcome) {
	for _, s := range outcome.Statuses {
		if s.Message != "" {
			fmt.Fprintf(w, "%s: %s (%s)\n", s.Peer, s.Status, s.Message)
		} else {
			fmt.Fprintf(w, "%s: %s\n", s.Peer, s.Status)
		}
	}

	fmt.Fprintf(w, "[%s] accepted by %d of %d peers (policy %s)\n", outcome.Key, outcome.Successes(), len(outcome.Statuses), outcome.Policy)
}

func printJSON(w io.Writer, v interface{}) error {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshalling output")
	}

	_, err = fmt.Fprintln(w, string(bytes))

	return err
}
