/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bupt-fnl/idledger/pkg/rest"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger operations over HTTP.",
		Long:  "Starts the REST server on the configured listen address. Metrics are exposed on /metrics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			f, err := newCmdFactory(flags)
			if err != nil {
				return err
			}
			defer f.Close()

			s := rest.New(f.cfg.REST.ListenAddress, f.authority, f.mapping, rest.WithRequestTimeout(flags.timeout))

			done := make(chan error, 1)
			go func() {
				done <- s.Start()
			}()

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(interrupt)

			select {
			case err := <-done:
				return err
			case sig := <-interrupt:
				logger.Infof("Received signal [%s]", sig)
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return s.Stop(ctx)
		},
	}
}
