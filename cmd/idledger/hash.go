/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bupt-fnl/idledger/pkg/mapping"
)

func recordHashCmd(flags *globalFlags) *cobra.Command {
	var (
		identifier string
		hash       string
		dataFile   string
		kind       string
	)

	cmd := &cobra.Command{
		Use:   "record-hash <identifier>",
		Short: "Record the mapping-data hash of an identifier.",
		Long: "Records the mapping-data hash of a DHT identifier on the hash chaincode. The hash is either " +
			"given with --hash or computed from the contents of --data-file.",
		Args: cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, args []string) error {
			identifier = args[0]

			if (hash == "") == (dataFile == "") {
				return errors.New("exactly one of --hash and --data-file must be specified")
			}

			return nil
		},
		RunE: withFactory(flags, func(ctx context.Context, cmd *cobra.Command, f *cmdFactory) error {
			opKind, err := mapping.OperationKindFromString(kind)
			if err != nil {
				return err
			}

			if dataFile != "" {
				data, err := ioutil.ReadFile(dataFile)
				if err != nil {
					return errors.Wrapf(err, "error reading [%s]", dataFile)
				}

				h, outcome, err := f.mapping.RecordMappingData(ctx, identifier, data, opKind)
				if err != nil {
					return err
				}

				printOutcome(cmd.OutOrStdout(), outcome)
				fmt.Fprintln(cmd.OutOrStdout(), h)

				return nil
			}

			outcome, err := f.mapping.RecordMappingHash(ctx, &mapping.Record{
				Identifier:      identifier,
				MappingDataHash: hash,
				Kind:            opKind,
			})
			if err != nil {
				return err
			}

			printOutcome(cmd.OutOrStdout(), outcome)

			return nil
		}),
	}

	fl := cmd.Flags()
	fl.StringVar(&hash, "hash", "", "Mapping-data hash to record.")
	fl.StringVar(&dataFile, "data-file", "", "File holding the mapping data. Its hash is computed in the configured format.")
	fl.StringVar(&kind, "kind", string(mapping.Write), "Operation kind: write, delete or update.")

	return cmd
}

func lookupHashCmd(flags *globalFlags) *cobra.Command {
	var identifier string

	return &cobra.Command{
		Use:   "lookup-hash <identifier>",
		Short: "Look up the mapping-data hash of an identifier.",
		Args:  cobra.ExactArgs(1),
		PreRun: func(_ *cobra.Command, args []string) {
			identifier = args[0]
		},
		RunE: withFactory(flags, func(ctx context.Context, cmd *cobra.Command, f *cmdFactory) error {
			hash, err := f.mapping.LookupMappingHash(ctx, identifier)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)

			return nil
		}),
	}
}
