/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bupt-fnl/idledger/pkg/authority"
)

func registerOrgCmd(flags *globalFlags) *cobra.Command {
	reg := &authority.Registration{}

	cmd := &cobra.Command{
		Use:   "register-org",
		Short: "Register an organization.",
		Long:  "Records the organization's identity prefix, public key and access authority on the authority chaincode.",
		Args:  cobra.NoArgs,
		RunE: withFactory(flags, func(ctx context.Context, cmd *cobra.Command, f *cmdFactory) error {
			outcome, err := f.authority.RegisterOrganization(ctx, reg)
			if err != nil {
				return err
			}

			printOutcome(cmd.OutOrStdout(), outcome)

			return nil
		}),
	}

	fl := cmd.Flags()
	fl.StringVar(&reg.ItemNum, "item", "", "Item number of the registration (the record key).")
	fl.StringVar(&reg.OrgName, "org", "", "Organization name.")
	fl.StringVar(&reg.IdentityPrefix, "prefix", "", "Identity prefix of the organization.")
	fl.StringVar(&reg.PublicKey, "public-key", "", "Public key of the organization.")
	fl.StringVar(&reg.Authority, "authority", "", "Access authority of the organization.")

	return cmd
}

func lookupOrgCmd(flags *globalFlags) *cobra.Command {
	var orgName string

	cmd := &cobra.Command{
		Use:   "lookup-org <org>",
		Short: "Look up the records of an organization.",
		Args:  cobra.ExactArgs(1),
		PreRun: func(_ *cobra.Command, args []string) {
			orgName = args[0]
		},
		RunE: withFactory(flags, func(ctx context.Context, cmd *cobra.Command, f *cmdFactory) error {
			records, err := f.authority.LookupOrganizationAuthority(ctx, orgName)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), records)
		}),
	}

	return cmd
}
