// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payments

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/luxfi/pegvm/vms/pegvm"
	"github.com/luxfi/pegvm/vms/pegvm/payment"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "payments",
		Short: "Decodes a pending payments blob",
		RunE:  paymentsFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func paymentsFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	records, err := payment.ParseAll(config.Payments)
	if err != nil {
		return err
	}

	described := make([]pegvm.PaymentReply, len(records))
	for i, r := range records {
		described[i] = pegvm.DescribePayment(r, config.Params)
	}

	enc := json.NewEncoder(c.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(described)
}
