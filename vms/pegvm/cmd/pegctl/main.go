// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/pegvm/vms/pegvm/cmd/inspect"
	"github.com/luxfi/pegvm/vms/pegvm/cmd/payments"
)

func main() {
	cmd := &cobra.Command{
		Use:   "pegctl",
		Short: "Inspects peg contract payments and invocations",
	}
	cmd.AddCommand(
		payments.Command(),
		inspect.Command(),
	)
	ctx := context.Background()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
