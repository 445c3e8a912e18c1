// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payments

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/pflag"

	"github.com/luxfi/pegvm/vms/pegvm/config"
)

const (
	HexKey     = "hex"
	NetworkKey = "network"
)

var errMissingHex = errors.New("--hex is required")

func AddFlags(flags *pflag.FlagSet) {
	flags.String(HexKey, "", "Hex encoded pending payments blob (required)")
	flags.String(NetworkKey, config.DefaultConfig().Network, "Network to render addresses for")
}

type Config struct {
	Payments []byte
	Params   *chaincfg.Params
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	blob, err := flags.GetString(HexKey)
	if err != nil {
		return nil, err
	}
	if blob == "" {
		return nil, errMissingHex
	}
	payments, err := hex.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", HexKey, err)
	}

	network, err := flags.GetString(NetworkKey)
	if err != nil {
		return nil, err
	}
	cfg := config.Config{Network: network}
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}

	return &Config{
		Payments: payments,
		Params:   params,
	}, nil
}
