// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package inspect

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/pflag"

	"github.com/luxfi/pegvm/vms/pegvm/envelope"
)

const (
	TxKey     = "tx"
	VoutKey   = "vout"
	OutputKey = "output"
)

var errMissingTx = errors.New("--tx is required")

func AddFlags(flags *pflag.FlagSet) {
	flags.String(TxKey, "", "Hex encoded transaction (required)")
	flags.Uint32(VoutKey, 0, "Virtual output of the invocation to validate")
	flags.Uint32(OutputKey, 0, "Output index argument of the invocation")
}

type Config struct {
	Tx *wire.MsgTx
	// Vout is nil when no invocation should be validated.
	Vout   *uint32
	Output uint32
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	txHex, err := flags.GetString(TxKey)
	if err != nil {
		return nil, err
	}
	if txHex == "" {
		return nil, errMissingTx
	}
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", TxKey, err)
	}
	tx, err := envelope.ParseTx(raw)
	if err != nil {
		return nil, err
	}

	output, err := flags.GetUint32(OutputKey)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Tx:     tx,
		Output: output,
	}
	if flags.Changed(VoutKey) {
		vout, err := flags.GetUint32(VoutKey)
		if err != nil {
			return nil, err
		}
		config.Vout = &vout
	}
	return config, nil
}
