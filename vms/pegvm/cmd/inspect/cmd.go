// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package inspect

import (
	"encoding/hex"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/luxfi/pegvm/vms/pegvm"
	"github.com/luxfi/pegvm/vms/pegvm/envelope"
)

type protostone struct {
	Vout        uint32  `json:"vout"`
	ProtocolTag string  `json:"protocolTag"`
	Pointer     *uint32 `json:"pointer,omitempty"`
	Edicts      int     `json:"edicts"`
	Message     string  `json:"message"`
}

type result struct {
	TxID        string       `json:"txID"`
	Outputs     int          `json:"outputs"`
	Protostones []protostone `json:"protostones"`
	// Set when --vout is given.
	Pointer *uint32 `json:"pointer,omitempty"`
	Error   string  `json:"error,omitempty"`
}

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "inspect",
		Short: "Decodes the protostones of a transaction and validates an invocation",
		RunE:  inspectFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func inspectFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	extractor, err := envelope.NewExtractor(1)
	if err != nil {
		return err
	}
	stones, err := extractor.Protostones(config.Tx)
	if err != nil {
		return err
	}

	out := result{
		TxID:        config.Tx.TxHash().String(),
		Outputs:     len(config.Tx.TxOut),
		Protostones: make([]protostone, len(stones)),
	}
	first := uint32(len(config.Tx.TxOut)) + 1
	for i, stone := range stones {
		out.Protostones[i] = protostone{
			Vout:        first + uint32(i),
			ProtocolTag: stone.ProtocolTag.Dec(),
			Pointer:     stone.Pointer,
			Edicts:      len(stone.Edicts),
			Message:     hex.EncodeToString(stone.Message),
		}
	}

	if config.Vout != nil {
		pointer, err := validate(extractor, config)
		if err != nil {
			out.Error = err.Error()
		} else {
			out.Pointer = &pointer
		}
	}

	enc := json.NewEncoder(c.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func validate(extractor *envelope.Extractor, config *Config) (uint32, error) {
	ordinal, err := envelope.Ordinal(config.Tx, *config.Vout)
	if err != nil {
		return 0, err
	}
	msg, err := extractor.Extract(config.Tx, ordinal)
	if err != nil {
		return 0, err
	}
	return pegvm.ValidatePointer(&msg, len(config.Tx.TxOut), config.Output)
}
