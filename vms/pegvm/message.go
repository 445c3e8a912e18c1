// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pegvm

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/pegvm/vms/pegvm/envelope"
)

// messagePointer extracts the protostone that triggered the invocation at
// vout and returns its validated pointer.
func (c *Contract) messagePointer(tx *wire.MsgTx, vout uint32, spendable uint32) (uint32, error) {
	ordinal, err := envelope.Ordinal(tx, vout)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	msg, err := c.extractor.Extract(tx, ordinal)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	return ValidatePointer(&msg, len(tx.TxOut), spendable)
}

// ValidatePointer checks that msg designates exactly one real output, other
// than spendable, and carries no edicts. It returns that output.
func ValidatePointer(msg *envelope.Protostone, numOutputs int, spendable uint32) (uint32, error) {
	switch {
	case len(msg.Edicts) != 0:
		return 0, fmt.Errorf("%w: %w", ErrProtocolViolation, ErrEdictsNotAllowed)
	case msg.Pointer == nil:
		return 0, fmt.Errorf("%w: %w", ErrProtocolViolation, ErrMissingPointer)
	case uint64(*msg.Pointer) >= uint64(numOutputs):
		return 0, fmt.Errorf("%w: %w: %d >= %d", ErrProtocolViolation, ErrPointerOutOfRange, *msg.Pointer, numOutputs)
	case *msg.Pointer == spendable:
		return 0, fmt.Errorf("%w: %w: %d", ErrProtocolViolation, ErrSelfReferencingPointer, spendable)
	default:
		return *msg.Pointer, nil
	}
}
