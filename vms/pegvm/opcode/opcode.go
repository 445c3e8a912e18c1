// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package opcode decodes the leading inputs of a contract call into the
// operation it requests.
package opcode

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var (
	ErrMissingOpcode   = errors.New("missing opcode")
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrMissingArgument = errors.New("missing argument")
	ErrArgumentRange   = errors.New("argument out of range")
)

// Op is an operation the peg contract exposes.
type Op uint8

const (
	Initialize Op = iota
	SetSigner
	Wrap
	Unwrap
	Name
	// SignerOrSymbol returns the signer address to external callers and the
	// token symbol to contracts.
	SignerOrSymbol
	PendingPayments
	Decimals
)

func (o Op) String() string {
	switch o {
	case Initialize:
		return "initialize"
	case SetSigner:
		return "setSigner"
	case Wrap:
		return "wrap"
	case Unwrap:
		return "unwrap"
	case Name:
		return "name"
	case SignerOrSymbol:
		return "signerOrSymbol"
	case PendingPayments:
		return "pendingPayments"
	case Decimals:
		return "decimals"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

type entry struct {
	op     Op
	legacy bool
}

var table = map[uint64]entry{
	0:    {op: Initialize},
	1:    {op: SetSigner},
	2:    {op: Wrap},
	3:    {op: Unwrap},
	99:   {op: Name},
	100:  {op: SignerOrSymbol},
	101:  {op: PendingPayments},
	102:  {op: Decimals},
	77:   {op: Wrap, legacy: true},
	78:   {op: Unwrap, legacy: true},
	1001: {op: PendingPayments, legacy: true},
}

// Code returns the canonical opcode of op.
func Code(op Op) uint64 {
	for code, e := range table {
		if e.op == op && !e.legacy {
			return code
		}
	}
	panic(fmt.Sprintf("no opcode for %s", op))
}

// Call is a decoded invocation.
type Call struct {
	Op Op
	// Legacy is set when the call used an alias opcode.
	Legacy bool
	// Units is the auth token supply requested by Initialize.
	Units uint256.Int
	// Output is the output index argument of SetSigner and Unwrap.
	Output uint32
}

// Decode maps inputs to a Call. Inputs past the ones the operation reads are
// ignored.
func Decode(inputs []uint256.Int) (Call, error) {
	if len(inputs) == 0 {
		return Call{}, ErrMissingOpcode
	}
	code := inputs[0]
	if !code.IsUint64() {
		return Call{}, fmt.Errorf("%w: %s", ErrUnknownOpcode, code.Dec())
	}
	e, ok := table[code.Uint64()]
	if !ok {
		return Call{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, code.Uint64())
	}

	call := Call{
		Op:     e.op,
		Legacy: e.legacy,
	}
	args := inputs[1:]
	switch e.op {
	case Initialize:
		if len(args) < 1 {
			return Call{}, fmt.Errorf("%w: %s needs a unit count", ErrMissingArgument, e.op)
		}
		call.Units = args[0]
	case SetSigner, Unwrap:
		if len(args) < 1 {
			return Call{}, fmt.Errorf("%w: %s needs an output index", ErrMissingArgument, e.op)
		}
		if !args[0].IsUint64() || args[0].Uint64() > uint64(^uint32(0)) {
			return Call{}, fmt.Errorf("%w: output index %s", ErrArgumentRange, args[0].Dec())
		}
		call.Output = uint32(args[0].Uint64())
	}
	return call, nil
}

// Inputs encodes c back into call inputs using canonical opcodes.
func (c Call) Inputs() []uint256.Int {
	inputs := []uint256.Int{*uint256.NewInt(Code(c.Op))}
	switch c.Op {
	case Initialize:
		inputs = append(inputs, c.Units)
	case SetSigner, Unwrap:
		inputs = append(inputs, *uint256.NewInt(uint64(c.Output)))
	}
	return inputs
}
