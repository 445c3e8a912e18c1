// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package runtime defines what the host hands a contract invocation and what
// the contract hands back.
package runtime

import (
	"slices"

	"github.com/holiman/uint256"
)

// Context describes a single contract invocation.
type Context struct {
	// Myself is the id of the invoked contract. It is also the asset id of
	// the synthetic token the contract issues.
	Myself ContractID
	// Caller is EOA for externally originated calls.
	Caller ContractID
	// Vout is the virtual output index of the protostone that triggered this
	// invocation. Protostone i of a transaction with n outputs has vout n+1+i.
	Vout uint32
	// Height is the base-chain block height being processed.
	Height uint64
	// Transaction is the consensus-encoded base-chain transaction.
	Transaction []byte
	// Incoming lists the transfers sent into this invocation.
	Incoming []Transfer
	// Inputs are the 128-bit words of the call; the first is the opcode.
	Inputs []uint256.Int
	// Fuel is the remaining budget available to cross-contract calls. No
	// call made on behalf of this invocation is given more.
	Fuel uint64
}

// Response is the result of a successful invocation.
type Response struct {
	// Transfers are sent back to the caller.
	Transfers []Transfer
	Data      []byte
}

// Forward returns a response that hands every incoming transfer back.
func Forward(incoming []Transfer) *Response {
	return &Response{
		Transfers: slices.Clone(incoming),
	}
}
