// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
)

// ErrOutOfFuel is returned by a Gateway when a call exhausts its budget.
var ErrOutOfFuel = errors.New("out of fuel")

// Gateway performs synchronous calls into other contracts.
//
// A call either completes within fuel and returns the callee's response, or
// fails without effect. A failed call fails the invocation that issued it.
type Gateway interface {
	Call(
		ctx context.Context,
		target ContractID,
		inputs []uint256.Int,
		parcel []Transfer,
		fuel uint64,
	) (*Response, error)
}
