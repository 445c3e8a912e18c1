// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import "github.com/holiman/uint256"

// Transfer moves Value units of the asset issued by contract ID.
type Transfer struct {
	ID    ContractID
	Value uint256.Int
}

// NewTransfer returns a transfer of value units of id.
func NewTransfer(id ContractID, value uint64) Transfer {
	return Transfer{
		ID:    id,
		Value: *uint256.NewInt(value),
	}
}
