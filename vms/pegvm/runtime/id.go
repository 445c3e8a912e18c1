// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/pegvm/utils/wrappers"
)

// ContractIDLen is the serialized length of a ContractID
const ContractIDLen = 2 * wrappers.U128Len

var (
	// EOA is the caller identity of an externally originated call.
	EOA = ContractID{}

	errWrongIDLen = errors.New("contract id must be 32 bytes")
)

// ContractID addresses a contract instance by (namespace, sequence). Both
// halves are 128-bit words.
type ContractID struct {
	Block uint256.Int
	Tx    uint256.Int
}

// NewContractID returns the id {block, tx}.
func NewContractID(block, tx uint64) ContractID {
	return ContractID{
		Block: *uint256.NewInt(block),
		Tx:    *uint256.NewInt(tx),
	}
}

// IsEOA reports whether id is the zero id used for external callers.
func (id ContractID) IsEOA() bool {
	return id == EOA
}

// Bytes returns block || tx, each as a 16-byte little-endian word.
func (id ContractID) Bytes() []byte {
	p := wrappers.Packer{MaxSize: ContractIDLen}
	p.PackU128(&id.Block)
	p.PackU128(&id.Tx)
	return p.Bytes
}

func (id ContractID) String() string {
	return fmt.Sprintf("%s:%s", id.Block.Dec(), id.Tx.Dec())
}

// ParseContractID is the inverse of Bytes.
func ParseContractID(b []byte) (ContractID, error) {
	if len(b) != ContractIDLen {
		return ContractID{}, errWrongIDLen
	}
	p := wrappers.Packer{Bytes: b}
	id := ContractID{
		Block: p.UnpackU128(),
		Tx:    p.UnpackU128(),
	}
	return id, p.Err
}
