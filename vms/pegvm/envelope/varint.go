// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import (
	"errors"

	"github.com/holiman/uint256"
)

// maxVarintLen is the longest LEB128 encoding of a 128-bit value. The last
// byte may only carry the top two bits.
const maxVarintLen = 19

var (
	ErrVarintOverflow  = errors.New("varint overflows 128 bits")
	ErrVarintTruncated = errors.New("varint truncated")
)

// DecodeVarint reads one LEB128 128-bit value from the front of b and
// returns it along with the number of bytes consumed.
func DecodeVarint(b []byte) (uint256.Int, int, error) {
	var n uint256.Int
	for i, c := range b {
		if i == maxVarintLen {
			return uint256.Int{}, 0, ErrVarintOverflow
		}
		group := uint64(c & 0x7f)
		if i == maxVarintLen-1 && group > 0b11 {
			return uint256.Int{}, 0, ErrVarintOverflow
		}

		var part uint256.Int
		part.SetUint64(group)
		part.Lsh(&part, uint(7*i))
		n.Or(&n, &part)

		if c&0x80 == 0 {
			return n, i + 1, nil
		}
	}
	return uint256.Int{}, 0, ErrVarintTruncated
}

// DecodeVarints reads LEB128 values until b is exhausted.
func DecodeVarints(b []byte) ([]uint256.Int, error) {
	var values []uint256.Int
	for len(b) > 0 {
		v, n, err := DecodeVarint(b)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		b = b[n:]
	}
	return values, nil
}

// AppendVarint appends the LEB128 encoding of v to dst. v must fit in 128
// bits.
func AppendVarint(dst []byte, v *uint256.Int) []byte {
	var rest uint256.Int
	rest.Set(v)
	for {
		group := byte(rest.Uint64() & 0x7f)
		rest.Rsh(&rest, 7)
		if rest.IsZero() {
			return append(dst, group)
		}
		dst = append(dst, group|0x80)
	}
}

// AppendVarintUint64 is AppendVarint for a 64-bit value.
func AppendVarintUint64(dst []byte, v uint64) []byte {
	return AppendVarint(dst, uint256.NewInt(v))
}
