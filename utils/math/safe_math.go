// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package math provides checked arithmetic over the 128-bit words carried by
// contract invocations.
package math

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow  = errors.New("overflow")
	ErrUnderflow = errors.New("underflow")

	maxU128 = uint256.Int{^uint64(0), ^uint64(0), 0, 0}
)

// MaxU128 returns 2^128 - 1.
func MaxU128() uint256.Int {
	return maxU128
}

// IsU128 reports whether v fits in 128 bits.
func IsU128(v *uint256.Int) bool {
	return v.BitLen() <= 128
}

// AddU128 returns:
// 1) a + b
// 2) If the sum does not fit in 128 bits, an error
func AddU128(a, b *uint256.Int) (uint256.Int, error) {
	var sum uint256.Int
	if _, overflow := sum.AddOverflow(a, b); overflow || !IsU128(&sum) {
		return uint256.Int{}, ErrOverflow
	}
	return sum, nil
}

// SubU128 returns:
// 1) a - b
// 2) If there is underflow, an error
func SubU128(a, b *uint256.Int) (uint256.Int, error) {
	if a.Lt(b) {
		return uint256.Int{}, ErrUnderflow
	}
	var diff uint256.Int
	diff.Sub(a, b)
	return diff, nil
}

// ToUint64 narrows v, failing if it does not fit.
func ToUint64(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}

// ToUint32 narrows v, failing if it does not fit.
func ToUint32(v *uint256.Int) (uint32, error) {
	n, err := ToUint64(v)
	if err != nil || n > uint64(^uint32(0)) {
		return 0, ErrOverflow
	}
	return uint32(n), nil
}
