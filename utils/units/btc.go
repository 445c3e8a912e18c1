// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

// Denominations of base-chain value. The synthetic token shares the base
// unit, so one Satoshi deposited mints one synthetic unit.
const (
	Satoshi  uint64 = 1
	Bit      uint64 = 100 * Satoshi  // 1 µBTC
	MilliBTC uint64 = 1000 * Bit     // 0.001 BTC
	BTC      uint64 = 1000 * MilliBTC // 10^8 satoshi

	// Decimals is the number of decimal places between the base unit and
	// one whole coin.
	Decimals = 8
)
